// Package download resolves licenses and streams licensed content to disk.
//
// The pipeline for one item is: history check, license resolution, CDN fetch
// into a temp file, size policy, rename into place, history record, tag hook.
// Items are isolated from each other; a failed item never aborts a batch.
package download

import (
	"context"

	"github.com/jmagar/bookbeat-cli/internal/model"
	"github.com/jmagar/bookbeat-cli/internal/store"
)

// LicenseResolver produces a license naming at least one location.
type LicenseResolver interface {
	Resolve(ctx context.Context, contentID string) (*model.License, error)
}

// Tagger embeds metadata into a finished file. It runs after the file has
// been moved into place; its failure is reported but keeps the file.
type Tagger interface {
	Tag(ctx context.Context, path string, job Job) error
}

// Reporter receives byte-count events per job. Implementations must be safe
// for concurrent use when the pool runs more than one worker.
type Reporter interface {
	Start(job Job, total int64)
	Advance(job Job, n int)
	Finish(job Job, written int64, err error)
}

// HistoryStore records finished downloads.
type HistoryStore interface {
	Lookup(contentID string) (*store.HistoryEntry, bool, error)
	Record(entry store.HistoryEntry) error
}

type nopReporter struct{}

func (nopReporter) Start(Job, int64)         {}
func (nopReporter) Advance(Job, int)         {}
func (nopReporter) Finish(Job, int64, error) {}
