package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jmagar/bookbeat-cli/internal/api"
	"github.com/jmagar/bookbeat-cli/internal/helpers"
	"github.com/jmagar/bookbeat-cli/internal/model"
	"github.com/jmagar/bookbeat-cli/internal/store"
)

// ErrStreamDisabled is returned when a license only offers a stream location
// and stream fallback is off.
var ErrStreamDisabled = errors.New("license only offers a stream location and stream fallback is disabled")

// Options configures a Downloader.
type Options struct {
	OutPath        string
	SizePolicy     model.SizePolicy
	StreamFallback bool
	History        HistoryStore
	Tagger         Tagger
	Reporter       Reporter
	Logger         *slog.Logger
}

// Result is the outcome of one job.
type Result struct {
	Job     Job
	Path    string
	Bytes   int64
	Skipped bool
	Warning string
	Err     error
}

// Downloader runs the per-item pipeline.
type Downloader struct {
	resolver LicenseResolver
	fetcher  *Fetcher
	opts     Options
	now      func() time.Time
}

// NewDownloader returns a Downloader writing under opts.OutPath.
func NewDownloader(resolver LicenseResolver, fetcher *Fetcher, opts Options) *Downloader {
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.SizePolicy == "" {
		opts.SizePolicy = model.DefaultSizePolicy
	}
	if fetcher == nil {
		fetcher = NewFetcher(nil)
	}
	return &Downloader{resolver: resolver, fetcher: fetcher, opts: opts, now: time.Now}
}

// Download resolves a fresh license for job and writes the content to its
// final path. The final path only ever holds a complete file.
func (d *Downloader) Download(ctx context.Context, job Job) Result {
	res := Result{Job: job, Path: filepath.Join(d.opts.OutPath, job.FileName)}
	log := d.opts.Logger.With("content_id", job.ContentID, "format", string(job.Format))

	if skip, err := d.alreadyDone(job, res.Path); err != nil {
		log.Warn("history lookup failed", "error", err)
	} else if skip {
		log.Info("already downloaded, skipping", "path", res.Path)
		res.Skipped = true
		return res
	}

	lic, err := d.resolver.Resolve(ctx, job.ContentID)
	if err != nil {
		res.Err = err
		return res
	}
	location, stream, err := d.selectLocation(lic)
	if err != nil {
		res.Err = err
		return res
	}

	d.opts.Reporter.Start(job, lic.FileSize)
	onChunk := func(n int) { d.opts.Reporter.Advance(job, n) }
	err = WriteAtomic(ctx, res.Path, func(w io.Writer) error {
		var n int64
		var ferr error
		if stream {
			n, ferr = d.fetcher.FetchStream(ctx, lic, location, w, onChunk)
		} else {
			n, ferr = d.fetcher.Fetch(ctx, location, lic.FileSize, w, onChunk)
		}
		res.Bytes = n
		if ferr != nil {
			return ferr
		}
		return d.checkSize(job, lic, n, &res)
	})
	d.opts.Reporter.Finish(job, res.Bytes, err)
	if err != nil {
		res.Err = fmt.Errorf("download %s: %w", job.ContentID, err)
		return res
	}
	log.Info("download complete", "path", res.Path, "bytes", res.Bytes, "stream", stream)

	if d.opts.History != nil {
		entry := store.HistoryEntry{
			ContentID:  job.ContentID,
			Title:      job.Title,
			Path:       res.Path,
			Bytes:      res.Bytes,
			Downloaded: d.now().UTC(),
		}
		if err := d.opts.History.Record(entry); err != nil {
			log.Warn("failed to record download history", "error", err)
		}
	}
	if d.opts.Tagger != nil {
		if err := d.opts.Tagger.Tag(ctx, res.Path, job); err != nil {
			log.Warn("tagging failed", "error", err)
			res.Warning = fmt.Sprintf("tagging failed: %v", err)
		}
	}
	return res
}

// alreadyDone reports whether job's file exists at the recorded or planned
// path. A history entry whose file is gone does not count.
func (d *Downloader) alreadyDone(job Job, path string) (bool, error) {
	if d.opts.History != nil {
		entry, ok, err := d.opts.History.Lookup(job.ContentID)
		if err != nil {
			return false, err
		}
		if ok {
			if exists, _ := helpers.FileExists(entry.Path); exists {
				return true, nil
			}
		}
	}
	return helpers.FileExists(path)
}

// selectLocation prefers the full-file download location. The stream
// location is used only when fallback is enabled.
func (d *Downloader) selectLocation(lic *model.License) (string, bool, error) {
	if u, ok := lic.DownloadURL(); ok {
		return u, false, nil
	}
	if u, ok := lic.StreamURL(); ok {
		if d.opts.StreamFallback {
			return u, true, nil
		}
		return "", false, ErrStreamDisabled
	}
	return "", false, &api.NoDownloadLocationError{ContentID: lic.ISBN}
}

// checkSize applies the size policy. A declared size of zero is unknown and
// never checked.
func (d *Downloader) checkSize(job Job, lic *model.License, written int64, res *Result) error {
	if lic.FileSize <= 0 || written == lic.FileSize {
		return nil
	}
	mismatch := &api.SizeMismatchError{ContentID: job.ContentID, Expected: lic.FileSize, Written: written}
	switch d.opts.SizePolicy {
	case model.SizePolicyEnforce:
		return mismatch
	case model.SizePolicyWarn:
		d.opts.Logger.Warn("size mismatch", "content_id", job.ContentID, "expected", lic.FileSize, "written", written)
		res.Warning = mismatch.Error()
	}
	return nil
}
