package api

import (
	"context"
	"fmt"

	"github.com/jmagar/bookbeat-cli/internal/model"
)

// licenseSource is the catalog call a Resolver depends on.
type licenseSource interface {
	License(ctx context.Context, contentID string) (*model.License, error)
}

// Resolver fetches a fresh license for every download attempt.
type Resolver struct {
	source licenseSource
}

// NewResolver returns a resolver backed by the catalog.
func NewResolver(c *Catalog) *Resolver {
	return &Resolver{source: c}
}

// Resolve returns the license of contentID. A license that names neither a
// download nor a stream location yields a NoDownloadLocationError.
func (r *Resolver) Resolve(ctx context.Context, contentID string) (*model.License, error) {
	lic, err := r.source.License(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("resolve license %s: %w", contentID, err)
	}
	_, hasDownload := lic.DownloadURL()
	_, hasStream := lic.StreamURL()
	if !hasDownload && !hasStream {
		return nil, &NoDownloadLocationError{ContentID: contentID}
	}
	return lic, nil
}
