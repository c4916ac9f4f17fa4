// Package paging drives offset/limit paginated queries as lazy sequences.
//
// A traversal always starts at offset 0, advances by the requested limit and
// stops at the first page shorter than the limit. A page holding exactly limit
// items therefore costs one more round trip even when it was the last one; the
// reported total is not used to skip it.
package paging

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/jmagar/bookbeat-cli/internal/model"
)

// ErrInvalidLimit is yielded when a traversal is started with limit < 1.
var ErrInvalidLimit = errors.New("paging: limit must be positive")

// FetchFunc fetches the page starting at offset with at most limit items.
type FetchFunc[T any] func(ctx context.Context, offset, limit int) (model.Page[T], error)

// PageInfo describes a fetched page to an observer.
type PageInfo struct {
	Offset int
	Limit  int
	Count  int
	Total  int
}

// Option configures a traversal.
type Option func(*options)

type options struct {
	onPage func(PageInfo)
}

// OnPage registers fn to be called after every fetched page, before its
// items are yielded.
func OnPage(fn func(PageInfo)) Option {
	return func(o *options) { o.onPage = fn }
}

// All returns a lazy sequence over every item of every page. Items are
// yielded in server order. A fetch error is yielded once as (zero, err) and
// ends the sequence. Breaking out of the loop stops further fetches.
func All[T any](ctx context.Context, limit int, fetch FetchFunc[T], opts ...Option) iter.Seq2[T, error] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return func(yield func(T, error) bool) {
		var zero T
		if limit < 1 {
			yield(zero, ErrInvalidLimit)
			return
		}
		for offset := 0; ; offset += limit {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			page, err := fetch(ctx, offset, limit)
			if err != nil {
				yield(zero, fmt.Errorf("fetch page at offset %d: %w", offset, err))
				return
			}
			if o.onPage != nil {
				o.onPage(PageInfo{Offset: offset, Limit: limit, Count: len(page.Items), Total: page.Total})
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
			if len(page.Items) < limit {
				return
			}
		}
	}
}

// Collect drains a sequence into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
