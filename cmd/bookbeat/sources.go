package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"

	"github.com/jmagar/bookbeat-cli/internal/api"
	"github.com/jmagar/bookbeat-cli/internal/download"
	"github.com/jmagar/bookbeat-cli/internal/filter"
	"github.com/jmagar/bookbeat-cli/internal/helpers"
	"github.com/jmagar/bookbeat-cli/internal/model"
	"github.com/jmagar/bookbeat-cli/internal/paging"
	"github.com/jmagar/bookbeat-cli/internal/ui"
)

// catalogSource is the part of api.Catalog the planner walks.
type catalogSource interface {
	ItemDetail(ctx context.Context, market string, id uint64) (*model.Book, error)
	SearchPages(f api.SearchFilters) paging.FetchFunc[model.SearchBook]
	TabSearchPages(f api.SearchFilters) paging.FetchFunc[model.SearchBook]
	SeriesPages(seriesID uint32, onSeries func(*model.Series)) paging.FetchFunc[model.SeriesPart]
}

// sources lists what the user asked to download.
type sources struct {
	IDs        []uint64
	Authors    []string
	Narrators  []string
	Series     []uint32
	Queries    []string
	AudioISBNs []string
	EbookISBNs []string
}

func sourcesFromArgs(args *model.Args) (sources, error) {
	s := sources{
		IDs:        args.IDs,
		Authors:    helpers.Dedupe(args.Authors),
		Narrators:  helpers.Dedupe(args.Narrators),
		Series:     args.Series,
		Queries:    helpers.Dedupe(args.Queries),
		AudioISBNs: helpers.Dedupe(args.AudioISBNs),
		EbookISBNs: helpers.Dedupe(args.EbookISBNs),
	}
	if args.IDFile != "" {
		lines, err := helpers.ReadTxtFile(args.IDFile)
		if err != nil {
			return s, err
		}
		for _, line := range lines {
			id, err := strconv.ParseUint(line, 10, 64)
			if err != nil {
				return s, fmt.Errorf("%s: invalid book id %q", args.IDFile, line)
			}
			s.IDs = append(s.IDs, id)
		}
	}
	return s, nil
}

// planner turns sources into download jobs, lazily and in source order:
// ids, authors, narrators, series, queries, then ISBNs.
type planner struct {
	catalog   catalogSource
	market    string
	languages []string
	sfw       bool
	pageSize  int
	formats   model.Formats
	matcher   filter.Matcher
	logger    *slog.Logger

	// onSkip receives catalog items that could not be planned.
	onSkip func(what string, err error)
}

// Jobs yields every planned job. Listing failures end the sequence with an
// error; a book id that cannot be looked up is reported and skipped.
// Explicit ISBNs are downloaded regardless of the format switches.
func (p *planner) Jobs(ctx context.Context, src sources) iter.Seq2[download.Job, error] {
	return func(yield func(download.Job, error) bool) {
		emit := func(jobs []download.Job) bool {
			for _, j := range jobs {
				if !yield(j, nil) {
					return false
				}
			}
			return true
		}

		for _, id := range src.IDs {
			book, err := p.catalog.ItemDetail(ctx, p.market, id)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, api.ErrCircuitOpen) {
					yield(download.Job{}, err)
					return
				}
				p.skip(fmt.Sprintf("book %d", id), err)
				continue
			}
			if !p.matcher.Match(book.Title) {
				continue
			}
			if !emit(download.JobsForBook(book, p.formats)) {
				return
			}
		}

		for _, author := range src.Authors {
			f := p.filters(api.SearchFilters{Author: author})
			if !p.emitItems(ctx, "author "+author, p.catalog.SearchPages(f), yield) {
				return
			}
		}
		for _, narrator := range src.Narrators {
			f := p.filters(api.SearchFilters{Narrator: narrator})
			if !p.emitItems(ctx, "narrator "+narrator, p.catalog.SearchPages(f), yield) {
				return
			}
		}

		for _, id := range src.Series {
			if !p.emitSeries(ctx, id, yield) {
				return
			}
		}

		for _, query := range src.Queries {
			f := p.filters(api.SearchFilters{Query: query, Market: p.market})
			if !p.emitItems(ctx, "query "+strconv.Quote(query), p.catalog.TabSearchPages(f), yield) {
				return
			}
		}

		for _, isbn := range src.AudioISBNs {
			if !yield(download.JobForISBN(isbn, model.FormatAudioBook), nil) {
				return
			}
		}
		for _, isbn := range src.EbookISBNs {
			if !yield(download.JobForISBN(isbn, model.FormatEBook), nil) {
				return
			}
		}
	}
}

func (p *planner) filters(f api.SearchFilters) api.SearchFilters {
	f.Languages = p.languages
	f.IncludeExplicit = !p.sfw
	return f
}

func (p *planner) emitItems(ctx context.Context, label string, fetch paging.FetchFunc[model.SearchBook], yield func(download.Job, error) bool) bool {
	items := paging.All(ctx, p.pageSize, fetch, paging.OnPage(func(pi paging.PageInfo) {
		p.logger.Debug("page fetched", "source", label, "offset", pi.Offset, "items", pi.Count, "total", pi.Total)
	}))
	items = filter.Seq(items, p.matcher, func(b model.SearchBook) string { return b.Title })
	for item, err := range items {
		if err != nil {
			yield(download.Job{}, fmt.Errorf("%s: %w", label, err))
			return false
		}
		for _, j := range download.JobsForItem(&item, "", p.formats) {
			if !yield(j, nil) {
				return false
			}
		}
	}
	return true
}

func (p *planner) emitSeries(ctx context.Context, id uint32, yield func(download.Job, error) bool) bool {
	announced := false
	onSeries := func(s *model.Series) {
		if !announced {
			announced = true
			ui.PrintInfo(fmt.Sprintf("Series %s%s%s (%d parts)", ui.ColorBold, s.Name, ui.ColorReset, s.Count))
		}
	}
	parts := paging.All(ctx, p.pageSize, p.catalog.SeriesPages(id, onSeries))
	parts = filter.Seq(parts, p.matcher, func(sp model.SeriesPart) string { return sp.Embedded.Book.Title })
	for part, err := range parts {
		if err != nil {
			yield(download.Job{}, fmt.Errorf("series %d: %w", id, err))
			return false
		}
		book := part.Embedded.Book
		for _, j := range download.JobsForItem(&book, download.SeriesPrefix(part.PartNumber), p.formats) {
			if !yield(j, nil) {
				return false
			}
		}
	}
	return true
}

func (p *planner) skip(what string, err error) {
	p.logger.Warn("catalog item skipped", "item", what, "error", err)
	if p.onSkip != nil {
		p.onSkip(what, err)
	}
}
