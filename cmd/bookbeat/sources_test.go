package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/bookbeat-cli/internal/api"
	"github.com/jmagar/bookbeat-cli/internal/config"
	"github.com/jmagar/bookbeat-cli/internal/download"
	"github.com/jmagar/bookbeat-cli/internal/filter"
	"github.com/jmagar/bookbeat-cli/internal/model"
	"github.com/jmagar/bookbeat-cli/internal/paging"
)

type fakeCatalog struct {
	books   map[uint64]*model.Book
	search  map[string][]model.SearchBook
	series  []model.SeriesPart
	listErr error
	calls   []string
}

func (f *fakeCatalog) ItemDetail(_ context.Context, market string, id uint64) (*model.Book, error) {
	f.calls = append(f.calls, "detail")
	if b, ok := f.books[id]; ok {
		return b, nil
	}
	return nil, &api.APIError{StatusCode: 404, Message: "Not found"}
}

func (f *fakeCatalog) pages(key string, items []model.SearchBook) paging.FetchFunc[model.SearchBook] {
	return func(_ context.Context, offset, limit int) (model.Page[model.SearchBook], error) {
		f.calls = append(f.calls, key)
		if f.listErr != nil {
			return model.Page[model.SearchBook]{}, f.listErr
		}
		end := min(offset+limit, len(items))
		if offset > end {
			offset = end
		}
		return model.Page[model.SearchBook]{Items: items[offset:end], Total: len(items)}, nil
	}
}

func (f *fakeCatalog) SearchPages(sf api.SearchFilters) paging.FetchFunc[model.SearchBook] {
	key := "author:" + sf.Author
	if sf.Narrator != "" {
		key = "narrator:" + sf.Narrator
	}
	return f.pages(key, f.search[key])
}

func (f *fakeCatalog) TabSearchPages(sf api.SearchFilters) paging.FetchFunc[model.SearchBook] {
	return f.pages("query:"+sf.Query, f.search["query:"+sf.Query])
}

func (f *fakeCatalog) SeriesPages(id uint32, onSeries func(*model.Series)) paging.FetchFunc[model.SeriesPart] {
	return func(_ context.Context, offset, limit int) (model.Page[model.SeriesPart], error) {
		f.calls = append(f.calls, "series")
		s := &model.Series{ID: id, Name: "Saga", Count: len(f.series)}
		if onSeries != nil {
			onSeries(s)
		}
		end := min(offset+limit, len(f.series))
		if offset > end {
			offset = end
		}
		return model.Page[model.SeriesPart]{Items: f.series[offset:end], Total: len(f.series)}, nil
	}
}

func strPtr(s string) *string { return &s }
func u32Ptr(v uint32) *uint32 { return &v }

func newTestPlanner(cat catalogSource, formats model.Formats) *planner {
	return &planner{
		catalog:  cat,
		market:   model.DefaultMarket,
		pageSize: 2,
		formats:  formats,
		logger:   config.NullLogger(),
	}
}

func collectJobs(t *testing.T, p *planner, src sources) ([]download.Job, error) {
	t.Helper()
	var jobs []download.Job
	for j, err := range p.Jobs(context.Background(), src) {
		if err != nil {
			return jobs, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func TestPlanner_SourceOrder(t *testing.T) {
	cat := &fakeCatalog{
		books: map[uint64]*model.Book{
			1: {Title: "Dune", Editions: []model.Edition{
				{ISBN: "A1", Format: model.FormatAudioBook},
				{ISBN: "E1", Format: model.FormatEBook},
			}},
		},
		search: map[string][]model.SearchBook{
			"author:Herbert": {{Title: "Dune Messiah", AudiobookISBN: strPtr("A2")}},
			"narrator:Vance": {{Title: "Children of Dune", AudiobookISBN: strPtr("A3")}},
			"query:god":      {{Title: "God Emperor", AudiobookISBN: strPtr("A5")}},
		},
		series: []model.SeriesPart{{PartNumber: u32Ptr(1), Embedded: model.SeriesPartEmbedded{Book: model.SearchBook{Title: "Heretics", AudiobookISBN: strPtr("A4")}}}},
	}
	p := newTestPlanner(cat, model.Formats{Audio: true})

	jobs, err := collectJobs(t, p, sources{
		IDs: []uint64{1}, Authors: []string{"Herbert"}, Narrators: []string{"Vance"},
		Series: []uint32{9}, Queries: []string{"god"}, AudioISBNs: []string{"A6"}, EbookISBNs: []string{"E7"},
	})
	require.NoError(t, err)
	var ids, names []string
	for _, j := range jobs {
		ids = append(ids, j.ContentID)
		names = append(names, j.FileName)
	}
	assert.Equal(t, []string{"A1", "A2", "A3", "A4", "A5", "A6", "E7"}, ids)
	assert.Equal(t, "Dune (A1).m4a", names[0])
	assert.Equal(t, "001 Heretics (A4).m4a", names[3])
	assert.Equal(t, "E7.epub", names[6])
}

func TestPlanner_ListingErrorEndsSequence(t *testing.T) {
	boom := errors.New("HTTP 500")
	cat := &fakeCatalog{listErr: boom}
	p := newTestPlanner(cat, model.Formats{Audio: true})

	jobs, err := collectJobs(t, p, sources{Authors: []string{"X"}, AudioISBNs: []string{"A9"}})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, jobs)
}

func TestPlanner_UnknownBookIsSkipped(t *testing.T) {
	cat := &fakeCatalog{books: map[uint64]*model.Book{
		2: {Title: "Emma", Editions: []model.Edition{{ISBN: "A2", Format: model.FormatAudioBook}}},
	}}
	p := newTestPlanner(cat, model.Formats{Audio: true})
	var skipped []string
	p.onSkip = func(what string, _ error) { skipped = append(skipped, what) }

	jobs, err := collectJobs(t, p, sources{IDs: []uint64{1, 2}})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "A2", jobs[0].ContentID)
	assert.Equal(t, []string{"book 1"}, skipped)
}

func TestPlanner_MatchFiltersSearchResults(t *testing.T) {
	cat := &fakeCatalog{search: map[string][]model.SearchBook{
		"author:Austen": {
			{Title: "Emma", AudiobookISBN: strPtr("A1")},
			{Title: "Persuasion", AudiobookISBN: strPtr("A2")},
			{Title: "Pride and Prejudice", AudiobookISBN: strPtr("A3")},
		},
	}}
	p := newTestPlanner(cat, model.Formats{Audio: true})
	p.matcher = filter.NewMatcher("pride")

	jobs, err := collectJobs(t, p, sources{Authors: []string{"Austen"}})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "A3", jobs[0].ContentID)
	// 3 items with page size 2: a full page then a short one.
	assert.Equal(t, []string{"author:Austen", "author:Austen"}, cat.calls)
}

func TestSourcesFromArgs_ReadsIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("# wishlist\n42\n43\n"), 0600))

	src, err := sourcesFromArgs(&model.Args{IDs: []uint64{1}, IDFile: path, Authors: []string{"A", "a"}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 42, 43}, src.IDs)
	assert.Equal(t, []string{"A"}, src.Authors)

	require.NoError(t, os.WriteFile(path, []byte("abc\n"), 0600))
	_, err = sourcesFromArgs(&model.Args{IDFile: path})
	assert.Error(t, err)
}
