package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/jmagar/bookbeat-cli/internal/model"
	"github.com/jmagar/bookbeat-cli/internal/paging"
)

// SearchSortKey is the fixed ordering used by author and narrator searches.
const SearchSortKey = "publishdate"

// SearchFilters are the query parameters shared by search and tab search.
type SearchFilters struct {
	Query           string
	Market          string
	Kid             bool
	IncludeExplicit bool
	Languages       []string
	Author          string
	Narrator        string
}

// Catalog issues authenticated catalog queries with the session's token.
type Catalog struct {
	session *Session
}

// NewCatalog binds a catalog client to s.
func NewCatalog(s *Session) *Catalog {
	return &Catalog{session: s}
}

// Profile returns the logged in user.
func (c *Catalog) Profile(ctx context.Context) (*model.User, error) {
	return authGet[model.User](ctx, c.session, "users", c.endpoints().Users, nil)
}

// TabSearch runs a free-text search.
func (c *Catalog) TabSearch(ctx context.Context, f SearchFilters, offset, limit int) (*model.Search, error) {
	q := url.Values{}
	q.Set("query", f.Query)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("market", f.Market)
	q.Set("kid", strconv.FormatBool(f.Kid))
	q.Set("includeerotic", strconv.FormatBool(f.IncludeExplicit))
	addLanguages(q, f.Languages)
	return authGet[model.Search](ctx, c.session, "tabsearch", c.endpoints().TabSearch, q)
}

// Search lists books by author or narrator, newest first.
func (c *Catalog) Search(ctx context.Context, f SearchFilters, offset, limit int) (*model.Search, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sortby", SearchSortKey)
	q.Set("includeerotic", strconv.FormatBool(f.IncludeExplicit))
	if f.Author != "" {
		q.Set("author", f.Author)
	}
	if f.Narrator != "" {
		q.Set("narrator", f.Narrator)
	}
	addLanguages(q, f.Languages)
	return authGet[model.Search](ctx, c.session, "search", c.endpoints().Search, q)
}

// SeriesParts returns one page of a series.
func (c *Catalog) SeriesParts(ctx context.Context, seriesID uint32, offset, limit int) (*model.Series, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	u := c.endpoints().Series + strconv.FormatUint(uint64(seriesID), 10)
	return authGet[model.Series](ctx, c.session, "series", u, q)
}

// ItemDetail returns the detail record of a book in market.
func (c *Catalog) ItemDetail(ctx context.Context, market string, id uint64) (*model.Book, error) {
	u := c.endpoints().Books + url.PathEscape(market) + "/" + strconv.FormatUint(id, 10)
	return authGet[model.Book](ctx, c.session, "books", u, nil)
}

// License fetches the license descriptor of a content identifier.
func (c *Catalog) License(ctx context.Context, contentID string) (*model.License, error) {
	u := c.endpoints().Content + url.PathEscape(contentID) + "/license"
	return authGet[model.License](ctx, c.session, "license", u, nil)
}

// SearchPages adapts Search to the pagination driver.
func (c *Catalog) SearchPages(f SearchFilters) paging.FetchFunc[model.SearchBook] {
	return func(ctx context.Context, offset, limit int) (model.Page[model.SearchBook], error) {
		s, err := c.Search(ctx, f, offset, limit)
		if err != nil {
			return model.Page[model.SearchBook]{}, err
		}
		return s.Page(), nil
	}
}

// TabSearchPages adapts TabSearch to the pagination driver.
func (c *Catalog) TabSearchPages(f SearchFilters) paging.FetchFunc[model.SearchBook] {
	return func(ctx context.Context, offset, limit int) (model.Page[model.SearchBook], error) {
		s, err := c.TabSearch(ctx, f, offset, limit)
		if err != nil {
			return model.Page[model.SearchBook]{}, err
		}
		return s.Page(), nil
	}
}

// SeriesPages adapts SeriesParts to the pagination driver. onSeries, when
// set, receives every fetched series page so callers can report its name.
func (c *Catalog) SeriesPages(seriesID uint32, onSeries func(*model.Series)) paging.FetchFunc[model.SeriesPart] {
	return func(ctx context.Context, offset, limit int) (model.Page[model.SeriesPart], error) {
		s, err := c.SeriesParts(ctx, seriesID, offset, limit)
		if err != nil {
			return model.Page[model.SeriesPart]{}, err
		}
		if onSeries != nil {
			onSeries(s)
		}
		return s.Page(), nil
	}
}

func (c *Catalog) endpoints() Endpoints {
	return c.session.manager.client.endpoints
}

// addLanguages encodes languages as repeated parameters, never a joined list.
func addLanguages(q url.Values, languages []string) {
	for _, lang := range languages {
		q.Add("language", lang)
	}
}
