package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/bookbeat-cli/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestJobsForBook_OnlyEnabledFormats(t *testing.T) {
	book := &model.Book{
		Title: "Dune",
		Cover: "https://img.example/dune.jpg",
		Editions: []model.Edition{
			{ISBN: "A1", Format: model.FormatAudioBook},
			{ISBN: "E1", Format: model.FormatEBook},
		},
	}

	jobs := JobsForBook(book, model.Formats{Audio: true})
	require.Len(t, jobs, 1)
	assert.Equal(t, "A1", jobs[0].ContentID)
	assert.Equal(t, "Dune (A1).m4a", jobs[0].FileName)
	require.NotNil(t, jobs[0].Item)
	assert.Equal(t, "Dune", jobs[0].Item.Title)
	assert.Equal(t, "https://img.example/dune.jpg", *jobs[0].Item.Image)

	jobs = JobsForBook(book, model.Formats{Audio: true, Text: true})
	require.Len(t, jobs, 2)
	assert.Equal(t, "Dune (E1).epub", jobs[1].FileName)

	assert.Empty(t, JobsForBook(book, model.Formats{}))
}

func TestJobsForItem_SeriesPrefix(t *testing.T) {
	item := &model.SearchBook{Title: "Part/One", AudiobookISBN: ptr("A7"), EbookISBN: ptr("E7")}
	jobs := JobsForItem(item, SeriesPrefix(ptr(uint32(7))), model.Formats{Audio: true, Text: true})
	require.Len(t, jobs, 2)
	assert.Equal(t, "007 Part_One (A7).m4a", jobs[0].FileName)
	assert.Equal(t, "007 Part_One (E7).epub", jobs[1].FileName)
	assert.Same(t, item, jobs[0].Item)
}

func TestJobsForItem_MissingISBNSkipped(t *testing.T) {
	item := &model.SearchBook{Title: "Only audio", AudiobookISBN: ptr("A1")}
	jobs := JobsForItem(item, "", model.Formats{Audio: true, Text: true})
	require.Len(t, jobs, 1)
	assert.Equal(t, model.FormatAudioBook, jobs[0].Format)
}

func TestSeriesPrefix(t *testing.T) {
	assert.Equal(t, "", SeriesPrefix(nil))
	assert.Equal(t, "012 ", SeriesPrefix(ptr(uint32(12))))
}

func TestJobForISBN(t *testing.T) {
	j := JobForISBN("978-3", model.FormatEBook)
	assert.Equal(t, "978-3.epub", j.FileName)
	assert.Equal(t, "978-3", j.Label())
}
