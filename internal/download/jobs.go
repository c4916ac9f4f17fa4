package download

import (
	"fmt"

	"github.com/jmagar/bookbeat-cli/internal/helpers"
	"github.com/jmagar/bookbeat-cli/internal/model"
)

// Job is one content item to download.
type Job struct {
	ContentID string
	Title     string
	Format    model.BookFormat
	FileName  string

	// Item is the catalog record the job came from, if any. Taggers read it.
	Item *model.SearchBook
}

// Key identifies the job in progress events. Jobs are keyed by their output
// file, so the same content planned twice under different names stays apart.
func (j Job) Key() string {
	if j.FileName != "" {
		return j.FileName
	}
	return string(j.Format) + ":" + j.ContentID
}

// Label is the short display name of the job.
func (j Job) Label() string {
	if j.Title != "" {
		return j.Title
	}
	return j.ContentID
}

// FileName builds "<prefix><title> (<isbn>)<ext>" with path separators and
// other unsafe characters replaced.
func FileName(prefix, title, isbn string, format model.BookFormat) string {
	return helpers.Sanitise(fmt.Sprintf("%s%s (%s)%s", prefix, title, isbn, format.Extension()))
}

// SeriesPrefix returns the zero-padded part prefix, or "" without a part number.
func SeriesPrefix(partNumber *uint32) string {
	if partNumber == nil {
		return ""
	}
	return fmt.Sprintf("%03d ", *partNumber)
}

// JobsForBook plans one job per enabled edition of a detail record.
func JobsForBook(book *model.Book, formats model.Formats) []Job {
	var jobs []Job
	item := book.Item()
	for _, ed := range book.Editions {
		if !formats.Wants(ed.Format) || ed.ISBN == "" {
			continue
		}
		jobs = append(jobs, Job{
			ContentID: ed.ISBN,
			Title:     book.Title,
			Format:    ed.Format,
			FileName:  FileName("", book.Title, ed.ISBN, ed.Format),
			Item:      item,
		})
	}
	return jobs
}

// JobsForItem plans jobs for a search or series item from its ISBN fields.
func JobsForItem(item *model.SearchBook, prefix string, formats model.Formats) []Job {
	var jobs []Job
	add := func(isbn *string, format model.BookFormat) {
		if isbn == nil || *isbn == "" || !formats.Wants(format) {
			return
		}
		jobs = append(jobs, Job{
			ContentID: *isbn,
			Title:     item.Title,
			Format:    format,
			FileName:  FileName(prefix, item.Title, *isbn, format),
			Item:      item,
		})
	}
	add(item.AudiobookISBN, model.FormatAudioBook)
	add(item.EbookISBN, model.FormatEBook)
	return jobs
}

// JobForISBN plans a download named only by its ISBN.
func JobForISBN(isbn string, format model.BookFormat) Job {
	return Job{
		ContentID: isbn,
		Format:    format,
		FileName:  helpers.Sanitise(isbn + format.Extension()),
	}
}
