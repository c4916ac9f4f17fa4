package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is the body of the public service status endpoint.
type Status struct {
	Type string `json:"type"`
}

// StatusHealthy is the status type reported when the API accepts logins.
const StatusHealthy = "OK"

// Validate rejects a status body without a state.
func (s *Status) Validate() error {
	if s.Type == "" {
		return errors.New("status: missing type")
	}
	return nil
}

// Link is a HAL hyperlink.
type Link struct {
	Href string `json:"href"`
}

// LoginRequest is the credential body sent to the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest exchanges a refresh token for a new token triple.
type RefreshRequest struct {
	RefreshToken string `json:"refreshtoken"`
}

// LoginResponse is returned by both the login and the refresh endpoint.
type LoginResponse struct {
	RefreshToken string `json:"refreshtoken"`
	Token        string `json:"token"`
	ExpiresIn    int64  `json:"expiresin"`
}

// Validate rejects a login response missing any part of the token triple.
func (l *LoginResponse) Validate() error {
	switch {
	case l.Token == "":
		return errors.New("login: missing token")
	case l.RefreshToken == "":
		return errors.New("login: missing refreshtoken")
	case l.ExpiresIn <= 0:
		return fmt.Errorf("login: invalid expiresin %d", l.ExpiresIn)
	}
	return nil
}

// APIErrorBody is the error payload of a rejected API request.
type APIErrorBody struct {
	Message string `json:"Message"`
}

// User holds the profile of the logged in account.
type User struct {
	Email       string       `json:"email"`
	UserID      uint64       `json:"userid"`
	FirstName   string       `json:"firstname"`
	LastName    string       `json:"lastname"`
	DisplayName string       `json:"displayname"`
	Market      string       `json:"market"`
	IsKid       bool         `json:"iskid"`
	Embedded    UserEmbedded `json:"_embedded"`
}

// UserEmbedded holds the embedded subscription record of a profile.
type UserEmbedded struct {
	SubscriptionInfo *SubscriptionInfo `json:"subscriptioninfo"`
}

// SubscriptionInfo reports whether the account may stream content.
type SubscriptionInfo struct {
	ValidSubscription bool `json:"validsubscription"`
}

// Validate rejects a profile without its subscription record.
func (u *User) Validate() error {
	if u.Embedded.SubscriptionInfo == nil {
		return errors.New("user: missing _embedded.subscriptioninfo")
	}
	return nil
}

// Subscribed reports whether the account has a valid subscription.
func (u *User) Subscribed() bool {
	return u.Embedded.SubscriptionInfo != nil && u.Embedded.SubscriptionInfo.ValidSubscription
}

// Search is one page of book search results.
type Search struct {
	Count    int            `json:"count"`
	Embedded SearchEmbedded `json:"_embedded"`
}

// SearchEmbedded holds the books of a search page.
type SearchEmbedded struct {
	Books []SearchBook `json:"books"`
}

// Validate rejects a search page whose book list is absent. An empty list is
// a valid last page; a missing one means the response shape changed.
func (s *Search) Validate() error {
	if s.Embedded.Books == nil {
		return errors.New("search: missing _embedded.books")
	}
	for i := range s.Embedded.Books {
		if err := s.Embedded.Books[i].Validate(); err != nil {
			return fmt.Errorf("search: books[%d]: %w", i, err)
		}
	}
	return nil
}

// Page converts a search response into a generic page.
func (s *Search) Page() Page[SearchBook] {
	return Page[SearchBook]{Items: s.Embedded.Books, Total: s.Count}
}

// SearchBook is a catalog item as returned by search and series listings.
type SearchBook struct {
	ID            uint64    `json:"id"`
	Title         string    `json:"title"`
	Image         *string   `json:"image"`
	Author        string    `json:"author"`
	Grade         float32   `json:"grade"`
	Language      string    `json:"language"`
	AudiobookISBN *string   `json:"audiobookisbn"`
	EbookISBN     *string   `json:"ebookisbn"`
	Published     time.Time `json:"published"`
}

// Validate rejects a listing item without identity.
func (b *SearchBook) Validate() error {
	switch {
	case b.ID == 0:
		return errors.New("book item: missing id")
	case b.Title == "":
		return fmt.Errorf("book item %d: missing title", b.ID)
	}
	return nil
}

// Book is the detail record of a single catalog item.
type Book struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Summary   string    `json:"summary"`
	Grade     float32   `json:"grade"`
	Cover     string    `json:"cover"`
	Narrator  string    `json:"narrator"`
	Language  string    `json:"language"`
	Published time.Time `json:"published"`
	Genres    []Genre   `json:"genres"`
	Editions  []Edition `json:"editions"`
}

// Validate rejects a detail record without a title or an editions list.
func (b *Book) Validate() error {
	switch {
	case b.Title == "":
		return fmt.Errorf("book %d: missing title", b.ID)
	case b.Editions == nil:
		return fmt.Errorf("book %d: missing editions", b.ID)
	}
	return nil
}

// Item returns the listing view of the detail record.
func (b *Book) Item() *SearchBook {
	item := &SearchBook{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Grade:     b.Grade,
		Language:  b.Language,
		Published: b.Published,
	}
	if b.Cover != "" {
		cover := b.Cover
		item.Image = &cover
	}
	return item
}

// Genre is a catalog genre tag.
type Genre struct {
	GenreID uint32 `json:"genreid"`
	Name    string `json:"name"`
}

// Edition is one published format of a book.
type Edition struct {
	ID        uint32     `json:"id"`
	ISBN      string     `json:"isbn"`
	Format    BookFormat `json:"format"`
	Published time.Time  `json:"published"`
	Publisher string     `json:"publisher"`
}

// BookFormat identifies the edition format.
type BookFormat string

const (
	FormatAudioBook BookFormat = "audioBook"
	FormatEBook     BookFormat = "eBook"
)

// UnmarshalJSON rejects formats this client does not know how to store.
func (f *BookFormat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch BookFormat(s) {
	case FormatAudioBook, FormatEBook:
		*f = BookFormat(s)
		return nil
	}
	return fmt.Errorf("unknown book format %q", s)
}

// Extension returns the file extension used for the format.
func (f BookFormat) Extension() string {
	if f == FormatEBook {
		return ExtEBook
	}
	return ExtAudioBook
}

// Series is one page of a series listing.
type Series struct {
	Count       int            `json:"count"`
	ID          uint32         `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Embedded    SeriesEmbedded `json:"_embedded"`
}

// SeriesEmbedded holds the parts of a series page.
type SeriesEmbedded struct {
	Parts []SeriesPart `json:"parts"`
}

// SeriesPart is one book of a series with its optional position.
type SeriesPart struct {
	PartNumber *uint32            `json:"partnumber"`
	Embedded   SeriesPartEmbedded `json:"_embedded"`
}

// SeriesPartEmbedded holds the book of a series part.
type SeriesPartEmbedded struct {
	Book SearchBook `json:"book"`
}

// Validate rejects a series page without a name or a parts list.
func (s *Series) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("series %d: missing name", s.ID)
	case s.Embedded.Parts == nil:
		return fmt.Errorf("series %d: missing _embedded.parts", s.ID)
	}
	for i := range s.Embedded.Parts {
		if err := s.Embedded.Parts[i].Embedded.Book.Validate(); err != nil {
			return fmt.Errorf("series %d: parts[%d]: %w", s.ID, i, err)
		}
	}
	return nil
}

// Page converts a series response into a generic page of parts.
func (s *Series) Page() Page[SeriesPart] {
	return Page[SeriesPart]{Items: s.Embedded.Parts, Total: s.Count}
}

// License is the server-issued descriptor naming where an asset may be fetched.
type License struct {
	ISBN     string       `json:"isbn"`
	AssetID  string       `json:"assetid"`
	Source   string       `json:"source"`
	FileSize int64        `json:"filesize"`
	Tracks   []Track      `json:"tracks"`
	Links    LicenseLinks `json:"_links"`
}

// Validate rejects a license without its content identifier.
func (l *License) Validate() error {
	if l.ISBN == "" {
		return errors.New("license: missing isbn")
	}
	if l.FileSize < 0 {
		return fmt.Errorf("license: negative filesize %d", l.FileSize)
	}
	return nil
}

// DownloadURL returns the full-file location, if any.
func (l *License) DownloadURL() (string, bool) {
	if l.Links.Download == nil || l.Links.Download.Href == "" {
		return "", false
	}
	return l.Links.Download.Href, true
}

// StreamURL returns the range-addressable location, if any.
func (l *License) StreamURL() (string, bool) {
	if l.Links.Stream == nil || l.Links.Stream.Href == "" {
		return "", false
	}
	return l.Links.Stream.Href, true
}

// Track is an inclusive byte range within the licensed asset.
type Track struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// LicenseLinks holds the optional locations of a license.
type LicenseLinks struct {
	Download *Link `json:"download"`
	Stream   *Link `json:"stream"`
}
