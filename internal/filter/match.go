// Package filter narrows catalog listings to titles the user asked for.
package filter

import (
	"iter"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Matcher fuzzily matches titles against a query. Matching ignores case and
// diacritics; the zero Matcher matches everything.
type Matcher struct {
	query string
}

// NewMatcher returns a matcher for query.
func NewMatcher(query string) Matcher {
	return Matcher{query: strings.TrimSpace(query)}
}

// Active reports whether the matcher filters anything.
func (m Matcher) Active() bool {
	return m.query != ""
}

// Match reports whether title contains the query characters in order.
func (m Matcher) Match(title string) bool {
	if m.query == "" {
		return true
	}
	return fuzzy.MatchNormalizedFold(m.query, title)
}

// Seq drops items whose title does not match. Errors pass through unchanged.
func Seq[T any](seq iter.Seq2[T, error], m Matcher, title func(T) string) iter.Seq2[T, error] {
	if !m.Active() {
		return seq
	}
	return func(yield func(T, error) bool) {
		for item, err := range seq {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !m.Match(title(item)) {
				continue
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}
