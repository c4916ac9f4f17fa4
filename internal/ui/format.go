package ui

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/term"
)

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeLeft     = "├"
	BoxTeeRight    = "┤"
	BoxTeeTop      = "┬"
	BoxTeeBottom   = "┴"
	BoxCross       = "┼"
	BulletDiamond  = "◆"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

const termWidthCacheTTL = 500 * time.Millisecond

var (
	termWidthMu         sync.Mutex
	cachedTermWidth     int
	cachedTermWidthTime time.Time
)

// GetTermWidth returns the terminal width, defaulting to 80 when stdout is
// not a terminal. Progress redraws call it often, so it is cached briefly.
func GetTermWidth() int {
	termWidthMu.Lock()
	defer termWidthMu.Unlock()
	if cachedTermWidth > 0 && time.Since(cachedTermWidthTime) <= termWidthCacheTTL {
		return cachedTermWidth
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	cachedTermWidth = width
	cachedTermWidthTime = time.Now()
	return width
}

// StripAnsiCodes removes ANSI escape sequences from a string.
func StripAnsiCodes(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// VisibleLength returns the number of runes left after stripping ANSI codes.
func VisibleLength(s string) int {
	return utf8.RuneCountInString(StripAnsiCodes(s))
}

// Truncate shortens s to maxLen visible runes, ending in "..." when there is
// room for it. Color codes are dropped from a truncated string.
func Truncate(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if VisibleLength(s) <= maxLen {
		return s
	}
	runes := []rune(StripAnsiCodes(s))
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Align positions a cell within its column.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
)

func pad(s string, width int, align Align) string {
	gap := width - VisibleLength(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + s
	case AlignCenter:
		return strings.Repeat(" ", gap/2) + s + strings.Repeat(" ", gap-gap/2)
	}
	return s + strings.Repeat(" ", gap)
}

// PrintHeader prints a boxed title line.
func PrintHeader(title string) {
	width := GetTermWidth() - 2
	title = Truncate(title, width-2)
	bar := strings.Repeat(BoxHorizontal, width)
	printf("\n%s%s%s%s%s\n", ColorCyan, BoxTopLeft, bar, BoxTopRight, ColorReset)
	printf("%s%s%s %s%s%s %s%s%s\n", ColorCyan, BoxVertical, ColorReset,
		ColorBold, pad(title, width-2, AlignCenter), ColorReset,
		ColorCyan, BoxVertical, ColorReset)
	printf("%s%s%s%s%s\n\n", ColorCyan, BoxBottomLeft, bar, BoxBottomRight, ColorReset)
}

// PrintSection prints a section title with underline.
func PrintSection(title string) {
	printf("\n%s%s %s%s\n", ColorBold, BulletDiamond, title, ColorReset)
	printf("%s%s%s\n", ColorCyan, strings.Repeat(BoxHorizontal, VisibleLength(title)+2), ColorReset)
}

// PrintKeyValue prints an aligned "key: value" line.
func PrintKeyValue(key, value, valueColor string) {
	value = Truncate(value, max(GetTermWidth()-len(key)-10, 10))
	printf("  %s%-20s%s %s%s%s\n", ColorCyan, key+":", ColorReset, valueColor, value, ColorReset)
}

// TableColumn is one column of a Table. Width counts visible runes.
type TableColumn struct {
	Header string
	Width  int
	Align  Align
}

// Table renders rows inside box-drawing borders, shrinking columns
// proportionally when the terminal is too narrow.
type Table struct {
	Columns []TableColumn
	Rows    [][]string
}

// NewTable creates an empty table.
func NewTable(columns []TableColumn) *Table {
	return &Table{Columns: columns}
}

// AddRow appends a row. Missing cells are blank and extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Print renders the table.
func (t *Table) Print() {
	if len(t.Columns) == 0 {
		return
	}
	cols := t.fit(GetTermWidth())

	border := func(left, mid, right string) {
		var b strings.Builder
		b.WriteString(ColorCyan + left)
		for i, col := range cols {
			b.WriteString(strings.Repeat(BoxHorizontal, col.Width+2))
			if i < len(cols)-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right + ColorReset + "\n")
		printf("%s", b.String())
	}
	line := func(cells []string, header bool) {
		var b strings.Builder
		b.WriteString(ColorCyan + BoxVertical + ColorReset)
		for i, col := range cols {
			cell := Truncate(cells[i], col.Width)
			if header {
				cell = ColorBold + pad(cell, col.Width, AlignCenter) + ColorReset
			} else {
				cell = pad(cell, col.Width, col.Align)
			}
			b.WriteString(" " + cell + " " + ColorCyan + BoxVertical + ColorReset)
		}
		printf("%s\n", b.String())
	}

	headers := make([]string, len(cols))
	for i, col := range cols {
		headers[i] = col.Header
	}
	border(BoxTopLeft, BoxTeeTop, BoxTopRight)
	line(headers, true)
	border(BoxTeeLeft, BoxCross, BoxTeeRight)
	for _, row := range t.Rows {
		line(row, false)
	}
	border(BoxBottomLeft, BoxTeeBottom, BoxBottomRight)
}

func (t *Table) fit(termWidth int) []TableColumn {
	available := termWidth - (len(t.Columns) + 1) - len(t.Columns)*2
	requested := 0
	for _, col := range t.Columns {
		requested += col.Width
	}
	cols := make([]TableColumn, len(t.Columns))
	copy(cols, t.Columns)
	if requested <= available || requested == 0 {
		return cols
	}
	for i := range cols {
		cols[i].Width = max(cols[i].Width*available/requested, 1)
	}
	return cols
}

// RenderProgress redraws a progress bar on the current line.
func RenderProgress(label string, percentage int, speed, downloaded, total, fillColor string) {
	percentage = min(max(percentage, 0), 100)
	const barWidth = 30
	filled := percentage * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := ColorBold + label + ColorReset + " " +
		ColorCyan + "[" + fillColor + bar + ColorCyan + "]" + ColorReset + " " +
		ColorBold + pad(strconv.Itoa(percentage)+"%", 4, AlignRight) + ColorReset +
		" @ " + speed + "/s, " + downloaded + "/" + total + " "
	if width := GetTermWidth(); VisibleLength(line) >= width {
		line = Truncate(line, width-1)
	}
	printf("\r%s", line)
}

// EndProgress moves past a progress line.
func EndProgress() {
	printf("\n")
}
