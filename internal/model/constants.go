package model

import "strings"

// File extensions per edition format.
const (
	ExtAudioBook = ".m4a"
	ExtEBook     = ".epub"
)

// Defaults applied when neither config nor flags set a value.
const (
	DefaultMarket     = "Germany"
	DefaultLanguage   = "English"
	DefaultPageSize   = 50
	DefaultWorkers    = 1
	DefaultSizePolicy = SizePolicyWarn
)

// Progress display constants.
const (
	MaxProgressPercent    = 100
	UnknownSizeLabelLower = "unknown"
)

// SizePolicy controls what happens when the bytes written differ from the
// size declared by the license.
type SizePolicy string

const (
	SizePolicyIgnore  SizePolicy = "ignore"
	SizePolicyWarn    SizePolicy = "warn"
	SizePolicyEnforce SizePolicy = "enforce"
)

// ParseSizePolicy converts a config string to a SizePolicy.
func ParseSizePolicy(s string) (SizePolicy, bool) {
	switch SizePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case SizePolicyIgnore:
		return SizePolicyIgnore, true
	case SizePolicyWarn, "":
		return SizePolicyWarn, true
	case SizePolicyEnforce:
		return SizePolicyEnforce, true
	}
	return "", false
}

// Formats selects which edition formats are downloaded.
type Formats struct {
	Audio bool
	Text  bool
}

// Wants reports whether the given edition format is enabled.
func (f Formats) Wants(format BookFormat) bool {
	switch format {
	case FormatAudioBook:
		return f.Audio
	case FormatEBook:
		return f.Text
	}
	return false
}
