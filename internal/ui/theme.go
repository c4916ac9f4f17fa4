package ui

import (
	"os"
	"strings"
)

// ANSI color codes, replaced at init by the active palette.
var (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[91m"
	ColorGreen  = "\033[92m"
	ColorYellow = "\033[93m"
	ColorBlue   = "\033[94m"
	ColorPurple = "\033[95m"
	ColorCyan   = "\033[96m"
	ColorBold   = "\033[1m"
	ActiveTheme = "nordonedark"
)

// Unicode symbols
var (
	SymbolCheck    = "✓"
	SymbolCross    = "✗"
	SymbolArrow    = "→"
	SymbolDownload = "⬇"
	SymbolInfo     = "ℹ"
	SymbolWarning  = "⚠"
	SymbolSkip     = "↷"
	SymbolBook     = "📖"
	SymbolAudio    = "🎧"
)

// palette holds red, green, yellow, blue, purple and cyan for one color depth.
type palette [6]string

type theme struct {
	truecolor, ansi256, basic palette
}

var themes = map[string]theme{
	"vivid": {
		truecolor: palette{"\033[1;38;2;255;76;102m", "\033[1;38;2;80;250;123m", "\033[1;38;2;255;221;87m", "\033[1;38;2;110;196;255m", "\033[1;38;2;215;130;255m", "\033[1;38;2;0;245;255m"},
		ansi256:   palette{"\033[1;38;5;203m", "\033[1;38;5;84m", "\033[1;38;5;227m", "\033[1;38;5;81m", "\033[1;38;5;177m", "\033[1;38;5;51m"},
		basic:     palette{"\033[1;91m", "\033[1;92m", "\033[1;93m", "\033[1;94m", "\033[1;95m", "\033[1;96m"},
	},
	"nordonedark": {
		truecolor: palette{"\033[1;38;2;224;108;117m", "\033[1;38;2;152;195;121m", "\033[1;38;2;229;192;123m", "\033[1;38;2;143;188;255m", "\033[1;38;2;180;142;255m", "\033[1;38;2;136;220;255m"},
		ansi256:   palette{"\033[1;38;5;210m", "\033[1;38;5;114m", "\033[1;38;5;222m", "\033[1;38;5;111m", "\033[1;38;5;183m", "\033[1;38;5;159m"},
		basic:     palette{"\033[91m", "\033[92m", "\033[93m", "\033[94m", "\033[95m", "\033[96m"},
	},
}

func init() {
	InitColorPalette()
}

// InitColorPalette selects the palette from BOOKBEAT_THEME. NO_COLOR
// disables colors entirely.
func InitColorPalette() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		disableColors()
		return
	}
	name := strings.ToLower(strings.TrimSpace(os.Getenv("BOOKBEAT_THEME")))
	if name == "" {
		name = "nordonedark"
	}
	if name == "plain" {
		disableColors()
		return
	}
	th, ok := themes[name]
	if !ok {
		name, th = "nordonedark", themes["nordonedark"]
	}
	ActiveTheme = name
	switch {
	case SupportsTruecolor():
		applyPalette(th.truecolor)
	case Supports256Color():
		applyPalette(th.ansi256)
	default:
		applyPalette(th.basic)
	}
}

func applyPalette(p palette) {
	ColorRed, ColorGreen, ColorYellow = p[0], p[1], p[2]
	ColorBlue, ColorPurple, ColorCyan = p[3], p[4], p[5]
	ColorReset, ColorBold = "\033[0m", "\033[1m"
}

func disableColors() {
	ActiveTheme = "plain"
	ColorReset, ColorRed, ColorGreen, ColorYellow = "", "", "", ""
	ColorBlue, ColorPurple, ColorCyan, ColorBold = "", "", "", ""
}

// SupportsTruecolor checks if the terminal supports 24-bit color.
func SupportsTruecolor() bool {
	term := strings.ToLower(os.Getenv("TERM"))
	colorTerm := strings.ToLower(os.Getenv("COLORTERM"))
	return strings.Contains(colorTerm, "truecolor") ||
		strings.Contains(colorTerm, "24bit") ||
		strings.Contains(term, "truecolor") ||
		strings.Contains(term, "24bit")
}

// Supports256Color checks if the terminal supports 256 colors.
func Supports256Color() bool {
	return strings.Contains(strings.ToLower(os.Getenv("TERM")), "256color")
}
