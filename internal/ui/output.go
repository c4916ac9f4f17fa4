package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jmagar/bookbeat-cli/internal/model"
)

var (
	outMu  sync.Mutex
	stdout io.Writer = os.Stdout
)

// SetOutput redirects all user-facing output and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	prev := stdout
	stdout = w
	return prev
}

func printf(format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(stdout, format, args...)
}

func printLine(color, symbol, msg string) {
	printf("%s%s%s %s%s\n", color, symbol, ColorReset, msg, ColorReset)
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	printLine(ColorGreen, SymbolCheck, msg)
}

// PrintError prints an error message.
func PrintError(msg string) {
	printLine(ColorRed, SymbolCross, msg)
}

// PrintInfo prints an info message.
func PrintInfo(msg string) {
	printLine(ColorBlue, SymbolInfo, msg)
}

// PrintWarning prints a warning message.
func PrintWarning(msg string) {
	printLine(ColorYellow, SymbolWarning, msg)
}

// PrintDownload announces a download that is starting.
func PrintDownload(msg string) {
	printLine(ColorCyan, SymbolDownload, msg)
}

// PrintSkip prints a skipped-item message.
func PrintSkip(msg string) {
	printLine(ColorPurple, SymbolSkip, msg)
}

// FormatIndicator returns the symbol for an edition format.
func FormatIndicator(format model.BookFormat) string {
	switch format {
	case model.FormatAudioBook:
		return SymbolAudio
	case model.FormatEBook:
		return SymbolBook
	default:
		return ""
	}
}

// DescribeFormats returns a human-readable list of enabled formats.
func DescribeFormats(f model.Formats) string {
	var parts []string
	if f.Audio {
		parts = append(parts, "audiobook")
	}
	if f.Text {
		parts = append(parts, "ebook")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " + ")
}

// DescribeAuthStatus returns a human-readable authentication status.
func DescribeAuthStatus(cfg *model.Config) string {
	user := strings.TrimSpace(cfg.Username)
	switch {
	case user != "" && strings.TrimSpace(cfg.Password) != "":
		return "Configured (username/password)"
	case user != "":
		return "Partial (username only, password prompted)"
	}
	return "Not configured (prompted)"
}
