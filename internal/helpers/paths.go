package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	sanRegexStr = `[\/:*?"><|\x00-\x1f]`

	// MaxNameRunes bounds the length of a generated file name.
	MaxNameRunes = 200
)

var sanRegex = regexp.MustCompile(sanRegexStr)

// Sanitise cleans a filename by replacing invalid characters and trimming
// trailing spaces and dots. Names longer than MaxNameRunes are shortened
// before the extension.
func Sanitise(filename string) string {
	san := sanRegex.ReplaceAllString(filename, "_")
	san = strings.TrimRight(san, " .\t")
	return truncateName(san, MaxNameRunes)
}

func truncateName(name string, limit int) string {
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	ext := filepath.Ext(name)
	extRunes := []rune(ext)
	if len(extRunes) >= limit {
		return string(runes[:limit])
	}
	stem := []rune(strings.TrimSuffix(name, ext))
	return strings.TrimRight(string(stem[:limit-len(extRunes)]), " .") + ext
}

// FileExists checks if a file (not directory) exists at the given path.
func FileExists(path string) (bool, error) {
	f, err := os.Stat(path)
	if err == nil {
		return !f.IsDir(), nil
	} else if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ValidatePath checks that a path does not contain dangerous characters.
func ValidatePath(path string) error {
	if strings.ContainsAny(path, "\x00\n\r") {
		return fmt.Errorf("path contains invalid characters")
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
