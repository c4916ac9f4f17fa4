// Package tag writes catalog metadata into finished audiobook files.
package tag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmagar/bookbeat-cli/internal/download"
	"github.com/jmagar/bookbeat-cli/internal/model"
)

// ResolveFFmpeg locates the ffmpeg binary. An explicit name or path must
// exist; otherwise ffmpeg is looked up in PATH.
func ResolveFFmpeg(preferred string) (string, error) {
	preferred = strings.TrimSpace(preferred)
	if preferred != "" && preferred != "ffmpeg" {
		if resolved, err := exec.LookPath(preferred); err == nil {
			return resolved, nil
		}
		if info, err := os.Stat(preferred); err == nil && !info.IsDir() {
			return preferred, nil
		}
		return "", fmt.Errorf("configured ffmpeg binary not found: %s", preferred)
	}
	resolved, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", errors.New("ffmpeg not found in PATH (install ffmpeg or set download.ffmpeg)")
	}
	return resolved, nil
}

// coverFetcher downloads the cover image.
type coverFetcher interface {
	Fetch(ctx context.Context, location string, expectedSize int64, sink io.Writer, onChunk func(n int)) (int64, error)
}

// FFmpegTagger remuxes an .m4a with title, author, year and cover art. The
// audio stream is copied, never re-encoded.
type FFmpegTagger struct {
	binary  string
	covers  coverFetcher
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewFFmpegTagger returns a tagger running binary. covers may be nil, in
// which case no artwork is embedded.
func NewFFmpegTagger(binary string, covers coverFetcher) *FFmpegTagger {
	return &FFmpegTagger{binary: binary, covers: covers, command: exec.CommandContext}
}

// Tag rewrites path in place. Ebooks and jobs without a catalog record are
// left untouched.
func (t *FFmpegTagger) Tag(ctx context.Context, path string, job download.Job) error {
	if job.Format != model.FormatAudioBook || job.Item == nil {
		return nil
	}
	cover := t.fetchCover(ctx, path, job.Item)
	if cover != "" {
		defer os.Remove(cover)
	}

	out, err := download.CreateAtomic(path)
	if err != nil {
		return err
	}
	defer out.Abort()

	cmd := t.command(ctx, t.binary, Args(path, cover, out.TempPath(), job.Item)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return out.Commit()
}

// fetchCover stores the item's cover next to path and returns its location,
// or "" when there is none or it could not be fetched.
func (t *FFmpegTagger) fetchCover(ctx context.Context, path string, item *model.SearchBook) string {
	if t.covers == nil || item.Image == nil || *item.Image == "" {
		return ""
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".cover-*.jpg")
	if err != nil {
		return ""
	}
	defer f.Close()
	if _, err := t.covers.Fetch(ctx, *item.Image, 0, f, nil); err != nil {
		os.Remove(f.Name())
		return ""
	}
	return f.Name()
}

// Args builds the ffmpeg command line that copies in to out with metadata
// from item and, when cover is set, an attached picture.
func Args(in, cover, out string, item *model.SearchBook) []string {
	args := []string{"-y", "-loglevel", "error", "-i", in}
	if cover != "" {
		args = append(args, "-i", cover, "-map", "0:a", "-map", "1:v", "-disposition:v:0", "attached_pic")
	} else {
		args = append(args, "-map", "0")
	}
	args = append(args, "-c", "copy")
	meta := [][2]string{
		{"title", item.Title},
		{"album", item.Title},
		{"artist", item.Author},
		{"album_artist", item.Author},
	}
	if !item.Published.IsZero() {
		meta = append(meta, [2]string{"date", strconv.Itoa(item.Published.Year())})
	}
	for _, kv := range meta {
		if kv[1] == "" {
			continue
		}
		args = append(args, "-metadata", kv[0]+"="+kv[1])
	}
	return append(args, "-f", "mp4", out)
}
