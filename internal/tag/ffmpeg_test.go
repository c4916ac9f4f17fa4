package tag

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/bookbeat-cli/internal/download"
	"github.com/jmagar/bookbeat-cli/internal/model"
)

func str(s string) *string { return &s }

// shellCommand replaces ffmpeg with a script that writes marker to the last
// argument, which is always the output path.
func shellCommand(script string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, _ string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", append([]string{"-c", script, "ffmpeg"}, args...)...)
	}
}

func TestArgs(t *testing.T) {
	item := &model.SearchBook{
		Title:     "Dune",
		Author:    "Frank Herbert",
		Published: time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	args := Args("in.m4a", "", "out.part", item)
	assert.Equal(t, []string{
		"-y", "-loglevel", "error", "-i", "in.m4a", "-map", "0", "-c", "copy",
		"-metadata", "title=Dune", "-metadata", "album=Dune",
		"-metadata", "artist=Frank Herbert", "-metadata", "album_artist=Frank Herbert",
		"-metadata", "date=1965", "-f", "mp4", "out.part",
	}, args)

	args = Args("in.m4a", "cover.jpg", "out.part", &model.SearchBook{Title: "Dune"})
	assert.Contains(t, args, "attached_pic")
	assert.NotContains(t, args, "artist=")
	assert.Equal(t, "out.part", args[len(args)-1])
}

func TestTag_ReplacesFileAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Dune (A1).m4a")
	require.NoError(t, os.WriteFile(path, []byte("raw"), 0644))

	tagger := NewFFmpegTagger("ffmpeg", nil)
	tagger.command = shellCommand(`for a; do last=$a; done; printf tagged > "$last"`)
	job := download.Job{ContentID: "A1", Format: model.FormatAudioBook, Item: &model.SearchBook{Title: "Dune"}}

	require.NoError(t, tagger.Tag(context.Background(), path, job))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tagged", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTag_FailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Dune (A1).m4a")
	require.NoError(t, os.WriteFile(path, []byte("raw"), 0644))

	tagger := NewFFmpegTagger("ffmpeg", nil)
	tagger.command = shellCommand(`echo "Invalid data found" >&2; exit 1`)
	job := download.Job{ContentID: "A1", Format: model.FormatAudioBook, Item: &model.SearchBook{Title: "Dune"}}

	err := tagger.Tag(context.Background(), path, job)
	assert.ErrorContains(t, err, "Invalid data found")
	data, rerr := os.ReadFile(path)
	require.NoError(t, rerr)
	assert.Equal(t, "raw", string(data))
	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestTag_SkipsEbooksAndBareJobs(t *testing.T) {
	tagger := NewFFmpegTagger("ffmpeg", nil)
	tagger.command = func(context.Context, string, ...string) *exec.Cmd {
		t.Fatal("ffmpeg must not run")
		return nil
	}
	ctx := context.Background()
	assert.NoError(t, tagger.Tag(ctx, "x.epub", download.Job{Format: model.FormatEBook, Item: &model.SearchBook{Image: str("c")}}))
	assert.NoError(t, tagger.Tag(ctx, "x.m4a", download.JobForISBN("A1", model.FormatAudioBook)))
}

func TestResolveFFmpeg_ExplicitMissing(t *testing.T) {
	_, err := ResolveFFmpeg(filepath.Join(t.TempDir(), "no-ffmpeg"))
	assert.ErrorContains(t, err, "configured ffmpeg binary not found")
}

func TestResolveFFmpeg_ExplicitFile(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "ffmpeg-custom")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755))
	got, err := ResolveFFmpeg(bin)
	require.NoError(t, err)
	assert.Equal(t, bin, got)
}
