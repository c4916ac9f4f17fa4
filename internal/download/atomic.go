package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicFile is a temp file in the destination directory that becomes the
// final file only on Commit. Until then the final path is never touched.
type AtomicFile struct {
	f     *os.File
	final string
	done  bool
}

// CreateAtomic opens a temp file next to finalPath.
func CreateAtomic(finalPath string) (*AtomicFile, error) {
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(finalPath)+".*.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &AtomicFile{f: f, final: finalPath}, nil
}

// Write appends to the temp file.
func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

// TempPath returns the path of the temp file.
func (a *AtomicFile) TempPath() string {
	return a.f.Name()
}

// Commit flushes the temp file and renames it to the final path.
func (a *AtomicFile) Commit() error {
	if a.done {
		return errors.New("atomic file already finished")
	}
	a.done = true
	if err := a.f.Sync(); err != nil {
		a.f.Close()
		os.Remove(a.f.Name())
		return fmt.Errorf("failed to sync %s: %w", a.f.Name(), err)
	}
	if err := a.f.Close(); err != nil {
		os.Remove(a.f.Name())
		return fmt.Errorf("failed to close %s: %w", a.f.Name(), err)
	}
	if err := os.Chmod(a.f.Name(), 0644); err != nil {
		os.Remove(a.f.Name())
		return fmt.Errorf("failed to chmod %s: %w", a.f.Name(), err)
	}
	if err := os.Rename(a.f.Name(), a.final); err != nil {
		os.Remove(a.f.Name())
		return fmt.Errorf("failed to move %s into place: %w", a.final, err)
	}
	return nil
}

// Abort closes and removes the temp file. It is a no-op after Commit.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	a.f.Close()
	if err := os.Remove(a.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// WriteAtomic runs fn against a temp file and commits it to path only if fn
// succeeds and ctx is still live. On any other outcome, including a panic,
// the temp file is removed and path is left untouched.
func WriteAtomic(ctx context.Context, path string, fn func(w io.Writer) error) error {
	af, err := CreateAtomic(path)
	if err != nil {
		return err
	}
	defer af.Abort()
	if err := fn(af); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return af.Commit()
}
