// Package sink writes rendered scripts to their destinations.
//
// A script is written once, whole. Sinks never see partial output.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sink delivers one rendered script and reports where it went.
type Sink interface {
	Name() string
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// ErrUnsafeName is returned when a script name would land outside the sink's directory.
var ErrUnsafeName = errors.New("script name escapes output directory")

// FileSink writes scripts into a directory. Each file is written to a
// temporary name and renamed into place, so a failed write leaves no partial
// script behind.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink { return &FileSink{Dir: dir} }

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, name string, data []byte) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return "", fmt.Errorf("rename into %s: %w", path, err)
	}
	return path, nil
}

// path joins name onto Dir, refusing anything but a plain file name.
func (s *FileSink) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.IsAbs(name) ||
		filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	dir, err := filepath.Abs(s.Dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if filepath.Dir(path) != dir {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return path, nil
}

// WriterSink copies scripts to an io.Writer, e.g. stdout.
type WriterSink struct {
	W     io.Writer
	Label string
}

func (s *WriterSink) Name() string { return "writer" }

func (s *WriterSink) Write(_ context.Context, _ string, data []byte) (string, error) {
	if _, err := s.W.Write(data); err != nil {
		return "", err
	}
	return s.Label, nil
}
