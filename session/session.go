// Package session owns the temporary image file that a running instance
// writes generated codes to.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// File is a reserved temp path that every generation in a session
// overwrites. It is removed by Close.
type File struct {
	mu     sync.Mutex
	path   string
	keep   bool
	closed bool
}

// New creates a unique, empty "<prefix>*.png" file in dir. An empty dir
// means os.TempDir() and an empty prefix means "qrc". The file holds the
// name for the session and stays empty until the first Write.
func New(dir, prefix string) (*File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if prefix == "" {
		prefix = "qrc"
	}

	f, err := os.CreateTemp(dir, prefix+"*.png")
	if err != nil {
		return nil, fmt.Errorf("reserve temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("reserve temp file: %w", err)
	}

	return &File{path: f.Name()}, nil
}

// At returns a File bound to a caller-chosen path. The file survives Close.
func At(path string) *File {
	return &File{path: path, keep: true}
}

// Keep stops Close from deleting the file.
func (f *File) Keep() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keep = true
}

// Path returns the image path, or "" once the session is closed.
func (f *File) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ""
	}
	return f.path
}

// Write replaces the file contents with data.
func (f *File) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errors.New("session closed")
	}
	if len(data) == 0 {
		return errors.New("no image data")
	}

	out, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	n, err := out.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// Close deletes the file unless it is kept. It is safe to call more than
// once and does not fail if nothing was ever written.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	if f.keep {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", f.path, err)
	}
	return nil
}
