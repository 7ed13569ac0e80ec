// Package tempfile provides uniquely named temp files that are removed on release.
//
// Callers defer Release right after a successful Acquire so the file is gone on
// every exit path, including panics recovered further up the stack.
package tempfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

type File struct {
	path string
	once sync.Once
	err  error
}

// Acquire creates an empty file in dir whose name matches pattern (see os.CreateTemp).
func Acquire(dir, pattern string) (*File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return &File{path: f.Name()}, nil
}

// FromReader acquires a temp file and fills it with r.
// On a copy failure the file is removed before returning.
func FromReader(dir, pattern string, r io.Reader) (*File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tf := &File{path: f.Name()}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = tf.Release()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = tf.Release()
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return tf, nil
}

func (f *File) Path() string { return f.path }

// WriteFrom replaces the file contents with r.
func (f *File) WriteFrom(r io.Reader) error {
	out, err := os.OpenFile(f.path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Release removes the file. It is safe to call more than once.
func (f *File) Release() error {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.err = err
		}
	})
	return f.err
}
