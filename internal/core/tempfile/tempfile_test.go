package tempfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromReaderRelease(t *testing.T) {
	dir := t.TempDir()

	f, err := FromReader(dir, "upload-*.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(f.Path(), ".jpg"))

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	require.NoError(t, f.Release())
	_, err = os.Stat(f.Path())
	assert.True(t, os.IsNotExist(err))

	// second release is a no-op
	assert.NoError(t, f.Release())
}

func TestAcquireUniqueNames(t *testing.T) {
	dir := t.TempDir()

	a, err := Acquire(dir, "annotated-*.jpg")
	require.NoError(t, err)
	defer a.Release()
	b, err := Acquire(dir, "annotated-*.jpg")
	require.NoError(t, err)
	defer b.Release()

	assert.NotEqual(t, a.Path(), b.Path())

	require.NoError(t, a.WriteFrom(bytes.NewReader([]byte("abc"))))
	got, err := os.ReadFile(a.Path())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestFromReaderFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()

	_, err := FromReader(dir, "upload-*.jpg", failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReleaseOnPanicPath(t *testing.T) {
	dir := t.TempDir()
	var path string

	func() {
		defer func() { _ = recover() }()
		f, err := Acquire(dir, "x-*")
		require.NoError(t, err)
		defer f.Release()
		path = f.Path()
		panic("inference crashed")
	}()

	_, err := os.Stat(filepath.Clean(path))
	assert.True(t, os.IsNotExist(err))
}
