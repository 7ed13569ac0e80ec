package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/core/auth"
	"github.com/markdave123-py/damage-detector/internal/core/events"
	"github.com/markdave123-py/damage-detector/internal/core/vision"
	"github.com/markdave123-py/damage-detector/internal/models"
)

type fakeVerifier struct {
	identity *auth.GoogleIdentity
	err      error
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*auth.GoogleIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type fakeLLM struct {
	out        string
	err        error
	lastSystem string
	lastUser   string
}

func (f *fakeLLM) Generate(ctx context.Context, system, user string) (string, error) {
	f.lastSystem, f.lastUser = system, user
	return f.out, f.err
}

type recordingSink struct {
	mu  sync.Mutex
	got []events.Event
}

func (s *recordingSink) Enqueue(evt events.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, evt)
	return true
}

type constClassifier struct {
	label string
	err   error
}

func (c constClassifier) Classify(ctx context.Context, img image.Image) (string, error) {
	return c.label, c.err
}

type constExtractor struct {
	ext *core.Extraction
	err error
}

func (c constExtractor) Extract(ctx context.Context, img image.Image) (*core.Extraction, error) {
	return c.ext, c.err
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	n       int
	failOn  string
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Store(ctx context.Context, localPath, name string) (models.StoredImage, error) {
	if name == s.failOn {
		return models.StoredImage{}, errors.New("bucket unavailable")
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return models.StoredImage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	key := fmt.Sprintf("assessments/%d/%s", s.n, name)
	s.objects[key] = data
	return models.StoredImage{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (s *memStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func writeTestJPEG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, vision.EncodeJPEG(&buf, img))

	path := dir + "/upload.jpg"
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}
