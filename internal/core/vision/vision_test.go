package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/damage-detector/internal/core"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestLoadLabelTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "car_labels.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"0":"Hatchback","1":"SUV","2":"Sedan"}`), 0o600))

	table, err := LoadLabelTable(path)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	l, err := table.Label(2)
	require.NoError(t, err)
	assert.Equal(t, "Sedan", l)

	_, err = table.Label(7)
	assert.Error(t, err)
	assert.Equal(t, []string{"Hatchback", "SUV", "Sedan"}, table.All())
}

func TestLoadLabelTableRejectsBadKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"first":"Sedan"}`), 0o600))

	_, err := LoadLabelTable(path)
	assert.Error(t, err)
}

func TestPreprocessShapeAndScale(t *testing.T) {
	img := solidImage(640, 480, color.NRGBA{R: 255, G: 0, B: 51, A: 255})

	tensor := Preprocess(img, 224)
	require.Len(t, tensor, 224)
	require.Len(t, tensor[0], 224)

	px := tensor[100][100]
	assert.InDelta(t, 1.0, px[0], 0.01)
	assert.InDelta(t, 0.0, px[1], 0.01)
	assert.InDelta(t, 0.2, px[2], 0.01)
}

func TestModelClassifierArgmax(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Instances, 1)
		assert.Len(t, req.Instances[0], 32)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions":[[0.1,0.7,0.2]]}`))
	}))
	defer srv.Close()

	c, err := NewModelClassifier(srv.URL, SeverityLabels(), 32)
	require.NoError(t, err)

	label, err := c.Classify(context.Background(), solidImage(64, 64, color.NRGBA{A: 255}))
	require.NoError(t, err)
	assert.Equal(t, "moderate", label)
}

func TestModelClassifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	c, err := NewModelClassifier(srv.URL, SeverityLabels(), 16)
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), solidImage(8, 8, color.NRGBA{A: 255}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestHTTPDetectorExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))

		body, _ := io.ReadAll(r.Body)
		_, err := base64.StdEncoding.DecodeString(string(body))
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions":[
			{"x":50,"y":50,"width":20,"height":20,"confidence":0.9,"class":"Hood"},
			{"x":20,"y":20,"width":10,"height":10,"confidence":0.8,"class":"bumper"},
			{"x":70,"y":70,"width":10,"height":10,"confidence":0.6,"class":"hood"},
			{"x":10,"y":10,"width":4,"height":4,"confidence":0.1,"class":"door"}
		]}`))
	}))
	defer srv.Close()

	d, err := NewHTTPDetector(srv.URL, "secret", 0.4)
	require.NoError(t, err)

	ext, err := d.Extract(context.Background(), solidImage(100, 100, color.NRGBA{R: 200, G: 200, B: 200, A: 255}))
	require.NoError(t, err)

	require.Len(t, ext.Detections, 3)
	assert.Equal(t, core.Detection{Class: "hood", Confidence: 0.9, X: 40, Y: 40, Width: 20, Height: 20}, ext.Detections[0])
	assert.Equal(t, []string{"hood", "bumper"}, ext.DamagedParts)
	assert.Equal(t, "moderate", ext.Severity)
}

func TestDeriveSeverity(t *testing.T) {
	box := func(w, h int) core.Detection { return core.Detection{Class: "x", Width: w, Height: h} }

	cases := []struct {
		name string
		dets []core.Detection
		want string
	}{
		{"no detections", nil, "minor"},
		{"small dent", []core.Detection{box(10, 10)}, "minor"},
		{"medium area", []core.Detection{box(40, 30)}, "moderate"},
		{"three small", []core.Detection{box(1, 1), box(1, 1), box(1, 1)}, "moderate"},
		{"large area", []core.Detection{box(60, 60)}, "severe"},
		{"many boxes", []core.Detection{box(1, 1), box(1, 1), box(1, 1), box(1, 1), box(1, 1)}, "severe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveSeverity(tc.dets, 100, 100))
		})
	}
}

func TestAnnotateLeavesOriginalUntouched(t *testing.T) {
	grey := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	src := solidImage(200, 200, grey)
	dets := []core.Detection{{Class: "bumper", Confidence: 0.87, X: 50, Y: 80, Width: 100, Height: 60}}

	out := Annotate(src, dets)

	assert.Equal(t, grey, src.NRGBAAt(50, 100))
	assert.Equal(t, classColor("bumper"), out.NRGBAAt(50, 100))
	// interior is untouched
	assert.Equal(t, grey, out.NRGBAAt(100, 110))

	var buf bytes.Buffer
	require.NoError(t, EncodeJPEG(&buf, out))
	_, err := Decode(&buf)
	require.NoError(t, err)
}
