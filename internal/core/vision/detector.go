package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/markdave123-py/damage-detector/internal/core"
)

// HTTPDetector sends images to a hosted object-detection endpoint that returns
// center-based boxes, e.g. {"predictions":[{"x":..,"y":..,"width":..,"height":..,"class":..,"confidence":..}]}.
type HTTPDetector struct {
	client        *resty.Client
	endpoint      string
	apiKey        string
	minConfidence float64
}

type detectResponse struct {
	Predictions []struct {
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
		Confidence float64 `json:"confidence"`
		Class      string  `json:"class"`
	} `json:"predictions"`
	Message string `json:"message,omitempty"`
}

func NewHTTPDetector(endpoint, apiKey string, minConfidence float64) (*HTTPDetector, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("detector endpoint is empty")
	}
	client := resty.New().SetTimeout(60 * time.Second)
	return &HTTPDetector{client: client, endpoint: endpoint, apiKey: apiKey, minConfidence: minConfidence}, nil
}

func (d *HTTPDetector) Extract(ctx context.Context, img image.Image) (*core.Extraction, error) {
	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, img); err != nil {
		return nil, err
	}

	req := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(base64.StdEncoding.EncodeToString(buf.Bytes()))
	if d.apiKey != "" {
		req.SetQueryParam("api_key", d.apiKey)
	}
	req.SetQueryParam("confidence", strconv.Itoa(int(d.minConfidence*100)))

	var out detectResponse
	resp, err := req.SetResult(&out).SetError(&out).Post(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("detector request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("detector request: status %d: %s", resp.StatusCode(), out.Message)
	}

	dets := make([]core.Detection, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		if p.Confidence < d.minConfidence {
			continue
		}
		dets = append(dets, core.Detection{
			Class:      normalizePart(p.Class),
			Confidence: p.Confidence,
			X:          int(math.Round(p.X - p.Width/2)),
			Y:          int(math.Round(p.Y - p.Height/2)),
			Width:      int(math.Round(p.Width)),
			Height:     int(math.Round(p.Height)),
		})
	}

	b := img.Bounds()
	return &core.Extraction{
		Detections:   dets,
		Severity:     DeriveSeverity(dets, b.Dx(), b.Dy()),
		DamagedParts: DistinctParts(dets),
	}, nil
}

func normalizePart(class string) string {
	return strings.ToLower(strings.TrimSpace(class))
}

// DistinctParts returns detection classes in first-seen order without repeats.
func DistinctParts(dets []core.Detection) []string {
	seen := make(map[string]bool, len(dets))
	out := make([]string, 0, len(dets))
	for _, d := range dets {
		if d.Class == "" || seen[d.Class] {
			continue
		}
		seen[d.Class] = true
		out = append(out, d.Class)
	}
	return out
}

// DeriveSeverity grades damage by the share of the image covered by boxes
// and by the number of boxes.
func DeriveSeverity(dets []core.Detection, width, height int) string {
	if len(dets) == 0 || width <= 0 || height <= 0 {
		return "minor"
	}

	var area float64
	for _, d := range dets {
		area += float64(d.Width * d.Height)
	}
	ratio := area / float64(width*height)

	switch {
	case ratio >= 0.30 || len(dets) >= 5:
		return "severe"
	case ratio >= 0.10 || len(dets) >= 3:
		return "moderate"
	default:
		return "minor"
	}
}

var _ core.DamageExtractor = (*HTTPDetector)(nil)
