package vision

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/markdave123-py/damage-detector/internal/core"
)

// ModelClassifier calls a TensorFlow Serving style REST predict endpoint
// and maps the argmax of the returned scores through a label table.
type ModelClassifier struct {
	client    *resty.Client
	endpoint  string
	labels    *LabelTable
	inputSize int
}

type predictRequest struct {
	Instances []Tensor `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

func NewModelClassifier(endpoint string, labels *LabelTable, inputSize int) (*ModelClassifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("model endpoint is empty")
	}
	if labels == nil || labels.Len() == 0 {
		return nil, fmt.Errorf("label table is empty")
	}
	if inputSize <= 0 {
		inputSize = 224
	}
	client := resty.New().
		SetTimeout(60*time.Second).
		SetHeader("Content-Type", "application/json")

	return &ModelClassifier{client: client, endpoint: endpoint, labels: labels, inputSize: inputSize}, nil
}

func (c *ModelClassifier) Classify(ctx context.Context, img image.Image) (string, error) {
	tensor := Preprocess(img, c.inputSize)

	var out predictResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(predictRequest{Instances: []Tensor{tensor}}).
		SetResult(&out).
		SetError(&out).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("model predict: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("model predict: status %d: %s", resp.StatusCode(), out.Error)
	}
	if len(out.Predictions) == 0 || len(out.Predictions[0]) == 0 {
		return "", fmt.Errorf("model predict: empty predictions")
	}

	return c.labels.Label(argmax(out.Predictions[0]))
}

func argmax(scores []float64) int {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}

var _ core.Classifier = (*ModelClassifier)(nil)
