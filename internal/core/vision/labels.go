package vision

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// LabelTable maps a model output index to its label. It is read-only after load.
type LabelTable struct {
	labels map[int]string
}

func NewLabelTable(labels map[int]string) *LabelTable {
	cp := make(map[int]string, len(labels))
	for k, v := range labels {
		cp[k] = v
	}
	return &LabelTable{labels: cp}
}

// SeverityLabels is the fixed output order of the severity model.
func SeverityLabels() *LabelTable {
	return NewLabelTable(map[int]string{0: "minor", 1: "moderate", 2: "severe"})
}

// LoadLabelTable reads a JSON object such as {"0": "Sedan", "1": "SUV"}.
func LoadLabelTable(path string) (*LabelTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label table: %w", err)
	}

	var byKey map[string]string
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, fmt.Errorf("parse label table %s: %w", path, err)
	}
	if len(byKey) == 0 {
		return nil, fmt.Errorf("label table %s is empty", path)
	}

	labels := make(map[int]string, len(byKey))
	for k, v := range byKey {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("label table %s: key %q is not an index", path, k)
		}
		labels[i] = v
	}
	return &LabelTable{labels: labels}, nil
}

func (t *LabelTable) Label(index int) (string, error) {
	l, ok := t.labels[index]
	if !ok {
		return "", fmt.Errorf("no label for class index %d", index)
	}
	return l, nil
}

func (t *LabelTable) Len() int { return len(t.labels) }

// All returns the labels ordered by class index.
func (t *LabelTable) All() []string {
	idx := make([]int, 0, len(t.labels))
	for i := range t.labels {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.labels[i])
	}
	return out
}
