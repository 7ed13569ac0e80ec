package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/damage-detector/internal/models"
)

func TestAdvisorWithoutKey(t *testing.T) {
	a := NewAdvisor(nil)
	ctx := context.Background()

	assert.Equal(t, msgSuggestionsNoKey, a.Suggestions(ctx, "Sedan", "minor", nil, models.EstimatedCost{}))
	assert.Equal(t, msgSummaryNoKey, a.AnalyticsSummary(ctx, &models.Analytics{}))
	assert.Equal(t, msgChatFailed, a.Chat(ctx, "hi"))
}

func TestAdvisorSuggestionsPrompt(t *testing.T) {
	llm := &fakeLLM{out: "Drive carefully."}
	a := NewAdvisor(llm)

	got := a.Suggestions(context.Background(), "SUV", "severe",
		models.DamagedParts{"hood": 1, "door": 2}, models.EstimatedCost{MinCost: 1200, MaxCost: 3400.5})
	assert.Equal(t, "Drive carefully.", got)
	assert.Contains(t, llm.lastUser, "- Type: SUV")
	assert.Contains(t, llm.lastUser, "- Damaged Parts: door (2), hood (1)")
	assert.Contains(t, llm.lastUser, "₹1200 - ₹3400.5")
}

func TestAdvisorFailuresDegrade(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota exceeded")}
	a := NewAdvisor(llm)
	ctx := context.Background()

	assert.Equal(t, msgSuggestionsFailed, a.Suggestions(ctx, "Sedan", "minor", nil, models.EstimatedCost{}))
	assert.Equal(t, msgSummaryFailed, a.AnalyticsSummary(ctx, &models.Analytics{}))
	assert.Equal(t, msgChatFailed, a.Chat(ctx, "hello"))
	assert.Contains(t, llm.lastSystem, "DamageDetector")
	assert.Equal(t, "hello", llm.lastUser)
}

func TestAdvisorSummaryPrompt(t *testing.T) {
	llm := &fakeLLM{out: "Mostly sedans."}
	a := NewAdvisor(llm)

	got := a.AnalyticsSummary(context.Background(), &models.Analytics{
		TotalAssessments:     3,
		CarTypeDistribution:  map[string]int{"Sedan": 2, "SUV": 1},
		SeverityDistribution: map[string]int{"minor": 3},
		AverageCost:          2583.25,
	})
	assert.Equal(t, "Mostly sedans.", got)
	assert.Contains(t, llm.lastUser, "Total Assessments Processed: 3")
	assert.Contains(t, llm.lastUser, "₹2583.25")
	assert.Contains(t, llm.lastUser, "{SUV: 1, Sedan: 2}")
}
