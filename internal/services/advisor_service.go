package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/models"
)

const (
	msgSuggestionsNoKey  = "Gemini API Key is missing. Please add GEMINI_API_KEY to your .env file."
	msgSuggestionsFailed = "Failed to generate suggestions."
	msgSummaryNoKey      = "Gemini API Key is missing."
	msgSummaryFailed     = "Failed to generate summary."
	msgChatFailed        = "I'm having trouble connecting to the AI right now. Please try again later."
)

const suggestionsPrompt = `You are an expert vehicle damage assessor and mechanic.
Analyze the following vehicle damage report and provide a concise, actionable summary for the owner.

**Vehicle Details:**
- Type: %s
- Overall Severity: %s
- Damaged Parts: %s
- Estimated Repair Cost: ₹%s - ₹%s

**Please provide:**
1. **Urgency Assessment:** Is it safe to drive? (Yes/No/Caution).
2. **Repair vs Replace:** For the damaged parts, what is the likely course of action?
3. **Expert Tip:** One money-saving or safety tip relevant to this specific damage.
4. **Estimated Time:** Rough estimate of days in the shop.

Keep the tone professional yet reassuring. Format output in Markdown.`

const summaryPrompt = `You are a Data Analyst for a Vehicle Repair Shop.
Interpret the following analytics data and provide a strategic summary for the dashboard user (Shop Manager or Car Owner).

**Analytics Data:**
- Total Assessments Processed: %d
- Average Repair Cost: ₹%s
- Car Type Distribution: %s
- Damage Severity Distribution: %s

**Please provide a brief 3-4 sentence summary including:**
1. **Trend Analysis:** What is the most common car type and severity?
2. **Financial Insight:** Is the average cost high or low?
3. **Actionable Advice:** What should the user focus on?

Keep it professional, concise, and easy to read.`

const chatSystemPrompt = `You are the intelligent assistant for 'DamageDetector', an AI-powered vehicle damage assessment application.

**Project Overview:**
DamageDetector allows users to upload images of damaged vehicles to get instant analysis and repair cost estimates.

**Key Features:**
1. **Multi-Image Upload:** Users can upload multiple angles (front, side, rear) for a complete check.
2. **Car Type Detection:** Automatically identifies if the car is a Sedan, SUV, Hatchback, etc.
3. **Severity Analysis:** Classifies damage as Minor, Moderate, or Severe.
4. **Damage Detection:** Draws bounding boxes around specific damage (Scratches, Dents, Broken Glass).
5. **Cost Estimation:** Provides an estimated repair cost range in INR (₹).
6. **AI Advice:** Gives maintenance tips and a summary using Google Gemini.
7. **Analytics:** Tracks history and shows charts of damage trends.

**Your Goal:**
Answer user questions about the project, how to use it, or technical details based on the info above.
Be helpful, concise, and friendly.`

// Advisor produces free-text advice. It never fails a request: missing
// configuration and LLM errors turn into fixed placeholder text.
type Advisor struct {
	llm core.LLMProvider
}

// NewAdvisor builds the advisor. A nil provider means no API key is configured.
func NewAdvisor(llm core.LLMProvider) *Advisor {
	return &Advisor{llm: llm}
}

func (a *Advisor) Suggestions(ctx context.Context, carType, severity string, parts models.DamagedParts, cost models.EstimatedCost) string {
	if a.llm == nil {
		return msgSuggestionsNoKey
	}

	prompt := fmt.Sprintf(suggestionsPrompt, carType, severity, formatParts(parts),
		formatAmount(cost.MinCost), formatAmount(cost.MaxCost))
	out, err := a.llm.Generate(ctx, "", prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		log.Printf("advisor: suggestions failed: %v", err)
		return msgSuggestionsFailed
	}
	return out
}

func (a *Advisor) AnalyticsSummary(ctx context.Context, stats *models.Analytics) string {
	if a.llm == nil {
		return msgSummaryNoKey
	}

	prompt := fmt.Sprintf(summaryPrompt, stats.TotalAssessments, formatAmount(stats.AverageCost),
		formatCounts(stats.CarTypeDistribution), formatCounts(stats.SeverityDistribution))
	out, err := a.llm.Generate(ctx, "", prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		log.Printf("advisor: analytics summary failed: %v", err)
		return msgSummaryFailed
	}
	return out
}

func (a *Advisor) Chat(ctx context.Context, message string) string {
	if a.llm == nil {
		return msgChatFailed
	}

	out, err := a.llm.Generate(ctx, chatSystemPrompt, message)
	if err != nil || strings.TrimSpace(out) == "" {
		log.Printf("advisor: chat failed: %v", err)
		return msgChatFailed
	}
	return out
}

// formatParts renders "bumper (2), door (1)" in name order.
func formatParts(parts models.DamagedParts) string {
	names := parts.Names()
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, fmt.Sprintf("%s (%d)", n, parts[n]))
	}
	return strings.Join(out, ", ")
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s: %d", k, m[k]))
	}
	return "{" + strings.Join(out, ", ") + "}"
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
