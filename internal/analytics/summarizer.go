// Package analytics aggregates a window of mood entries into summary
// statistics and asks the completion provider for a short natural-language
// interpretation.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/havenbackend/internal/llm"
	"github.com/havenbackend/internal/logger"
	"github.com/havenbackend/internal/models"
)

// ErrNoMoodData signals an empty window. Callers surface it as an empty
// state, not a failure.
var ErrNoMoodData = errors.New("not enough mood data")

const insightsPrompt = `You are a supportive wellness assistant. Given a user's mood statistics for the period, write 2-3 warm, encouraging sentences interpreting the trend. Do not diagnose. Do not mention the raw numbers back verbatim.`

// InsightsFallback replaces the AI interpretation when the provider is
// unavailable; analytics must always render something.
const InsightsFallback = `Keep checking in with yourself - every entry helps you understand your own patterns a little better. Showing up for yourself like this is already real progress.`

// moodScores maps each mood label to its 1-5 ordinal.
var moodScores = map[string]int{
	"happy":   5,
	"calm":    4,
	"neutral": 3,
	"sad":     2,
	"anxious": 1,
}

type Summarizer struct {
	completions *llm.Client
	log         *logger.Logger
}

func NewSummarizer(completions *llm.Client, log *logger.Logger) *Summarizer {
	return &Summarizer{
		completions: completions,
		log:         log,
	}
}

// Summarize computes the summary for one window of mood entries. An empty
// window returns ErrNoMoodData. Provider failures degrade to the static
// fallback insight and never propagate.
func (s *Summarizer) Summarize(ctx context.Context, periodType string, records []models.MoodEntry) (*models.MoodAnalyticsSummary, error) {
	if len(records) == 0 {
		return nil, ErrNoMoodData
	}

	distribution := make(map[string]int)
	var seenOrder []string
	totalScore := 0
	for _, record := range records {
		if _, seen := distribution[record.Mood]; !seen {
			seenOrder = append(seenOrder, record.Mood)
		}
		distribution[record.Mood]++
		score, ok := moodScores[record.Mood]
		if !ok {
			score = 3 // Unknown labels count as neutral
		}
		totalScore += score
	}

	// Ties go to whichever label appeared first in the window.
	dominantMood := ""
	dominantCount := 0
	for _, label := range seenOrder {
		if distribution[label] > dominantCount {
			dominantCount = distribution[label]
			dominantMood = label
		}
	}

	average := math.Round(float64(totalScore)/float64(len(records))*10) / 10

	summary := &models.MoodAnalyticsSummary{
		PeriodType:       periodType,
		AverageMoodScore: average,
		DominantMood:     dominantMood,
		TotalEntries:     len(records),
		MoodDistribution: distribution,
	}
	summary.Insights = s.generateInsights(ctx, summary)

	return summary, nil
}

func (s *Summarizer) generateInsights(ctx context.Context, summary *models.MoodAnalyticsSummary) string {
	statsContext := fmt.Sprintf(
		"Period: %s. Entries: %d. Average mood score (1-5): %.1f. Dominant mood: %s. Distribution: %s.",
		summary.PeriodType,
		summary.TotalEntries,
		summary.AverageMoodScore,
		summary.DominantMood,
		formatDistribution(summary.MoodDistribution),
	)

	insights, err := s.completions.Complete(ctx, insightsPrompt, statsContext)
	if err != nil {
		s.log.Warn("insights generation failed, using fallback",
			"period", summary.PeriodType,
			"error", err.Error(),
		)
		return InsightsFallback
	}
	return insights
}

func formatDistribution(distribution map[string]int) string {
	labels := make([]string, 0, len(distribution))
	for label := range distribution {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s=%d", label, distribution[label]))
	}
	return strings.Join(parts, ", ")
}
