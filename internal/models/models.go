package models

import (
	"time"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // Password is never exposed in JSON
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HIPAA-compliant models for Haven
type ChatTurn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`    // "user" or "assistant"
	Content   string    `json:"content"` // PHI - encrypted at rest
	CreatedAt time.Time `json:"created_at"`
}

// CrisisAlert is an append-only audit record. The chat pipeline only ever
// creates alerts; marking one resolved is an administrative action that
// happens outside this service.
type CrisisAlert struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Severity      string    `json:"severity"` // "medium" or "high"
	TriggerPhrase string    `json:"trigger_phrase"`
	ResponseGiven string    `json:"response_given"`
	Resolved      bool      `json:"resolved"`
	CreatedAt     time.Time `json:"created_at"`
}

type MoodEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Mood        string    `json:"mood"`  // happy, calm, neutral, sad, anxious
	StressLevel int       `json:"stress_level"`
	SleepHours  float64   `json:"sleep_hours"`
	Notes       string    `json:"notes"` // PHI - encrypted at rest
	Encrypted   bool      `json:"encrypted"` // Track encryption status
	CreatedAt   time.Time `json:"created_at"`
}

type MoodAnalyticsSummary struct {
	PeriodType       string         `json:"periodType"` // "weekly" or "monthly"
	AverageMoodScore float64        `json:"averageMoodScore"`
	DominantMood     string         `json:"dominantMood"`
	TotalEntries     int            `json:"totalEntries"`
	MoodDistribution map[string]int `json:"moodDistribution"`
	Insights         string         `json:"insights"`
}

type IdempotencyKey struct {
	Key         string    `json:"key"`
	UserID      string    `json:"user_id"`
	RequestHash string    `json:"request_hash"`
	Response    string    `json:"response"`
	Status      string    `json:"status"`      // "pending", "completed", "failed"
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type UserSpendTracking struct {
	UserID      string    `json:"user_id"`
	Date        string    `json:"date"`        // YYYY-MM-DD format
	LLMRequests int       `json:"llm_requests"`
	LLMCost     float64   `json:"llm_cost"`
	DailyLimit  float64   `json:"daily_limit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
