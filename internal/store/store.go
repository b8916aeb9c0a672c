// Package store is the Postgres persistence layer for chat turns, crisis
// alerts and mood entries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/havenbackend/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateCrisisAlert appends a crisis-alert audit record. Alerts are never
// updated here; resolution is an administrative action.
func (s *Store) CreateCrisisAlert(ctx context.Context, userID string, alert models.CrisisAlert) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crisis_alerts (id, user_id, severity, trigger_phrase, response_given)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), userID, alert.Severity, alert.TriggerPhrase, alert.ResponseGiven,
	)
	if err != nil {
		return fmt.Errorf("error creating crisis alert: %v", err)
	}
	return nil
}

func (s *Store) SaveChatTurn(ctx context.Context, userID, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_turns (id, user_id, role, content) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), userID, role, content,
	)
	if err != nil {
		return fmt.Errorf("error saving chat turn: %v", err)
	}
	return nil
}

// ListChatTurns returns the most recent turns for a user, oldest first.
func (s *Store) ListChatTurns(ctx context.Context, userID string, limit int) ([]models.ChatTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, content, created_at FROM (
			SELECT id, user_id, role, content, created_at
			FROM chat_turns WHERE user_id = $1
			ORDER BY created_at DESC LIMIT $2
		) recent ORDER BY created_at ASC`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing chat turns: %v", err)
	}
	defer rows.Close()

	var turns []models.ChatTurn
	for rows.Next() {
		var turn models.ChatTurn
		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning chat turn: %v", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func (s *Store) CreateMoodEntry(ctx context.Context, entry *models.MoodEntry) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mood_entries (id, user_id, mood, stress_level, sleep_hours, notes, encrypted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, entry.UserID, entry.Mood, entry.StressLevel, entry.SleepHours, entry.Notes, entry.Encrypted,
	)
	if err != nil {
		return "", fmt.Errorf("error creating mood entry: %v", err)
	}
	return id, nil
}

// ListMoodEntries returns a user's mood entries created at or after since,
// oldest first.
func (s *Store) ListMoodEntries(ctx context.Context, userID string, since time.Time) ([]models.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, mood, stress_level, sleep_hours, notes, encrypted, created_at
		 FROM mood_entries
		 WHERE user_id = $1 AND created_at >= $2
		 ORDER BY created_at ASC`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing mood entries: %v", err)
	}
	defer rows.Close()

	var entries []models.MoodEntry
	for rows.Next() {
		var entry models.MoodEntry
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Mood, &entry.StressLevel,
			&entry.SleepHours, &entry.Notes, &entry.Encrypted, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning mood entry: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
