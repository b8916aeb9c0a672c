package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/havenbackend/internal/auth"
	"github.com/havenbackend/internal/db"
	"github.com/havenbackend/internal/encryption"
	"github.com/havenbackend/internal/idempotency"
	"github.com/havenbackend/internal/logger"
	"github.com/havenbackend/internal/models"
	"github.com/havenbackend/internal/store"
)

type MoodEntryRequest struct {
	Mood        string  `json:"mood"`
	StressLevel int     `json:"stress_level"`
	SleepHours  float64 `json:"sleep_hours"`
	Notes       string  `json:"notes"`
}

type MoodEntryResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Mood        string    `json:"mood"`
	StressLevel int       `json:"stress_level"`
	SleepHours  float64   `json:"sleep_hours"`
	CreatedAt   time.Time `json:"created_at"`
	Encrypted   bool      `json:"encrypted"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

var validMoods = map[string]bool{
	"happy":   true,
	"calm":    true,
	"neutral": true,
	"sad":     true,
	"anxious": true,
}

var (
	log        *logger.Logger
	moodStore  *store.Store
	kmsService *encryption.KMSClient
)

func init() {
	var err error
	log, err = logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	if err := db.InitDB(); err != nil {
		log.Error("failed to initialize database", "error", err.Error())
		os.Exit(1)
	}
	moodStore = store.New(db.DB)

	kmsService, err = encryption.NewKMSClient()
	if err != nil {
		log.Error("failed to initialize encryption service", "error", err.Error())
		os.Exit(1)
	}
	if err := kmsService.ValidateKMSKey(context.Background()); err != nil {
		log.Error("KMS key validation failed", "error", err.Error())
		os.Exit(1)
	}
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := auth.ValidateToken(request.Headers["Authorization"])
	if err != nil {
		return createErrorResponse(401, "UNAUTHORIZED", "Invalid or missing authentication token", err.Error()), nil
	}

	switch request.HTTPMethod {
	case "GET":
		return listMoodEntries(ctx, claims.UserID)
	default:
		return createMoodEntry(ctx, claims.UserID, request)
	}
}

func createMoodEntry(ctx context.Context, userID string, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req MoodEntryRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return createErrorResponse(400, "INVALID_REQUEST", "Invalid JSON in request body", err.Error()), nil
	}

	if !validMoods[req.Mood] {
		return createErrorResponse(400, "VALIDATION_ERROR", "Mood must be one of happy, calm, neutral, sad, anxious", ""), nil
	}

	idempotencyService, err := idempotency.NewIdempotencyService()
	if err != nil {
		return createErrorResponse(500, "SERVICE_ERROR", "Failed to initialize idempotency service", err.Error()), nil
	}

	response, err := idempotencyService.ProcessIdempotentRequest(
		ctx,
		userID,
		"POST /mood-entries",
		request.Body,
		func() (interface{}, error) {
			return processMoodEntry(ctx, userID, req)
		},
	)
	if err != nil {
		return createErrorResponse(500, "PROCESSING_ERROR", "Failed to process mood entry", err.Error()), nil
	}

	responseBody, err := json.Marshal(response)
	if err != nil {
		return createErrorResponse(500, "SERIALIZATION_ERROR", "Failed to serialize response", err.Error()), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: 201,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(responseBody),
	}, nil
}

// listMoodEntries returns the caller's entries from the last 30 days with
// notes decrypted for display.
func listMoodEntries(ctx context.Context, userID string) (events.APIGatewayProxyResponse, error) {
	entries, err := moodStore.ListMoodEntries(ctx, userID, time.Now().AddDate(0, -1, 0))
	if err != nil {
		return createErrorResponse(500, "STORAGE_ERROR", "Failed to load mood entries", err.Error()), nil
	}

	for i := range entries {
		if !entries[i].Encrypted {
			continue
		}
		notes, err := kmsService.DecryptPHI(ctx, entries[i].Notes)
		if err != nil {
			return createErrorResponse(500, "DECRYPTION_ERROR", "Failed to decrypt mood entry", err.Error()), nil
		}
		entries[i].Notes = notes
		entries[i].Encrypted = false
	}

	responseBody, err := json.Marshal(map[string]interface{}{"entries": entries})
	if err != nil {
		return createErrorResponse(500, "SERIALIZATION_ERROR", "Failed to serialize response", err.Error()), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: 200,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(responseBody),
	}, nil
}

func processMoodEntry(
	ctx context.Context,
	userID string,
	req MoodEntryRequest,
) (*MoodEntryResponse, error) {
	// Notes are PHI and encrypted at rest; the mood label itself stays in
	// the clear so analytics can aggregate it.
	encryptedNotes, err := kmsService.EncryptPHI(ctx, req.Notes)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt notes: %v", err)
	}

	entry := &models.MoodEntry{
		UserID:      userID,
		Mood:        req.Mood,
		StressLevel: req.StressLevel,
		SleepHours:  req.SleepHours,
		Notes:       encryptedNotes,
		Encrypted:   true,
	}

	id, err := moodStore.CreateMoodEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to save mood entry: %v", err)
	}

	return &MoodEntryResponse{
		ID:          id,
		UserID:      userID,
		Mood:        req.Mood,
		StressLevel: req.StressLevel,
		SleepHours:  req.SleepHours,
		CreatedAt:   time.Now(),
		Encrypted:   true,
	}, nil
}

func createErrorResponse(statusCode int, code, message, details string) events.APIGatewayProxyResponse {
	errorResp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}

	body, _ := json.Marshal(errorResp)
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(body),
	}
}

func main() {
	lambda.Start(handler)
}
