package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/havenbackend/internal/analytics"
	"github.com/havenbackend/internal/auth"
	"github.com/havenbackend/internal/db"
	"github.com/havenbackend/internal/llm"
	"github.com/havenbackend/internal/logger"
	"github.com/havenbackend/internal/models"
	"github.com/havenbackend/internal/store"
)

type AnalyticsResponse struct {
	Message   string                       `json:"message,omitempty"`
	Analytics *models.MoodAnalyticsSummary `json:"analytics"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

var (
	log        *logger.Logger
	moodStore  *store.Store
	summarizer *analytics.Summarizer
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

	var provider llm.CompletionProvider
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		gemini, err := llm.NewGeminiProvider(context.Background(), apiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Error("failed to initialize gemini provider, continuing without AI", "error", err.Error())
		} else {
			provider = gemini
		}
	} else {
		log.Warn("GEMINI_API_KEY is not set, insights will use the static fallback")
	}

	completions := llm.NewClient(provider, llm.DefaultRetryPolicy(), log)
	summarizer = analytics.NewSummarizer(completions, log)
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := auth.ValidateToken(request.Headers["Authorization"])
	if err != nil {
		return createErrorResponse(401, "UNAUTHORIZED", "Invalid or missing authentication token", err.Error()), nil
	}

	period := request.QueryStringParameters["period"]
	if period == "" {
		period = "weekly"
	}

	var since time.Time
	switch period {
	case "weekly":
		since = time.Now().AddDate(0, 0, -7)
	case "monthly":
		since = time.Now().AddDate(0, -1, 0)
	default:
		return createErrorResponse(400, "VALIDATION_ERROR", "Period must be weekly or monthly", ""), nil
	}

	records, err := moodStore.ListMoodEntries(ctx, claims.UserID, since)
	if err != nil {
		return createErrorResponse(500, "STORAGE_ERROR", "Failed to load mood entries", err.Error()), nil
	}

	summary, err := summarizer.Summarize(ctx, period, records)
	if err != nil {
		if errors.Is(err, analytics.ErrNoMoodData) {
			return createJSONResponse(200, AnalyticsResponse{
				Message:   "Not enough mood data yet",
				Analytics: nil,
			}), nil
		}
		return createErrorResponse(500, "PROCESSING_ERROR", "Failed to summarize mood data", err.Error()), nil
	}

	return createJSONResponse(200, AnalyticsResponse{Analytics: summary}), nil
}

func createJSONResponse(statusCode int, payload interface{}) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		return createErrorResponse(500, "SERIALIZATION_ERROR", "Failed to serialize response", err.Error())
	}
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(body),
	}
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
