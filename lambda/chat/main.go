package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/havenbackend/internal/auth"
	"github.com/havenbackend/internal/chat"
	"github.com/havenbackend/internal/crisis"
	"github.com/havenbackend/internal/db"
	"github.com/havenbackend/internal/llm"
	"github.com/havenbackend/internal/logger"
	"github.com/havenbackend/internal/models"
	"github.com/havenbackend/internal/store"
)

type HistoryItem struct {
	Role    string `json:"role"` // "user" or "ai"
	Message string `json:"message"`
}

type ChatRequest struct {
	Message string        `json:"message"`
	History []HistoryItem `json:"history"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// historyLimit caps how many stored turns are replayed when the client
// sends no history of its own.
const historyLimit = 20

var (
	log          *logger.Logger
	chatStore    *store.Store
	orchestrator *chat.Orchestrator
	costControl  *llm.CostControlService
	chatModel    string
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
	chatStore = store.New(db.DB)

	chatModel = os.Getenv("GEMINI_MODEL")

	// A missing API key leaves the provider nil; the orchestrator then
	// degrades to canned replies instead of refusing to start.
	var provider llm.CompletionProvider
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		gemini, err := llm.NewGeminiProvider(context.Background(), apiKey, chatModel)
		if err != nil {
			log.Error("failed to initialize gemini provider, continuing without AI", "error", err.Error())
		} else {
			provider = gemini
		}
	} else {
		log.Warn("GEMINI_API_KEY is not set, chat will use canned replies")
	}

	completions := llm.NewClient(provider, llm.DefaultRetryPolicy(), log)
	orchestrator = chat.NewOrchestrator(completions, chatStore, chatStore, log)

	costControl, err = llm.NewCostControlService()
	if err != nil {
		log.Error("failed to initialize cost control service", "error", err.Error())
		os.Exit(1)
	}
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := auth.ValidateToken(request.Headers["Authorization"])
	if err != nil {
		return createErrorResponse(401, "UNAUTHORIZED", "Invalid or missing authentication token", err.Error()), nil
	}

	var req ChatRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return createErrorResponse(400, "INVALID_REQUEST", "Invalid JSON in request body", err.Error()), nil
	}
	if req.Message == "" {
		return createErrorResponse(400, "VALIDATION_ERROR", "Message is required", ""), nil
	}

	// Crisis turns bypass spend limiting entirely: the safety reply must
	// reach the user no matter what the budget says.
	assessment := crisis.Detect(req.Message)
	if !assessment.IsCrisis {
		estimatedCost := llm.EstimateCost(len(req.Message)/4, 200, chatModel)
		costCheck, err := costControl.CheckUserSpendLimit(ctx, claims.UserID, estimatedCost)
		if err != nil {
			log.Warn("spend check failed, allowing request", "user_id", claims.UserID, "error", err.Error())
		} else if !costCheck.Allowed {
			log.Info("spend limit reached, returning degraded reply", "user_id", claims.UserID)
			return createJSONResponse(200, chat.Response{
				Message:        chat.GenericFallback,
				IsCrisis:       false,
				CrisisSeverity: crisis.SeverityNone,
			}), nil
		}
	}

	history := historyToTurns(req.History)
	if len(history) == 0 {
		// Older clients send no history; replay the stored conversation
		// tail instead. Best-effort: a read failure just means less
		// context for the model.
		stored, err := chatStore.ListChatTurns(ctx, claims.UserID, historyLimit)
		if err != nil {
			log.Warn("failed to load stored chat history", "user_id", claims.UserID, "error", err.Error())
		} else {
			history = stored
		}
	}

	response, err := orchestrator.Respond(ctx, claims.UserID, req.Message, history)
	if err != nil {
		return createErrorResponse(500, "PROCESSING_ERROR", "Failed to process chat message", err.Error()), nil
	}

	estimatedCost := llm.EstimateCost(len(req.Message)/4, len(response.Message)/4, chatModel)
	if err := costControl.RecordLLMRequest(ctx, claims.UserID, estimatedCost); err != nil {
		// Log error but don't fail the request
		log.Warn("failed to record LLM cost", "user_id", claims.UserID, "error", err.Error())
	}

	return createJSONResponse(200, response), nil
}

func historyToTurns(history []HistoryItem) []models.ChatTurn {
	turns := make([]models.ChatTurn, 0, len(history))
	for _, item := range history {
		role := "user"
		if item.Role == "ai" || item.Role == "assistant" {
			role = "assistant"
		}
		turns = append(turns, models.ChatTurn{Role: role, Content: item.Message})
	}
	return turns
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
