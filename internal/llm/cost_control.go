package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CostControlService tracks per-user daily LLM spend in DynamoDB so a
// single user cannot burn through the completion budget.
type CostControlService struct {
	client    *dynamodb.Client
	tableName string
}

type UserSpendRecord struct {
	UserID      string  `dynamodbav:"user_id"`
	Date        string  `dynamodbav:"date"`
	LLMRequests int     `dynamodbav:"llm_requests"`
	LLMCost     float64 `dynamodbav:"llm_cost"`
	DailyLimit  float64 `dynamodbav:"daily_limit"`
	CreatedAt   string  `dynamodbav:"created_at"`
	UpdatedAt   string  `dynamodbav:"updated_at"`
	TTL         int64   `dynamodbav:"ttl"`
}

type CostControlResult struct {
	Allowed     bool    `json:"allowed"`
	Remaining   float64 `json:"remaining"`
	CurrentCost float64 `json:"current_cost"`
	DailyLimit  float64 `json:"daily_limit"`
	Reason      string  `json:"reason,omitempty"`
}

func NewCostControlService() (*CostControlService, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	tableName := "haven-user-spend"
	if envTable := os.Getenv("USER_SPEND_TABLE_NAME"); envTable != "" {
		tableName = envTable
	}

	client := dynamodb.NewFromConfig(cfg)
	return &CostControlService{
		client:    client,
		tableName: tableName,
	}, nil
}

// CheckUserSpendLimit checks if user can make an LLM request within their daily limit
func (s *CostControlService) CheckUserSpendLimit(ctx context.Context, userID string, estimatedCost float64) (*CostControlResult, error) {
	today := time.Now().Format("2006-01-02")

	record, err := s.getUserSpendRecord(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to get user spend record: %v", err)
	}

	if record == nil {
		record = s.newSpendRecord(userID, today)
	}

	result := &CostControlResult{
		CurrentCost: record.LLMCost,
		DailyLimit:  record.DailyLimit,
		Remaining:   record.DailyLimit - record.LLMCost,
	}

	if record.LLMCost+estimatedCost > record.DailyLimit {
		result.Allowed = false
		result.Reason = fmt.Sprintf("Daily limit exceeded. Current: $%.4f, Request: $%.4f, Limit: $%.4f",
			record.LLMCost, estimatedCost, record.DailyLimit)
		return result, nil
	}

	result.Allowed = true
	return result, nil
}

// RecordLLMRequest records an LLM request and its cost
func (s *CostControlService) RecordLLMRequest(ctx context.Context, userID string, cost float64) error {
	today := time.Now().Format("2006-01-02")

	record, err := s.getUserSpendRecord(ctx, userID, today)
	if err != nil {
		return fmt.Errorf("failed to get user spend record: %v", err)
	}

	if record == nil {
		record = s.newSpendRecord(userID, today)
	}

	record.LLMRequests++
	record.LLMCost += cost
	record.UpdatedAt = time.Now().Format(time.RFC3339)
	record.TTL = time.Now().Add(7 * 24 * time.Hour).Unix() // Keep records for 7 days

	if err := s.saveUserSpendRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to save user spend record: %v", err)
	}

	return nil
}

func (s *CostControlService) newSpendRecord(userID, date string) *UserSpendRecord {
	now := time.Now().Format(time.RFC3339)
	return &UserSpendRecord{
		UserID:     userID,
		Date:       date,
		DailyLimit: s.getDefaultDailyLimit(userID),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// getUserSpendRecord retrieves a user's spend record for a specific date
func (s *CostControlService) getUserSpendRecord(ctx context.Context, userID, date string) (*UserSpendRecord, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
			"date":    &types.AttributeValueMemberS{Value: date},
		},
	}

	result, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %v", err)
	}

	if result.Item == nil {
		return nil, nil // No record found
	}

	var record UserSpendRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %v", err)
	}

	return &record, nil
}

// saveUserSpendRecord saves a user's spend record
func (s *CostControlService) saveUserSpendRecord(ctx context.Context, record *UserSpendRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %v", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put item: %v", err)
	}

	return nil
}

// getDefaultDailyLimit returns the default daily limit for a user
func (s *CostControlService) getDefaultDailyLimit(userID string) float64 {
	// Could be tiered by subscription later; every user gets the same
	// budget for now.
	return 2.0 // $2.00 per day
}

// EstimateCost estimates the cost of a completion based on input/output tokens
func EstimateCost(inputTokens, outputTokens int, model string) float64 {
	// Cost per 1K tokens for Gemini API models (as of 2025)
	costs := map[string]struct {
		input  float64
		output float64
	}{
		"gemini-2.0-flash": {
			input:  0.0001, // $0.10 per 1M input tokens
			output: 0.0004, // $0.40 per 1M output tokens
		},
		"gemini-2.0-flash-lite": {
			input:  0.000075, // $0.075 per 1M input tokens
			output: 0.0003,   // $0.30 per 1M output tokens
		},
		"gemini-1.5-pro": {
			input:  0.00125, // $1.25 per 1M input tokens
			output: 0.005,   // $5.00 per 1M output tokens
		},
	}

	modelCosts, exists := costs[model]
	if !exists {
		// Default to gemini-2.0-flash pricing
		modelCosts = costs[defaultModel]
	}

	inputCost := (float64(inputTokens) / 1000.0) * modelCosts.input
	outputCost := (float64(outputTokens) / 1000.0) * modelCosts.output

	return inputCost + outputCost
}
