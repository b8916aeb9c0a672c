package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenbackend/internal/crisis"
	"github.com/havenbackend/internal/llm"
	"github.com/havenbackend/internal/logger"
	"github.com/havenbackend/internal/models"
)

type scriptedProvider struct {
	reply   string
	err     error
	calls   int
	lastSys string
	lastCtx string
}

func (p *scriptedProvider) Generate(ctx context.Context, systemInstructions, userContent string) (string, error) {
	p.calls++
	p.lastSys = systemInstructions
	p.lastCtx = userContent
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

type recordingAlertStore struct {
	alerts []models.CrisisAlert
	users  []string
	err    error
}

func (s *recordingAlertStore) CreateCrisisAlert(ctx context.Context, userID string, alert models.CrisisAlert) error {
	if s.err != nil {
		return s.err
	}
	s.users = append(s.users, userID)
	s.alerts = append(s.alerts, alert)
	return nil
}

type recordingTurnStore struct {
	roles    []string
	contents []string
	err      error
}

func (s *recordingTurnStore) SaveChatTurn(ctx context.Context, userID, role, content string) error {
	if s.err != nil {
		return s.err
	}
	s.roles = append(s.roles, role)
	s.contents = append(s.contents, content)
	return nil
}

// fastPolicy keeps unit tests free of real backoff waits.
var fastPolicy = llm.RetryPolicy{MaxAttempts: 2, BaseDelay: 0, Multiplier: 1}

func newTestOrchestrator(provider llm.CompletionProvider, alerts AlertStore, turns TurnStore) *Orchestrator {
	client := llm.NewClient(provider, fastPolicy, logger.NewNop())
	return NewOrchestrator(client, alerts, turns, logger.NewNop())
}

func TestRespondNormalTurn(t *testing.T) {
	provider := &scriptedProvider{reply: "That sounds like a lovely day."}
	alerts := &recordingAlertStore{}
	turns := &recordingTurnStore{}
	o := newTestOrchestrator(provider, alerts, turns)

	resp, err := o.Respond(context.Background(), "user-1", "I had a great walk today", nil)
	require.NoError(t, err)
	assert.Equal(t, "That sounds like a lovely day.", resp.Message)
	assert.False(t, resp.IsCrisis)
	assert.Equal(t, crisis.SeverityNone, resp.CrisisSeverity)
	assert.Empty(t, alerts.alerts, "no alert on a normal turn")
	assert.NotContains(t, provider.lastSys, "988", "normal persona must not carry the crisis addendum")
}

func TestRespondCrisisTurnContains988(t *testing.T) {
	provider := &scriptedProvider{reply: "I hear you. You are not alone. You can call or text 988 to reach the Suicide & Crisis Lifeline, any time, day or night."}
	alerts := &recordingAlertStore{}
	o := newTestOrchestrator(provider, alerts, &recordingTurnStore{})

	resp, err := o.Respond(context.Background(), "user-1", "I want to kill myself", nil)
	require.NoError(t, err)
	assert.True(t, resp.IsCrisis)
	assert.Equal(t, crisis.SeverityHigh, resp.CrisisSeverity)
	assert.Contains(t, resp.Message, "988")
	assert.Contains(t, provider.lastSys, "988", "crisis system prompt must demand the 988 disclosure")

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, "user-1", alerts.users[0])
	assert.Equal(t, "high", alerts.alerts[0].Severity)
	assert.Equal(t, "kill myself", alerts.alerts[0].TriggerPhrase)
}

func TestRespondCrisisFallbackContains988(t *testing.T) {
	// Every generation attempt fails; the canned crisis fallback must
	// still satisfy the 988 invariant.
	provider := &scriptedProvider{err: errors.New("upstream down")}
	o := newTestOrchestrator(provider, &recordingAlertStore{}, &recordingTurnStore{})

	resp, err := o.Respond(context.Background(), "user-1", "I feel suicidal tonight", nil)
	require.NoError(t, err, "generation failure must not surface as an error")
	assert.True(t, resp.IsCrisis)
	assert.Contains(t, resp.Message, "988")
	assert.Equal(t, CrisisFallback, resp.Message)
	assert.Equal(t, fastPolicy.MaxAttempts, provider.calls)
}

func TestRespondCrisisWithoutProviderContains988(t *testing.T) {
	o := newTestOrchestrator(nil, &recordingAlertStore{}, &recordingTurnStore{})

	resp, err := o.Respond(context.Background(), "user-1", "there is no reason to live", nil)
	require.NoError(t, err)
	assert.True(t, resp.IsCrisis)
	assert.Contains(t, resp.Message, "988")
}

func TestRespondGenericFallback(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("upstream down")}
	o := newTestOrchestrator(provider, &recordingAlertStore{}, &recordingTurnStore{})

	resp, err := o.Respond(context.Background(), "user-1", "how was your day?", nil)
	require.NoError(t, err)
	assert.False(t, resp.IsCrisis)
	assert.Equal(t, GenericFallback, resp.Message)
}

func TestRespondAlertWriteFailureDoesNotBlockReply(t *testing.T) {
	provider := &scriptedProvider{reply: "You matter. You can call or text 988 any time."}
	alerts := &recordingAlertStore{err: fmt.Errorf("dynamo on fire")}
	o := newTestOrchestrator(provider, alerts, &recordingTurnStore{})

	resp, err := o.Respond(context.Background(), "user-1", "I want to hurt myself", nil)
	require.NoError(t, err, "audit failure must never block the safety reply")
	assert.True(t, resp.IsCrisis)
	assert.Contains(t, resp.Message, "988")
}

func TestRespondTurnWriteFailureDoesNotBlockReply(t *testing.T) {
	provider := &scriptedProvider{reply: "Tell me more."}
	turns := &recordingTurnStore{err: fmt.Errorf("postgres down")}
	o := newTestOrchestrator(provider, &recordingAlertStore{}, turns)

	resp, err := o.Respond(context.Background(), "user-1", "feeling okay", nil)
	require.NoError(t, err)
	assert.Equal(t, "Tell me more.", resp.Message)
}

func TestRespondPersistsBothTurns(t *testing.T) {
	provider := &scriptedProvider{reply: "Glad to hear it."}
	turns := &recordingTurnStore{}
	o := newTestOrchestrator(provider, &recordingAlertStore{}, turns)

	_, err := o.Respond(context.Background(), "user-1", "slept well", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "assistant"}, turns.roles)
	assert.Equal(t, []string{"slept well", "Glad to hear it."}, turns.contents)
}

func TestRespondAssemblesTranscript(t *testing.T) {
	provider := &scriptedProvider{reply: "ok"}
	o := newTestOrchestrator(provider, &recordingAlertStore{}, &recordingTurnStore{})

	history := []models.ChatTurn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello, how are you?"},
	}
	_, err := o.Respond(context.Background(), "user-1", "doing fine", history)
	require.NoError(t, err)
	assert.Equal(t, "User: hi\nHaven: hello, how are you?\nUser: doing fine", provider.lastCtx)
}
