// Package chat orchestrates one companion turn: crisis detection, prompt
// escalation, the audit write, the completion call, and the canned
// fallbacks when generation fails.
package chat

import (
	"context"
	"strings"

	"github.com/havenbackend/internal/crisis"
	"github.com/havenbackend/internal/llm"
	"github.com/havenbackend/internal/logger"
	"github.com/havenbackend/internal/models"
)

const personaPrompt = `You are Haven, a warm AI wellness companion. You listen with empathy and respond like a caring friend. You never diagnose conditions and you never present yourself as a replacement for professional mental health care. Keep replies to 2-4 sentences, conversational and kind. Gently encourage healthy habits and, where it fits, suggest talking to a professional.`

const crisisAddendum = `IMPORTANT: The person you are talking to may be in crisis. Your reply must:
1. Lead with empathy and acknowledge their pain.
2. Tell them clearly that they are not alone.
3. Include, word for word: "You can call or text 988 to reach the Suicide & Crisis Lifeline, any time, day or night."
4. Optionally offer one simple grounding exercise.
5. Never minimize or dismiss what they are feeling.`

// CrisisFallback is returned when generation fails during a crisis turn.
// It must always carry the full 988 disclosure; the safety guarantee holds
// even when the model is completely unreachable.
const CrisisFallback = `I'm having trouble responding right now, but please know you are not alone in this. You can call or text 988 to reach the Suicide & Crisis Lifeline, any time, day or night. Trained counselors are there for you. If you are in immediate danger, please call 911.`

// GenericFallback is returned when generation fails on an ordinary turn.
const GenericFallback = `I'm having a little trouble connecting right now, but I'm still here with you. Tell me more about what's on your mind.`

// AlertStore persists crisis-alert audit records.
type AlertStore interface {
	CreateCrisisAlert(ctx context.Context, userID string, alert models.CrisisAlert) error
}

// TurnStore persists conversation turns. The conversation itself is owned
// elsewhere; the orchestrator only appends.
type TurnStore interface {
	SaveChatTurn(ctx context.Context, userID, role, content string) error
}

type Response struct {
	Message        string          `json:"message"`
	IsCrisis       bool            `json:"isCrisis"`
	CrisisSeverity crisis.Severity `json:"crisisSeverity"`
}

type Orchestrator struct {
	completions *llm.Client
	alerts      AlertStore
	turns       TurnStore
	log         *logger.Logger
}

func NewOrchestrator(completions *llm.Client, alerts AlertStore, turns TurnStore, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		completions: completions,
		alerts:      alerts,
		turns:       turns,
		log:         log,
	}
}

// Respond produces the companion's reply for one turn. Generation failures
// never surface as errors: the caller always gets a response, and every
// crisis-path response contains the 988 disclosure. The returned error is
// reserved for genuinely unexpected pipeline failures.
func (o *Orchestrator) Respond(ctx context.Context, userID, message string, history []models.ChatTurn) (*Response, error) {
	assessment := crisis.Detect(message)

	systemInstructions := personaPrompt
	if assessment.IsCrisis {
		systemInstructions = personaPrompt + "\n\n" + crisisAddendum
		// The audit write happens before the completion call, but its
		// outcome never affects the reply.
		o.recordCrisisAlert(ctx, userID, assessment)
	}

	o.saveTurn(ctx, userID, "user", message)

	transcript := buildTranscript(history, message)

	reply, err := o.completions.Complete(ctx, systemInstructions, transcript)
	if err != nil {
		o.log.Warn("completion failed, falling back to canned reply",
			"user_id", userID,
			"is_crisis", assessment.IsCrisis,
			"error", err.Error(),
		)
		if assessment.IsCrisis {
			reply = CrisisFallback
		} else {
			reply = GenericFallback
		}
	}

	o.saveTurn(ctx, userID, "assistant", reply)

	return &Response{
		Message:        reply,
		IsCrisis:       assessment.IsCrisis,
		CrisisSeverity: assessment.Severity,
	}, nil
}

// recordCrisisAlert appends the audit record as a discrete best-effort step.
// The user must receive the safety reply even when the audit trail write
// fails.
func (o *Orchestrator) recordCrisisAlert(ctx context.Context, userID string, assessment crisis.Assessment) {
	if o.alerts == nil {
		return
	}
	alert := models.CrisisAlert{
		Severity:      string(assessment.Severity),
		TriggerPhrase: assessment.MatchedPhrase,
		ResponseGiven: "Crisis-safe reply with 988 lifeline information",
	}
	if err := o.alerts.CreateCrisisAlert(ctx, userID, alert); err != nil {
		o.log.Error("failed to persist crisis alert",
			"user_id", userID,
			"severity", assessment.Severity,
			"error", err.Error(),
		)
		return
	}
	o.log.Info("crisis alert recorded",
		"user_id", userID,
		"severity", assessment.Severity,
	)
}

// saveTurn appends a conversation turn, best-effort.
func (o *Orchestrator) saveTurn(ctx context.Context, userID, role, content string) {
	if o.turns == nil {
		return
	}
	if err := o.turns.SaveChatTurn(ctx, userID, role, content); err != nil {
		o.log.Warn("failed to persist chat turn",
			"user_id", userID,
			"role", role,
			"error", err.Error(),
		)
	}
}

// buildTranscript flattens history into a role-prefixed transcript ending
// with the new user message.
func buildTranscript(history []models.ChatTurn, message string) string {
	var b strings.Builder
	for _, turn := range history {
		if turn.Role == "assistant" {
			b.WriteString("Haven: ")
		} else {
			b.WriteString("User: ")
		}
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(message)
	return b.String()
}
