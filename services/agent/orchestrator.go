package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"concierge/models"
	"concierge/services/schedule"
	"concierge/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// systemPrompt fixes the assistant's operating protocol. The cancellation
// question is spliced in from the confirmation flow so the prompt and the
// deletion gate can never drift apart.
var systemPrompt = `You are a scheduling assistant for a shared-resource booking system. ` +
	`You help users check availability, create, look up, update and cancel reservations. Today's context is provided by your tools.

Rules you must follow:
1. Always resolve free-form dates with parse_datetime before any availability check or reservation. If time_specified is false, ask the user for a time instead of proceeding.
2. When a valid session already exists, do not authenticate again. Re-authenticate only after a tool reports an authentication error, then retry the original action once.
3. When the user asks whether something is free but names no resource, call get_resources and then check_availability once per resource, all with the same date/time.
4. To cancel a reservation: first fetch it with get_reservation, show the user its details exactly as returned, then ask exactly: ` + schedule.ConfirmationQuestion + ` ` +
	`Call delete_reservation only if the user's next reply is an explicit "yes". Any other reply means do not delete.
5. Never invent reference numbers, resource ids, dates, or availability. Only report what tools returned.
6. Answer in the user's language.`

// maxStepsReply is returned when a turn burns its whole step budget
// without producing a final reply.
const maxStepsReply = "I could not complete that request. Could you rephrase it, or break it into smaller steps?"

// Orchestrator drives one conversation turn: it loops the capability over
// the history, executes the tools it selects, and lets the decision engine
// intercept multi-resource availability summaries to book directly.
type Orchestrator struct {
	Capability   CapabilityClient
	Tools        *Toolset
	Store        ConversationStore
	Decision     *schedule.DefaultDecisionEngine
	Confirmation *schedule.DefaultConfirmationFlow
	MaxSteps     int
}

// RunTurn processes one user message and returns the assistant's reply.
// State is persisted only when the turn reaches a final reply, so a failed
// turn leaves the conversation as it was.
func (o *Orchestrator) RunTurn(ctx context.Context, conversationID, userText string) (string, error) {
	logger := utils.GetLogger()

	state, err := o.Store.Get(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}

	if len(state.Messages) == 0 {
		state.Messages = append(state.Messages, models.ChatMessage{
			Role:    models.RoleSystem,
			Content: systemPrompt,
		})
	}

	// Establish a session up front so the first availability check does
	// not burn a step on authentication. A failure here is not fatal; the
	// capability can still authenticate via tool when needed.
	if !state.Session.Valid() {
		if sess, err := o.Tools.Gateway.Authenticate(ctx, o.Tools.Username, o.Tools.Password); err != nil {
			logger.Warn("pre-turn authentication failed", zap.Error(err))
		} else {
			state.Session = sess
		}
	}

	state.Messages = append(state.Messages, models.ChatMessage{
		Role:    models.RoleUser,
		Content: userText,
	})

	var (
		batch      *models.DecisionBatch
		fetchedRef string
	)

	for step := 0; step < o.MaxSteps; step++ {
		reply, err := o.Capability.Complete(ctx, state.Messages, o.Tools.Definitions())
		if err != nil {
			return "", fmt.Errorf("capability step %d failed: %w", step, err)
		}

		if len(reply.ToolCalls) == 0 {
			decision := o.Decision.Evaluate(batch, reply, state.Session)

			if decision.State == schedule.StateAutoBook {
				// The summary the capability proposed is discarded; the
				// booking happens instead, and the next iteration reports
				// its outcome.
				o.autoBook(ctx, state, decision.Target)
				batch = nil
				continue
			}
			if decision.Explanation != "" {
				reply.Content = decision.Explanation
			}

			state.Messages = append(state.Messages, reply)
			o.Confirmation.Arm(state, reply.Content, fetchedRef)
			if err := o.Store.Set(ctx, conversationID, state); err != nil {
				return "", fmt.Errorf("failed to persist conversation %s: %w", conversationID, err)
			}
			return reply.Content, nil
		}

		state.Messages = append(state.Messages, reply)

		// A batch is scoped to a single capability step: more than one
		// availability probe issued together starts one, anything else
		// drops whatever the previous step left behind.
		if n := countAvailabilityCalls(reply.ToolCalls); n >= 2 {
			batch = &models.DecisionBatch{Issued: n}
		} else {
			batch = nil
		}

		for _, call := range reply.ToolCalls {
			outcome := o.Tools.Execute(ctx, state, call)
			if outcome.Session != nil {
				state.Session = *outcome.Session
			}
			if outcome.Availability != nil && batch != nil {
				batch.Add(*outcome.Availability)
			}
			if outcome.FetchedRef != "" {
				fetchedRef = outcome.FetchedRef
			}
			state.Messages = append(state.Messages, models.ChatMessage{
				Role:       models.RoleTool,
				Content:    outcome.Content,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}

	logger.Warn("turn exhausted step budget",
		zap.String("conversationId", conversationID),
		zap.Int("maxSteps", o.MaxSteps))

	state.Messages = append(state.Messages, models.ChatMessage{
		Role:    models.RoleAssistant,
		Content: maxStepsReply,
	})
	o.Confirmation.Arm(state, maxStepsReply, "")
	if err := o.Store.Set(ctx, conversationID, state); err != nil {
		return "", fmt.Errorf("failed to persist conversation %s: %w", conversationID, err)
	}
	return maxStepsReply, nil
}

// autoBook injects a synthetic create_reservation exchange into the
// history, exactly one attempt per batch whatever the outcome.
func (o *Orchestrator) autoBook(ctx context.Context, state *models.ConversationState, target *models.ReservationTarget) {
	args, _ := json.Marshal(map[string]string{
		"resource_id":     target.ResourceID,
		"start_date_time": target.Start.Format(reservationTimeFormat),
		"end_date_time":   target.End.Format(reservationTimeFormat),
	})
	call := models.ToolCall{
		ID:   "auto-" + uuid.New().String(),
		Type: "function",
		Function: models.ToolCallFunction{
			Name:      toolCreateReservation,
			Arguments: string(args),
		},
	}

	state.Messages = append(state.Messages, models.ChatMessage{
		Role:      models.RoleAssistant,
		ToolCalls: []models.ToolCall{call},
	})
	outcome := o.Tools.Execute(ctx, state, call)
	state.Messages = append(state.Messages, models.ChatMessage{
		Role:       models.RoleTool,
		Content:    outcome.Content,
		Name:       call.Function.Name,
		ToolCallID: call.ID,
	})
}

func countAvailabilityCalls(calls []models.ToolCall) int {
	n := 0
	for _, call := range calls {
		if call.Function.Name == toolCheckAvailability {
			n++
		}
	}
	return n
}
