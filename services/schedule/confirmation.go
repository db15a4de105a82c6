package schedule

import (
	"fmt"
	"strings"

	"concierge/models"
)

// ConfirmationQuestion is the exact question the assistant must ask before
// a cancellation may proceed. The deletion gate matches on this string, so
// it must be asked verbatim.
const ConfirmationQuestion = `Do you want to cancel this reservation? Reply "yes" to confirm.`

// ErrCancellationNotConfirmed blocks a deletion whose two-step confirmation
// was not completed.
type ErrCancellationNotConfirmed struct {
	Ref    string
	Reason string
}

func (e *ErrCancellationNotConfirmed) Error() string {
	return fmt.Sprintf("cancellation of %s blocked: %s", e.Ref, e.Reason)
}

// affirmatives are the only replies that authorize a destructive action.
// Anything else, including silence and ambiguity, blocks it.
var affirmatives = map[string]struct{}{
	"yes": {}, "y": {}, "yeah": {}, "yep": {},
	"sì": {}, "si": {}, "confermo": {}, "confirm": {},
}

// DefaultConfirmationFlow gates destructive actions behind a strict
// two-turn protocol: present the reservation, ask the exact question, and
// only act on an explicit affirmative to that question. The gate lives in
// the persisted conversation state, not in an in-memory flag, so it
// survives the turn boundary and cannot be bypassed by reordered tool
// calls.
type DefaultConfirmationFlow struct{}

// DescribeReservation renders the fetched reservation verbatim for the
// user, step one of the protocol.
func (f *DefaultConfirmationFlow) DescribeReservation(res *models.Reservation) string {
	resource := res.ResourceID
	if resource == "" {
		resource = "unknown"
	}
	return fmt.Sprintf("Resource: (ID: %s), Start: %s, End: %s, Title: %s, Reference: %s",
		resource, res.StartDate, res.EndDate, res.Title, res.ReferenceNumber)
}

// Arm tags the conversation when the assistant's closing reply is the exact
// confirmation question for a reservation fetched this turn; on any other
// reply the tag is cleared, so a stale question can never authorize a later
// deletion.
func (f *DefaultConfirmationFlow) Arm(state *models.ConversationState, assistantReply, fetchedRef string) {
	if fetchedRef != "" && strings.Contains(assistantReply, ConfirmationQuestion) {
		state.PendingCancellation = fetchedRef
		return
	}
	state.PendingCancellation = ""
}

// Authorize permits deleting ref only if the immediately preceding exchange
// armed the gate for that exact reference and the user's reply is an
// explicit affirmative.
func (f *DefaultConfirmationFlow) Authorize(state *models.ConversationState, ref string) error {
	if state.PendingCancellation == "" {
		return &ErrCancellationNotConfirmed{Ref: ref, Reason: "the confirmation question was not the immediately preceding exchange"}
	}
	if state.PendingCancellation != ref {
		return &ErrCancellationNotConfirmed{Ref: ref, Reason: "confirmation was requested for a different reservation"}
	}
	if !IsAffirmative(state.LastUserMessage()) {
		return &ErrCancellationNotConfirmed{Ref: ref, Reason: "the reply was not an explicit affirmative"}
	}
	return nil
}

// IsAffirmative reports whether reply is an explicit affirmative token.
func IsAffirmative(reply string) bool {
	normalized := strings.ToLower(strings.TrimSpace(reply))
	normalized = strings.Trim(normalized, ".,!\"' ")
	_, ok := affirmatives[normalized]
	return ok
}
