package schedule

import (
	"concierge/models"
	"concierge/utils"

	"go.uber.org/zap"
)

// DecisionState is the engine's position in a single turn's evaluation.
type DecisionState string

const (
	StateIdle            DecisionState = "idle"
	StateBatchDetected   DecisionState = "batchDetected"
	StateAwaitingResults DecisionState = "awaitingResults"
	StateReadyToDecide   DecisionState = "readyToDecide"
	StateAutoBook        DecisionState = "autoBook"
	StateDefer           DecisionState = "defer"
)

// Decision is the outcome of one evaluation. Target is set only for
// StateAutoBook and must be consumed at most once; it is threaded as a
// return value rather than stored on shared conversation state so it
// cannot leak into the next turn.
type Decision struct {
	State  DecisionState
	Target *models.ReservationTarget
	// Explanation is surfaced to the user when a ready auto-book had to be
	// aborted on a missing precondition.
	Explanation string
}

// DefaultDecisionEngine intercepts the moment the capability, having probed
// several resources in one step, would merely list the results back to the
// user, and books the first available one instead. It never overrides a
// substantive capability action and never issues more than one reservation
// attempt per batch.
type DefaultDecisionEngine struct{}

// Evaluate inspects the availability batch from the immediately preceding
// capability step together with the proposed reply. A proposed reply that
// carries tool invocations is a substantive action and is left alone; one
// without any is a plain summary candidate and may be intercepted.
func (e *DefaultDecisionEngine) Evaluate(batch *models.DecisionBatch, proposed models.ChatMessage, sess models.Session) Decision {
	logger := utils.GetLogger()

	// A batch exists only when the preceding step issued more than one
	// availability check.
	if batch == nil || batch.Issued <= 1 {
		return Decision{State: StateIdle}
	}
	if !batch.Complete() {
		// No partial decisions: wait until every issued check resolved.
		return Decision{State: StateAwaitingResults}
	}
	if len(proposed.ToolCalls) > 0 {
		return Decision{State: StateDefer}
	}

	first, found := batch.FirstAvailable()
	if !found {
		return Decision{State: StateDefer}
	}

	// Fail closed: abort rather than guess a resource or time.
	if !sess.Valid() {
		logger.Warn("auto-book aborted: no valid session")
		return Decision{State: StateDefer, Explanation: "I could not complete the booking automatically because the session expired. Please try again."}
	}
	if first.ResourceID == "" || first.RequestedInterval.Start.IsZero() {
		logger.Warn("auto-book aborted: incomplete availability result",
			zap.String("resourceId", first.ResourceID))
		return Decision{State: StateDefer, Explanation: "I could not complete the booking automatically because the requested time was lost. Please restate it."}
	}

	// The originally resolved instant is carried through unchanged, with
	// the default one-hour duration.
	end := first.RequestedInterval.End
	if !end.After(first.RequestedInterval.Start) {
		end = first.RequestedInterval.Start.Add(models.DefaultReservationDuration)
	}
	logger.Info("auto-book decision",
		zap.String("resourceId", first.ResourceID),
		zap.String("resourceName", first.ResourceName),
		zap.Time("start", first.RequestedInterval.Start))

	return Decision{
		State: StateAutoBook,
		Target: &models.ReservationTarget{
			ResourceID:   first.ResourceID,
			ResourceName: first.ResourceName,
			Start:        first.RequestedInterval.Start,
			End:          end,
		},
	}
}
