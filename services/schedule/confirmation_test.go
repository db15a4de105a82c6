package schedule

import (
	"testing"

	"concierge/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRef = "abc1234567890"

func confirmedState(ref, userReply string) *models.ConversationState {
	return &models.ConversationState{
		Session:             models.Session{Token: "tok", UserID: "42"},
		PendingCancellation: ref,
		Messages: []models.ChatMessage{
			{Role: models.RoleAssistant, Content: "details... " + ConfirmationQuestion},
			{Role: models.RoleUser, Content: userReply},
		},
	}
}

func TestArmSetsGateOnExactQuestion(t *testing.T) {
	f := &DefaultConfirmationFlow{}
	state := &models.ConversationState{}

	f.Arm(state, "Resource: (ID: 12), ... "+ConfirmationQuestion, testRef)
	assert.Equal(t, testRef, state.PendingCancellation)
}

func TestArmClearsGateOnAnyOtherReply(t *testing.T) {
	f := &DefaultConfirmationFlow{}
	state := &models.ConversationState{PendingCancellation: testRef}

	f.Arm(state, "Anything else I can help with?", testRef)
	assert.Empty(t, state.PendingCancellation)

	// The question without a reservation fetched this turn does not arm.
	state.PendingCancellation = ""
	f.Arm(state, ConfirmationQuestion, "")
	assert.Empty(t, state.PendingCancellation)
}

func TestAuthorizeRequiresExplicitAffirmative(t *testing.T) {
	f := &DefaultConfirmationFlow{}

	for _, reply := range []string{"yes", "Yes!", "sì", "si", "confermo", "yep"} {
		err := f.Authorize(confirmedState(testRef, reply), testRef)
		assert.NoError(t, err, "reply %q", reply)
	}

	for _, reply := range []string{"maybe", "ok cancel it", "no", "yes please", ""} {
		err := f.Authorize(confirmedState(testRef, reply), testRef)
		require.Error(t, err, "reply %q", reply)
		var blocked *ErrCancellationNotConfirmed
		assert.ErrorAs(t, err, &blocked)
	}
}

func TestAuthorizeBlocksWithoutArmedGate(t *testing.T) {
	f := &DefaultConfirmationFlow{}

	state := confirmedState(testRef, "yes")
	state.PendingCancellation = ""
	assert.Error(t, f.Authorize(state, testRef))
}

func TestAuthorizeBlocksMismatchedReference(t *testing.T) {
	f := &DefaultConfirmationFlow{}

	err := f.Authorize(confirmedState(testRef, "yes"), "other9876543210")
	require.Error(t, err)
	var blocked *ErrCancellationNotConfirmed
	assert.ErrorAs(t, err, &blocked)
}

func TestIsAffirmative(t *testing.T) {
	assert.True(t, IsAffirmative("  Yes. "))
	assert.True(t, IsAffirmative("SÌ"))
	assert.False(t, IsAffirmative("yes, but move it first"))
	assert.False(t, IsAffirmative("sure"))
}
