package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"concierge/models"
	"concierge/services/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("CEST", 2*60*60)

// scriptedCapability replays a fixed sequence of assistant messages.
type scriptedCapability struct {
	replies []models.ChatMessage
	step    int
}

func (s *scriptedCapability) Complete(_ context.Context, _ []models.ChatMessage, _ []models.Tool) (models.ChatMessage, error) {
	if s.step >= len(s.replies) {
		return models.ChatMessage{}, fmt.Errorf("script exhausted at step %d", s.step)
	}
	reply := s.replies[s.step]
	s.step++
	return reply, nil
}

type fakeGateway struct {
	authCalls   int
	createCalls int
	deleteCalls int

	reservationsByResource map[string][]models.Reservation
	storedReservation      *models.Reservation
	lastCreate             models.ReservationRequest
}

func (g *fakeGateway) Authenticate(_ context.Context, _, _ string) (models.Session, error) {
	g.authCalls++
	return models.Session{Token: fmt.Sprintf("tok-%d", g.authCalls), UserID: "42"}, nil
}

func (g *fakeGateway) GetReservation(_ context.Context, _ models.Session, ref string) (*models.Reservation, error) {
	if g.storedReservation != nil && g.storedReservation.ReferenceNumber == ref {
		return g.storedReservation, nil
	}
	return nil, fmt.Errorf("not found")
}

func (g *fakeGateway) DeleteReservation(_ context.Context, _ models.Session, _ string) error {
	g.deleteCalls++
	return nil
}

func (g *fakeGateway) ListResources(_ context.Context, _ models.Session) ([]models.Resource, error) {
	return []models.Resource{
		{ResourceID: "1", Name: "Sala Riunioni"},
		{ResourceID: "2", Name: "Aula Magna"},
	}, nil
}

func (g *fakeGateway) QueryReservations(_ context.Context, _ models.Session, resourceID string, _, _ time.Time) ([]models.Reservation, error) {
	return g.reservationsByResource[resourceID], nil
}

func (g *fakeGateway) CreateReservation(_ context.Context, _ models.Session, req models.ReservationRequest) (*models.ReservationResponse, error) {
	g.createCalls++
	g.lastCreate = req
	return &models.ReservationResponse{ReferenceNumber: "new1234567890", Message: "created"}, nil
}

func (g *fakeGateway) UpdateReservation(_ context.Context, _ models.Session, ref, _ string, _ models.ReservationRequest) (*models.ReservationResponse, error) {
	return &models.ReservationResponse{ReferenceNumber: ref, Message: "updated"}, nil
}

type memStore struct {
	states map[string]*models.ConversationState
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]*models.ConversationState)}
}

func (m *memStore) Get(_ context.Context, id string) (*models.ConversationState, error) {
	if state, ok := m.states[id]; ok {
		return state, nil
	}
	return &models.ConversationState{}, nil
}

func (m *memStore) Set(_ context.Context, id string, state *models.ConversationState) error {
	m.states[id] = state
	return nil
}

func (m *memStore) Clear(_ context.Context, id string) error {
	delete(m.states, id)
	return nil
}

func newTestOrchestrator(capability CapabilityClient, gw *fakeGateway, store ConversationStore) *Orchestrator {
	confirmation := &schedule.DefaultConfirmationFlow{}
	return &Orchestrator{
		Capability: capability,
		Tools: &Toolset{
			Gateway:      gw,
			Checker:      &schedule.DefaultAvailabilityChecker{Gateway: gw, Loc: testLoc},
			Resolver:     schedule.NewResolver(testLoc),
			Confirmation: confirmation,
			Username:     "admin",
			Password:     "secret",
			Loc:          testLoc,
			Now:          func() time.Time { return time.Date(2026, 8, 24, 10, 0, 0, 0, testLoc) },
		},
		Store:        store,
		Decision:     &schedule.DefaultDecisionEngine{},
		Confirmation: confirmation,
		MaxSteps:     8,
	}
}

func toolCall(id, name, args string) models.ToolCall {
	return models.ToolCall{
		ID:   id,
		Type: "function",
		Function: models.ToolCallFunction{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestRunTurnAutoBooksFirstAvailable(t *testing.T) {
	gw := &fakeGateway{
		reservationsByResource: map[string][]models.Reservation{
			"1": {{ReferenceNumber: "busy123456789", StartDate: "2026-09-02T15:00:00", EndDate: "2026-09-02T16:00:00"}},
		},
	}
	capability := &scriptedCapability{replies: []models.ChatMessage{
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			toolCall("c1", "get_resources", ""),
		}},
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			toolCall("c2", "check_availability", `{"resource_id":"1","resource_name":"Sala Riunioni","date_time":"2026-09-02T15:00:00"}`),
			toolCall("c3", "check_availability", `{"resource_id":"2","resource_name":"Aula Magna","date_time":"2026-09-02T15:00:00"}`),
		}},
		// The capability would merely list the results; this reply is
		// intercepted and replaced by the booking.
		{Role: models.RoleAssistant, Content: "Sala Riunioni is busy, Aula Magna is free."},
		{Role: models.RoleAssistant, Content: "Booked Aula Magna for Sept 2 at 15:00, reference new1234567890."},
	}}
	store := newMemStore()
	o := newTestOrchestrator(capability, gw, store)

	reply, err := o.RunTurn(context.Background(), "conv-1", "is a room free on sept 2 at 15:00?")
	require.NoError(t, err)
	assert.Contains(t, reply, "new1234567890")

	// Exactly one reservation attempt, against the first available resource.
	assert.Equal(t, 1, gw.createCalls)
	assert.Equal(t, "2", gw.lastCreate.ResourceID)
	assert.Equal(t, "2026-09-02T15:00:00", gw.lastCreate.StartDateTime)
	assert.Equal(t, "2026-09-02T16:00:00", gw.lastCreate.EndDateTime)

	// The discarded summary never reaches the history; the booking
	// exchange does.
	state := store.states["conv-1"]
	require.NotNil(t, state)
	for _, msg := range state.Messages {
		assert.NotContains(t, msg.Content, "is busy,")
	}
}

func TestRunTurnSingleCheckIsNotABatch(t *testing.T) {
	gw := &fakeGateway{reservationsByResource: map[string][]models.Reservation{}}
	capability := &scriptedCapability{replies: []models.ChatMessage{
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			toolCall("c1", "check_availability", `{"resource_id":"1","date_time":"2026-09-02T15:00:00"}`),
		}},
		{Role: models.RoleAssistant, Content: "Sala Riunioni is free at 15:00. Shall I book it?"},
	}}
	o := newTestOrchestrator(capability, gw, newMemStore())

	reply, err := o.RunTurn(context.Background(), "conv-1", "is room 1 free?")
	require.NoError(t, err)
	assert.Contains(t, reply, "Shall I book it?")
	assert.Equal(t, 0, gw.createCalls)
}

func TestRunTurnLaterSingleCheckDropsEarlierBatch(t *testing.T) {
	gw := &fakeGateway{
		reservationsByResource: map[string][]models.Reservation{
			"1": {{ReferenceNumber: "busy1", StartDate: "2026-09-02T15:00:00", EndDate: "2026-09-02T16:00:00"}},
			"2": {{ReferenceNumber: "busy2", StartDate: "2026-09-02T15:00:00", EndDate: "2026-09-02T16:00:00"}},
		},
	}
	capability := &scriptedCapability{replies: []models.ChatMessage{
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			toolCall("c1", "check_availability", `{"resource_id":"1","date_time":"2026-09-02T15:00:00"}`),
			toolCall("c2", "check_availability", `{"resource_id":"2","date_time":"2026-09-02T15:00:00"}`),
		}},
		// A follow-up step with a single probe is not a batch; the result
		// of the earlier pair must not bleed into it.
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			toolCall("c3", "check_availability", `{"resource_id":"3","date_time":"2026-09-02T15:00:00"}`),
		}},
		{Role: models.RoleAssistant, Content: "Resource 3 is free at 15:00. Shall I book it?"},
	}}
	gw.reservationsByResource["3"] = nil
	o := newTestOrchestrator(capability, gw, newMemStore())

	reply, err := o.RunTurn(context.Background(), "conv-1", "anything free on sept 2 at 15:00?")
	require.NoError(t, err)
	assert.Contains(t, reply, "Shall I book it?")
	assert.Equal(t, 0, gw.createCalls)
}

func TestRunTurnLatestAuthenticationWins(t *testing.T) {
	gw := &fakeGateway{}
	capability := &scriptedCapability{replies: []models.ChatMessage{
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			toolCall("c1", "authenticate", ""),
		}},
		{Role: models.RoleAssistant, Content: "You are signed in."},
	}}
	store := newMemStore()
	o := newTestOrchestrator(capability, gw, store)

	_, err := o.RunTurn(context.Background(), "conv-1", "sign in again")
	require.NoError(t, err)

	// Pre-turn auth issued tok-1; the explicit tool call re-issued tok-2,
	// and the later outcome is the one kept.
	assert.Equal(t, 2, gw.authCalls)
	assert.Equal(t, "tok-2", store.states["conv-1"].Session.Token)
}

func TestRunTurnCancellationTwoStep(t *testing.T) {
	gw := &fakeGateway{
		storedReservation: &models.Reservation{
			ReferenceNumber: "ref1234567890",
			ResourceID:      "1",
			StartDate:       "2026-09-02T15:00:00",
			EndDate:         "2026-09-02T16:00:00",
			Title:           "Standup",
		},
	}
	store := newMemStore()

	// Turn 1: fetch, show details, ask the exact question.
	capability := &scriptedCapability{replies: []models.ChatMessage{
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			toolCall("c1", "get_reservation", `{"reference_number":"ref1234567890"}`),
		}},
		{Role: models.RoleAssistant, Content: "Resource: (ID: 1), Start: 2026-09-02T15:00:00, End: 2026-09-02T16:00:00, Title: Standup, Reference: ref1234567890. " + schedule.ConfirmationQuestion},
	}}
	o := newTestOrchestrator(capability, gw, store)
	_, err := o.RunTurn(context.Background(), "conv-1", "cancel reservation ref1234567890")
	require.NoError(t, err)
	require.Equal(t, "ref1234567890", store.states["conv-1"].PendingCancellation)

	// Turn 2: explicit yes authorizes the deletion.
	o.Capability = &scriptedCapability{replies: []models.ChatMessage{
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			toolCall("c2", "delete_reservation", `{"reference_number":"ref1234567890"}`),
		}},
		{Role: models.RoleAssistant, Content: "Your reservation has been cancelled."},
	}}
	reply, err := o.RunTurn(context.Background(), "conv-1", "yes")
	require.NoError(t, err)
	assert.Contains(t, reply, "cancelled")
	assert.Equal(t, 1, gw.deleteCalls)
	assert.Empty(t, store.states["conv-1"].PendingCancellation)
}

func TestRunTurnAmbiguousReplyBlocksDeletion(t *testing.T) {
	gw := &fakeGateway{}
	store := newMemStore()
	store.states["conv-1"] = &models.ConversationState{
		Session:             models.Session{Token: "tok", UserID: "42"},
		PendingCancellation: "ref1234567890",
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: "test"},
			{Role: models.RoleAssistant, Content: schedule.ConfirmationQuestion},
		},
	}

	capability := &scriptedCapability{replies: []models.ChatMessage{
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			toolCall("c1", "delete_reservation", `{"reference_number":"ref1234567890"}`),
		}},
		{Role: models.RoleAssistant, Content: "I did not delete the reservation. Please reply \"yes\" to confirm."},
	}}
	o := newTestOrchestrator(capability, gw, store)

	_, err := o.RunTurn(context.Background(), "conv-1", "maybe")
	require.NoError(t, err)
	assert.Equal(t, 0, gw.deleteCalls)
}

func TestRunTurnStepBudgetExhaustion(t *testing.T) {
	gw := &fakeGateway{}
	looping := make([]models.ChatMessage, 8)
	for i := range looping {
		looping[i] = models.ChatMessage{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			toolCall(fmt.Sprintf("c%d", i), "get_resources", ""),
		}}
	}
	store := newMemStore()
	o := newTestOrchestrator(&scriptedCapability{replies: looping}, gw, store)

	reply, err := o.RunTurn(context.Background(), "conv-1", "loop forever")
	require.NoError(t, err)
	assert.Equal(t, maxStepsReply, reply)
	// The fallback still persists the turn.
	assert.NotNil(t, store.states["conv-1"])
}
