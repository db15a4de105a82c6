package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"concierge/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	reservations []models.Reservation
	err          error

	gotResourceID string
	gotStart      time.Time
	gotEnd        time.Time
}

func (f *fakeQuerier) QueryReservations(_ context.Context, _ models.Session, resourceID string, start, end time.Time) ([]models.Reservation, error) {
	f.gotResourceID = resourceID
	f.gotStart = start
	f.gotEnd = end
	return f.reservations, f.err
}

func explicitAt(t time.Time) models.ParsedDateTime {
	return models.ParsedDateTime{Instant: t, TimeExplicit: true}
}

func TestCheckNoReservationsIsAvailable(t *testing.T) {
	q := &fakeQuerier{}
	checker := &DefaultAvailabilityChecker{Gateway: q, Loc: testLoc}
	start := time.Date(2026, 9, 2, 15, 0, 0, 0, testLoc)

	result, err := checker.Check(context.Background(), models.Session{Token: "t", UserID: "1"}, "12", "Sala Riunioni", explicitAt(start))
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Equal(t, "12", result.ResourceID)
	assert.Equal(t, "Sala Riunioni", result.ResourceName)
	assert.Equal(t, "12", q.gotResourceID)
	assert.True(t, q.gotStart.Equal(start))
	assert.True(t, q.gotEnd.Equal(start.Add(time.Hour)))
}

func TestCheckOverlapConflicts(t *testing.T) {
	q := &fakeQuerier{reservations: []models.Reservation{
		{ReferenceNumber: "ref1234567890", StartDate: "2026-09-02T15:30:00", EndDate: "2026-09-02T16:30:00"},
	}}
	checker := &DefaultAvailabilityChecker{Gateway: q, Loc: testLoc}
	start := time.Date(2026, 9, 2, 15, 0, 0, 0, testLoc)

	result, err := checker.Check(context.Background(), models.Session{Token: "t", UserID: "1"}, "12", "", explicitAt(start))
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, "ref1234567890", result.ConflictingRef)
}

func TestCheckBoundaryTouchingIsFree(t *testing.T) {
	// Half-open intervals: a booking ending exactly at the requested start,
	// and one starting exactly at the requested end, both leave the slot free.
	q := &fakeQuerier{reservations: []models.Reservation{
		{ReferenceNumber: "before", StartDate: "2026-09-02T14:00:00", EndDate: "2026-09-02T15:00:00"},
		{ReferenceNumber: "after", StartDate: "2026-09-02T16:00:00", EndDate: "2026-09-02T17:00:00"},
	}}
	checker := &DefaultAvailabilityChecker{Gateway: q, Loc: testLoc}
	start := time.Date(2026, 9, 2, 15, 0, 0, 0, testLoc)

	result, err := checker.Check(context.Background(), models.Session{Token: "t", UserID: "1"}, "12", "", explicitAt(start))
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Empty(t, result.ConflictingRef)
}

func TestCheckDistrustsBackendFilter(t *testing.T) {
	// The backend may return reservations outside the requested window; the
	// local overlap check must clear them.
	q := &fakeQuerier{reservations: []models.Reservation{
		{ReferenceNumber: "elsewhere", StartDate: "2026-09-03T10:00:00", EndDate: "2026-09-03T11:00:00"},
	}}
	checker := &DefaultAvailabilityChecker{Gateway: q, Loc: testLoc}
	start := time.Date(2026, 9, 2, 15, 0, 0, 0, testLoc)

	result, err := checker.Check(context.Background(), models.Session{Token: "t", UserID: "1"}, "12", "", explicitAt(start))
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckUnparsableDatesConflict(t *testing.T) {
	q := &fakeQuerier{reservations: []models.Reservation{
		{ReferenceNumber: "garbled", StartDate: "not-a-date", EndDate: "2026-09-02T16:00:00"},
	}}
	checker := &DefaultAvailabilityChecker{Gateway: q, Loc: testLoc}
	start := time.Date(2026, 9, 2, 15, 0, 0, 0, testLoc)

	result, err := checker.Check(context.Background(), models.Session{Token: "t", UserID: "1"}, "12", "", explicitAt(start))
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, "garbled", result.ConflictingRef)
}

func TestCheckRejectsBadInputs(t *testing.T) {
	checker := &DefaultAvailabilityChecker{Gateway: &fakeQuerier{}, Loc: testLoc}
	start := time.Date(2026, 9, 2, 15, 0, 0, 0, testLoc)

	_, err := checker.Check(context.Background(), models.Session{}, "sala-12", "", explicitAt(start))
	assert.Error(t, err, "non-numeric resource id")

	_, err = checker.Check(context.Background(), models.Session{}, "12", "", models.ParsedDateTime{Instant: start})
	assert.Error(t, err, "implicit time of day")
}

func TestCheckPropagatesQueryFailure(t *testing.T) {
	q := &fakeQuerier{err: errors.New("backend down")}
	checker := &DefaultAvailabilityChecker{Gateway: q, Loc: testLoc}
	start := time.Date(2026, 9, 2, 15, 0, 0, 0, testLoc)

	_, err := checker.Check(context.Background(), models.Session{}, "12", "", explicitAt(start))
	assert.Error(t, err)
}
