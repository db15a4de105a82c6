package schedule

import (
	"context"
	"fmt"
	"time"

	"concierge/models"
	"concierge/utils"

	"go.uber.org/zap"
)

// ReservationQuerier is the slice of the gateway the checker needs.
type ReservationQuerier interface {
	QueryReservations(ctx context.Context, sess models.Session, resourceID string, start, end time.Time) ([]models.Reservation, error)
}

// DefaultAvailabilityChecker decides free/busy from raw interval arithmetic
// over the resource's stored reservations. The backend's own availability
// flag is not consulted: it was observed to mishandle exact boundary times,
// so the authoritative decision is derived locally.
type DefaultAvailabilityChecker struct {
	Gateway ReservationQuerier
	// Loc is the zone the backend stores its local date strings in.
	Loc *time.Location
}

// backendTimeLayouts covers the date string shapes the backend emits.
var backendTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Check determines whether resourceID is free for the one-hour interval
// starting at requested.Instant. Callers must have enforced an explicit
// time upstream; the precondition is re-checked only superficially here.
func (c *DefaultAvailabilityChecker) Check(ctx context.Context, sess models.Session, resourceID, resourceName string, requested models.ParsedDateTime) (models.AvailabilityResult, error) {
	logger := utils.GetLogger()

	if !isNumericID(resourceID) {
		return models.AvailabilityResult{}, fmt.Errorf("invalid resource id %q: must be numeric", resourceID)
	}
	if !requested.TimeExplicit {
		return models.AvailabilityResult{}, fmt.Errorf("requested date/time has no explicit time of day")
	}

	interval := models.ReservationInterval{
		ResourceID: resourceID,
		Start:      requested.Instant,
		End:        requested.Instant.Add(models.DefaultReservationDuration),
	}
	result := models.AvailabilityResult{
		ResourceID:        resourceID,
		ResourceName:      resourceName,
		RequestedInterval: interval,
	}

	// The filter is advisory only; every returned reservation is re-checked
	// with strict half-open overlap below.
	reservations, err := c.Gateway.QueryReservations(ctx, sess, resourceID, interval.Start, interval.End)
	if err != nil {
		return models.AvailabilityResult{}, fmt.Errorf("failed to query reservations for resource %s: %w", resourceID, err)
	}
	if len(reservations) == 0 {
		result.Available = true
		return result, nil
	}

	for _, res := range reservations {
		existing, ok := c.parseStoredInterval(res)
		if !ok {
			// Unreadable dates cannot be proven free; treat as a conflict.
			logger.Warn("unparsable reservation dates, treating as conflict",
				zap.String("reference", res.ReferenceNumber),
				zap.String("start", res.StartDate), zap.String("end", res.EndDate))
			result.Available = false
			result.ConflictingRef = res.ReferenceNumber
			return result, nil
		}
		if existing.Overlaps(interval.Start, interval.End) {
			result.Available = false
			result.ConflictingRef = res.ReferenceNumber
			return result, nil
		}
	}

	result.Available = true
	return result, nil
}

// parseStoredInterval reads the reservation's start/end strings as
// timezone-aware instants in the backend's assumed zone.
func (c *DefaultAvailabilityChecker) parseStoredInterval(res models.Reservation) (models.ReservationInterval, bool) {
	start, okStart := c.parseBackendTime(res.StartDate)
	end, okEnd := c.parseBackendTime(res.EndDate)
	if !okStart || !okEnd {
		return models.ReservationInterval{}, false
	}
	return models.ReservationInterval{ResourceID: res.ResourceID, Start: start, End: end}, true
}

func (c *DefaultAvailabilityChecker) parseBackendTime(value string) (time.Time, bool) {
	loc := c.Loc
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range backendTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isNumericID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
