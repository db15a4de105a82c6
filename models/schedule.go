package models

import "time"

// DefaultReservationDuration is applied whenever no other duration is
// computed for a requested interval.
const DefaultReservationDuration = time.Hour

// ParsedDateTime is the outcome of resolving a free-form date/time phrase.
// Instant is timezone-aware and never in the past relative to the reference
// instant the resolver was given. When the input carried no clock time,
// Instant sits at local midnight and TimeExplicit is false.
type ParsedDateTime struct {
	Instant      time.Time `json:"instant"`
	TimeExplicit bool      `json:"timeExplicit"`
}

// ReservationInterval is a half-open [Start, End) window against a resource.
type ReservationInterval struct {
	ResourceID string    `json:"resourceId"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Overlaps applies strict half-open interval arithmetic: an interval ending
// exactly at Start, or starting exactly at End, does not overlap.
func (ri ReservationInterval) Overlaps(start, end time.Time) bool {
	return start.Before(ri.End) && end.After(ri.Start)
}

// AvailabilityResult is the checker's verdict for one resource and one
// requested interval. It lives only within the turn that produced it.
type AvailabilityResult struct {
	ResourceID        string              `json:"resourceId"`
	ResourceName      string              `json:"resourceName"`
	Available         bool                `json:"available"`
	RequestedInterval ReservationInterval `json:"requestedInterval"`
	ConflictingRef    string              `json:"conflictingRef,omitempty"`
}

// DecisionBatch collects availability results issued together in one
// capability step. Insertion order is the tie-break for "first available",
// so results must be appended in the order the checks were issued.
type DecisionBatch struct {
	Issued  int
	Results []AvailabilityResult
}

// Add appends a result in issue order.
func (b *DecisionBatch) Add(res AvailabilityResult) {
	b.Results = append(b.Results, res)
}

// Complete reports whether every issued check has a matching result.
func (b *DecisionBatch) Complete() bool {
	return b.Issued > 0 && len(b.Results) >= b.Issued
}

// FirstAvailable returns the earliest-issued available result.
func (b *DecisionBatch) FirstAvailable() (AvailabilityResult, bool) {
	for _, res := range b.Results {
		if res.Available {
			return res, true
		}
	}
	return AvailabilityResult{}, false
}

// ReservationTarget is the transient auto-book scratch value handed from the
// decision engine to the orchestration loop. It must be used at most once
// and discarded regardless of outcome.
type ReservationTarget struct {
	ResourceID   string    `json:"resourceId"`
	ResourceName string    `json:"resourceName"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}
