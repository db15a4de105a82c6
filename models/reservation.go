package models

// AuthRequest is the credential payload for the booking backend.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the session pair issued by the backend.
type AuthResponse struct {
	SessionToken string `json:"sessionToken"`
	UserID       string `json:"userId"`
}

// Resource is a bookable resource as listed by the backend.
type Resource struct {
	ResourceID string `json:"resourceId"`
	Name       string `json:"name"`
}

// ResourcesResponse wraps the backend resource listing.
type ResourcesResponse struct {
	Resources []Resource `json:"resources"`
}

// Reservation is a stored reservation as returned by the backend. Dates are
// kept as the backend's local-time strings; parsing into instants happens
// at the availability layer with the backend's assumed timezone.
type Reservation struct {
	ReferenceNumber string `json:"referenceNumber"`
	ResourceID      string `json:"resourceId"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	Title           string `json:"title"`
}

// ReservationsResponse wraps a filtered reservation query.
type ReservationsResponse struct {
	Reservations []Reservation `json:"reservations"`
}

// ReservationRequest is the create/update body shape.
type ReservationRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	StartDateTime      string `json:"startDateTime"`
	EndDateTime        string `json:"endDateTime"`
	ResourceID         string `json:"resourceId"`
	UserID             string `json:"userId"`
	TermsAccepted      bool   `json:"termsAccepted"`
	AllowParticipation bool   `json:"allowParticipation"`
}

// ReservationResponse is the backend's acknowledgement of a write.
type ReservationResponse struct {
	ReferenceNumber string `json:"referenceNumber"`
	Message         string `json:"message"`
}
