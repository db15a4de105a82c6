// Package gateway is the REST client for the LibreBooking-compatible
// reservation backend. Every call is a blocking, context-bound round-trip;
// failures come back as typed *Error values and are never retried here.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"concierge/models"
)

const (
	headerSessionToken = "X-Booked-SessionToken"
	headerUserID       = "X-Booked-UserId"

	// wireTimeFormat is the local-time layout the backend accepts in
	// reservation bodies and filter parameters.
	wireTimeFormat = "2006-01-02T15:04:05"
)

// Client talks to one booking backend instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Authenticate exchanges credentials for a session pair.
func (c *Client) Authenticate(ctx context.Context, username, password string) (models.Session, error) {
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/Authentication/Authenticate", nil, models.Session{},
		models.AuthRequest{Username: username, Password: password}, &out)
	if err != nil {
		return models.Session{}, err
	}
	if out.SessionToken == "" || out.UserID == "" {
		return models.Session{}, &Error{Kind: KindAuth, Message: "authentication response missing session token or user id"}
	}
	return models.Session{Token: out.SessionToken, UserID: out.UserID}, nil
}

// GetReservation fetches a reservation by reference number.
func (c *Client) GetReservation(ctx context.Context, sess models.Session, ref string) (*models.Reservation, error) {
	if ref == "" {
		return nil, NewValidationError("missing reservation reference")
	}
	var out models.Reservation
	if err := c.do(ctx, http.MethodGet, "/Reservations/"+url.PathEscape(ref), nil, sess, nil, &out); err != nil {
		return nil, err
	}
	if out.ReferenceNumber == "" {
		out.ReferenceNumber = ref
	}
	return &out, nil
}

// DeleteReservation removes a reservation by reference number.
func (c *Client) DeleteReservation(ctx context.Context, sess models.Session, ref string) error {
	if ref == "" {
		return NewValidationError("missing reservation reference")
	}
	return c.do(ctx, http.MethodDelete, "/Reservations/"+url.PathEscape(ref), nil, sess, nil, nil)
}

// ListResources returns the bookable resources visible to the session user.
func (c *Client) ListResources(ctx context.Context, sess models.Session) ([]models.Resource, error) {
	var out models.ResourcesResponse
	if err := c.do(ctx, http.MethodGet, "/Resources/", nil, sess, nil, &out); err != nil {
		return nil, err
	}
	resources := make([]models.Resource, 0, len(out.Resources))
	for _, r := range out.Resources {
		if r.ResourceID != "" && r.Name != "" {
			resources = append(resources, r)
		}
	}
	return resources, nil
}

// QueryReservations lists reservations for a resource near the given window.
// The backend filter is advisory; callers must re-derive overlap locally.
func (c *Client) QueryReservations(ctx context.Context, sess models.Session, resourceID string, start, end time.Time) ([]models.Reservation, error) {
	if resourceID == "" {
		return nil, NewValidationError("missing resource id")
	}
	query := url.Values{}
	query.Set("resourceId", resourceID)
	query.Set("startDateTime", start.Format(wireTimeFormat))
	query.Set("endDateTime", end.Format(wireTimeFormat))

	var out models.ReservationsResponse
	if err := c.do(ctx, http.MethodGet, "/Reservations/", query, sess, nil, &out); err != nil {
		return nil, err
	}
	return out.Reservations, nil
}

// CreateReservation books a resource for the interval in req.
func (c *Client) CreateReservation(ctx context.Context, sess models.Session, req models.ReservationRequest) (*models.ReservationResponse, error) {
	if req.ResourceID == "" || req.StartDateTime == "" || req.EndDateTime == "" {
		return nil, NewValidationError("missing resource id or interval for reservation")
	}
	if req.Title == "" {
		req.Title = "Reservation"
	}
	req.UserID = sess.UserID
	req.TermsAccepted = true

	var out models.ReservationResponse
	if err := c.do(ctx, http.MethodPost, "/Reservations/", nil, sess, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateReservation rewrites an existing reservation. updateScope may be
// empty, or one of "this", "full", "future".
func (c *Client) UpdateReservation(ctx context.Context, sess models.Session, ref, updateScope string, req models.ReservationRequest) (*models.ReservationResponse, error) {
	if ref == "" {
		return nil, NewValidationError("missing reservation reference")
	}
	if req.ResourceID == "" || req.StartDateTime == "" || req.EndDateTime == "" {
		return nil, NewValidationError("missing resource id or interval for update")
	}
	if req.Title == "" {
		req.Title = "Reservation"
	}
	req.UserID = sess.UserID
	req.TermsAccepted = true

	var query url.Values
	switch updateScope {
	case "":
	case "this", "full", "future":
		query = url.Values{}
		query.Set("updateScope", updateScope)
	default:
		return nil, NewValidationError(fmt.Sprintf("invalid updateScope %q", updateScope))
	}

	var out models.ReservationResponse
	if err := c.do(ctx, http.MethodPost, "/Reservations/"+url.PathEscape(ref), query, sess, req, &out); err != nil {
		return nil, err
	}
	if out.ReferenceNumber == "" {
		out.ReferenceNumber = ref
	}
	return &out, nil
}

// do performs one round-trip and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, sess models.Session, body, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if sess.Token != "" {
		httpReq.Header.Set(headerSessionToken, sess.Token)
		httpReq.Header.Set(headerUserID, sess.UserID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &Error{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "failed to read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classify(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &Error{Kind: KindTransport, Status: resp.StatusCode, Message: "failed to decode response: " + err.Error()}
		}
	}
	return nil
}

// classify maps an error response to a typed kind. Conflicts are signaled
// either by a 409-class status or by an overlap indicator in the message.
func (c *Client) classify(status int, body []byte) error {
	message := string(body)
	var decoded struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Message != "" {
		message = decoded.Message
	}

	switch {
	case status == http.StatusUnauthorized:
		return &Error{Kind: KindAuth, Status: status, Message: message}
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Status: status, Message: message}
	case status == http.StatusConflict || strings.Contains(strings.ToLower(message), "overlap"):
		return &Error{Kind: KindConflict, Status: status, Message: message}
	default:
		return &Error{Kind: KindTransport, Status: status, Message: message}
	}
}
