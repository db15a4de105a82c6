package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"concierge/models"
	"concierge/services/gateway"
	"concierge/services/schedule"
	"concierge/utils"

	"go.uber.org/zap"
)

// BookingGateway is the reservation backend surface the tools drive.
type BookingGateway interface {
	Authenticate(ctx context.Context, username, password string) (models.Session, error)
	GetReservation(ctx context.Context, sess models.Session, ref string) (*models.Reservation, error)
	DeleteReservation(ctx context.Context, sess models.Session, ref string) error
	ListResources(ctx context.Context, sess models.Session) ([]models.Resource, error)
	CreateReservation(ctx context.Context, sess models.Session, req models.ReservationRequest) (*models.ReservationResponse, error)
	UpdateReservation(ctx context.Context, sess models.Session, ref, updateScope string, req models.ReservationRequest) (*models.ReservationResponse, error)
}

// AvailabilityChecker decides free/busy for one resource and interval.
type AvailabilityChecker interface {
	Check(ctx context.Context, sess models.Session, resourceID, resourceName string, requested models.ParsedDateTime) (models.AvailabilityResult, error)
}

// ToolOutcome is the discriminated result of executing one tool call.
// Beyond the content fed back into the conversation it carries structured
// signals the orchestrator applies directly: a fresh session (credential
// update), an availability result (batch tracking), and the reference of a
// reservation fetched for the cancellation gate.
type ToolOutcome struct {
	Content      string
	Session      *models.Session
	Availability *models.AvailabilityResult
	FetchedRef   string
}

// Toolset owns the named operations exposed to the capability layer.
type Toolset struct {
	Gateway      BookingGateway
	Checker      AvailabilityChecker
	Resolver     *schedule.Resolver
	Confirmation *schedule.DefaultConfirmationFlow

	// Backend credentials for the authenticate tool.
	Username string
	Password string

	// Loc is the local zone for wire-formatting reservation bodies.
	Loc *time.Location
	// Now supplies the reference instant for date resolution.
	Now func() time.Time
}

const (
	toolParseDateTime      = "parse_datetime"
	toolAuthenticate       = "authenticate"
	toolGetResources       = "get_resources"
	toolCheckAvailability  = "check_availability"
	toolGetReservation     = "get_reservation"
	toolCreateReservation  = "create_reservation"
	toolUpdateReservation  = "update_reservation"
	toolDeleteReservation  = "delete_reservation"
	reservationTimeFormat  = "2006-01-02T15:04:05"
	minReferenceNumberSize = 10
)

// Definitions lists every tool with its argument schema. The descriptions
// encode the usage protocol the capability must follow.
func (t *Toolset) Definitions() []models.Tool {
	return []models.Tool{
		function(toolParseDateTime,
			"Interpret a free-form date/time phrase (relative phrases included). Returns JSON with iso_datetime and time_specified. Call this BEFORE any availability check or reservation.",
			objectSchema(map[string]any{
				"text": stringParam("The user's date and/or time phrase to interpret."),
			}, "text")),
		function(toolAuthenticate,
			"Authenticate against the booking backend with the configured credentials. Call ONLY when no valid session exists or a previous call failed with an authentication error.",
			objectSchema(map[string]any{})),
		function(toolGetResources,
			"List the bookable resources (id and name) visible to the current session.",
			objectSchema(map[string]any{})),
		function(toolCheckAvailability,
			"Check whether ONE resource is free for the one-hour slot starting at date_time. Requires an ISO date_time obtained from parse_datetime with time_specified=true; if time_specified was false, ask the user for a time instead. When the user named no resource, call get_resources and then call this tool once per resource with the same date_time.",
			objectSchema(map[string]any{
				"resource_id":   stringParam("The numeric id of the resource to check."),
				"resource_name": stringParam("The resource's display name, if known."),
				"date_time":     stringParam("The exact ISO 8601 date/time with a time component."),
			}, "resource_id", "date_time")),
		function(toolGetReservation,
			"Fetch a reservation's details by reference number. Cancellation step 1: fetch, then show the details verbatim, then ask exactly: "+schedule.ConfirmationQuestion,
			objectSchema(map[string]any{
				"reference_number": stringParam("The reservation reference number (at least 10 characters)."),
			}, "reference_number")),
		function(toolCreateReservation,
			"Create a reservation for a specific resource and interval. end_date_time defaults to one hour after start_date_time.",
			objectSchema(map[string]any{
				"resource_id":     stringParam("The numeric id of the resource to reserve."),
				"start_date_time": stringParam("ISO 8601 start date/time."),
				"end_date_time":   stringParam("ISO 8601 end date/time (optional)."),
				"title":           stringParam("Reservation title (optional)."),
				"description":     stringParam("Reservation description (optional)."),
			}, "resource_id", "start_date_time")),
		function(toolUpdateReservation,
			"Update an existing reservation. Requires the exact reference number, the new interval, and a valid resource id (fetch current details first when unsure).",
			objectSchema(map[string]any{
				"reference_number": stringParam("The exact reference number of the reservation to update."),
				"resource_id":      stringParam("The numeric id of the resource for the updated reservation."),
				"start_date_time":  stringParam("New ISO 8601 start date/time."),
				"end_date_time":    stringParam("New ISO 8601 end date/time (optional, defaults to one hour after start)."),
				"title":            stringParam("New title (optional)."),
				"description":      stringParam("New description (optional)."),
				"update_scope":     stringParam("Scope of the update: this, full, or future (optional)."),
			}, "reference_number", "resource_id", "start_date_time")),
		function(toolDeleteReservation,
			"Delete a reservation. Call ONLY after the user explicitly replied \"yes\" to the exact confirmation question asked right after showing the reservation details. Any other reply blocks the deletion.",
			objectSchema(map[string]any{
				"reference_number": stringParam("The exact reference number of the reservation to cancel."),
			}, "reference_number")),
	}
}

// Execute dispatches one tool call against the current conversation state.
// Failures become explanatory content, never panics: the capability decides
// how to proceed from the reported outcome.
func (t *Toolset) Execute(ctx context.Context, state *models.ConversationState, call models.ToolCall) ToolOutcome {
	logger := utils.GetLogger()

	var args map[string]string
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			logger.Warn("malformed tool arguments", zap.String("tool", call.Function.Name), zap.Error(err))
			return ToolOutcome{Content: "Error: malformed tool arguments."}
		}
	}

	switch call.Function.Name {
	case toolParseDateTime:
		return t.execParseDateTime(args)
	case toolAuthenticate:
		return t.execAuthenticate(ctx)
	case toolGetResources:
		return t.execGetResources(ctx, state.Session)
	case toolCheckAvailability:
		return t.execCheckAvailability(ctx, state.Session, args)
	case toolGetReservation:
		return t.execGetReservation(ctx, state.Session, args)
	case toolCreateReservation:
		return t.execCreateReservation(ctx, state.Session, args)
	case toolUpdateReservation:
		return t.execUpdateReservation(ctx, state.Session, args)
	case toolDeleteReservation:
		return t.execDeleteReservation(ctx, state, args)
	default:
		return ToolOutcome{Content: fmt.Sprintf("Error: unknown tool %q.", call.Function.Name)}
	}
}

func (t *Toolset) execParseDateTime(args map[string]string) ToolOutcome {
	parsed, err := t.Resolver.Resolve(args["text"], t.Now())
	if err != nil {
		return ToolOutcome{Content: "The date/time could not be interpreted or is in the past. Ask the user to restate it."}
	}
	payload, _ := json.Marshal(map[string]any{
		"iso_datetime":   parsed.Instant.Format(time.RFC3339),
		"time_specified": parsed.TimeExplicit,
	})
	return ToolOutcome{Content: string(payload)}
}

func (t *Toolset) execAuthenticate(ctx context.Context) ToolOutcome {
	sess, err := t.Gateway.Authenticate(ctx, t.Username, t.Password)
	if err != nil {
		return ToolOutcome{Content: describeGatewayError("authentication", err)}
	}
	return ToolOutcome{
		Content: fmt.Sprintf("Authenticated as user %s.", sess.UserID),
		Session: &sess,
	}
}

func (t *Toolset) execGetResources(ctx context.Context, sess models.Session) ToolOutcome {
	resources, err := t.Gateway.ListResources(ctx, sess)
	if err != nil {
		return ToolOutcome{Content: describeGatewayError("resource listing", err)}
	}
	if len(resources) == 0 {
		return ToolOutcome{Content: "No resources found."}
	}
	payload, _ := json.Marshal(resources)
	return ToolOutcome{Content: string(payload)}
}

func (t *Toolset) execCheckAvailability(ctx context.Context, sess models.Session, args map[string]string) ToolOutcome {
	instant, err := t.parseWireInstant(args["date_time"])
	if err != nil {
		return ToolOutcome{Content: fmt.Sprintf("Error: invalid date/time %q, expected ISO 8601 with a time component.", args["date_time"])}
	}
	requested := models.ParsedDateTime{Instant: instant, TimeExplicit: true}

	result, err := t.Checker.Check(ctx, sess, args["resource_id"], args["resource_name"], requested)
	if err != nil {
		if gateway.KindOf(err) == gateway.KindAuth {
			return ToolOutcome{Content: describeGatewayError("availability check", err)}
		}
		return ToolOutcome{Content: fmt.Sprintf("Error checking availability: %v", err)}
	}

	name := result.ResourceName
	if name == "" {
		name = "Resource " + result.ResourceID
	}
	when := result.RequestedInterval.Start.Format("02/01 15:04")
	content := fmt.Sprintf("%s: available on %s.", name, when)
	if !result.Available {
		content = fmt.Sprintf("%s: not available on %s (conflicts with reservation %s).", name, when, result.ConflictingRef)
	}
	return ToolOutcome{Content: content, Availability: &result}
}

func (t *Toolset) execGetReservation(ctx context.Context, sess models.Session, args map[string]string) ToolOutcome {
	ref := args["reference_number"]
	if len(ref) < minReferenceNumberSize {
		return ToolOutcome{Content: "Error: a valid reference number has at least 10 characters."}
	}
	res, err := t.Gateway.GetReservation(ctx, sess, ref)
	if err != nil {
		return ToolOutcome{Content: describeGatewayError("reservation lookup", err)}
	}
	return ToolOutcome{
		Content:    t.Confirmation.DescribeReservation(res),
		FetchedRef: res.ReferenceNumber,
	}
}

func (t *Toolset) execCreateReservation(ctx context.Context, sess models.Session, args map[string]string) ToolOutcome {
	start, err := t.parseWireInstant(args["start_date_time"])
	if err != nil {
		return ToolOutcome{Content: fmt.Sprintf("Error: invalid start date/time %q.", args["start_date_time"])}
	}
	end := start.Add(models.DefaultReservationDuration)
	if args["end_date_time"] != "" {
		if end, err = t.parseWireInstant(args["end_date_time"]); err != nil {
			return ToolOutcome{Content: fmt.Sprintf("Error: invalid end date/time %q.", args["end_date_time"])}
		}
	}

	resp, err := t.Gateway.CreateReservation(ctx, sess, models.ReservationRequest{
		Title:         args["title"],
		Description:   args["description"],
		StartDateTime: start.Format(reservationTimeFormat),
		EndDateTime:   end.Format(reservationTimeFormat),
		ResourceID:    args["resource_id"],
	})
	if err != nil {
		return ToolOutcome{Content: describeGatewayError("reservation creation", err)}
	}
	if resp.ReferenceNumber == "" {
		return ToolOutcome{Content: fmt.Sprintf("%s (warning: no reference number received).", resp.Message)}
	}
	return ToolOutcome{Content: fmt.Sprintf("Reservation created for resource %s starting %s. Reference number: %s",
		args["resource_id"], start.Format("02/01/2006 15:04"), resp.ReferenceNumber)}
}

func (t *Toolset) execUpdateReservation(ctx context.Context, sess models.Session, args map[string]string) ToolOutcome {
	start, err := t.parseWireInstant(args["start_date_time"])
	if err != nil {
		return ToolOutcome{Content: fmt.Sprintf("Error: invalid start date/time %q.", args["start_date_time"])}
	}
	end := start.Add(models.DefaultReservationDuration)
	if args["end_date_time"] != "" {
		if end, err = t.parseWireInstant(args["end_date_time"]); err != nil {
			return ToolOutcome{Content: fmt.Sprintf("Error: invalid end date/time %q.", args["end_date_time"])}
		}
	}

	resp, err := t.Gateway.UpdateReservation(ctx, sess, args["reference_number"], args["update_scope"], models.ReservationRequest{
		Title:         args["title"],
		Description:   args["description"],
		StartDateTime: start.Format(reservationTimeFormat),
		EndDateTime:   end.Format(reservationTimeFormat),
		ResourceID:    args["resource_id"],
	})
	if err != nil {
		return ToolOutcome{Content: describeGatewayError("reservation update", err)}
	}
	return ToolOutcome{Content: fmt.Sprintf("Reservation %s updated. %s", resp.ReferenceNumber, resp.Message)}
}

func (t *Toolset) execDeleteReservation(ctx context.Context, state *models.ConversationState, args map[string]string) ToolOutcome {
	ref := args["reference_number"]
	if err := t.Confirmation.Authorize(state, ref); err != nil {
		return ToolOutcome{Content: fmt.Sprintf(
			"Deletion blocked: %v. Fetch the reservation, show its details, ask the exact confirmation question, and act only on an explicit \"yes\".", err)}
	}

	// The gate is single-use whatever the backend says.
	state.PendingCancellation = ""

	if err := t.Gateway.DeleteReservation(ctx, state.Session, ref); err != nil {
		return ToolOutcome{Content: describeGatewayError("reservation deletion", err)}
	}
	return ToolOutcome{Content: fmt.Sprintf("Reservation %s cancelled successfully.", ref)}
}

// parseWireInstant reads an ISO instant, either offset-qualified or naive
// in the local zone.
func (t *Toolset) parseWireInstant(value string) (time.Time, error) {
	loc := t.Loc
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{time.RFC3339, reservationTimeFormat, "2006-01-02T15:04"} {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO 8601 value %q", value)
}

// describeGatewayError translates a typed gateway failure into content the
// capability can relay. Nothing here retries.
func describeGatewayError(action string, err error) string {
	switch gateway.KindOf(err) {
	case gateway.KindAuth:
		return "Authentication error: the session is invalid or expired. Re-authenticate, then retry the original action."
	case gateway.KindNotFound:
		return fmt.Sprintf("Not found during %s: the reservation or resource does not exist.", action)
	case gateway.KindConflict:
		return "Conflict: the resource is already reserved for the requested interval. Suggest a different time or resource."
	case gateway.KindValidation:
		return fmt.Sprintf("Invalid request for %s: %v", action, err)
	default:
		return fmt.Sprintf("Network or server error during %s. This may be transient; the user can ask to retry.", action)
	}
}

func function(name, description string, parameters map[string]any) models.Tool {
	return models.Tool{
		Type: "function",
		Function: models.ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
