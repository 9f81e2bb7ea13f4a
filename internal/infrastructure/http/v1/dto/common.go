// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"ledgerpulse/internal/core/apperror"
	"ledgerpulse/internal/core/id"
)

// dateLayout is the business-date wire format. Entry and settlement
// dates are calendar dates, not instants.
const dateLayout = "2006-01-02"

// ParseDate parses a required business date.
func ParseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperror.NewValidation("date is required").
			WithDetail("field", field)
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, apperror.NewValidation("invalid date format, expected YYYY-MM-DD").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return t, nil
}

// ParseOptionalDate parses a date when present.
func ParseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := ParseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseOptionalID parses a UUID when present.
func ParseOptionalID(field string, value *string) (*id.ID, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := id.Parse(*value)
	if err != nil {
		return nil, apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", *value)
	}
	return &parsed, nil
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- List Response ---

// ListResponse wraps list results.
type ListResponse struct {
	Items  any `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
