// Package models defines the feedback records, inputs, and API results.
package models

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidInput is returned when a feedback submission is missing required fields.
var ErrInvalidInput = errors.New("invalid feedback input")

// Record is a stored piece of citizen feedback. The embedding is kept with the record so the
// vector index can be rebuilt from the document store.
type Record struct {
	ID           string    `json:"id" db:"id"`
	DistrictName string    `json:"district_name" db:"district_name"`
	ServiceType  string    `json:"service_type" db:"service_type"`
	UserFeedback string    `json:"user_feedback" db:"user_feedback"`
	ResponseText string    `json:"response_text" db:"response_text"`
	Source       string    `json:"source,omitempty" db:"source"`
	Embedding    []float32 `json:"-" db:"embedding"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// FeedbackInput is a feedback submission.
type FeedbackInput struct {
	DistrictName string `json:"district_name"`
	ServiceType  string `json:"service_type"`
	UserFeedback string `json:"user_feedback"`
	// Source names where the feedback came from (api, or the imported file). Not accepted from clients.
	Source string `json:"-"`
}

// Validate trims all fields and requires each to be non-empty.
func (in *FeedbackInput) Validate() error {
	in.DistrictName = strings.TrimSpace(in.DistrictName)
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	in.UserFeedback = strings.TrimSpace(in.UserFeedback)
	var missing []string
	if in.DistrictName == "" {
		missing = append(missing, "district_name")
	}
	if in.ServiceType == "" {
		missing = append(missing, "service_type")
	}
	if in.UserFeedback == "" {
		missing = append(missing, "user_feedback")
	}
	if len(missing) > 0 {
		return &FieldError{Fields: missing}
	}
	return nil
}

// FieldError lists required fields that were empty.
type FieldError struct {
	Fields []string
}

func (e *FieldError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}
