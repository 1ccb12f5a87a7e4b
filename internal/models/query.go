package models

import (
	"fmt"
	"strings"
)

// SearchQuery is a keyword search over stored feedback, optionally narrowed to one district
// and service type.
type SearchQuery struct {
	Query        string `json:"query"`
	DistrictName string `json:"district_name,omitempty"`
	ServiceType  string `json:"service_type,omitempty"`
	Fuzzy        bool   `json:"fuzzy,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// Returns an error if the query is empty; otherwise normalizes limit and offset.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}
