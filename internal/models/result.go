package models

// SubmitResult is returned after a feedback submission is processed.
type SubmitResult struct {
	ID         string   `json:"id"`
	Response   string   `json:"response"`
	SimilarIDs []string `json:"similar_ids"`
}

// SummaryResult is the generated summary for one district and service type.
type SummaryResult struct {
	DistrictName  string   `json:"district_name"`
	ServiceType   string   `json:"service_type"`
	Summary       string   `json:"summary"`
	FeedbackCount int      `json:"feedback_count"`
	SimilarIDs    []string `json:"similar_ids"`
}

// FeedbackPage is one page of stored feedback, newest first.
type FeedbackPage struct {
	Records []*Record `json:"records"`
	Total   int64     `json:"total"`
	Offset  int       `json:"offset"`
	Limit   int       `json:"limit"`
}

// SearchHit is a single keyword search match.
type SearchHit struct {
	Record     *Record           `json:"record"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
	Rank       int               `json:"rank"`
}

// SearchResponse is the response for a keyword search request.
type SearchResponse struct {
	Hits      []*SearchHit `json:"hits"`
	Total     int          `json:"total"`
	QueryTime int64        `json:"query_time_ms"`
	Query     string       `json:"query"`
}

// Status reports record and index counts.
type Status struct {
	Records         int64     `json:"records"`
	IndexSize       int       `json:"index_size"`
	IndexDimensions int       `json:"index_dimensions"`
	KeywordDocs     uint64    `json:"keyword_docs"`
	Disk            DiskUsage `json:"disk_usage"`
	IndexInSync     bool      `json:"index_in_sync"`
}

// DiskUsage is the on-disk size of each store in bytes.
type DiskUsage struct {
	Database     int64 `json:"database_bytes"`
	VectorIndex  int64 `json:"vector_index_bytes"`
	KeywordIndex int64 `json:"keyword_index_bytes"`
	Total        int64 `json:"total_bytes"`
}
