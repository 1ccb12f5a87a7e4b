// Package cli provides output helpers for the feedbackd command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes keyword search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (showing %d)\n\n", response.Total, response.QueryTime, len(response.Hits))
	for _, hit := range response.Hits {
		rec := hit.Record
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", hit.Rank, hit.Score)
		fmt.Fprintf(w, "ID: %s\n", rec.ID)
		fmt.Fprintf(w, "District: %s | Service: %s | %s\n", rec.DistrictName, rec.ServiceType, rec.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(rec.UserFeedback, 200))
	}
	return nil
}

// WriteStatus writes service counts to w in the given format.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Records:          %d\n", st.Records)
	fmt.Fprintf(w, "Vector index:     %d entries, %d dimensions\n", st.IndexSize, st.IndexDimensions)
	fmt.Fprintf(w, "Keyword index:    %d documents\n", st.KeywordDocs)
	fmt.Fprintf(w, "Disk usage:       %s (database %s, vector index %s, keyword index %s)\n",
		FormatBytes(st.Disk.Total), FormatBytes(st.Disk.Database), FormatBytes(st.Disk.VectorIndex), FormatBytes(st.Disk.KeywordIndex))
	if !st.IndexInSync {
		fmt.Fprintf(w, "\nVector index and records differ; run `feedbackd reindex`.\n")
	}
	return nil
}

// FormatBytes renders n using binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
