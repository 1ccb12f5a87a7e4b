package extract

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
)

// headerAliases maps normalized header names to feedback fields.
var headerAliases = map[string]string{
	"district_name": "district_name",
	"district":      "district_name",
	"service_type":  "service_type",
	"service":       "service_type",
	"user_feedback": "user_feedback",
	"feedback":      "user_feedback",
	"comment":       "user_feedback",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.Join(strings.Fields(strings.ReplaceAll(h, "-", " ")), "_")
}

// mapRecords turns a header row plus data rows into feedback rows. Blank rows are skipped.
func mapRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("table is empty")
	}
	cols := make(map[string]int)
	for i, h := range records[0] {
		if field, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, seen := cols[field]; !seen {
				cols[field] = i
			}
		}
	}
	for _, field := range []string{"district_name", "service_type", "user_feedback"} {
		if _, ok := cols[field]; !ok {
			return nil, fmt.Errorf("table header has no %s column", field)
		}
	}

	cell := func(row []string, field string) string {
		i := cols[field]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		in := models.FeedbackInput{
			DistrictName: cell(rec, "district_name"),
			ServiceType:  cell(rec, "service_type"),
			UserFeedback: cell(rec, "user_feedback"),
		}
		if in.DistrictName == "" && in.ServiceType == "" && in.UserFeedback == "" {
			continue
		}
		rows = append(rows, Row{Line: n + 2, Input: in})
	}
	return rows, nil
}

func readCSV(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	return records, nil
}

func readJSONL(content []byte) ([]Row, error) {
	var rows []Row
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var in models.FeedbackInput
		if err := json.Unmarshal([]byte(text), &in); err != nil {
			return nil, fmt.Errorf("parse JSONL line %d: %w", line, err)
		}
		rows = append(rows, Row{Line: line, Input: in})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read JSONL: %w", err)
	}
	return rows, nil
}
