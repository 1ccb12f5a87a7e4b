// Package extract reads feedback out of imported files: whole letters (.txt, .md, .pdf, .docx)
// and tabular exports with one feedback per row (.xlsx, .csv, .jsonl).
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
)

// ErrUnsupportedFormat is returned for file extensions that carry no feedback.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Kind classifies an imported file.
type Kind int

const (
	KindUnsupported Kind = iota
	// KindLetter files hold one feedback as free text.
	KindLetter
	// KindTable files hold one feedback per row or line.
	KindTable
)

// KindOf returns the kind for a file extension (with leading dot, any case).
func KindOf(ext string) Kind {
	switch strings.ToLower(ext) {
	case ".txt", ".md", ".pdf", ".docx":
		return KindLetter
	case ".xlsx", ".csv", ".jsonl":
		return KindTable
	default:
		return KindUnsupported
	}
}

// Row is one feedback read from a table. Line is 1-based and counts the header.
type Row struct {
	Line  int
	Input models.FeedbackInput
}

// Extractor reads letters and tables.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Text reads the letter at path and returns its text content.
func (e *Extractor) Text(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.TextBytes(content, filepath.Ext(path))
}

// TextBytes extracts letter text from content. ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) TextBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".txt", ".md":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q is not a letter format", ErrUnsupportedFormat, ext)
	}
}

// Rows reads the table at path.
func (e *Extractor) Rows(path string) ([]Row, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.RowsBytes(content, filepath.Ext(path))
}

// RowsBytes parses table content. Spreadsheets and CSV need a header row naming the
// district_name, service_type, and user_feedback columns; JSONL lines are FeedbackInput objects.
func (e *Extractor) RowsBytes(content []byte, ext string) ([]Row, error) {
	switch strings.ToLower(ext) {
	case ".xlsx":
		records, err := readExcel(content)
		if err != nil {
			return nil, err
		}
		return mapRecords(records)
	case ".csv":
		records, err := readCSV(content)
		if err != nil {
			return nil, err
		}
		return mapRecords(records)
	case ".jsonl":
		return readJSONL(content)
	default:
		return nil, fmt.Errorf("%w: %q is not a table format", ErrUnsupportedFormat, ext)
	}
}
