package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantDebug bool
		wantJSON  bool
	}{
		{"production logs info as json", false, false, true},
		{"debug logs debug to console", true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "feedbackd.log")
			logger, err := NewLogger(tt.debug, "feedbackd", "1.2.3", path)
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			logger.Debug("index loaded")
			logger.Info("feedback submitted")
			_ = logger.Sync()

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			out := string(data)
			if !strings.Contains(out, "feedback submitted") {
				t.Errorf("missing info entry:\n%s", out)
			}
			if got := strings.Contains(out, "index loaded"); got != tt.wantDebug {
				t.Errorf("debug entry present = %v, want %v:\n%s", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, `"service":"feedbackd"`); got != tt.wantJSON {
				t.Errorf("json service field present = %v, want %v:\n%s", got, tt.wantJSON, out)
			}
			if !strings.Contains(out, "1.2.3") {
				t.Errorf("missing version field:\n%s", out)
			}
		})
	}
}
