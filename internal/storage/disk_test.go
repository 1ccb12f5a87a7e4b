package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
)

func TestMeasureDisk(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, size int) {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("feedback.db", 100)
	write("feedback.db-wal", 20)
	write("feedback.db-shm", 3)
	write("feedback.idx", 50)
	write("feedback.idx.lock", 0)
	write("keyword.bleve/index_meta.json", 7)
	write("keyword.bleve/store/root.bolt", 11)
	write("unrelated.txt", 999)

	tests := []struct {
		name  string
		paths DataPaths
		want  models.DiskUsage
	}{
		{
			name: "all stores",
			paths: DataPaths{
				Database:     filepath.Join(dir, "feedback.db"),
				VectorIndex:  filepath.Join(dir, "feedback.idx"),
				KeywordIndex: filepath.Join(dir, "keyword.bleve"),
			},
			want: models.DiskUsage{Database: 123, VectorIndex: 50, KeywordIndex: 18, Total: 191},
		},
		{
			name: "missing stores count as zero",
			paths: DataPaths{
				Database:     filepath.Join(dir, "feedback.db"),
				VectorIndex:  filepath.Join(dir, "absent.idx"),
				KeywordIndex: filepath.Join(dir, "absent.bleve"),
			},
			want: models.DiskUsage{Database: 123, Total: 123},
		},
		{
			name:  "keyword index not configured",
			paths: DataPaths{VectorIndex: filepath.Join(dir, "feedback.idx")},
			want:  models.DiskUsage{VectorIndex: 50, Total: 50},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MeasureDisk(tt.paths)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("MeasureDisk = %+v, want %+v", got, tt.want)
			}
		})
	}
}
