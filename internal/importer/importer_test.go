package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
)

type fakeSubmitter struct {
	mu     sync.Mutex
	inputs []models.FeedbackInput
	failOn string
	// storedErr is returned with a result for storedOn, as when the record is stored but the
	// index update fails.
	storedOn  string
	storedErr error
}

func (f *fakeSubmitter) Submit(_ context.Context, in models.FeedbackInput) (*models.SubmitResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if f.failOn != "" && in.UserFeedback == f.failOn {
		return nil, errors.New("generator down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	res := &models.SubmitResult{ID: fmt.Sprintf("rec-%d", len(f.inputs))}
	if f.storedOn != "" && in.UserFeedback == f.storedOn {
		return res, f.storedErr
	}
	return res, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func newTestImporter(t *testing.T, s Submitter, opts ...Option) *Importer {
	t.Helper()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return New(s, ledger, opts...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

const sampleCSV = "district_name,service_type,user_feedback\n" +
	"Pune,Healthcare,Doctors were polite\n" +
	"Pune,Water,\n" +
	"Nagpur,Transport,Buses are overcrowded\n"

func TestImportFile_tableOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	writeFile(t, path, sampleCSV)
	sub := &fakeSubmitter{}
	imp := newTestImporter(t, sub)
	ctx := context.Background()

	rep, err := imp.ImportFile(ctx, path, "")
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if rep.Imported != 2 || rep.Rejected != 1 || rep.Skipped {
		t.Errorf("report = %+v", rep)
	}
	if sub.inputs[0].Source != "export.csv" {
		t.Errorf("source = %q, want export.csv", sub.inputs[0].Source)
	}

	// Same content under another name is not imported again.
	copyPath := filepath.Join(dir, "renamed.csv")
	writeFile(t, copyPath, sampleCSV)
	rep2, err := imp.ImportFile(ctx, copyPath, "")
	if err != nil {
		t.Fatal(err)
	}
	if !rep2.Skipped || !reflect.DeepEqual(rep2.RecordIDs, rep.RecordIDs) {
		t.Errorf("second report = %+v", rep2)
	}
	if sub.count() != 2 {
		t.Errorf("submissions = %d, want 2", sub.count())
	}
}

func TestImportFile_resumesAfterFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	writeFile(t, path, sampleCSV)
	sub := &fakeSubmitter{failOn: "Buses are overcrowded"}
	imp := newTestImporter(t, sub)
	ctx := context.Background()

	rep, err := imp.ImportFile(ctx, path, "")
	if err == nil || !strings.Contains(err.Error(), "line 4") {
		t.Fatalf("err = %v, want failure at line 4", err)
	}
	if rep.Imported != 1 {
		t.Errorf("imported = %d, want 1", rep.Imported)
	}

	sub.failOn = ""
	rep, err = imp.ImportFile(ctx, path, "")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 1 || len(rep.RecordIDs) != 2 {
		t.Errorf("resumed report = %+v", rep)
	}
	if sub.count() != 2 {
		t.Errorf("submissions = %d, want 2", sub.count())
	}
}

func TestImportFile_storedButNotIndexed(t *testing.T) {
	tests := []struct {
		name      string
		storedErr error
		wantErr   bool
	}{
		{"persist behind continues", fmt.Errorf("failed to index feedback rec-1: %w", vector.ErrPersistBehind), false},
		{"index failure stops file", fmt.Errorf("failed to index feedback rec-1: %w", vector.ErrDimensionMismatch), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "export.csv")
			writeFile(t, path, sampleCSV)
			sub := &fakeSubmitter{storedOn: "Doctors were polite", storedErr: tt.storedErr}
			imp := newTestImporter(t, sub)
			ctx := context.Background()

			rep, err := imp.ImportFile(ctx, path, "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if rep.Imported != 1 && tt.wantErr || rep.Imported != 2 && !tt.wantErr {
				t.Errorf("report = %+v", rep)
			}

			sub.storedErr = nil
			rep, err = imp.ImportFile(ctx, path, "")
			if err != nil {
				t.Fatal(err)
			}
			if !tt.wantErr && !rep.Skipped {
				t.Errorf("file should be complete after first run, report = %+v", rep)
			}
			if len(rep.RecordIDs) != 2 || rep.RecordIDs[0] != "rec-1" {
				t.Errorf("record ids = %v", rep.RecordIDs)
			}
			if sub.count() != 2 {
				t.Errorf("submissions = %d, want 2 (stored record must not be resubmitted)", sub.count())
			}
		})
	}
}

func TestImportAll_lettersUnderRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Pune", "Healthcare", "letter.txt"), "The hospital had no beds.\n")
	writeFile(t, filepath.Join(root, "Pune", "Water", "notes.md"), "Tap water is muddy.")
	writeFile(t, filepath.Join(root, "stray.txt"), "No district here")
	writeFile(t, filepath.Join(root, "Pune", "Water", "photo.jpg"), "binary")

	sub := &fakeSubmitter{}
	imp := newTestImporter(t, sub)
	targets, err := imp.Collect([]string{root})
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 3 {
		t.Fatalf("targets = %v, want 3 supported files", targets)
	}

	var seen int
	reports, err := imp.ImportAll(context.Background(), targets, func(*FileReport) { seen++ })
	if !errors.Is(err, ErrNoKey) {
		t.Errorf("err = %v, want ErrNoKey for stray letter", err)
	}
	if len(reports) != 3 || seen != 3 {
		t.Errorf("reports = %d, progress = %d, want 3", len(reports), seen)
	}
	if sub.count() != 2 {
		t.Fatalf("submissions = %d, want 2", sub.count())
	}
	got := sub.inputs[0]
	if got.DistrictName != "Pune" || got.ServiceType != "Healthcare" || got.UserFeedback != "The hospital had no beds." {
		t.Errorf("input = %+v", got)
	}
}

func TestImportAll_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	imp := newTestImporter(t, &fakeSubmitter{})
	_, err := imp.ImportAll(ctx, []Target{{Path: "x.csv"}}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLetterKey(t *testing.T) {
	tests := []struct {
		name, path, root    string
		district, service string
		wantErr           bool
	}{
		{"under root", "/in/Pune/Water/a.txt", "/in", "Pune", "Water", false},
		{"too shallow", "/in/Pune/a.txt", "/in", "", "", true},
		{"too deep", "/in/Pune/Water/x/a.txt", "/in", "", "", true},
		{"no root", "/data/Thane/Education/a.pdf", "", "Thane", "Education", false},
		{"no root at top", "/a.txt", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, s, err := LetterKey(filepath.FromSlash(tt.path), filepath.FromSlash(tt.root))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if d != tt.district || s != tt.service {
				t.Errorf("got %q/%q, want %q/%q", d, s, tt.district, tt.service)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	f := NewFilter([]string{"**/*.csv", "letters/**"}, []string{"**/archive/**"})
	tests := map[string]bool{
		"export.csv":                  true,
		"2024/export.csv":             true,
		"letters/Pune/Water/a.txt":    true,
		"letters/Pune/Water/a.jpg":    false,
		"notes.txt":                   false,
		"old/archive/export.csv":      false,
		"letters/archive/Pune/x.docx": false,
	}
	for rel, want := range tests {
		if got := f.Match(rel); got != want {
			t.Errorf("Match(%q) = %v, want %v", rel, got, want)
		}
	}
}

func TestFilter_CollectSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.csv"), sampleCSV)
	writeFile(t, filepath.Join(root, "archive", "b.csv"), sampleCSV)
	files, err := NewFilter(nil, []string{"archive/**"}).Collect(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "a.csv" {
		t.Errorf("files = %v", files)
	}
}

func TestLedger_reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.PutItem("sha256:x#2", "rec-1"); err != nil {
		t.Fatal(err)
	}
	if err := l.PutFile("sha256:x", FileEntry{Path: "a.csv", RecordIDs: []string{"rec-1"}}); err != nil {
		t.Fatal(err)
	}
	_ = l.Close()

	l, err = OpenLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if id, _ := l.Item("sha256:x#2"); id != "rec-1" {
		t.Errorf("Item = %q, want rec-1", id)
	}
	if id, _ := l.Item("sha256:x#3"); id != "" {
		t.Errorf("unknown Item = %q, want empty", id)
	}
	entry, err := l.File("sha256:x")
	if err != nil || entry == nil || entry.Path != "a.csv" {
		t.Errorf("File = %+v, %v", entry, err)
	}
	if n, _ := l.Files(); n != 1 {
		t.Errorf("Files = %d, want 1", n)
	}
}
