// Package importer loads feedback from files (letters and tabular exports) into the service
// through the normal submission flow, recording progress in a ledger so nothing is imported twice.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/extract"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/fileid"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
)

// ErrNoKey is returned for a letter whose location does not name a district and service.
var ErrNoKey = errors.New("letter path must be <district>/<service>/<file>")

// Submitter accepts one feedback. Implemented by retrieval.Orchestrator.
type Submitter interface {
	Submit(ctx context.Context, in models.FeedbackInput) (*models.SubmitResult, error)
}

// FileReport describes the outcome of importing one file.
type FileReport struct {
	Path      string
	ContentID string
	// Skipped is set when the same content was already imported.
	Skipped   bool
	Imported  int
	Rejected  int
	RecordIDs []string
}

// Importer parses files and submits their feedback.
type Importer struct {
	submitter Submitter
	ledger    *Ledger
	extractor *extract.Extractor
	filter    *Filter
	logger    *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Importer) { i.logger = l }
}

// WithFilter sets the include/exclude filter used when walking directories.
func WithFilter(f *Filter) Option {
	return func(i *Importer) { i.filter = f }
}

// New creates an importer that submits through s and records progress in ledger.
func New(s Submitter, ledger *Ledger, opts ...Option) *Importer {
	i := &Importer{
		submitter: s,
		ledger:    ledger,
		extractor: extract.NewExtractor(),
		filter:    NewFilter(nil, nil),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Collect expands paths into importable files. Directories are walked with the filter; their
// path becomes the root for letters below them. Files are taken as given.
func (i *Importer) Collect(paths []string) ([]Target, error) {
	var targets []Target
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			targets = append(targets, Target{Path: p})
			continue
		}
		files, err := i.filter.Collect(p)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
		for _, f := range files {
			targets = append(targets, Target{Path: f, Root: p})
		}
	}
	return targets, nil
}

// Target is a file to import and the directory its letter key is resolved against.
type Target struct {
	Path string
	Root string
}

// ImportAll imports every target, calling progress after each. Failures are logged and returned
// joined; other files are still imported.
func (i *Importer) ImportAll(ctx context.Context, targets []Target, progress func(*FileReport)) ([]*FileReport, error) {
	var (
		reports []*FileReport
		errs    []error
	)
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := i.ImportFile(ctx, t.Path, t.Root)
		if err != nil {
			i.logger.Error("import failed", zap.String("path", t.Path), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", t.Path, err))
		}
		if rep != nil {
			reports = append(reports, rep)
			if progress != nil {
				progress(rep)
			}
		}
	}
	return reports, errors.Join(errs...)
}

// ImportFile imports one file. root is the directory letters are laid out under; when empty the
// letter's two parent directories name the district and service.
//
// Items rejected as invalid are counted and skipped. Any other submission failure stops the file
// without marking it done, so a later run resumes with the items not yet recorded.
func (i *Importer) ImportFile(ctx context.Context, path, root string) (*FileReport, error) {
	contentID, err := fileid.FileContentID(path)
	if err != nil {
		return nil, err
	}
	rep := &FileReport{Path: path, ContentID: contentID}
	done, err := i.ledger.File(contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if done != nil {
		rep.Skipped = true
		rep.RecordIDs = done.RecordIDs
		i.logger.Debug("import skipped, content already imported",
			zap.String("path", path),
			zap.String("first_path", done.Path))
		return rep, nil
	}

	items, err := i.items(path, root)
	if err != nil {
		return rep, err
	}
	for _, it := range items {
		itemID := fileid.ItemID(contentID, it.Line)
		recordID, err := i.ledger.Item(itemID)
		if err != nil {
			return rep, fmt.Errorf("failed to read ledger: %w", err)
		}
		if recordID == "" {
			it.Input.Source = filepath.Base(path)
			res, err := i.submitter.Submit(ctx, it.Input)
			if errors.Is(err, models.ErrInvalidInput) {
				rep.Rejected++
				i.logger.Warn("import item rejected",
					zap.String("path", path),
					zap.Int("line", it.Line),
					zap.Error(err))
				continue
			}
			if res == nil {
				return rep, fmt.Errorf("line %d: %w", it.Line, err)
			}
			// Stored even if indexing failed; record it so a rerun does not insert it again.
			recordID = res.ID
			if putErr := i.ledger.PutItem(itemID, recordID); putErr != nil {
				return rep, fmt.Errorf("failed to record item: %w", putErr)
			}
			rep.Imported++
			if err != nil && !errors.Is(err, vector.ErrPersistBehind) {
				return rep, fmt.Errorf("line %d: %w", it.Line, err)
			}
		}
		rep.RecordIDs = append(rep.RecordIDs, recordID)
	}

	err = i.ledger.PutFile(contentID, FileEntry{
		Path:       path,
		RecordIDs:  rep.RecordIDs,
		Rejected:   rep.Rejected,
		ImportedAt: time.Now().UTC(),
	})
	if err != nil {
		return rep, fmt.Errorf("failed to record file: %w", err)
	}
	i.logger.Info("file imported",
		zap.String("path", path),
		zap.Int("imported", rep.Imported),
		zap.Int("rejected", rep.Rejected))
	return rep, nil
}

func (i *Importer) items(path, root string) ([]extract.Row, error) {
	switch extract.KindOf(filepath.Ext(path)) {
	case extract.KindTable:
		return i.extractor.Rows(path)
	case extract.KindLetter:
		district, service, err := LetterKey(path, root)
		if err != nil {
			return nil, err
		}
		text, err := i.extractor.Text(path)
		if err != nil {
			return nil, err
		}
		return []extract.Row{{Input: models.FeedbackInput{
			DistrictName: district,
			ServiceType:  service,
			UserFeedback: text,
		}}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LetterKey resolves district and service from a letter's location. With a root, the path below
// it must be exactly <district>/<service>/<file>.
func LetterKey(path, root string) (district, service string, err error) {
	dir := filepath.Dir(path)
	if root != "" {
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s", ErrNoKey, path)
		}
		parts := splitPath(rel)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("%w: %s", ErrNoKey, path)
		}
		return parts[0], parts[1], nil
	}
	service = filepath.Base(dir)
	district = filepath.Base(filepath.Dir(dir))
	if !usableDirName(service) || !usableDirName(district) {
		return "", "", fmt.Errorf("%w: %s", ErrNoKey, path)
	}
	return district, service, nil
}

func splitPath(rel string) []string {
	if rel == "." {
		return nil
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, p := range parts {
		if !usableDirName(p) {
			return nil
		}
	}
	return parts
}

func usableDirName(name string) bool {
	return name != "" && name != "." && name != ".." && name != string(filepath.Separator)
}
