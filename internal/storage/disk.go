package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
)

// DataPaths locates the three on-disk stores of a deployment. Empty paths are not measured.
type DataPaths struct {
	Database     string
	VectorIndex  string
	KeywordIndex string
}

// MeasureDisk reports the bytes each store occupies. The database includes its WAL and
// shared-memory files; the vector index includes its writer lock file. Stores not yet created
// count as zero.
func MeasureDisk(p DataPaths) (models.DiskUsage, error) {
	var du models.DiskUsage
	var err error
	if du.Database, err = sizeOf(p.Database, "", "-wal", "-shm"); err != nil {
		return du, err
	}
	if du.VectorIndex, err = sizeOf(p.VectorIndex, "", ".lock"); err != nil {
		return du, err
	}
	if du.KeywordIndex, err = sizeOf(p.KeywordIndex, ""); err != nil {
		return du, err
	}
	du.Total = du.Database + du.VectorIndex + du.KeywordIndex
	return du, nil
}

// sizeOf sums base+suffix for each suffix, descending into directories.
func sizeOf(base string, suffixes ...string) (int64, error) {
	if base == "" {
		return 0, nil
	}
	var total int64
	for _, suffix := range suffixes {
		err := filepath.WalkDir(base+suffix, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, err
		}
	}
	return total, nil
}
