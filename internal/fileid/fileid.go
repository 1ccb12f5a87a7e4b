// Package fileid derives deterministic identifiers for imported feedback files, so the same
// content is recognized however it is named or wherever it is dropped.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
)

const prefix = "sha256:"

// ContentID returns the identifier for content.
func ContentID(content []byte) string {
	hash := sha256.Sum256(content)
	return prefix + hex.EncodeToString(hash[:])
}

// FileContentID hashes the file at path without reading it fully into memory.
func FileContentID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return prefix + hex.EncodeToString(h.Sum(nil)), nil
}

// ItemID identifies one feedback within a file. Letters use line 0; table rows use their line.
func ItemID(contentID string, line int) string {
	return contentID + "#" + strconv.Itoa(line)
}
