package vector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/Nikhil-Zer0/PublicService-backend/pkg/utils"
)

const (
	// fileMagic identifies a persisted feedback index ("FBX1").
	fileMagic   = 0x31584246
	fileVersion = 1
	headerSize  = 16
	trailerSize = 4

	// maxDimensions bounds the header's dimension field before anything is sized from it.
	maxDimensions = 1 << 16
)

// Load reads the index persisted at path. A missing file yields a new empty index of the given
// dimension. Any other read or decode failure is returned wrapped in ErrCorruptIndex.
func Load(path string, dimensions int) (*FlatIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewFlatIndex(dimensions)
		}
		return nil, fmt.Errorf("read index file: %w", err)
	}
	ids, vectors, dim, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptIndex, path, err)
	}
	if dim != dimensions {
		return nil, fmt.Errorf("%w: %w: file %s has %d, index expects %d", ErrCorruptIndex, ErrDimensionMismatch, path, dim, dimensions)
	}
	idx, err := NewFlatIndex(dimensions)
	if err != nil {
		return nil, err
	}
	idx.ids = ids
	idx.vectors = vectors
	return idx, nil
}

// Save writes a full snapshot of idx to path. The snapshot is written to a temporary file in the
// same directory, synced, and renamed over path, so a reader never sees a partial file.
func Save(path string, idx *FlatIndex) error {
	if path == "" {
		return nil
	}
	ids, vectors := idx.Snapshot()
	data, err := encode(idx.Dimensions(), ids, vectors)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("rename index: %w", err)
	}
	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry after a rename. Not all platforms support it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// encode layout (little endian): magic u32, version u32, dimensions u32, count u32,
// then per entry idLen u32, id bytes, dimensions*float32; trailer crc32 of all preceding bytes.
func encode(dimensions int, ids []string, vectors [][]float32) ([]byte, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("ids and vectors length mismatch")
	}
	var buf bytes.Buffer
	buf.Grow(headerSize + len(ids)*(4+dimensions*4+36) + trailerSize)
	header := []uint32{fileMagic, fileVersion, uint32(dimensions), uint32(len(ids))}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, id := range ids {
		if len(vectors[i]) != dimensions {
			return nil, fmt.Errorf("%w: ordinal %d has %d", ErrDimensionMismatch, i, len(vectors[i]))
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(id))); err != nil {
			return nil, fmt.Errorf("write id len: %w", err)
		}
		buf.WriteString(id)
		buf.Write(EncodeFloat32s(vectors[i]))
	}
	sum := crc32.ChecksumIEEE(buf.Bytes())
	if err := binary.Write(&buf, binary.LittleEndian, sum); err != nil {
		return nil, fmt.Errorf("write checksum: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) ([]string, [][]float32, int, error) {
	if len(data) < headerSize+trailerSize {
		return nil, nil, 0, fmt.Errorf("file too short (%d bytes)", len(data))
	}
	body := data[:len(data)-trailerSize]
	want := binary.LittleEndian.Uint32(data[len(data)-trailerSize:])
	if got := crc32.ChecksumIEEE(body); got != want {
		return nil, nil, 0, fmt.Errorf("checksum mismatch: got %08x, want %08x", got, want)
	}
	r := bytes.NewReader(body)
	var header [4]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, 0, fmt.Errorf("read header: %w", err)
	}
	if header[0] != fileMagic {
		return nil, nil, 0, fmt.Errorf("bad magic %08x", header[0])
	}
	if header[1] != fileVersion {
		return nil, nil, 0, fmt.Errorf("unsupported version %d", header[1])
	}
	dim, n := int(header[2]), int(header[3])
	if dim <= 0 || dim > maxDimensions {
		return nil, nil, 0, fmt.Errorf("invalid dimensions %d", dim)
	}
	// Every entry takes at least its id length and vector, so the count cannot exceed what the
	// body holds.
	if uint64(n)*uint64(4+dim*4) > uint64(len(body)-headerSize) {
		return nil, nil, 0, fmt.Errorf("count %d with %d dimensions exceeds file size %d", n, dim, len(data))
	}
	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, dim*4)
	for i := 0; i < n; i++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return nil, nil, 0, fmt.Errorf("read id len at ordinal %d: %w", i, err)
		}
		if int64(idLen) > int64(r.Len()) {
			return nil, nil, 0, fmt.Errorf("id length %d at ordinal %d exceeds file", idLen, i)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBytes); err != nil {
			return nil, nil, 0, fmt.Errorf("read id at ordinal %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, nil, 0, fmt.Errorf("read vector at ordinal %d: %w", i, err)
		}
		vec := DecodeFloat32s(buf)
		if !utils.Finite(vec) {
			return nil, nil, 0, fmt.Errorf("non-finite vector at ordinal %d", i)
		}
		ids = append(ids, string(idBytes))
		vectors = append(vectors, vec)
	}
	if r.Len() != 0 {
		return nil, nil, 0, fmt.Errorf("%d trailing bytes after %d entries", r.Len(), n)
	}
	return ids, vectors, dim, nil
}

// EncodeFloat32s encodes s as little-endian IEEE 754 float32 values.
func EncodeFloat32s(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

// DecodeFloat32s decodes little-endian float32 values; trailing bytes shorter than 4 are ignored.
func DecodeFloat32s(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
