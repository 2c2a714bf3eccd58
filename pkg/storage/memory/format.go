package memory

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

const (
	// Magic bytes to identify snapshot files
	MagicBytes = "JUPD"
	// Current version
	FormatVersion = 1
	// File extension for snapshots
	FileExtension = ".jupd"
)

// flagRaw marks a payload stored without compression
const flagRaw uint8 = 1 << 0

// FileHeader represents the header of a snapshot file
type FileHeader struct {
	Magic     [4]byte // "JUPD"
	Version   uint8   // Format version
	Flags     uint8   // flagRaw when the payload is not lz4 compressed
	Reserved  [2]byte // Reserved for future use
	RawLength uint64  // Length of the msgpack payload before compression
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer, flags uint8, rawLength int) error {
	header := FileHeader{
		Magic:     [4]byte{'J', 'U', 'P', 'D'},
		Version:   FormatVersion,
		Flags:     flags,
		RawLength: uint64(rawLength),
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}

	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	return &header, nil
}

// SnapshotData is the structure persisted by a checkpoint
type SnapshotData struct {
	LSN         int64                                `msgpack:"lsn"`
	CreatedAt   time.Time                            `msgpack:"created_at"`
	Collections map[string][]domain.PreparedDocument `msgpack:"collections"`
}

// NewSnapshotData creates an empty snapshot
func NewSnapshotData() *SnapshotData {
	return &SnapshotData{
		Collections: make(map[string][]domain.PreparedDocument),
	}
}
