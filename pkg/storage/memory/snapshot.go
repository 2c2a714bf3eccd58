package memory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// WriteSnapshot encodes data with msgpack, compresses it with lz4 and
// atomically replaces filename
func WriteSnapshot(filename string, data *SnapshotData) error {
	payload, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(payload, compressed, hashTable[:])
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}

	// lz4 reports 0 for incompressible input
	flags := uint8(0)
	body := compressed[:n]
	if n == 0 {
		flags = flagRaw
		body = payload
	}

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	// Write to temporary file first, then rename (atomic operation)
	tempFile := filename + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	writeErr := func() error {
		w := bufio.NewWriter(file)
		if err := WriteHeader(w, flags, len(payload)); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("failed to write snapshot data: %w", err)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("failed to flush snapshot: %w", err)
		}
		return file.Sync()
	}()
	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tempFile)
		return writeErr
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}
	return nil
}

// LZ4 blocks expand by at most this factor
const maxCompressionRatio = 255

// ReadSnapshot loads a snapshot. A missing file yields (nil, nil).
func ReadSnapshot(filename string) (*SnapshotData, error) {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	header, err := ReadHeader(file)
	if err != nil {
		return nil, fmt.Errorf("invalid file header: %w", err)
	}

	body, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot data: %w", err)
	}

	payload := body
	if header.Flags&flagRaw == 0 {
		if header.RawLength > uint64(len(body))*maxCompressionRatio {
			return nil, fmt.Errorf("corrupt snapshot header: %d bytes cannot expand to %d", len(body), header.RawLength)
		}
		payload = make([]byte, header.RawLength)
		n, err := lz4.UncompressBlock(body, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress data: %w", err)
		}
		if uint64(n) != header.RawLength {
			return nil, fmt.Errorf("snapshot truncated: expected %d bytes, got %d", header.RawLength, n)
		}
	}

	data := NewSnapshotData()
	if err := msgpack.Unmarshal(payload, data); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return data, nil
}
