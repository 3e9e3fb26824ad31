// Package logging provides the append-only log manager consumed by the
// buffer pool. The pool only holds the handle; it never interprets records.
package logging

import (
	"bufio"
	"encoding/binary"
	"os"
	"sync"

	"github.com/quilldb/quill/common"
)

// LogManager appends opaque records to a log file. Records are
// length-prefixed and assigned monotonically increasing LSNs. Recovery
// semantics are out of scope here; the manager exists so components that are
// contractually handed a log manager have a real one to hold.
type LogManager struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	nextLSN common.LSN
	closed  bool
}

// NewLogManager opens (or creates) the log file at path in append mode.
func NewLogManager(path string) (*LogManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	return &LogManager{
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Append buffers a record and returns its LSN. The record is not guaranteed
// to be on disk until Flush returns.
func (lm *LogManager) Append(record []byte) (common.LSN, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	common.Assert(!lm.closed, "append to closed log manager")

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(record)))
	if _, err := lm.writer.Write(hdr[:]); err != nil {
		return common.InvalidLSN, err
	}
	if _, err := lm.writer.Write(record); err != nil {
		return common.InvalidLSN, err
	}
	lsn := lm.nextLSN
	lm.nextLSN++
	return lsn, nil
}

// Flush forces buffered records to stable storage.
func (lm *LogManager) Flush() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.closed {
		return nil
	}
	if err := lm.writer.Flush(); err != nil {
		return err
	}
	return lm.file.Sync()
}

// Close flushes pending records and closes the file. Safe to call twice.
func (lm *LogManager) Close() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.closed {
		return nil
	}
	lm.closed = true
	if err := lm.writer.Flush(); err != nil {
		return err
	}
	return lm.file.Close()
}
