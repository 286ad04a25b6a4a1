package tpio

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/banshee-data/triggeralgs/internal/trigger"
)

var jsonFast = jsoniter.ConfigFastest

// Record is one line of pipeline output. Exactly one of Activity and
// Candidate is set.
type Record struct {
	RunID     string             `json:"run_id"`
	Partition int                `json:"partition"`
	Activity  *trigger.Activity  `json:"activity,omitempty"`
	Candidate *trigger.Candidate `json:"candidate,omitempty"`
}

// Writer writes records as JSON lines. It is safe for concurrent use so
// partitions can share one output.
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
	n  int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends rec as one line.
func (w *Writer) Write(rec Record) error {
	payload, err := jsonFast.Marshal(rec)
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.n++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Flush writes any buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Flush()
}

// DecodeRecord parses one output line.
func DecodeRecord(line []byte) (Record, error) {
	var rec Record
	if err := jsonFast.Unmarshal(line, &rec); err != nil {
		return Record{}, fmt.Errorf("json unmarshal failed: %w", err)
	}
	return rec, nil
}
