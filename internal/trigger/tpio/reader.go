// Package tpio reads trigger primitive dumps and writes pipeline output as
// JSON lines.
package tpio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// NumFields is the number of whitespace separated fields per TP line:
//
//	time_start tot time_peak channel adc_integral adc_peak detid type
const NumFields = 8

// Reader streams primitives from a text dump, one per line. Blank lines
// and lines starting with # are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next primitive, or io.EOF at the end of the input.
func (r *Reader) Next() (trigger.Primitive, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tp, err := ParseLine(line)
		if err != nil {
			return trigger.Primitive{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return tp, nil
	}
	if err := r.scanner.Err(); err != nil {
		return trigger.Primitive{}, fmt.Errorf("failed to read primitives: %w", err)
	}
	return trigger.Primitive{}, io.EOF
}

// ParseLine parses one TP line.
func ParseLine(line string) (trigger.Primitive, error) {
	parts := strings.Fields(line)
	if len(parts) != NumFields {
		return trigger.Primitive{}, fmt.Errorf("expected %d fields, got %d", NumFields, len(parts))
	}
	var v [NumFields]uint64
	bits := [NumFields]int{64, 64, 64, 32, 64, 32, 16, 8}
	for i, s := range parts {
		n, err := strconv.ParseUint(s, 10, bits[i])
		if err != nil {
			return trigger.Primitive{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v[i] = n
	}
	return trigger.Primitive{
		TimeStart:         trigger.Timestamp(v[0]),
		TimeOverThreshold: trigger.Timestamp(v[1]),
		TimePeak:          trigger.Timestamp(v[2]),
		Channel:           trigger.Channel(v[3]),
		ADCIntegral:       v[4],
		ADCPeak:           uint32(v[5]),
		DetID:             trigger.DetID(v[6]),
		Type:              trigger.PrimitiveType(v[7]),
	}, nil
}

// ReadAll reads every primitive from r.
func ReadAll(r io.Reader) ([]trigger.Primitive, error) {
	rd := NewReader(r)
	var out []trigger.Primitive
	for {
		tp, err := rd.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
}

// ReadFile reads every primitive from the file at path.
func ReadFile(path string) ([]trigger.Primitive, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open primitive file: %w", err)
	}
	defer f.Close()
	return ReadAll(f)
}

// FormatLine renders tp in the dump format.
func FormatLine(tp trigger.Primitive) string {
	return fmt.Sprintf("%d %d %d %d %d %d %d %d",
		tp.TimeStart, tp.TimeOverThreshold, tp.TimePeak, tp.Channel,
		tp.ADCIntegral, tp.ADCPeak, tp.DetID, uint8(tp.Type))
}
