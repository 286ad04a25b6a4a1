// Package channelmap classifies offline channels by readout plane.
package channelmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// Plane is a signal view of the readout.
type Plane uint8

const (
	PlaneUnconnected Plane = iota
	PlaneU                 // first induction view
	PlaneY                 // second induction view
	PlaneZ                 // collection view
)

func (p Plane) String() string {
	switch p {
	case PlaneU:
		return "U"
	case PlaneY:
		return "Y"
	case PlaneZ:
		return "Z"
	default:
		return "unconnected"
	}
}

// MarshalText encodes the plane as its letter.
func (p Plane) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText accepts U, V or Y, Z or X, and unconnected.
func (p *Plane) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "U":
		*p = PlaneU
	case "V", "Y":
		*p = PlaneY
	case "Z", "X":
		*p = PlaneZ
	case "UNCONNECTED", "":
		*p = PlaneUnconnected
	default:
		return fmt.Errorf("unknown plane %q", string(b))
	}
	return nil
}

// Map answers which plane a channel belongs to. Implementations are pure
// lookups and safe for concurrent use.
type Map interface {
	PlaneOf(ch trigger.Channel) Plane
}

// Range assigns the inclusive channel range [First, Last] to a plane.
type Range struct {
	First trigger.Channel `json:"first"`
	Last  trigger.Channel `json:"last"`
	Plane Plane           `json:"plane"`
}

// RangeMap is a Map built from sorted, non-overlapping channel ranges.
// Channels outside every range are unconnected.
type RangeMap struct {
	ranges []Range
}

// NewRangeMap validates and sorts ranges.
func NewRangeMap(ranges []Range) (*RangeMap, error) {
	rs := make([]Range, len(ranges))
	copy(rs, ranges)
	sort.Slice(rs, func(i, j int) bool { return rs[i].First < rs[j].First })
	for i, r := range rs {
		if r.Last < r.First {
			return nil, fmt.Errorf("range %d-%d is inverted", r.First, r.Last)
		}
		if i > 0 && r.First <= rs[i-1].Last {
			return nil, fmt.Errorf("range %d-%d overlaps %d-%d", r.First, r.Last, rs[i-1].First, rs[i-1].Last)
		}
	}
	return &RangeMap{ranges: rs}, nil
}

// PlaneOf returns the plane of ch.
func (m *RangeMap) PlaneOf(ch trigger.Channel) Plane {
	i := sort.Search(len(m.ranges), func(i int) bool { return m.ranges[i].Last >= ch })
	if i < len(m.ranges) && m.ranges[i].First <= ch {
		return m.ranges[i].Plane
	}
	return PlaneUnconnected
}

// Ranges returns a copy of the map's ranges in channel order.
func (m *RangeMap) Ranges() []Range {
	out := make([]Range, len(m.ranges))
	copy(out, m.ranges)
	return out
}

type rangeFile struct {
	Ranges []Range `json:"ranges"`
}

// LoadRangeMap reads a JSON document of the form
// {"ranges": [{"first": 0, "last": 951, "plane": "U"}, ...]}.
func LoadRangeMap(path string) (*RangeMap, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("channel map must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat channel map: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("channel map too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel map: %w", err)
	}
	var f rangeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse channel map JSON: %w", err)
	}
	return NewRangeMap(f.Ranges)
}

// Coldbox readout plane sizes: one charge readout plane of 3072 channels.
const (
	ColdboxUChannels = 952
	ColdboxYChannels = 952
	ColdboxZChannels = 1168
)

// ColdboxMap returns the map of a single vertical-drift coldbox readout
// plane: U channels first, then Y, then Z.
func ColdboxMap() *RangeMap {
	const (
		uEnd = ColdboxUChannels
		yEnd = uEnd + ColdboxYChannels
		zEnd = yEnd + ColdboxZChannels
	)
	m, _ := NewRangeMap([]Range{
		{First: 0, Last: uEnd - 1, Plane: PlaneU},
		{First: uEnd, Last: yEnd - 1, Plane: PlaneY},
		{First: yEnd, Last: zEnd - 1, Plane: PlaneZ},
	})
	return m
}

// Load returns the map at path, or ColdboxMap when path is empty.
func Load(path string) (Map, error) {
	if path == "" {
		return ColdboxMap(), nil
	}
	return LoadRangeMap(path)
}
