package trigger

import "fmt"

// Timestamp is a detector clock tick count (62.5 MHz for the TPC readout).
type Timestamp uint64

// Channel is an offline channel identifier.
type Channel uint32

// DetID identifies a detector element.
type DetID uint16

// WholeDetector is the DetID used by candidates that span every element.
const WholeDetector DetID = 0xFFFF

// MsPerTick converts clock ticks into milliseconds (1 / 62.5 MHz).
const MsPerTick = 16e-6

// PrimitiveType tags the subsystem that produced a primitive.
type PrimitiveType uint8

const (
	PrimitiveTypeUnknown PrimitiveType = iota
	PrimitiveTypeTPC
	PrimitiveTypePDS
)

func (t PrimitiveType) String() string {
	switch t {
	case PrimitiveTypeTPC:
		return "tpc"
	case PrimitiveTypePDS:
		return "pds"
	default:
		return "unknown"
	}
}

// ActivityType tags the subsystem an activity was formed in.
type ActivityType uint8

const (
	ActivityTypeUnknown ActivityType = iota
	ActivityTypeTPC
	ActivityTypePDS
)

func (t ActivityType) String() string {
	switch t {
	case ActivityTypeTPC:
		return "tpc"
	case ActivityTypePDS:
		return "pds"
	default:
		return "unknown"
	}
}

// Algorithm tags which maker produced an activity or candidate.
type Algorithm uint8

const (
	AlgorithmUnknown Algorithm = iota
	AlgorithmADCSimpleWindow
	AlgorithmHorizontalMuon
	AlgorithmChannelAdjacency
	AlgorithmPlaneCoincidence
	AlgorithmChannelDistance
	AlgorithmBundle
	AlgorithmPrescale
	AlgorithmDBSCAN
	AlgorithmSupernova
)

var algorithmNames = map[Algorithm]string{
	AlgorithmUnknown:          "unknown",
	AlgorithmADCSimpleWindow:  "adc_simple_window",
	AlgorithmHorizontalMuon:   "horizontal_muon",
	AlgorithmChannelAdjacency: "channel_adjacency",
	AlgorithmPlaneCoincidence: "plane_coincidence",
	AlgorithmChannelDistance:  "channel_distance",
	AlgorithmBundle:           "bundle",
	AlgorithmPrescale:         "prescale",
	AlgorithmDBSCAN:           "dbscan",
	AlgorithmSupernova:        "supernova",
}

func (a Algorithm) String() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// CandidateType is the readout class requested by a candidate. The values
// mirror Algorithm for algorithm-specific classes.
type CandidateType uint8

const (
	CandidateTypeUnknown CandidateType = iota
	CandidateTypeADCSimpleWindow
	CandidateTypeHorizontalMuon
	CandidateTypeChannelAdjacency
	CandidateTypePlaneCoincidence
	CandidateTypeChannelDistance
	CandidateTypeBundle
	CandidateTypePrescale
	CandidateTypeDBSCAN
	CandidateTypeSupernova
)

func (t CandidateType) String() string {
	return Algorithm(t).String()
}

// Primitive is a single per-channel hit report. It is produced upstream and
// never mutated by this module.
type Primitive struct {
	TimeStart         Timestamp     `json:"time_start"`
	TimeOverThreshold Timestamp     `json:"time_over_threshold"`
	TimePeak          Timestamp     `json:"time_peak"`
	Channel           Channel       `json:"channel"`
	ADCIntegral       uint64        `json:"adc_integral"`
	ADCPeak           uint32        `json:"adc_peak"`
	DetID             DetID         `json:"detid"`
	Type              PrimitiveType `json:"type"`
	Algorithm         uint8         `json:"algorithm"`
}

// TimeEnd returns the end of the primitive's time over threshold.
func (p Primitive) TimeEnd() Timestamp { return p.TimeStart + p.TimeOverThreshold }

// Start, Integral and EachChannel let primitives live in a window.
func (p Primitive) Start() Timestamp               { return p.TimeStart }
func (p Primitive) Integral() uint64               { return p.ADCIntegral }
func (p Primitive) EachChannel(fn func(c Channel)) { fn(p.Channel) }

// ActivitySummary carries the summary fields of an activity without its
// primitives. Candidates hold activities in this form.
type ActivitySummary struct {
	TimeStart    Timestamp    `json:"time_start"`
	TimeEnd      Timestamp    `json:"time_end"`
	TimePeak     Timestamp    `json:"time_peak"`
	TimeActivity Timestamp    `json:"time_activity"`
	ChannelStart Channel      `json:"channel_start"`
	ChannelEnd   Channel      `json:"channel_end"`
	ChannelPeak  Channel      `json:"channel_peak"`
	ADCIntegral  uint64       `json:"adc_integral"`
	ADCPeak      uint32       `json:"adc_peak"`
	DetID        DetID        `json:"detid"`
	Type         ActivityType `json:"type"`
	Algorithm    Algorithm    `json:"algorithm"`
	// NPrimitives is the number of primitives the activity was built from.
	NPrimitives int `json:"n_primitives"`
}

// Activity is a summarized cluster of correlated primitives. It owns its
// Inputs slice.
type Activity struct {
	ActivitySummary
	Inputs []Primitive `json:"inputs"`
}

// Start, Integral and EachChannel let activities live in a window. Every
// contributing primitive channel counts as a hit.
func (a Activity) Start() Timestamp { return a.TimeStart }
func (a Activity) Integral() uint64 { return a.ADCIntegral }
func (a Activity) EachChannel(fn func(c Channel)) {
	for i := range a.Inputs {
		fn(a.Inputs[i].Channel)
	}
}

// Summary returns the activity without its primitives.
func (a Activity) Summary() ActivitySummary {
	s := a.ActivitySummary
	s.NPrimitives = len(a.Inputs)
	return s
}

// Candidate is a readout-worthy event built from one or more activities.
type Candidate struct {
	TimeStart     Timestamp         `json:"time_start"`
	TimeEnd       Timestamp         `json:"time_end"`
	TimeCandidate Timestamp         `json:"time_candidate"`
	DetID         DetID             `json:"detid"`
	Type          CandidateType     `json:"type"`
	Algorithm     Algorithm         `json:"algorithm"`
	Inputs        []ActivitySummary `json:"inputs"`
}
