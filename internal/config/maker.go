package config

import (
	"fmt"
	"math"
)

// MakerConfig holds every option recognised by the activity and candidate
// makers. Each maker reads the subset it needs; unset fields fall back to
// the default the maker passes to the matching Get* accessor, so partial
// configs are safe.
type MakerConfig struct {
	// Window params
	WindowLength *uint64 `json:"window_length,omitempty"`
	ADCThreshold *uint64 `json:"adc_threshold,omitempty"`

	// Multiplicity and adjacency params
	NChannelsThreshold *int `json:"n_channels_threshold,omitempty"`
	AdjacencyThreshold *int `json:"adjacency_threshold,omitempty"`
	AdjTolerance       *int `json:"adj_tolerance,omitempty"`
	AdjMaxGap          *int `json:"adj_max_gap,omitempty"`

	// Time over threshold outlier cutoff, in ticks
	TOTThreshold *uint64 `json:"tot_threshold,omitempty"`

	// Predicate switches and evaluation order
	TriggerOnADC       *bool    `json:"trigger_on_adc,omitempty"`
	TriggerOnNChannels *bool    `json:"trigger_on_n_channels,omitempty"`
	TriggerOnAdjacency *bool    `json:"trigger_on_adjacency,omitempty"`
	TriggerOnTOT       *bool    `json:"trigger_on_tot,omitempty"`
	Priority           []string `json:"priority,omitempty"`
	PrintTPInfo        *bool    `json:"print_tp_info,omitempty"`

	// Rate reduction
	Prescale   *uint64 `json:"prescale,omitempty"`
	BundleSize *int    `json:"bundle_size,omitempty"`

	// Channel distance params
	MaxChannelDistance *uint32 `json:"max_channel_distance,omitempty"`
	MinTPs             *int    `json:"min_tps,omitempty"`
	MaxTPCount         *int    `json:"max_tp_count,omitempty"`

	// Readout window around a candidate, in ticks
	ReadoutWindowTicksBefore *uint64 `json:"readout_window_ticks_before,omitempty"`
	ReadoutWindowTicksAfter  *uint64 `json:"readout_window_ticks_after,omitempty"`

	// Clustering params
	Eps       *float64 `json:"eps,omitempty"`
	MinPts    *int     `json:"min_pts,omitempty"`
	TimeScale *float64 `json:"time_scale,omitempty"`
	MaxHits   *int     `json:"max_hits,omitempty"`

	// Supernova burst params
	TimeWindow   *uint64 `json:"time_window,omitempty"`
	Threshold    *int    `json:"threshold,omitempty"`
	HitThreshold *int    `json:"hit_threshold,omitempty"`

	// Path to a JSON channel range map; empty selects the built-in map
	ChannelMap *string `json:"channel_map,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// ParseMakerConfig decodes and validates a maker's parameters.
func ParseMakerConfig(p Params) (*MakerConfig, error) {
	cfg := &MakerConfig{}
	if err := p.Decode(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *MakerConfig) Validate() error {
	if c.Prescale != nil && *c.Prescale == 0 {
		return fmt.Errorf("prescale must be at least 1, got %d", *c.Prescale)
	}
	if c.BundleSize != nil && *c.BundleSize < 1 {
		return fmt.Errorf("bundle_size must be at least 1, got %d", *c.BundleSize)
	}
	for name, v := range map[string]*int{
		"n_channels_threshold": c.NChannelsThreshold,
		"adjacency_threshold":  c.AdjacencyThreshold,
		"adj_tolerance":        c.AdjTolerance,
		"adj_max_gap":          c.AdjMaxGap,
		"min_tps":              c.MinTPs,
		"max_hits":             c.MaxHits,
		"threshold":            c.Threshold,
		"hit_threshold":        c.HitThreshold,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *v)
		}
	}
	if c.MaxTPCount != nil && *c.MaxTPCount < 1 {
		return fmt.Errorf("max_tp_count must be at least 1, got %d", *c.MaxTPCount)
	}
	if c.MinPts != nil && *c.MinPts < 1 {
		return fmt.Errorf("min_pts must be at least 1, got %d", *c.MinPts)
	}
	if c.Eps != nil && (!(*c.Eps > 0) || math.IsInf(*c.Eps, 0)) {
		return fmt.Errorf("eps must be positive and finite, got %v", *c.Eps)
	}
	if c.TimeScale != nil && (!(*c.TimeScale > 0) || math.IsInf(*c.TimeScale, 0)) {
		return fmt.Errorf("time_scale must be positive and finite, got %v", *c.TimeScale)
	}
	return nil
}

func getUint64(v *uint64, def uint64) uint64 {
	if v == nil {
		return def
	}
	return *v
}

func getInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func getBool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func getFloat64(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// GetWindowLength returns the window_length value or def.
func (c *MakerConfig) GetWindowLength(def uint64) uint64 { return getUint64(c.WindowLength, def) }

// GetADCThreshold returns the adc_threshold value or def.
func (c *MakerConfig) GetADCThreshold(def uint64) uint64 { return getUint64(c.ADCThreshold, def) }

// GetNChannelsThreshold returns the n_channels_threshold value or def.
func (c *MakerConfig) GetNChannelsThreshold(def int) int { return getInt(c.NChannelsThreshold, def) }

// GetAdjacencyThreshold returns the adjacency_threshold value or def.
func (c *MakerConfig) GetAdjacencyThreshold(def int) int { return getInt(c.AdjacencyThreshold, def) }

// GetAdjTolerance returns the adj_tolerance value or def.
func (c *MakerConfig) GetAdjTolerance(def int) int { return getInt(c.AdjTolerance, def) }

// GetAdjMaxGap returns the adj_max_gap value or def.
func (c *MakerConfig) GetAdjMaxGap(def int) int { return getInt(c.AdjMaxGap, def) }

// GetTOTThreshold returns the tot_threshold value or def.
func (c *MakerConfig) GetTOTThreshold(def uint64) uint64 { return getUint64(c.TOTThreshold, def) }

// GetTriggerOnADC returns the trigger_on_adc value or def.
func (c *MakerConfig) GetTriggerOnADC(def bool) bool { return getBool(c.TriggerOnADC, def) }

// GetTriggerOnNChannels returns the trigger_on_n_channels value or def.
func (c *MakerConfig) GetTriggerOnNChannels(def bool) bool {
	return getBool(c.TriggerOnNChannels, def)
}

// GetTriggerOnAdjacency returns the trigger_on_adjacency value or def.
func (c *MakerConfig) GetTriggerOnAdjacency(def bool) bool {
	return getBool(c.TriggerOnAdjacency, def)
}

// GetTriggerOnTOT returns the trigger_on_tot value or def.
func (c *MakerConfig) GetTriggerOnTOT(def bool) bool { return getBool(c.TriggerOnTOT, def) }

// GetPriority returns the priority list or def.
func (c *MakerConfig) GetPriority(def []string) []string {
	if len(c.Priority) == 0 {
		return def
	}
	return c.Priority
}

// GetPrintTPInfo returns the print_tp_info value. Disabled by default.
func (c *MakerConfig) GetPrintTPInfo() bool { return getBool(c.PrintTPInfo, false) }

// GetPrescale returns the prescale value or def.
func (c *MakerConfig) GetPrescale(def uint64) uint64 { return getUint64(c.Prescale, def) }

// GetBundleSize returns the bundle_size value or def.
func (c *MakerConfig) GetBundleSize(def int) int { return getInt(c.BundleSize, def) }

// GetMaxChannelDistance returns the max_channel_distance value or def.
func (c *MakerConfig) GetMaxChannelDistance(def uint32) uint32 {
	if c.MaxChannelDistance == nil {
		return def
	}
	return *c.MaxChannelDistance
}

// GetMinTPs returns the min_tps value or def.
func (c *MakerConfig) GetMinTPs(def int) int { return getInt(c.MinTPs, def) }

// GetMaxTPCount returns the max_tp_count value or def.
func (c *MakerConfig) GetMaxTPCount(def int) int { return getInt(c.MaxTPCount, def) }

// GetReadoutWindowTicksBefore returns the readout_window_ticks_before value or def.
func (c *MakerConfig) GetReadoutWindowTicksBefore(def uint64) uint64 {
	return getUint64(c.ReadoutWindowTicksBefore, def)
}

// GetReadoutWindowTicksAfter returns the readout_window_ticks_after value or def.
func (c *MakerConfig) GetReadoutWindowTicksAfter(def uint64) uint64 {
	return getUint64(c.ReadoutWindowTicksAfter, def)
}

// GetEps returns the eps value or def.
func (c *MakerConfig) GetEps(def float64) float64 { return getFloat64(c.Eps, def) }

// GetMinPts returns the min_pts value or def.
func (c *MakerConfig) GetMinPts(def int) int { return getInt(c.MinPts, def) }

// GetTimeScale returns the time_scale value or def.
func (c *MakerConfig) GetTimeScale(def float64) float64 { return getFloat64(c.TimeScale, def) }

// GetMaxHits returns the max_hits value or def.
func (c *MakerConfig) GetMaxHits(def int) int { return getInt(c.MaxHits, def) }

// GetTimeWindow returns the time_window value or def.
func (c *MakerConfig) GetTimeWindow(def uint64) uint64 { return getUint64(c.TimeWindow, def) }

// GetThreshold returns the threshold value or def.
func (c *MakerConfig) GetThreshold(def int) int { return getInt(c.Threshold, def) }

// GetHitThreshold returns the hit_threshold value or def.
func (c *MakerConfig) GetHitThreshold(def int) int { return getInt(c.HitThreshold, def) }

// GetChannelMap returns the channel_map path, or "" for the built-in map.
func (c *MakerConfig) GetChannelMap() string {
	if c.ChannelMap == nil {
		return ""
	}
	return *c.ChannelMap
}
