package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Params is the flat key/value document a maker is configured from. It is
// usually one entry of a pipeline file, but tests build it inline.
type Params map[string]any

// Decode maps p onto the struct pointed to by into using its json tags.
// Keys the struct does not recognise are an error, so a misspelt option
// never silently falls back to its default.
func (p Params) Decode(into any) error {
	if len(p) == 0 {
		return nil
	}
	data, err := json.Marshal(map[string]any(p))
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("failed to decode params: %w", err)
	}
	return nil
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
