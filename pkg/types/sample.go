package types

import (
	"encoding/json"
	"fmt"
	"math"
)

// Sample is one orientation reading of the rotator.
//
// Azimuth is a point on a 360° periodic scale but is not normalised here;
// normalisation is left to the consumer. Elevation is unconstrained.
type Sample struct {
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
}

// Encode returns the compact wire form: {"azimuth":<n>,"elevation":<n>}.
func (s Sample) Encode() ([]byte, error) {
	if !s.Finite() {
		return nil, fmt.Errorf("sample: encode: non-finite value (azimuth=%v elevation=%v)", s.Azimuth, s.Elevation)
	}
	return json.Marshal(s)
}

// Finite reports whether both fields are finite numbers. JSON cannot carry
// NaN or ±Inf.
func (s Sample) Finite() bool {
	return !math.IsNaN(s.Azimuth) && !math.IsInf(s.Azimuth, 0) &&
		!math.IsNaN(s.Elevation) && !math.IsInf(s.Elevation, 0)
}

// Decode parses a wire-form sample. Both fields are required; unknown fields
// are ignored.
func Decode(data []byte) (Sample, error) {
	var raw struct {
		Azimuth   *float64 `json:"azimuth"`
		Elevation *float64 `json:"elevation"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Sample{}, fmt.Errorf("sample: decode: %w", err)
	}
	if raw.Azimuth == nil {
		return Sample{}, fmt.Errorf("sample: decode: azimuth is required")
	}
	if raw.Elevation == nil {
		return Sample{}, fmt.Errorf("sample: decode: elevation is required")
	}
	return Sample{Azimuth: *raw.Azimuth, Elevation: *raw.Elevation}, nil
}
