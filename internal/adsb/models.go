package adsb

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Aircraft is one aircraft seen inside the query radius at fetch time
type Aircraft struct {
	Flight     string       `json:"flight"`
	Type       string       `json:"type"`
	Altitude   BaroAltitude `json:"altitude"`
	SpeedKnots float64      `json:"speedKnots"`
	SpeedMph   float64      `json:"speedMph"`
}

// PointResponse is the body returned by the /v2/point endpoint
type PointResponse struct {
	Msg   string        `json:"msg"`
	Now   float64       `json:"now"` // milliseconds since epoch
	Total int           `json:"total"`
	AC    []PointTarget `json:"ac"`
}

// PointTarget is a single aircraft record in a PointResponse
type PointTarget struct {
	Flight       string       `json:"flight"` // padded with spaces by the feed
	Registration string       `json:"r"`
	Type         string       `json:"t"`
	AltBaro      BaroAltitude `json:"alt_baro"`
	GS           float64      `json:"gs"`
}

// Convert normalizes a raw target into an Aircraft
func (t PointTarget) Convert() Aircraft {
	return Aircraft{
		Flight:     strings.TrimSpace(t.Flight),
		Type:       t.Type,
		Altitude:   t.AltBaro,
		SpeedKnots: t.GS,
		SpeedMph:   KnotsToMph(t.GS),
	}
}

// BaroAltitude is a barometric altitude exactly as the feed reported it:
// feet, the literal "ground", some other string, or nothing at all.
type BaroAltitude struct {
	Feet     float64
	OnGround bool
	// Raw holds a string value other than "ground", kept verbatim
	Raw   string
	Valid bool
}

// Feet returns a reported altitude in feet
func Feet(ft float64) BaroAltitude {
	return BaroAltitude{Feet: ft, Valid: true}
}

// Ground returns the altitude reported for aircraft on the ground
func Ground() BaroAltitude {
	return BaroAltitude{OnGround: true, Valid: true}
}

// UnmarshalJSON accepts a number, any string or null
func (a *BaroAltitude) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = BaroAltitude{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "ground" {
			*a = Ground()
		} else {
			*a = BaroAltitude{Raw: s, Valid: true}
		}
		return nil
	}

	var ft float64
	if err := json.Unmarshal(data, &ft); err != nil {
		return fmt.Errorf("unexpected altitude value %s: %w", data, err)
	}
	*a = Feet(ft)
	return nil
}

// MarshalJSON writes the altitude back in the feed's own representation
func (a BaroAltitude) MarshalJSON() ([]byte, error) {
	switch {
	case !a.Valid:
		return []byte("null"), nil
	case a.OnGround:
		return []byte(`"ground"`), nil
	case a.Raw != "":
		return json.Marshal(a.Raw)
	default:
		return json.Marshal(a.Feet)
	}
}
