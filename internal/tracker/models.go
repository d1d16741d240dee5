package tracker

import (
	"time"

	"github.com/yegors/flight-tracker/internal/adsb"
	"github.com/yegors/flight-tracker/internal/flightaware"
)

// RouteSummary is the part of the resolved flight details that is published
// alongside each aircraft
type RouteSummary struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// TrackedAircraft is the published view of one aircraft
type TrackedAircraft struct {
	adsb.Aircraft
	FlightDetails RouteSummary `json:"flightDetails"`
}

// Merge attaches resolved routes to aircraft, preserving order. Aircraft
// without an identifier or without a resolved route get an empty summary.
// The result is never nil.
func Merge(aircraft []adsb.Aircraft, routes map[string]*flightaware.FlightDetails) []TrackedAircraft {
	tracked := make([]TrackedAircraft, 0, len(aircraft))
	for _, ac := range aircraft {
		t := TrackedAircraft{Aircraft: ac}
		if ac.Flight != "" {
			if d := routes[ac.Flight]; d != nil {
				t.FlightDetails = RouteSummary{
					Origin:      d.Origin,
					Destination: d.Destination,
				}
			}
		}
		tracked = append(tracked, t)
	}
	return tracked
}

// Status describes the loop's recent activity
type Status struct {
	StartedAt         time.Time     `json:"startedAt"`
	Cycles            int64         `json:"cycles"`
	LastCycleAt       time.Time     `json:"lastCycleAt"`
	LastCycleDuration time.Duration `json:"lastCycleDurationNs"`
	LastAircraftFetch time.Time     `json:"lastAircraftFetch"`
	LastAircraftError string        `json:"lastAircraftError,omitempty"`
	AircraftCount     int           `json:"aircraftCount"`
	LastWeatherFetch  time.Time     `json:"lastWeatherFetch"`
	LastWeatherError  string        `json:"lastWeatherError,omitempty"`
}
