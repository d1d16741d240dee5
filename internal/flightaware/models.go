package flightaware

// FlightDetails is the route and status metadata resolved for one flight
// identifier. Optional fields are empty when the API did not provide them.
type FlightDetails struct {
	Ident        string  `json:"ident"`
	Origin       string  `json:"origin,omitempty"`
	Destination  string  `json:"destination,omitempty"`
	ScheduledOut string  `json:"scheduledOut,omitempty"`
	ActualOut    string  `json:"actualOut,omitempty"`
	Status       string  `json:"status,omitempty"`
	Operator     *string `json:"operator"` // nil when the API reports no operator
}

// FlightsResponse is the body of GET /aeroapi/flights/{ident}
type FlightsResponse struct {
	Flights []Flight `json:"flights"`
}

// Flight is the subset of the AeroAPI BaseFlight schema used here
type Flight struct {
	Ident           string      `json:"ident"`
	OperatorICAO    *string     `json:"operator_icao"`
	Origin          *AirportRef `json:"origin"`
	Destination     *AirportRef `json:"destination"`
	ScheduledOut    *string     `json:"scheduled_out"`
	ActualOut       *string     `json:"actual_out"`
	Status          *string     `json:"status"`
	ProgressPercent *float64    `json:"progress_percent"`
}

// AirportRef is a reference to an airport in flight data
type AirportRef struct {
	CodeIATA *string `json:"code_iata"`
	CodeICAO *string `json:"code_icao"`
}

// Code returns the IATA code when present, otherwise the ICAO code
func (a *AirportRef) Code() string {
	if a == nil {
		return ""
	}
	if a.CodeIATA != nil && *a.CodeIATA != "" {
		return *a.CodeIATA
	}
	if a.CodeICAO != nil && *a.CodeICAO != "" {
		return *a.CodeICAO
	}
	return ""
}

// IsActive reports whether the flight is en route, i.e. strictly between
// departure and arrival.
func (f *Flight) IsActive() bool {
	return f.ProgressPercent != nil && *f.ProgressPercent > 0 && *f.ProgressPercent < 100
}

// Details converts the flight into FlightDetails
func (f *Flight) Details() *FlightDetails {
	return &FlightDetails{
		Ident:        f.Ident,
		Origin:       f.Origin.Code(),
		Destination:  f.Destination.Code(),
		ScheduledOut: deref(f.ScheduledOut),
		ActualOut:    deref(f.ActualOut),
		Status:       deref(f.Status),
		Operator:     f.OperatorICAO,
	}
}

// SelectActive returns the details of the first active flight in API order,
// or nil when none is en route.
func SelectActive(flights []Flight) *FlightDetails {
	for i := range flights {
		if flights[i].IsActive() {
			return flights[i].Details()
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
