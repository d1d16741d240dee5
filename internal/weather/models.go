package weather

import "time"

// WeatherData is one point-in-time weather snapshot for the monitored point
type WeatherData struct {
	Current  Current  `json:"current"`
	Location Location `json:"location"`
}

// Current holds the current conditions in imperial units
type Current struct {
	// Time is the observation time shifted by the location's UTC offset
	Time                 time.Time `json:"time"`
	Temperature          float64   `json:"temperature"` // °F
	WeatherCode          int       `json:"weatherCode"` // WMO code
	WeatherCondition     string    `json:"weatherCondition"`
	WindSpeed            float64   `json:"windSpeed"`     // mph
	WindDirection        float64   `json:"windDirection"` // degrees
	WindDirectionHeading string    `json:"windDirectionHeading"`
	RelativeHumidity     float64   `json:"relativeHumidity"` // %
	Precipitation        float64   `json:"precipitation"`    // inches
}

// Location is the grid point the API answered for. Any field may be missing.
type Location struct {
	Latitude             *float64 `json:"latitude"`
	Longitude            *float64 `json:"longitude"`
	Timezone             *string  `json:"timezone"`
	TimezoneAbbreviation *string  `json:"timezoneAbbreviation"`
	UTCOffsetSeconds     *int     `json:"utcOffsetSeconds"`
}

// ForecastResponse is the subset of the Open-Meteo forecast body we request
type ForecastResponse struct {
	Latitude             *float64       `json:"latitude"`
	Longitude            *float64       `json:"longitude"`
	UTCOffsetSeconds     *int           `json:"utc_offset_seconds"`
	Timezone             *string        `json:"timezone"`
	TimezoneAbbreviation *string        `json:"timezone_abbreviation"`
	Current              *CurrentValues `json:"current"`
}

// CurrentValues is the "current" block of a forecast response, requested
// with timeformat=unixtime.
type CurrentValues struct {
	Time               int64   `json:"time"`
	Temperature2m      float64 `json:"temperature_2m"`
	WeatherCode        float64 `json:"weather_code"`
	WindSpeed10m       float64 `json:"wind_speed_10m"`
	WindDirection10m   float64 `json:"wind_direction_10m"`
	RelativeHumidity2m float64 `json:"relative_humidity_2m"`
	Precipitation      float64 `json:"precipitation"`
}
