package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/flight-tracker/internal/upstream"
	"github.com/yegors/flight-tracker/pkg/logger"
)

// DefaultBaseURL is the public Open-Meteo forecast API
const DefaultBaseURL = "https://api.open-meteo.com"

const currentFields = "temperature_2m,weather_code,wind_speed_10m,wind_direction_10m,relative_humidity_2m,precipitation"

// ErrNoCurrent is returned when a forecast response carries no current block
var ErrNoCurrent = errors.New("forecast response has no current conditions")

// Client fetches current conditions from Open-Meteo
type Client struct {
	baseURL  string
	timezone string
	http     *upstream.Client
	logger   *logger.Logger
}

// NewClient creates a new weather client. timezone is passed through to the
// API when non-empty; otherwise Open-Meteo answers in GMT.
func NewClient(baseURL, timezone string, timeout time.Duration, logger *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	l := logger.Named("weather-cli")
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		timezone: timezone,
		http:     upstream.NewClient("open-meteo", timeout, l),
		logger:   l,
	}
}

// FetchWeather returns the current conditions at the given point
func (c *Client) FetchWeather(ctx context.Context, lat, lon float64) (*WeatherData, error) {
	params := url.Values{
		"latitude":           {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":          {strconv.FormatFloat(lon, 'f', -1, 64)},
		"current":            {currentFields},
		"temperature_unit":   {"fahrenheit"},
		"windspeed_unit":     {"mph"},
		"precipitation_unit": {"inch"},
		"timeformat":         {"unixtime"},
	}
	if c.timezone != "" {
		params.Set("timezone", c.timezone)
	}
	fullURL := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, params.Encode())

	c.logger.Debug("Fetching weather",
		logger.String("url", fullURL),
	)

	var data ForecastResponse
	if err := c.http.GetJSON(ctx, fullURL, nil, &data); err != nil {
		return nil, err
	}
	if data.Current == nil {
		return nil, &upstream.FetchError{Source: "open-meteo", URL: fullURL, Err: ErrNoCurrent}
	}

	wx := data.Convert()

	c.logger.Debug("Successfully fetched weather",
		logger.Float64("temperature", wx.Current.Temperature),
		logger.String("condition", wx.Current.WeatherCondition),
	)

	return wx, nil
}

// Convert derives a WeatherData snapshot from a forecast response. The
// current block must be present.
func (r *ForecastResponse) Convert() *WeatherData {
	cur := r.Current

	var offset int64
	if r.UTCOffsetSeconds != nil {
		offset = int64(*r.UTCOffsetSeconds)
	}

	code := int(math.Round(cur.WeatherCode))

	return &WeatherData{
		Current: Current{
			Time:                 time.Unix(cur.Time+offset, 0).UTC(),
			Temperature:          cur.Temperature2m,
			WeatherCode:          code,
			WeatherCondition:     Condition(code),
			WindSpeed:            cur.WindSpeed10m,
			WindDirection:        cur.WindDirection10m,
			WindDirectionHeading: CompassHeading(cur.WindDirection10m),
			RelativeHumidity:     cur.RelativeHumidity2m,
			Precipitation:        cur.Precipitation,
		},
		Location: Location{
			Latitude:             r.Latitude,
			Longitude:            r.Longitude,
			Timezone:             r.Timezone,
			TimezoneAbbreviation: r.TimezoneAbbreviation,
			UTCOffsetSeconds:     r.UTCOffsetSeconds,
		},
	}
}
