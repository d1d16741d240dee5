package adsb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/flight-tracker/internal/upstream"
	"github.com/yegors/flight-tracker/pkg/logger"
)

// DefaultBaseURL is the public airplanes.live API
const DefaultBaseURL = "https://api.airplanes.live"

// Client fetches aircraft positions around a point
type Client struct {
	baseURL string
	http    *upstream.Client
	logger  *logger.Logger
}

// NewClient creates a new ADS-B client
func NewClient(baseURL string, timeout time.Duration, logger *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	l := logger.Named("adsb-cli")
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    upstream.NewClient("airplanes.live", timeout, l),
		logger:  l,
	}
}

// FetchAircraft returns every aircraft within radiusNM nautical miles of the
// given point. An empty result is an empty, non-nil slice.
func (c *Client) FetchAircraft(ctx context.Context, lat, lon, radiusNM float64) ([]Aircraft, error) {
	url := fmt.Sprintf("%s/v2/point/%s/%s/%s",
		c.baseURL, formatCoord(lat), formatCoord(lon), formatCoord(radiusNM))

	c.logger.Debug("Fetching aircraft",
		logger.String("url", url),
	)

	var data PointResponse
	if err := c.http.GetJSON(ctx, url, nil, &data); err != nil {
		return nil, err
	}

	if data.Total == 0 {
		return []Aircraft{}, nil
	}

	aircraft := make([]Aircraft, 0, len(data.AC))
	for _, target := range data.AC {
		aircraft = append(aircraft, target.Convert())
	}

	c.logger.Debug("Successfully fetched aircraft",
		logger.Int("aircraft_count", len(aircraft)),
		logger.String("msg", data.Msg),
	)

	return aircraft, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
