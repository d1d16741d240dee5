package flightaware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yegors/flight-tracker/internal/upstream"
	"github.com/yegors/flight-tracker/pkg/logger"
)

// DefaultBaseURL is the FlightAware AeroAPI host
const DefaultBaseURL = "https://aeroapi.flightaware.com"

// searchWindow is how far either side of now flights are looked up
const searchWindow = 48 * time.Hour

// Client queries AeroAPI for flights by identifier
type Client struct {
	baseURL string
	apiKey  string
	http    *upstream.Client
	now     func() time.Time
	logger  *logger.Logger
}

// NewClient creates a new AeroAPI client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	l := logger.Named("aeroapi-cli")
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    upstream.NewClient("aeroapi", timeout, l),
		now:     time.Now,
		logger:  l,
	}
}

// FetchFlights returns the flights AeroAPI knows for ident within 48 hours
// of the current instant, in API order.
func (c *Client) FetchFlights(ctx context.Context, ident string) ([]Flight, error) {
	now := c.now().UTC()
	start := now.Add(-searchWindow).Round(time.Second).Format(time.RFC3339)
	end := now.Add(searchWindow).Round(time.Second).Format(time.RFC3339)

	params := url.Values{
		"max_pages": {"1"},
		"start":     {start},
		"end":       {end},
	}
	fullURL := fmt.Sprintf("%s/aeroapi/flights/%s?%s", c.baseURL, url.PathEscape(ident), params.Encode())

	c.logger.Debug("Fetching flight details",
		logger.String("ident", ident),
		logger.String("url", fullURL),
		logger.String("start", start),
		logger.String("end", end),
	)

	header := http.Header{}
	header.Set("x-apikey", c.apiKey)

	var data FlightsResponse
	if err := c.http.GetJSON(ctx, fullURL, header, &data); err != nil {
		return nil, err
	}
	return data.Flights, nil
}
