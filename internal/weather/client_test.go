package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/yegors/flight-tracker/internal/upstream"
	"github.com/yegors/flight-tracker/pkg/logger"
)

func newTestServer(t *testing.T, status int, body []byte) (*httptest.Server, *url.URL) {
	t.Helper()
	got := &url.URL{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = *r.URL
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestFetchWeather(t *testing.T) {
	body, err := os.ReadFile("testdata/forecast.json")
	if err != nil {
		t.Fatal(err)
	}
	srv, got := newTestServer(t, http.StatusOK, body)

	c := NewClient(srv.URL, "America/New_York", 5*time.Second, logger.NewNop())
	wx, err := c.FetchWeather(context.Background(), 40.6413, -73.7781)
	if err != nil {
		t.Fatal(err)
	}

	if got.Path != "/v1/forecast" {
		t.Errorf("unexpected request path %q", got.Path)
	}
	q := got.Query()
	wantParams := map[string]string{
		"latitude":           "40.6413",
		"longitude":          "-73.7781",
		"current":            currentFields,
		"temperature_unit":   "fahrenheit",
		"windspeed_unit":     "mph",
		"precipitation_unit": "inch",
		"timeformat":         "unixtime",
		"timezone":           "America/New_York",
	}
	for k, want := range wantParams {
		if v := q.Get(k); v != want {
			t.Errorf("param %s = %q, want %q", k, v, want)
		}
	}

	cur := wx.Current
	wantTime := time.Unix(1718715600-14400, 0).UTC()
	if !cur.Time.Equal(wantTime) {
		t.Errorf("expected offset-shifted time %v, got %v", wantTime, cur.Time)
	}
	if cur.Temperature != 78.4 {
		t.Errorf("expected temperature 78.4, got %v", cur.Temperature)
	}
	if cur.WeatherCode != 2 || cur.WeatherCondition != "Partly cloudy" {
		t.Errorf("unexpected condition %d %q", cur.WeatherCode, cur.WeatherCondition)
	}
	if cur.WindDirectionHeading != "SSW" {
		t.Errorf("expected heading SSW, got %q", cur.WindDirectionHeading)
	}
	if cur.RelativeHumidity != 61 || cur.WindSpeed != 9.6 {
		t.Errorf("unexpected humidity/wind %v/%v", cur.RelativeHumidity, cur.WindSpeed)
	}

	loc := wx.Location
	if loc.Timezone == nil || *loc.Timezone != "America/New_York" {
		t.Errorf("unexpected timezone %v", loc.Timezone)
	}
	if loc.TimezoneAbbreviation == nil || *loc.TimezoneAbbreviation != "EDT" {
		t.Errorf("unexpected timezone abbreviation %v", loc.TimezoneAbbreviation)
	}
	if loc.UTCOffsetSeconds == nil || *loc.UTCOffsetSeconds != -14400 {
		t.Errorf("unexpected offset %v", loc.UTCOffsetSeconds)
	}
}

func TestFetchWeatherWithoutTimezone(t *testing.T) {
	body := []byte(`{"latitude":1,"longitude":2,"current":{"time":1700000000,"weather_code":0,"wind_direction_10m":90}}`)
	srv, got := newTestServer(t, http.StatusOK, body)

	c := NewClient(srv.URL, "", 5*time.Second, logger.NewNop())
	wx, err := c.FetchWeather(context.Background(), 1, 2)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := got.Query()["timezone"]; ok {
		t.Error("timezone should not be sent when unset")
	}
	if !wx.Current.Time.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("expected unshifted time, got %v", wx.Current.Time)
	}
	if wx.Location.UTCOffsetSeconds != nil || wx.Location.Timezone != nil {
		t.Errorf("expected missing location fields to stay nil, got %+v", wx.Location)
	}
	if wx.Current.WindDirectionHeading != "E" {
		t.Errorf("expected heading E, got %q", wx.Current.WindDirectionHeading)
	}
}

func TestFetchWeatherMissingCurrent(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, []byte(`{"latitude":1,"longitude":2}`))

	c := NewClient(srv.URL, "", 5*time.Second, logger.NewNop())
	_, err := c.FetchWeather(context.Background(), 1, 2)
	if !errors.Is(err, ErrNoCurrent) {
		t.Fatalf("expected ErrNoCurrent, got %v", err)
	}
}

func TestFetchWeatherServerError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadGateway, []byte("bad gateway"))

	c := NewClient(srv.URL, "", 5*time.Second, logger.NewNop())
	_, err := c.FetchWeather(context.Background(), 1, 2)

	var fe *upstream.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *upstream.FetchError, got %T", err)
	}
	if fe.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", fe.StatusCode)
	}
}
