package flightaware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yegors/flight-tracker/internal/upstream"
	"github.com/yegors/flight-tracker/pkg/logger"
)

type fakeFetcher struct {
	calls   map[string]int
	flights map[string][]Flight
	err     error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: map[string]int{}, flights: map[string][]Flight{}}
}

func (f *fakeFetcher) FetchFlights(_ context.Context, ident string) ([]Flight, error) {
	f.calls[ident]++
	if f.err != nil {
		return nil, f.err
	}
	return f.flights[ident], nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func ptr[T any](v T) *T { return &v }

func newTestResolver(fetcher FlightFetcher, clock *fakeClock) *Resolver {
	store := NewMemoryStoreWithClock(DefaultCacheTTL, clock.Now)
	return NewResolver(fetcher, store, nil, logger.NewNop())
}

func TestIsAirlineIdent(t *testing.T) {
	tests := []struct {
		ident string
		want  bool
	}{
		{"UAL123", true},
		{"DL1", true},
		{"BAW2491", true},
		{"N512SP", false},
		{"UAL12345", false},
		{"ual123", false},
		{"U123", false},
		{"ABCD12", false},
		{"UAL", false},
		{"", false},
		{"UAL123 ", false},
	}
	for _, tt := range tests {
		if got := IsAirlineIdent(tt.ident); got != tt.want {
			t.Errorf("IsAirlineIdent(%q) = %v, want %v", tt.ident, got, tt.want)
		}
	}
}

func TestResolveSkipsNonAirlineIdents(t *testing.T) {
	fetcher := newFakeFetcher()
	r := newTestResolver(fetcher, &fakeClock{t: time.Now()})

	result := r.Resolve(context.Background(), []string{"N512SP", "abc1", "GLIDER"})

	if len(result) != 3 {
		t.Fatalf("expected every input key in result, got %v", result)
	}
	for ident, d := range result {
		if d != nil {
			t.Errorf("expected nil for %s, got %+v", ident, d)
		}
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("expected no network calls, got %v", fetcher.calls)
	}
}

func TestResolvePicksActiveFlight(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.flights["UAL123"] = []Flight{
		{Ident: "UAL123", ProgressPercent: ptr(0.0), Origin: &AirportRef{CodeIATA: ptr("DEN")}},
		{Ident: "UAL123", ProgressPercent: ptr(50.0), OperatorICAO: ptr("UAL"),
			Origin:      &AirportRef{CodeIATA: ptr("SFO"), CodeICAO: ptr("KSFO")},
			Destination: &AirportRef{CodeICAO: ptr("KEWR")},
			Status:      ptr("En Route / On Time")},
		{Ident: "UAL123", ProgressPercent: ptr(75.0), Origin: &AirportRef{CodeIATA: ptr("LAX")}},
		{Ident: "UAL123", ProgressPercent: ptr(100.0), Origin: &AirportRef{CodeIATA: ptr("ORD")}},
	}
	r := newTestResolver(fetcher, &fakeClock{t: time.Now()})

	result := r.Resolve(context.Background(), []string{"UAL123"})

	d := result["UAL123"]
	if d == nil {
		t.Fatal("expected UAL123 to resolve")
	}
	if d.Origin != "SFO" {
		t.Errorf("expected first active flight (SFO), got %q", d.Origin)
	}
	if d.Destination != "KEWR" {
		t.Errorf("expected ICAO fallback KEWR, got %q", d.Destination)
	}
	if d.Status != "En Route / On Time" {
		t.Errorf("expected status passed through, got %q", d.Status)
	}
}

func TestResolveNoActiveFlight(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.flights["DAL45"] = []Flight{
		{Ident: "DAL45", ProgressPercent: ptr(0.0)},
		{Ident: "DAL45", ProgressPercent: ptr(100.0)},
		{Ident: "DAL45"},
	}
	r := newTestResolver(fetcher, &fakeClock{t: time.Now()})

	result := r.Resolve(context.Background(), []string{"DAL45"})
	if d, ok := result["DAL45"]; !ok || d != nil {
		t.Errorf("expected explicit nil for DAL45, got %+v (present=%v)", d, ok)
	}
}

func TestResolveUsesCacheWithinTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	fetcher := newFakeFetcher()
	fetcher.flights["UAL123"] = []Flight{{Ident: "UAL123", ProgressPercent: ptr(40.0)}}
	r := newTestResolver(fetcher, clock)

	r.Resolve(context.Background(), []string{"UAL123"})
	clock.t = clock.t.Add(23 * time.Hour)
	result := r.Resolve(context.Background(), []string{"UAL123"})

	if result["UAL123"] == nil {
		t.Error("expected cached details")
	}
	if fetcher.calls["UAL123"] != 1 {
		t.Errorf("expected 1 network call within TTL, got %d", fetcher.calls["UAL123"])
	}

	clock.t = clock.t.Add(2 * time.Hour)
	r.Resolve(context.Background(), []string{"UAL123"})
	if fetcher.calls["UAL123"] != 2 {
		t.Errorf("expected refetch after TTL, got %d calls", fetcher.calls["UAL123"])
	}
}

func TestResolveDeduplicates(t *testing.T) {
	fetcher := newFakeFetcher()
	r := newTestResolver(fetcher, &fakeClock{t: time.Now()})

	result := r.Resolve(context.Background(), []string{"SWA9", "SWA9", "SWA9", "N1"})
	if len(result) != 2 {
		t.Errorf("expected 2 distinct keys, got %d", len(result))
	}
	if fetcher.calls["SWA9"] != 1 {
		t.Errorf("expected 1 call for duplicated ident, got %d", fetcher.calls["SWA9"])
	}
}

func TestResolveRateLimitedUpstreamIsCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	clock := &fakeClock{t: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	client := NewClient(srv.URL, "key", 5*time.Second, logger.NewNop())
	r := newTestResolver(client, clock)

	result := r.Resolve(context.Background(), []string{"UAL123"})
	if d, ok := result["UAL123"]; !ok || d != nil {
		t.Fatalf("expected explicit nil after 429, got %+v", d)
	}

	clock.t = clock.t.Add(12 * time.Hour)
	r.Resolve(context.Background(), []string{"UAL123"})
	if got := hits.Load(); got != 1 {
		t.Errorf("expected failure to be cached, got %d upstream hits", got)
	}

	clock.t = clock.t.Add(12 * time.Hour)
	r.Resolve(context.Background(), []string{"UAL123"})
	if got := hits.Load(); got != 2 {
		t.Errorf("expected retry once the failure expires, got %d upstream hits", got)
	}
}

func TestResolveCancelledLookupNotCached(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.err = &upstream.FetchError{Source: "aeroapi", Err: context.Canceled}
	store := NewMemoryStore(DefaultCacheTTL)
	r := NewResolver(fetcher, store, nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Resolve(ctx, []string{"UAL123"})

	if _, ok, _ := store.Get(context.Background(), "UAL123"); ok {
		t.Error("cancelled lookup should not be cached")
	}
}

func TestResolveWaitsOnLimiter(t *testing.T) {
	fetcher := newFakeFetcher()
	limiter := NewRateLimiter(600) // one token every 100ms
	r := NewResolver(fetcher, NewMemoryStore(DefaultCacheTTL), limiter, logger.NewNop())

	start := time.Now()
	r.Resolve(context.Background(), []string{"AAL1", "AAL2", "AAL3"})
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("expected limiter to space out lookups, took %v", elapsed)
	}
	if NewRateLimiter(0) != nil {
		t.Error("expected nil limiter when disabled")
	}
}
