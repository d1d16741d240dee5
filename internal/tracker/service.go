// Package tracker runs the poll, resolve and publish loop.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yegors/flight-tracker/internal/adsb"
	"github.com/yegors/flight-tracker/internal/bus"
	"github.com/yegors/flight-tracker/internal/flightaware"
	"github.com/yegors/flight-tracker/internal/metrics"
	"github.com/yegors/flight-tracker/internal/weather"
	"github.com/yegors/flight-tracker/pkg/logger"
)

// Defaults for Options fields left at zero
const (
	DefaultPollInterval    = 30 * time.Second
	DefaultWeatherInterval = 30 * time.Minute
	DefaultRadiusNM        = 3
)

// AircraftSource returns aircraft around a point
type AircraftSource interface {
	FetchAircraft(ctx context.Context, lat, lon, radiusNM float64) ([]adsb.Aircraft, error)
}

// RouteResolver resolves flight identifiers to route details
type RouteResolver interface {
	Resolve(ctx context.Context, idents []string) map[string]*flightaware.FlightDetails
}

// WeatherSource returns current conditions at a point
type WeatherSource interface {
	FetchWeather(ctx context.Context, lat, lon float64) (*weather.WeatherData, error)
}

// ChangePublisher publishes values that differ from the last published one
type ChangePublisher interface {
	PublishIfChanged(ctx context.Context, topic string, value any) (bool, error)
}

// Options configures the loop
type Options struct {
	Latitude        float64
	Longitude       float64
	RadiusNM        float64
	PollInterval    time.Duration
	WeatherInterval time.Duration
}

// Service polls aircraft and weather and publishes changes
type Service struct {
	aircraft  AircraftSource
	routes    RouteResolver
	weather   WeatherSource
	publisher ChangePublisher
	opts      Options
	now       func() time.Time
	logger    *logger.Logger

	// Owned by the loop goroutine
	lastWeatherFetch time.Time

	mu     sync.RWMutex
	status Status
}

// NewService creates a new tracker service
func NewService(
	aircraft AircraftSource,
	routes RouteResolver,
	weather WeatherSource,
	publisher ChangePublisher,
	opts Options,
	logger *logger.Logger,
) *Service {
	if opts.RadiusNM <= 0 {
		opts.RadiusNM = DefaultRadiusNM
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.WeatherInterval <= 0 {
		opts.WeatherInterval = DefaultWeatherInterval
	}

	return &Service{
		aircraft:  aircraft,
		routes:    routes,
		weather:   weather,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
		logger:    logger.Named("tracker"),
	}
}

// Run executes cycles until ctx is cancelled, sleeping PollInterval after
// each one. A failing or panicking cycle never stops the loop.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.status.StartedAt = s.now()
	s.mu.Unlock()

	s.logger.Info("Starting flight tracker",
		logger.Float64("latitude", s.opts.Latitude),
		logger.Float64("longitude", s.opts.Longitude),
		logger.Float64("radius_nm", s.opts.RadiusNM),
		logger.Duration("poll_interval", s.opts.PollInterval),
		logger.Duration("weather_interval", s.opts.WeatherInterval),
	)

	timer := time.NewTimer(s.opts.PollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			break
		}

		s.RunCycle(ctx)

		timer.Reset(s.opts.PollInterval)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}

	s.logger.Info("Flight tracker stopped")
	return nil
}

// RunCycle performs a single iteration: aircraft, then weather if due
func (s *Service) RunCycle(ctx context.Context) {
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordCycleError("panic")
			s.logger.Error("Recovered from panic in tracker cycle",
				logger.String("panic", fmt.Sprint(r)),
			)
		}

		elapsed := s.now().Sub(start)
		metrics.RecordCycle(elapsed)

		s.mu.Lock()
		s.status.Cycles++
		s.status.LastCycleAt = start
		s.status.LastCycleDuration = elapsed
		s.mu.Unlock()
	}()

	s.trackAircraft(ctx)
	if ctx.Err() != nil {
		return
	}
	s.refreshWeather(ctx)
}

func (s *Service) trackAircraft(ctx context.Context) {
	aircraft, err := s.aircraft.FetchAircraft(ctx, s.opts.Latitude, s.opts.Longitude, s.opts.RadiusNM)
	if err != nil {
		metrics.RecordCycleError("aircraft")
		s.logger.Error("Failed to fetch aircraft", logger.Error(err))
		s.setAircraftStatus(0, err)
		return
	}

	metrics.TrackedAircraft.Set(float64(len(aircraft)))
	s.setAircraftStatus(len(aircraft), nil)

	idents := make([]string, 0, len(aircraft))
	for _, ac := range aircraft {
		if ac.Flight != "" {
			idents = append(idents, ac.Flight)
		}
	}

	var routes map[string]*flightaware.FlightDetails
	if len(idents) > 0 {
		routes = s.routes.Resolve(ctx, idents)
	}

	tracked := Merge(aircraft, routes)

	s.logger.Debug("Aircraft cycle",
		logger.Int("aircraft", len(aircraft)),
		logger.Int("identifiers", len(idents)),
	)

	if _, err := s.publisher.PublishIfChanged(ctx, bus.TopicAircraft, tracked); err != nil {
		metrics.RecordCycleError("publish")
		s.logger.Error("Failed to publish aircraft", logger.Error(err))
	}
}

func (s *Service) refreshWeather(ctx context.Context) {
	if !s.lastWeatherFetch.IsZero() && s.now().Sub(s.lastWeatherFetch) < s.opts.WeatherInterval {
		return
	}

	wx, err := s.weather.FetchWeather(ctx, s.opts.Latitude, s.opts.Longitude)
	if err != nil {
		// lastWeatherFetch stays put so the next cycle retries
		metrics.RecordCycleError("weather")
		s.logger.Error("Failed to fetch weather", logger.Error(err))
		s.setWeatherStatus(time.Time{}, err)
		return
	}

	s.lastWeatherFetch = s.now()
	s.setWeatherStatus(s.lastWeatherFetch, nil)

	if _, err := s.publisher.PublishIfChanged(ctx, bus.TopicWeather, wx); err != nil {
		metrics.RecordCycleError("publish")
		s.logger.Error("Failed to publish weather", logger.Error(err))
	}
}

func (s *Service) setAircraftStatus(count int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status.LastAircraftError = err.Error()
		return
	}
	s.status.LastAircraftFetch = s.now()
	s.status.LastAircraftError = ""
	s.status.AircraftCount = count
}

func (s *Service) setWeatherStatus(at time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status.LastWeatherError = err.Error()
		return
	}
	s.status.LastWeatherFetch = at
	s.status.LastWeatherError = ""
}

// Status returns a copy of the loop's current status
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
