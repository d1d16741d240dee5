package flightaware

import (
	"context"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/yegors/flight-tracker/internal/metrics"
	"github.com/yegors/flight-tracker/pkg/logger"
)

// airlineIdentPattern matches airline callsigns such as UAL123. General
// aviation registrations like N512SP do not match.
var airlineIdentPattern = regexp.MustCompile(`^[A-Z]{2,3}\d{1,4}$`)

// IsAirlineIdent reports whether ident looks like an airline flight number
func IsAirlineIdent(ident string) bool {
	return airlineIdentPattern.MatchString(ident)
}

// FlightFetcher looks up flights for one identifier
type FlightFetcher interface {
	FetchFlights(ctx context.Context, ident string) ([]Flight, error)
}

// Resolver maps flight identifiers to route details, consulting the store
// before the network.
type Resolver struct {
	fetcher FlightFetcher
	store   Store
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewResolver creates a resolver. limiter may be nil to disable throttling.
func NewResolver(fetcher FlightFetcher, store Store, limiter *rate.Limiter, logger *logger.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		store:   store,
		limiter: limiter,
		logger:  logger.Named("flightaware"),
	}
}

// NewRateLimiter allows perMinute lookups per minute, one at a time. It
// returns nil when perMinute is not positive.
func NewRateLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Resolve returns details for every distinct identifier in idents. Each one
// is present in the result; nil means nothing could be resolved.
// Identifiers are processed one at a time in input order.
func (r *Resolver) Resolve(ctx context.Context, idents []string) map[string]*FlightDetails {
	result := make(map[string]*FlightDetails, len(idents))

	for _, ident := range idents {
		if _, seen := result[ident]; seen {
			continue
		}
		result[ident] = r.resolve(ctx, ident)
	}

	return result
}

func (r *Resolver) resolve(ctx context.Context, ident string) *FlightDetails {
	if !IsAirlineIdent(ident) {
		metrics.RecordRouteLookup("skipped")
		return nil
	}

	details, ok, err := r.store.Get(ctx, ident)
	if err != nil {
		r.logger.Warn("Flight details cache read failed",
			logger.String("ident", ident),
			logger.Error(err))
	} else if ok {
		metrics.RecordRouteLookup("cache_hit")
		return details
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			r.logger.Debug("Flight lookup abandoned while waiting for rate limiter",
				logger.String("ident", ident),
				logger.Error(err))
			return nil
		}
	}

	flights, err := r.fetcher.FetchFlights(ctx, ident)
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; the next run should try again
			return nil
		}
		metrics.RecordRouteLookup("failed")
		r.logger.Warn("FlightAware lookup failed",
			logger.String("ident", ident),
			logger.Error(err))
		r.remember(ctx, ident, nil)
		return nil
	}

	details = SelectActive(flights)
	metrics.RecordRouteLookup("fetched")
	r.logger.Debug("Resolved flight",
		logger.String("ident", ident),
		logger.Int("flights", len(flights)),
		logger.Bool("active", details != nil))

	r.remember(ctx, ident, details)
	return details
}

func (r *Resolver) remember(ctx context.Context, ident string, details *FlightDetails) {
	if err := r.store.Set(ctx, ident, details); err != nil {
		r.logger.Warn("Flight details cache write failed",
			logger.String("ident", ident),
			logger.Error(err))
	}
}
