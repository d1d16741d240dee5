package flightaware

import (
	"context"
	"time"

	"github.com/yegors/flight-tracker/internal/cache"
)

// DefaultCacheTTL is how long a resolution, including a failed one, is reused
const DefaultCacheTTL = 24 * time.Hour

// Store keeps resolved flight details between cycles. A stored nil means the
// identifier was looked up and resolved to nothing.
type Store interface {
	Get(ctx context.Context, ident string) (*FlightDetails, bool, error)
	Set(ctx context.Context, ident string, details *FlightDetails) error
}

// MemoryStore is a Store backed by an in-process TTL cache
type MemoryStore struct {
	entries *cache.TTL[*FlightDetails]
}

// NewMemoryStore creates an in-memory store whose entries live for ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: cache.NewTTL[*FlightDetails](ttl)}
}

// NewMemoryStoreWithClock is NewMemoryStore with an explicit time source
func NewMemoryStoreWithClock(ttl time.Duration, now func() time.Time) *MemoryStore {
	return &MemoryStore{entries: cache.NewTTLWithClock[*FlightDetails](ttl, now)}
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, ident string) (*FlightDetails, bool, error) {
	d, ok := s.entries.Get(ident)
	return d, ok, nil
}

// Set implements Store
func (s *MemoryStore) Set(_ context.Context, ident string, details *FlightDetails) error {
	s.entries.Set(ident, details)
	return nil
}

// PurgeExpired drops entries that expired without being read again
func (s *MemoryStore) PurgeExpired(_ context.Context) (int64, error) {
	return int64(s.entries.Purge()), nil
}
