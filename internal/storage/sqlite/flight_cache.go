package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/yegors/flight-tracker/internal/flightaware"
	"github.com/yegors/flight-tracker/pkg/logger"
)

// FlightCacheStorage persists resolved flight details so that a restart does
// not repeat lookups. Entries expire ttl after they are written and expired
// rows are treated as missing.
type FlightCacheStorage struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewFlightCacheStorage creates the cache table if needed and drops rows
// that expired while the process was not running.
func NewFlightCacheStorage(db *sql.DB, ttl time.Duration, log *logger.Logger) (*FlightCacheStorage, error) {
	storage := &FlightCacheStorage{
		db:     db,
		ttl:    ttl,
		now:    time.Now,
		logger: log.Named("sqlite-flights"),
	}

	if err := storage.initDB(); err != nil {
		return nil, err
	}

	purged, err := storage.PurgeExpired(context.Background())
	if err != nil {
		return nil, err
	}
	if purged > 0 {
		storage.logger.Info("Purged expired flight details", logger.Int64("rows", purged))
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *FlightCacheStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS flight_details_cache (
			ident TEXT PRIMARY KEY,
			details TEXT,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flight_details_cache table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_flight_details_cache_expires_at ON flight_details_cache(expires_at)`)
	if err != nil {
		return fmt.Errorf("failed to create flight_details_cache index: %w", err)
	}

	return nil
}

// Get implements flightaware.Store
func (s *FlightCacheStorage) Get(ctx context.Context, ident string) (*flightaware.FlightDetails, bool, error) {
	var details sql.NullString
	var expiresAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT details, expires_at FROM flight_details_cache WHERE ident = ?`,
		ident,
	).Scan(&details, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query flight details: %w", err)
	}

	if s.now().UnixMilli() >= expiresAt {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM flight_details_cache WHERE ident = ?`, ident); err != nil {
			return nil, false, fmt.Errorf("failed to evict flight details: %w", err)
		}
		return nil, false, nil
	}

	if !details.Valid {
		return nil, true, nil
	}

	var d flightaware.FlightDetails
	if err := json.Unmarshal([]byte(details.String), &d); err != nil {
		return nil, false, fmt.Errorf("failed to decode flight details for %s: %w", ident, err)
	}
	return &d, true, nil
}

// Set implements flightaware.Store. A nil details is stored as NULL.
func (s *FlightCacheStorage) Set(ctx context.Context, ident string, details *flightaware.FlightDetails) error {
	var encoded sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode flight details: %w", err)
		}
		encoded = sql.NullString{String: string(data), Valid: true}
	}

	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flight_details_cache (ident, details, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ident) DO UPDATE SET
			details = excluded.details,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		ident,
		encoded,
		now.Add(s.ttl).UnixMilli(),
		now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to store flight details: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired row and returns how many were removed
func (s *FlightCacheStorage) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM flight_details_cache WHERE expires_at <= ?`,
		s.now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired flight details: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}
