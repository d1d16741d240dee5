package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yegors/flight-tracker/internal/adsb"
	"github.com/yegors/flight-tracker/internal/api"
	"github.com/yegors/flight-tracker/internal/bus"
	"github.com/yegors/flight-tracker/internal/config"
	"github.com/yegors/flight-tracker/internal/flightaware"
	"github.com/yegors/flight-tracker/internal/storage/sqlite"
	"github.com/yegors/flight-tracker/internal/tracker"
	"github.com/yegors/flight-tracker/internal/weather"
	"github.com/yegors/flight-tracker/pkg/logger"
)

const cachePurgeInterval = time.Hour

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to TOML configuration file")
	envPath := flag.String("env", ".env", "Path to dotenv file, ignored when missing")
	flag.Parse()

	if err := run(*configPath, *envPath); err != nil {
		fmt.Fprintf(os.Stderr, "flight-tracker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string) error {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: configPath,
		EnvFile:    envPath,
	})
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	var store purgeableStore
	if cfg.Cache.Path != "" {
		db, err := sqlite.Open(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		store, err = sqlite.NewFlightCacheStorage(db, cfg.Cache.TTL, log)
		if err != nil {
			return err
		}
		log.Info("Using persistent flight details cache", logger.String("path", cfg.Cache.Path))
	} else {
		store = flightaware.NewMemoryStore(cfg.Cache.TTL)
	}

	g.Go(func() error {
		purgeLoop(gctx, store, log)
		return nil
	})

	adsbClient := adsb.NewClient(cfg.ADSB.BaseURL, cfg.ADSB.Timeout, log)
	aeroClient := flightaware.NewClient(cfg.FlightAware.BaseURL, cfg.FlightAware.APIKey, cfg.FlightAware.Timeout, log)
	resolver := flightaware.NewResolver(aeroClient, store,
		flightaware.NewRateLimiter(cfg.FlightAware.RequestsPerMinute), log)
	weatherClient := weather.NewClient(cfg.Weather.BaseURL, cfg.Station.Timezone, cfg.Weather.Timeout, log)

	publisher, err := bus.Dial(cfg.Bus.URL, log)
	if err != nil {
		return &config.ConfigError{Problems: []string{fmt.Sprintf("bus.url (MQTT_BROKER_URL): %v", err)}, Err: err}
	}
	defer publisher.Close()

	detector := bus.NewChangeDetector(publisher, log)

	svc := tracker.NewService(adsbClient, resolver, weatherClient, detector, tracker.Options{
		Latitude:        cfg.Station.Latitude,
		Longitude:       cfg.Station.Longitude,
		RadiusNM:        cfg.Station.RadiusNM,
		PollInterval:    cfg.ADSB.PollInterval,
		WeatherInterval: cfg.Weather.Interval,
	}, log)

	g.Go(func() error {
		return svc.Run(gctx)
	})

	if cfg.Server.Addr != "" {
		router := api.NewRouter(svc, detector, cfg.Server.CORSAllowedOrigins, log)
		g.Go(func() error {
			return api.Serve(gctx, cfg.Server.Addr, router.Routes(), log)
		})
	}

	err = g.Wait()
	log.Info("Shutdown complete")
	return err
}

// purgeableStore is a flight details store that can drop expired entries
type purgeableStore interface {
	flightaware.Store
	PurgeExpired(ctx context.Context) (int64, error)
}

// purgeLoop removes expired flight details so the cache does not grow with
// identifiers that are never seen again.
func purgeLoop(ctx context.Context, store purgeableStore, log *logger.Logger) {
	ticker := time.NewTicker(cachePurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				log.Warn("Failed to purge flight details cache", logger.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("Purged expired flight details", logger.Int64("rows", n))
			}
		}
	}
}
