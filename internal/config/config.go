// Package config loads the tracker configuration from defaults, an optional
// TOML file, an optional .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the full tracker configuration
type Config struct {
	Station     StationConfig     `toml:"station"`
	ADSB        ADSBConfig        `toml:"adsb"`
	FlightAware FlightAwareConfig `toml:"flightaware"`
	Weather     WeatherConfig     `toml:"weather"`
	Bus         BusConfig         `toml:"bus"`
	Logging     LoggingConfig     `toml:"logging"`
	Server      ServerConfig      `toml:"server"`
	Cache       CacheConfig       `toml:"cache"`
}

// StationConfig is the monitored point
type StationConfig struct {
	Latitude  float64 `toml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `toml:"longitude" validate:"gte=-180,lte=180"`
	RadiusNM  float64 `toml:"radius_nm" validate:"gt=0,lte=250"`
	// Timezone is passed to the weather API. Empty means GMT.
	Timezone string `toml:"timezone"`
}

// ADSBConfig configures the aircraft position source
type ADSBConfig struct {
	BaseURL      string        `toml:"base_url" validate:"omitempty,url"`
	Timeout      time.Duration `toml:"timeout" validate:"gt=0"`
	PollInterval time.Duration `toml:"poll_interval" validate:"gte=1s"`
}

// FlightAwareConfig configures the AeroAPI route source
type FlightAwareConfig struct {
	APIKey            string        `toml:"api_key" validate:"required"`
	BaseURL           string        `toml:"base_url" validate:"omitempty,url"`
	Timeout           time.Duration `toml:"timeout" validate:"gt=0"`
	RequestsPerMinute int           `toml:"requests_per_minute" validate:"gte=0"`
}

// WeatherConfig configures the Open-Meteo source
type WeatherConfig struct {
	BaseURL  string        `toml:"base_url" validate:"omitempty,url"`
	Timeout  time.Duration `toml:"timeout" validate:"gt=0"`
	Interval time.Duration `toml:"interval" validate:"gte=1m"`
}

// BusConfig selects the message broker
type BusConfig struct {
	URL string `toml:"url" validate:"required,url"`
}

// LoggingConfig mirrors logger.Config
type LoggingConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Format string `toml:"format" validate:"omitempty,oneof=console json"`
	File   string `toml:"file"`
}

// ServerConfig configures the optional status API
type ServerConfig struct {
	// Addr is the listen address. Empty disables the server.
	Addr string `toml:"addr" validate:"omitempty,hostname_port"`
	// CORSAllowedOrigins limits browser access. Empty allows any origin.
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// CacheConfig configures the flight details cache
type CacheConfig struct {
	// Path is a SQLite database file. Empty keeps the cache in memory.
	Path string        `toml:"path"`
	TTL  time.Duration `toml:"ttl" validate:"gt=0"`
}

// ConfigError reports configuration that prevents startup
type ConfigError struct {
	Problems []string
	Err      error
}

func (e *ConfigError) Error() string {
	if len(e.Problems) > 0 {
		return "invalid configuration: " + strings.Join(e.Problems, "; ")
	}
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Default returns the configuration used when nothing else is provided
func Default() *Config {
	return &Config{
		Station: StationConfig{
			RadiusNM: 3,
		},
		ADSB: ADSBConfig{
			Timeout:      10 * time.Second,
			PollInterval: 30 * time.Second,
		},
		FlightAware: FlightAwareConfig{
			Timeout:           10 * time.Second,
			RequestsPerMinute: 10,
		},
		Weather: WeatherConfig{
			Timeout:  10 * time.Second,
			Interval: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "flight_tracker.log",
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
	}
}

// LoadOptions names the optional files Load reads
type LoadOptions struct {
	// ConfigFile is a TOML file. Empty skips it.
	ConfigFile string
	// EnvFile is a dotenv file. A missing file is ignored.
	EnvFile string
}

// Load builds and validates the configuration. Any failure is a *ConfigError.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		if _, err := toml.DecodeFile(opts.ConfigFile, cfg); err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("failed to read %s: %w", opts.ConfigFile, err)}
		}
	}

	if opts.EnvFile != "" {
		// Variables already set in the environment take precedence
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Err: fmt.Errorf("failed to read %s: %w", opts.EnvFile, err)}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ConfigError{Err: err}
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if env, ok := envNames[field]; ok {
			field = fmt.Sprintf("%s (%s)", field, env)
		}
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			problems = append(problems, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return &ConfigError{Problems: problems, Err: err}
}

// Warnings lists settings that are valid but probably unintended
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Station.Latitude == 0 || c.Station.Longitude == 0 {
		warnings = append(warnings, "LATITUDE or LONGITUDE is 0; check the monitored point is set")
	}
	return warnings
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// envNames maps config fields to the environment variables that set them
var envNames = map[string]string{
	"station.latitude":                "LATITUDE",
	"station.longitude":               "LONGITUDE",
	"station.radius_nm":               "AREA_NAUTICAL_MILES",
	"station.timezone":                "TIMEZONE",
	"adsb.base_url":                   "ADSB_BASE_URL",
	"adsb.timeout":                    "ADSB_TIMEOUT",
	"adsb.poll_interval":              "POLL_INTERVAL",
	"flightaware.api_key":             "FLIGHTAWARE_API_KEY",
	"flightaware.base_url":            "FLIGHTAWARE_BASE_URL",
	"flightaware.timeout":             "FLIGHTAWARE_TIMEOUT",
	"flightaware.requests_per_minute": "AEROAPI_REQUESTS_PER_MINUTE",
	"weather.base_url":                "WEATHER_BASE_URL",
	"weather.timeout":                 "WEATHER_TIMEOUT",
	"weather.interval":                "WEATHER_INTERVAL",
	"bus.url":                         "MQTT_BROKER_URL",
	"logging.level":                   "LOG_LEVEL",
	"logging.format":                  "LOG_FORMAT",
	"logging.file":                    "LOG_FILE",
	"server.addr":                     "STATUS_ADDR",
	"cache.path":                      "FLIGHT_CACHE_PATH",
	"cache.ttl":                       "FLIGHT_CACHE_TTL",
}

func applyEnv(cfg *Config) error {
	var problems []string
	fail := func(key, value string, err error) {
		problems = append(problems, fmt.Sprintf("%s=%q: %v", key, value, err))
	}

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := lookupNonEmpty(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				fail(key, v, err)
				return
			}
			*dst = f
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := lookupNonEmpty(key); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				fail(key, v, err)
				return
			}
			*dst = i
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := lookupNonEmpty(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				fail(key, v, err)
				return
			}
			*dst = d
		}
	}

	setFloat("LATITUDE", &cfg.Station.Latitude)
	setFloat("LONGITUDE", &cfg.Station.Longitude)
	setFloat("AREA_NAUTICAL_MILES", &cfg.Station.RadiusNM)
	setString("TIMEZONE", &cfg.Station.Timezone)

	setString("ADSB_BASE_URL", &cfg.ADSB.BaseURL)
	setDuration("ADSB_TIMEOUT", &cfg.ADSB.Timeout)
	setDuration("POLL_INTERVAL", &cfg.ADSB.PollInterval)

	setString("FLIGHTAWARE_API_KEY", &cfg.FlightAware.APIKey)
	setString("FLIGHTAWARE_BASE_URL", &cfg.FlightAware.BaseURL)
	setDuration("FLIGHTAWARE_TIMEOUT", &cfg.FlightAware.Timeout)
	setInt("AEROAPI_REQUESTS_PER_MINUTE", &cfg.FlightAware.RequestsPerMinute)

	setString("WEATHER_BASE_URL", &cfg.Weather.BaseURL)
	setDuration("WEATHER_TIMEOUT", &cfg.Weather.Timeout)
	setDuration("WEATHER_INTERVAL", &cfg.Weather.Interval)

	setString("BUS_URL", &cfg.Bus.URL)
	setString("MQTT_BROKER_URL", &cfg.Bus.URL)

	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)
	setString("LOG_FILE", &cfg.Logging.File)

	setString("STATUS_ADDR", &cfg.Server.Addr)

	setString("FLIGHT_CACHE_PATH", &cfg.Cache.Path)
	setDuration("FLIGHT_CACHE_TTL", &cfg.Cache.TTL)

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

func lookupNonEmpty(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
