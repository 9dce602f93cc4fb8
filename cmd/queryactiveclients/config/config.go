package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	EnvUser            = "ATWS_USER"
	EnvPassword        = "ATWS_PASSWORD"
	EnvIntegrationCode = "ATWS_INTEGRATION_CODE"
	EnvZoneLookupURL   = "ATWS_ZONE_LOOKUP_URL"
	EnvTimeout         = "ATWS_TIMEOUT"
	EnvRetryMax        = "ATWS_RETRY_MAX"
	EnvMaxMessageSize  = "ATWS_MAX_MESSAGE_SIZE"
	EnvSecurityMode    = "ATWS_SECURITY_MODE"
	EnvZoneCacheTTL    = "ATWS_ZONE_CACHE_TTL"
	EnvLogLevel        = "LOG_LEVEL"
)

const (
	// DefaultZoneLookupURL is the endpoint that answers getZoneInfo for every
	// user, regardless of the zone the account lives in.
	DefaultZoneLookupURL  = "https://webservices.autotask.net/atservices/1.6/atws.asmx"
	DefaultTimeout        = 60 * time.Second
	DefaultMaxMessageSize = 2147483647
	DefaultZoneCacheTTL   = 24 * time.Hour
	DefaultSecurityMode   = "transport"
)

var ErrMissingCredentials = errors.New("missing credentials")

type Config struct {
	UserName        string
	Password        string
	IntegrationCode string
	ZoneLookupURL   string
	Timeout         time.Duration
	RetryMax        int
	MaxMessageSize  int64
	SecurityMode    string
	ZoneCacheTTL    time.Duration
	LogLevel        zerolog.Level
}

// Load reads the configuration from the process environment, falling back to
// the values in the .env file at path. A missing file is not an error.
func Load(path string) (*Config, error) {
	file := map[string]string{}
	if path != "" {
		values, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if values != nil {
			file = values
		}
	}

	get := func(key, def string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		if v, ok := file[key]; ok && v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		UserName:        get(EnvUser, ""),
		Password:        get(EnvPassword, ""),
		IntegrationCode: get(EnvIntegrationCode, ""),
		ZoneLookupURL:   get(EnvZoneLookupURL, DefaultZoneLookupURL),
		SecurityMode:    get(EnvSecurityMode, DefaultSecurityMode),
	}

	var err error
	if cfg.Timeout, err = parseDuration(EnvTimeout, get(EnvTimeout, ""), DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.ZoneCacheTTL, err = parseDuration(EnvZoneCacheTTL, get(EnvZoneCacheTTL, ""), DefaultZoneCacheTTL); err != nil {
		return nil, err
	}
	if cfg.RetryMax, err = strconv.Atoi(get(EnvRetryMax, "0")); err != nil || cfg.RetryMax < 0 {
		return nil, fmt.Errorf("invalid %s %q", EnvRetryMax, get(EnvRetryMax, ""))
	}
	if cfg.MaxMessageSize, err = strconv.ParseInt(get(EnvMaxMessageSize, strconv.Itoa(DefaultMaxMessageSize)), 10, 64); err != nil || cfg.MaxMessageSize <= 0 {
		return nil, fmt.Errorf("invalid %s %q", EnvMaxMessageSize, get(EnvMaxMessageSize, ""))
	}
	if cfg.LogLevel, err = zerolog.ParseLevel(get(EnvLogLevel, "info")); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvLogLevel, err)
	}

	return cfg, nil
}

// Validate checks that the credentials needed to query the service are set.
func (c *Config) Validate() error {
	if c.UserName == "" || c.Password == "" {
		return fmt.Errorf("%w: %s and %s are required", ErrMissingCredentials, EnvUser, EnvPassword)
	}
	return nil
}

func parseDuration(key, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
