package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/onboard/internal/shared/paths"
)

// Prefix namespaces every environment variable. Leaf names are split on
// word boundaries: APIConfig.BaseURL reads ONBOARD_API_BASE_URL.
const Prefix = "ONBOARD"

// Config holds all SDK and dev server configuration.
type Config struct {
	API       APIConfig       `envconfig:"API"`
	Client    ClientConfig    `envconfig:"CLIENT"`
	Cache     CacheConfig     `envconfig:"CACHE"`
	Events    EventsConfig    `envconfig:"EVENTS"`
	Logging   LogConfig       `envconfig:"LOG"`
	DevServer DevServerConfig `envconfig:"DEV"`
}

// APIConfig holds resolution backend configuration.
type APIConfig struct {
	BaseURL           string        `split_words:"true" default:"http://127.0.0.1:8787"`
	Key               string        `split_words:"true"`
	Environment       string        `split_words:"true" default:"sandbox"`
	Timeout           time.Duration `split_words:"true" default:"10s"`
	RequestsPerSecond float64       `split_words:"true" default:"0"`
	Burst             int           `split_words:"true" default:"10"`
	CompletionRetries int           `split_words:"true" default:"3"`
}

// ClientConfig identifies the embedding application in request headers.
type ClientConfig struct {
	SDKVersion string `split_words:"true" default:"1.0.0"`
	Platform   string `split_words:"true" default:"go"`
	AppVersion string `split_words:"true"`
}

// CacheConfig holds local cache and staleness policy configuration.
type CacheConfig struct {
	Policy                 string `split_words:"true" default:"network_first"`
	Dir                    string `split_words:"true"`
	Disabled               bool   `split_words:"true" default:"false"`
	RespectLocalCompletion bool   `split_words:"true" default:"true"`
}

// EventsConfig holds analytics dispatcher configuration.
type EventsConfig struct {
	QueueSize    int           `split_words:"true" default:"256"`
	Disabled     bool          `split_words:"true" default:"false"`
	DrainTimeout time.Duration `split_words:"true" default:"5s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `split_words:"true" default:"info"`
	Development bool   `split_words:"true" default:"false"`
}

// DevServerConfig holds sandbox backend configuration.
type DevServerConfig struct {
	Host              string `split_words:"true" default:"127.0.0.1"`
	Port              string `split_words:"true" default:"8787"`
	CampaignsFile     string `split_words:"true" default:"campaigns.yaml"`
	FlowsDir          string `split_words:"true" default:"flows"`
	APIKey            string `split_words:"true"`
	RequestsPerSecond int    `split_words:"true" default:"50"`
	Burst             int    `split_words:"true" default:"100"`
	RateLimitEnabled  bool   `split_words:"true" default:"true"`
}

// Addr returns host:port
func (d DevServerConfig) Addr() string {
	return d.Host + ":" + d.Port
}

var (
	environments = map[string]bool{"sandbox": true, "production": true}
	policies     = map[string]bool{"cache_first": true, "network_first": true, "network_only": true}
)

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://127.0.0.1:8787",
			Environment:       "sandbox",
			Timeout:           10 * time.Second,
			Burst:             10,
			CompletionRetries: 3,
		},
		Client: ClientConfig{
			SDKVersion: "1.0.0",
			Platform:   "go",
		},
		Cache: CacheConfig{
			Policy:                 "network_first",
			RespectLocalCompletion: true,
		},
		Events: EventsConfig{
			QueueSize:    256,
			DrainTimeout: 5 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		DevServer: DevServerConfig{
			Host:              "127.0.0.1",
			Port:              "8787",
			CampaignsFile:     paths.CampaignsFile,
			FlowsDir:          paths.FlowsDir,
			RequestsPerSecond: 50,
			Burst:             100,
			RateLimitEnabled:  true,
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.API.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("api base url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("api base url %q must be http or https", c.API.BaseURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("api base url %q has no host", c.API.BaseURL))
	}
	if !environments[c.API.Environment] {
		errs = append(errs, fmt.Errorf("unknown environment %q (want sandbox or production)", c.API.Environment))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api timeout must be positive"))
	}
	if c.API.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("api rate limit cannot be negative"))
	}
	if c.API.CompletionRetries < 0 {
		errs = append(errs, errors.New("completion retries cannot be negative"))
	}
	if !policies[c.Cache.Policy] {
		errs = append(errs, fmt.Errorf("unknown cache policy %q", c.Cache.Policy))
	}
	if c.Events.QueueSize <= 0 {
		errs = append(errs, errors.New("event queue size must be positive"))
	}
	if c.DevServer.Port == "" {
		errs = append(errs, errors.New("dev server port is required"))
	}
	if c.DevServer.RateLimitEnabled && c.DevServer.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("dev server rate limit must be positive when enabled"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
