package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigFile is the YAML file Load reads when present.
const DefaultConfigFile = "config.yaml"

// Config holds all configuration for ekaya-content.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, provider keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// ShutdownTimeout bounds how long the server waits for in-flight requests
	// and queued generation jobs on SIGTERM.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`

	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Generation GenerationConfig `yaml:"generation"`
	Retention  RetentionConfig  `yaml:"retention"`
	Providers  ProvidersConfig  `yaml:"providers"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWTSecret enables HS256 verification for tokens issued by the backend itself.
	JWTSecret string `yaml:"-" env:"JWT_SECRET"` // Secret - not in YAML

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_content"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	// ConnectAttempts retries the startup ping while Postgres refuses connections.
	ConnectAttempts int `yaml:"connect_attempts" env:"PGCONNECT_ATTEMPTS" env-default:"5"`
}

// RedisConfig holds the shared cache / rate-limit store configuration.
// An empty Host disables Redis.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// RateLimitConfig controls the sliding-window request limiter.
// Per-scope limits are a static table in pkg/ratelimit, not configuration.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	// LocalFallback uses an in-process store when Redis is not configured.
	// Only suitable for single-process development setups.
	LocalFallback bool `yaml:"local_fallback" env:"RATE_LIMIT_LOCAL_FALLBACK" env-default:"false"`
	// TrustForwardedFor takes the client IP from X-Forwarded-For when set.
	TrustForwardedFor bool `yaml:"trust_forwarded_for" env:"RATE_LIMIT_TRUST_FORWARDED_FOR" env-default:"true"`
}

// GenerationConfig sizes the background generation work queue.
type GenerationConfig struct {
	Workers     int           `yaml:"workers" env:"GENERATION_WORKERS" env-default:"4"`
	QueueSize   int           `yaml:"queue_size" env:"GENERATION_QUEUE_SIZE" env-default:"100"`
	UnitTimeout time.Duration `yaml:"unit_timeout" env:"GENERATION_UNIT_TIMEOUT" env-default:"6m"`
	// CarouselSlides is the number of images generated for a carousel unit.
	CarouselSlides int `yaml:"carousel_slides" env:"GENERATION_CAROUSEL_SLIDES" env-default:"3"`
	// TextProvider and ImageProvider/VideoProvider pick the provider per kind.
	TextProvider  string `yaml:"text_provider" env:"GENERATION_TEXT_PROVIDER" env-default:"openai"`
	ImageProvider string `yaml:"image_provider" env:"GENERATION_IMAGE_PROVIDER" env-default:"openai"`
	VideoProvider string `yaml:"video_provider" env:"GENERATION_VIDEO_PROVIDER" env-default:"runway"`
	// IdempotencyTTL is how long an Idempotency-Key on POST /content/generate
	// is remembered. Needs a rate limit store; zero disables it.
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env:"GENERATION_IDEMPOTENCY_TTL" env-default:"24h"`
}

// RetentionConfig controls the background project cleanup loop.
type RetentionConfig struct {
	Interval             time.Duration `yaml:"interval" env:"RETENTION_INTERVAL" env-default:"1h"`
	DeletedProjectDays   int           `yaml:"deleted_project_days" env:"RETENTION_DELETED_PROJECT_DAYS" env-default:"30"`
	StaleGeneratingAfter time.Duration `yaml:"stale_generating_after" env:"RETENTION_STALE_GENERATING_AFTER" env-default:"2h"`
}

// ProviderConfig configures one AI generation backend.
// A provider without an API key is not registered.
// Zero values are filled from providerDefaults after loading.
type ProviderConfig struct {
	APIKey            string        `yaml:"-" env:"API_KEY"` // Secret - not in YAML
	BaseURL           string        `yaml:"base_url" env:"BASE_URL"`
	Model             string        `yaml:"model" env:"MODEL"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"RPM"`
	PollInterval      time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	MaxPollAttempts   int           `yaml:"max_poll_attempts" env:"MAX_POLL_ATTEMPTS"`
}

// IsConfigured returns true if the provider has credentials.
func (p *ProviderConfig) IsConfigured() bool {
	return p.APIKey != ""
}

// ProvidersConfig holds per-provider settings.
// Environment variables are prefixed per provider, e.g. RUNWAY_API_KEY.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai" env-prefix:"OPENAI_"`
	Anthropic ProviderConfig `yaml:"anthropic" env-prefix:"ANTHROPIC_"`
	Stability ProviderConfig `yaml:"stability" env-prefix:"STABILITY_"`
	Runway    ProviderConfig `yaml:"runway" env-prefix:"RUNWAY_"`
	Leonardo  ProviderConfig `yaml:"leonardo" env-prefix:"LEONARDO_"`
	Veo       ProviderConfig `yaml:"google_veo" env-prefix:"GOOGLE_VEO_"`

	// OpenAIImageModel is the image model used for DALL-E style generation.
	OpenAIImageModel string `yaml:"openai_image_model" env:"OPENAI_IMAGE_MODEL" env-default:"dall-e-3"`

	// MockEnabled registers a deterministic offline provider for local development.
	MockEnabled bool `yaml:"mock_enabled" env:"MOCK_PROVIDER_ENABLED" env-default:"false"`
}

// providerDefaults mirrors documented vendor endpoints and limits.
var providerDefaults = map[string]ProviderConfig{
	"openai": {
		BaseURL: "https://api.openai.com/v1", Model: "gpt-4.1-mini", RequestsPerMinute: 60,
	},
	"anthropic": {
		Model: "claude-3-5-haiku-latest", RequestsPerMinute: 50,
	},
	"stability": {
		BaseURL: "https://api.stability.ai", Model: "stable-diffusion-xl-1024-v1-0", RequestsPerMinute: 150,
	},
	"runway": {
		BaseURL: "https://api.dev.runwayml.com", Model: "gen3a_turbo", RequestsPerMinute: 20,
		PollInterval: 5 * time.Second, MaxPollAttempts: 60,
	},
	"leonardo": {
		BaseURL: "https://cloud.leonardo.ai/api", Model: "6bef9f1b-29cb-40c7-b9df-32b51c1f67d3", RequestsPerMinute: 30,
		PollInterval: 2 * time.Second, MaxPollAttempts: 30,
	},
	"google_veo": {
		BaseURL: "https://generativelanguage.googleapis.com/v1beta", Model: "veo-2.0-generate-001", RequestsPerMinute: 10,
		PollInterval: 10 * time.Second, MaxPollAttempts: 36,
	},
}

func (c *ProvidersConfig) applyDefaults() {
	for name, pc := range map[string]*ProviderConfig{
		"openai":     &c.OpenAI,
		"anthropic":  &c.Anthropic,
		"stability":  &c.Stability,
		"runway":     &c.Runway,
		"leonardo":   &c.Leonardo,
		"google_veo": &c.Veo,
	} {
		def := providerDefaults[name]
		if pc.BaseURL == "" {
			pc.BaseURL = def.BaseURL
		}
		if pc.Model == "" {
			pc.Model = def.Model
		}
		if pc.RequestsPerMinute == 0 {
			pc.RequestsPerMinute = def.RequestsPerMinute
		}
		if pc.PollInterval == 0 {
			pc.PollInterval = def.PollInterval
		}
		if pc.MaxPollAttempts == 0 {
			pc.MaxPollAttempts = def.MaxPollAttempts
		}
	}
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error; environment variables and defaults are used.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := readConfig(DefaultConfigFile, cfg); err != nil {
		return nil, err
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)
	cfg.Providers.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func readConfig(path string, cfg *Config) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// validate rejects settings the server cannot run with.
func (c *Config) validate() error {
	if c.Generation.Workers < 1 {
		return fmt.Errorf("generation.workers must be at least 1, got %d", c.Generation.Workers)
	}
	if c.Generation.QueueSize < 1 {
		return fmt.Errorf("generation.queue_size must be at least 1, got %d", c.Generation.QueueSize)
	}
	if c.Generation.CarouselSlides < 1 {
		return fmt.Errorf("generation.carousel_slides must be at least 1, got %d", c.Generation.CarouselSlides)
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("retention.interval must be positive, got %s", c.Retention.Interval)
	}
	if c.Retention.StaleGeneratingAfter <= c.Generation.UnitTimeout {
		return fmt.Errorf("retention.stale_generating_after (%s) must exceed generation.unit_timeout (%s)",
			c.Retention.StaleGeneratingAfter, c.Generation.UnitTimeout)
	}
	if c.Auth.EnableVerification && c.Auth.JWTSecret == "" && c.Auth.JWKSEndpointsStr == "" {
		return errors.New("auth verification enabled but neither JWT_SECRET nor JWKS_ENDPOINTS is set")
	}
	return nil
}

// IsLocal reports whether the server runs in a local development environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "development"
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		issuer, jwksURL, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		endpoints[strings.TrimSpace(issuer)] = strings.TrimSpace(jwksURL)
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection URL suitable for pgxpool.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Addr returns the host:port Redis address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port)
}
