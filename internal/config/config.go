package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	InternalAPIKey string        `yaml:"internal_api_key"` // X-Internal-Key expected on /internal routes
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RatePerMinute caps submissions per user; 0 disables the limiter.
	RatePerMinute int `yaml:"rate_per_minute"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres|memory
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PolicyConfig struct {
	RejectThreshold float64 `yaml:"reject_threshold"`
	ReviewThreshold float64 `yaml:"review_threshold"`
}

type CapabilityConfig struct {
	BaseURL         string        `yaml:"base_url"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max in-flight capability calls
	// TextProvider selects the text moderator: http|openai.
	TextProvider string `yaml:"text_provider"`
	// SummaryProvider selects the summarizer: http|gemini.
	SummaryProvider string `yaml:"summary_provider"`
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIModel     string `yaml:"openai_model"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiModel     string `yaml:"gemini_model"`
	MaxInputTokens  int    `yaml:"max_input_tokens"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"` // s3|dir
	Dir     string `yaml:"dir"`
	TempDir string `yaml:"temp_dir"`
	S3      struct {
		Endpoint  string `yaml:"endpoint"`
		Region    string `yaml:"region"`
		Bucket    string `yaml:"bucket"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"s3"`
}

type CallbackConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type WorkerConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type AdminConfig struct {
	APIKey    string        `yaml:"api_key"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type SweepConfig struct {
	Interval   time.Duration `yaml:"interval"` // 0 disables the sweep
	StaleAfter time.Duration `yaml:"stale_after"`
	BatchSize  int           `yaml:"batch_size"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Policy     PolicyConfig     `yaml:"policy"`
	Capability CapabilityConfig `yaml:"capability"`
	Storage    StorageConfig    `yaml:"storage"`
	Callback   CallbackConfig   `yaml:"callback"`
	Worker     WorkerConfig     `yaml:"worker"`
	Admin      AdminConfig      `yaml:"admin"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Sweep      SweepConfig      `yaml:"sweep"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes yaml, applies env overrides and defaults, then validates.
func Parse(b []byte, lookup LookupFunc) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if lookup != nil {
		if err := applyEnv(&cfg, lookup); err != nil {
			return nil, err
		}
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	float := func(key string, dst *float64) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = f
		return nil
	}

	if err := float("REJECT_THRESHOLD", &cfg.Policy.RejectThreshold); err != nil {
		return err
	}
	if err := float("REVIEW_THRESHOLD", &cfg.Policy.ReviewThreshold); err != nil {
		return err
	}
	if v, ok := lookup("REQUEST_TIMEOUT_SECONDS"); ok && strings.TrimSpace(v) != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || secs <= 0 {
			return fmt.Errorf("env REQUEST_TIMEOUT_SECONDS: invalid value %q", v)
		}
		cfg.Capability.RequestTimeout = time.Duration(secs) * time.Second
	}
	str("INTERNAL_API_KEY", &cfg.Server.InternalAPIKey)
	str("CAPABILITY_BASE_URL", &cfg.Capability.BaseURL)
	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)
	str("CALLBACK_BASE_URL", &cfg.Callback.BaseURL)
	str("ADMIN_API_KEY", &cfg.Admin.APIKey)
	str("ADMIN_JWT_SECRET", &cfg.Admin.JWTSecret)
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	// both thresholds unset means the built-in policy
	if cfg.Policy.RejectThreshold == 0 && cfg.Policy.ReviewThreshold == 0 {
		cfg.Policy.RejectThreshold = 0.8
		cfg.Policy.ReviewThreshold = 0.4
	}
	if cfg.Capability.RequestTimeout <= 0 {
		cfg.Capability.RequestTimeout = 30 * time.Second
	}
	if cfg.Capability.ConcurrentLimit <= 0 {
		cfg.Capability.ConcurrentLimit = 8
	}
	if cfg.Capability.TextProvider == "" {
		cfg.Capability.TextProvider = "http"
	}
	if cfg.Capability.SummaryProvider == "" {
		cfg.Capability.SummaryProvider = "http"
	}
	if cfg.Capability.OpenAIModel == "" {
		cfg.Capability.OpenAIModel = "omni-moderation-latest"
	}
	if cfg.Capability.GeminiModel == "" {
		cfg.Capability.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.Capability.MaxInputTokens <= 0 {
		cfg.Capability.MaxInputTokens = 4000
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "dir"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "./media"
	}
	if cfg.Callback.Timeout <= 0 {
		cfg.Callback.Timeout = 5 * time.Second
	}
	if cfg.Worker.Workers <= 0 {
		cfg.Worker.Workers = 4
	}
	if cfg.Worker.QueueSize <= 0 {
		cfg.Worker.QueueSize = 256
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 12 * time.Hour
	}
	if cfg.Sweep.StaleAfter <= 0 {
		cfg.Sweep.StaleAfter = 10 * time.Minute
	}
	if cfg.Sweep.BatchSize <= 0 {
		cfg.Sweep.BatchSize = 100
	}
}

// Validate performs minimal validation.
func (c *Config) Validate() error {
	if c.Server.InternalAPIKey == "" {
		return errors.New("server.internal_api_key is required")
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	p := c.Policy
	if p.ReviewThreshold < 0 || p.ReviewThreshold >= p.RejectThreshold || p.RejectThreshold > 1 {
		return fmt.Errorf("policy thresholds must satisfy 0 <= review < reject <= 1, got review=%v reject=%v",
			p.ReviewThreshold, p.RejectThreshold)
	}
	switch c.Capability.TextProvider {
	case "http", "openai":
	default:
		return fmt.Errorf("capability.text_provider %q is not supported", c.Capability.TextProvider)
	}
	switch c.Capability.SummaryProvider {
	case "http", "gemini":
	default:
		return fmt.Errorf("capability.summary_provider %q is not supported", c.Capability.SummaryProvider)
	}
	if c.Capability.BaseURL == "" {
		return errors.New("capability.base_url is required")
	}
	if c.Capability.TextProvider == "openai" && c.Capability.OpenAIKey == "" {
		return errors.New("capability.openai_key is required for the openai text provider")
	}
	if c.Capability.SummaryProvider == "gemini" && c.Capability.GeminiKey == "" {
		return errors.New("capability.gemini_key is required for the gemini summarizer")
	}
	switch c.Storage.Backend {
	case "dir":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	if c.Callback.BaseURL == "" {
		return errors.New("callback.base_url is required")
	}
	if c.Admin.APIKey != "" && c.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is required when admin.api_key is set")
	}
	return nil
}
