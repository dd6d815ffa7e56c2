package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultServiceName         = "mstore-quote"
	defaultEnv                 = "dev"
	defaultAddr                = ":8080"
	defaultMaxExecutionSeconds = 60
	defaultReadTimeout         = 15 * time.Second
	defaultShutdownTimeout     = 10 * time.Second
	defaultLogLevel            = "info"
	defaultSessionTTL          = 48 * time.Hour
	defaultSessionPrefix       = "session"
	defaultKafkaTopic          = "cart.stock_adjusted"
	defaultBreakerMaxRequests  = 1
	defaultBreakerInterval     = time.Minute
	defaultBreakerTimeout      = 30 * time.Second
	defaultBreakerFailures     = 5
	defaultSampleRate          = 1.0
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Service  string         `yaml:"service" validate:"required"`
	Env      string         `yaml:"env" validate:"required"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	License  LicenseConfig  `yaml:"license"`
	Session  SessionConfig  `yaml:"session"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Coupons  []CouponConfig `yaml:"coupons" validate:"dive"`
	Shipping ShippingConfig `yaml:"shipping"`
	Payment  PaymentConfig  `yaml:"payment"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Features FeatureFlags   `yaml:"features"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// ServerConfig configures the HTTP listener and the per-request wall-clock budget.
type ServerConfig struct {
	Addr                string        `yaml:"addr" validate:"required"`
	MaxExecutionSeconds int           `yaml:"max_execution_seconds" validate:"gt=0"`
	ReadTimeout         time.Duration `yaml:"read_timeout" validate:"gt=0"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// MaxExecution is the request budget as a duration.
func (s ServerConfig) MaxExecution() time.Duration {
	return time.Duration(s.MaxExecutionSeconds) * time.Second
}

type LicenseConfig struct {
	PurchaseCode string `yaml:"purchase_code"`
}

// SessionConfig selects the session store; an empty RedisAddr keeps sessions in memory.
type SessionConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
	Prefix        string        `yaml:"prefix" validate:"required"`
	TTL           time.Duration `yaml:"ttl" validate:"gt=0"`
}

// CatalogConfig selects the catalog; an empty MySQLDSN serves the seeded products from memory.
type CatalogConfig struct {
	MySQLDSN string          `yaml:"mysql_dsn"`
	Products []ProductConfig `yaml:"products" validate:"dive"`
}

type ProductConfig struct {
	ID       int64  `yaml:"id" validate:"gt=0"`
	ParentID int64  `yaml:"parent_id" validate:"gte=0"`
	Name     string `yaml:"name" validate:"required"`
	Price    string `yaml:"price" validate:"required,money"`
	// InStock defaults to true.
	InStock *bool `yaml:"in_stock"`
	// Stock is nil for untracked stock.
	Stock        *int `yaml:"stock"`
	Virtual      bool `yaml:"virtual"`
	Subscription bool `yaml:"subscription"`
	TrialDays    int  `yaml:"trial_days" validate:"gte=0"`
}

type CouponConfig struct {
	Code    string `yaml:"code" validate:"required"`
	Percent int    `yaml:"percent" validate:"gte=0,lte=100"`
	Amount  string `yaml:"amount" validate:"omitempty,money"`
}

type ShippingConfig struct {
	Zones []ZoneConfig `yaml:"zones" validate:"dive"`
}

// ZoneConfig is a set of countries sharing shipping methods. No countries matches everywhere.
type ZoneConfig struct {
	Name      string         `yaml:"name" validate:"required"`
	Countries []string       `yaml:"countries"`
	Methods   []MethodConfig `yaml:"methods" validate:"dive"`
}

type MethodConfig struct {
	MethodID   string `yaml:"method_id" validate:"required"`
	InstanceID int    `yaml:"instance_id" validate:"gte=0"`
	Label      string `yaml:"label" validate:"required"`
	Cost       string `yaml:"cost" validate:"omitempty,money"`
	PerItem    string `yaml:"per_item" validate:"omitempty,money"`
	FreeAbove  string `yaml:"free_above" validate:"omitempty,money"`
	// TaxBps is the shipping tax rate in basis points.
	TaxBps int64 `yaml:"tax_bps" validate:"gte=0"`
}

type PaymentConfig struct {
	Gateways []GatewayConfig `yaml:"gateways" validate:"dive"`
}

// GatewayConfig describes a payment gateway and an optional CEL availability rule.
type GatewayConfig struct {
	ID            string `yaml:"id" validate:"required"`
	Title         string `yaml:"title" validate:"required"`
	MethodTitle   string `yaml:"method_title"`
	Description   string `yaml:"description"`
	Disabled      bool   `yaml:"disabled"`
	AvailableWhen string `yaml:"available_when"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" validate:"gt=0"`
	Interval         time.Duration `yaml:"interval" validate:"gte=0"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `yaml:"failure_threshold" validate:"gt=0"`
}

// KafkaConfig enables the Kafka adjustment publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic" validate:"required"`
}

type TracingConfig struct {
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	Subscriptions bool `yaml:"subscriptions"`
}

// ValidationError lists the config fields that failed validation.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return "config: invalid fields: " + strings.Join(e.fields, ", ")
}

func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	file         string
	envMap       map[string]string
	useSystemEnv bool
}

// WithFile reads YAML from path before environment overrides. A missing file is an error.
func WithFile(path string) Option {
	return func(o *loaderOptions) { o.file = path }
}

// WithEnvMap injects values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Service: defaultServiceName,
		Env:     defaultEnv,
		Log:     LogConfig{Level: defaultLogLevel},
		Server: ServerConfig{
			Addr:                defaultAddr,
			MaxExecutionSeconds: defaultMaxExecutionSeconds,
			ReadTimeout:         defaultReadTimeout,
			ShutdownTimeout:     defaultShutdownTimeout,
		},
		Session: SessionConfig{Prefix: defaultSessionPrefix, TTL: defaultSessionTTL},
		Breaker: BreakerConfig{
			MaxRequests:      defaultBreakerMaxRequests,
			Interval:         defaultBreakerInterval,
			Timeout:          defaultBreakerTimeout,
			FailureThreshold: defaultBreakerFailures,
		},
		Kafka:   KafkaConfig{Topic: defaultKafkaTopic},
		Tracing: TracingConfig{SampleRate: defaultSampleRate},
	}
}

// Load assembles configuration from defaults, an optional YAML file and environment overrides,
// then validates it.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := Default()
	if options.file != "" {
		raw, err := os.ReadFile(options.file)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", options.file, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", options.file, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			return os.LookupEnv(key)
		}
		return "", false
	}
	applyEnv(&cfg, lookup)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	cfg.Service = stringWithDefault(lookup, "SERVICE_NAME", cfg.Service)
	cfg.Env = stringWithDefault(lookup, "ENV", cfg.Env)
	cfg.Log.Level = strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", cfg.Log.Level))
	cfg.Server.Addr = stringWithDefault(lookup, "HTTP_ADDR", cfg.Server.Addr)
	cfg.Server.MaxExecutionSeconds = intWithDefault(lookup, "MAX_EXECUTION_SECONDS", cfg.Server.MaxExecutionSeconds)
	cfg.License.PurchaseCode = stringWithDefault(lookup, "PURCHASE_CODE", cfg.License.PurchaseCode)
	cfg.Session.RedisAddr = stringWithDefault(lookup, "REDIS_ADDR", cfg.Session.RedisAddr)
	cfg.Session.RedisPassword = stringWithDefault(lookup, "REDIS_PASSWORD", cfg.Session.RedisPassword)
	cfg.Session.TTL = durationWithDefault(lookup, "SESSION_TTL", cfg.Session.TTL)
	cfg.Catalog.MySQLDSN = stringWithDefault(lookup, "MYSQL_DSN", cfg.Catalog.MySQLDSN)
	if brokers := csv(lookup, "KAFKA_BROKERS"); len(brokers) > 0 {
		cfg.Kafka.Brokers = brokers
	}
	cfg.Kafka.Topic = stringWithDefault(lookup, "KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Tracing.Endpoint = stringWithDefault(lookup, "OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Features.Subscriptions = boolWithDefault(lookup, "SUBSCRIPTIONS_ENABLED", cfg.Features.Subscriptions)
}

var validate = func() func(Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		return isMoney(fl.Field().String())
	})
	return func(cfg Config) error {
		err := v.Struct(cfg)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config: validate: %w", err)
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.TrimPrefix(fe.Namespace(), "Config."))
		}
		return &ValidationError{fields: fields}
	}
}()

// isMoney accepts non-negative decimals with at most two fraction digits.
func isMoney(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	whole, frac, found := strings.Cut(s, ".")
	if whole == "" || !digits(whole) {
		return false
	}
	if found && (frac == "" || len(frac) > 2 || !digits(frac)) {
		return false
	}
	return true
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csv(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
