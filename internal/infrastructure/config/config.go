package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Scheduler   SchedulerConfig
	Swagger     SwaggerConfig
	Telemetry   TelemetryConfig
	Profiling   ProfilingConfig
	Storage     StorageConfig
	Pricing     PricingConfig
	Strategy    StrategyConfig
	Execution   ExecutionConfig
	Webhook     WebhookConfig
	Marketplace MarketplaceConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	SQLitePath      string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// SchedulerConfig holds pipeline job configuration
type SchedulerConfig struct {
	Enabled          bool
	StrategyInterval time.Duration
	ExecuteInterval  time.Duration
	RetryInterval    time.Duration
	SweepInterval    time.Duration
	JobTimeout       time.Duration
	BatchLimit       int
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled    bool     // Whether to enable Swagger endpoint
	AllowedIPs []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	LogsEnabled       bool // Export zap entries to the collector as OTLP logs
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string // e.g. "http://pyroscope:4040"
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string // cpu, alloc_objects, alloc_space, inuse_objects, inuse_space, goroutines, mutex, block
	MutexFraction     int
	BlockRate         int
}

// StorageConfig holds S3-compatible object storage settings for rate table exports
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// PricingConfig holds price solver defaults. Rates are fractions.
type PricingConfig struct {
	DefaultTargetMargin float64
	DefaultDutyRate     float64
	DefaultPlatform     string
	DefaultAccount      string
	BatchConcurrency    int
	MaxBatchSize        int
}

// StrategyWeights weights the composite candidate score
type StrategyWeights struct {
	Margin   float64
	Profit   float64
	Platform float64
}

// StrategyConfig holds scorer weights and hard constraints
type StrategyConfig struct {
	Weights            StrategyWeights
	MinMargin          float64
	MinProfit          float64
	MinPrice           float64
	MaxPrice           float64
	BlockedBrands      []string
	BlockedTitleTerms  []string
	ExcludedCategories []string
	ExcludedKeywords   []string
	Concurrency        int
	BatchLimit         int
}

// ExecutionConfig holds dispatcher and retry settings
type ExecutionConfig struct {
	AdapterTimeout     time.Duration
	MaxRetries         int
	BackoffBase        time.Duration
	BackoffMax         time.Duration
	AccountConcurrency int
	BatchConcurrency   int
	BatchLimit         int
	StaleAfter         time.Duration
	StatsWindow        time.Duration
}

// WebhookConfig holds inbound webhook settings
type WebhookConfig struct {
	Secret           string
	AutoExecuteScore float64
	IdempotencyTTL   time.Duration
}

// MarketplaceConfig holds adapter credentials per marketplace
type MarketplaceConfig struct {
	Ebay             EbayConfig
	Shopee           ShopeeConfig
	SettingsCacheTTL time.Duration // 0 disables the settings cache
}

// EbayConfig holds eBay Sell API settings
type EbayConfig struct {
	Enabled       bool
	BaseURL       string
	AccessToken   string
	MarketplaceID string
	Timeout       time.Duration
}

// ShopeeConfig holds Shopee Open Platform settings
type ShopeeConfig struct {
	Enabled    bool
	BaseURL    string
	PartnerID  int64
	PartnerKey string
	ShopID     int64
	Token      string
	Timeout    time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with N3_ prefix (e.g., N3_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return FromViper(v)
}

// FromViper builds, defaults and validates a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("N3")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          v.GetBool("scheduler.enabled"),
			StrategyInterval: v.GetDuration("scheduler.strategy_interval"),
			ExecuteInterval:  v.GetDuration("scheduler.execute_interval"),
			RetryInterval:    v.GetDuration("scheduler.retry_interval"),
			SweepInterval:    v.GetDuration("scheduler.sweep_interval"),
			JobTimeout:       v.GetDuration("scheduler.job_timeout"),
			BatchLimit:       v.GetInt("scheduler.batch_limit"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			ApplicationName:   v.GetString("profiling.application_name"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
			ProfileTypes:      v.GetStringSlice("profiling.profile_types"),
			MutexFraction:     v.GetInt("profiling.mutex_fraction"),
			BlockRate:         v.GetInt("profiling.block_rate"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Pricing: PricingConfig{
			DefaultTargetMargin: v.GetFloat64("pricing.default_target_margin"),
			DefaultDutyRate:     v.GetFloat64("pricing.default_duty_rate"),
			DefaultPlatform:     v.GetString("pricing.default_platform"),
			DefaultAccount:      v.GetString("pricing.default_account"),
			BatchConcurrency:    v.GetInt("pricing.batch_concurrency"),
			MaxBatchSize:        v.GetInt("pricing.max_batch_size"),
		},
		Strategy: StrategyConfig{
			Weights: StrategyWeights{
				Margin:   v.GetFloat64("strategy.weights.margin"),
				Profit:   v.GetFloat64("strategy.weights.profit"),
				Platform: v.GetFloat64("strategy.weights.platform"),
			},
			MinMargin:          v.GetFloat64("strategy.min_margin"),
			MinProfit:          v.GetFloat64("strategy.min_profit"),
			MinPrice:           v.GetFloat64("strategy.min_price"),
			MaxPrice:           v.GetFloat64("strategy.max_price"),
			BlockedBrands:      v.GetStringSlice("strategy.blocked_brands"),
			BlockedTitleTerms:  v.GetStringSlice("strategy.blocked_title_terms"),
			ExcludedCategories: v.GetStringSlice("strategy.excluded_categories"),
			ExcludedKeywords:   v.GetStringSlice("strategy.excluded_keywords"),
			Concurrency:        v.GetInt("strategy.concurrency"),
			BatchLimit:         v.GetInt("strategy.batch_limit"),
		},
		Execution: ExecutionConfig{
			AdapterTimeout:     v.GetDuration("execution.adapter_timeout"),
			MaxRetries:         v.GetInt("execution.max_retries"),
			BackoffBase:        v.GetDuration("execution.backoff_base"),
			BackoffMax:         v.GetDuration("execution.backoff_max"),
			AccountConcurrency: v.GetInt("execution.account_concurrency"),
			BatchConcurrency:   v.GetInt("execution.batch_concurrency"),
			BatchLimit:         v.GetInt("execution.batch_limit"),
			StaleAfter:         v.GetDuration("execution.stale_after"),
			StatsWindow:        v.GetDuration("execution.stats_window"),
		},
		Webhook: WebhookConfig{
			Secret:           v.GetString("webhook.secret"),
			AutoExecuteScore: v.GetFloat64("webhook.auto_execute_score"),
			IdempotencyTTL:   v.GetDuration("webhook.idempotency_ttl"),
		},
		Marketplace: MarketplaceConfig{
			SettingsCacheTTL: v.GetDuration("marketplace.settings_cache_ttl"),
			Ebay: EbayConfig{
				Enabled:       v.GetBool("marketplace.ebay.enabled"),
				BaseURL:       v.GetString("marketplace.ebay.base_url"),
				AccessToken:   v.GetString("marketplace.ebay.access_token"),
				MarketplaceID: v.GetString("marketplace.ebay.marketplace_id"),
				Timeout:       v.GetDuration("marketplace.ebay.timeout"),
			},
			Shopee: ShopeeConfig{
				Enabled:    v.GetBool("marketplace.shopee.enabled"),
				BaseURL:    v.GetString("marketplace.shopee.base_url"),
				PartnerID:  v.GetInt64("marketplace.shopee.partner_id"),
				PartnerKey: v.GetString("marketplace.shopee.partner_key"),
				ShopID:     v.GetInt64("marketplace.shopee.shop_id"),
				Token:      v.GetString("marketplace.shopee.token"),
				Timeout:    v.GetDuration("marketplace.shopee.timeout"),
			},
		},
	}

	applyDefaults(cfg, v)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.App.Name == "" {
		cfg.App.Name = "n3-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "n3.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "n3"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// An empty origin list means no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Webhook-Signature"}
	}
	if cfg.Scheduler.StrategyInterval == 0 {
		cfg.Scheduler.StrategyInterval = 15 * time.Minute
	}
	if cfg.Scheduler.ExecuteInterval == 0 {
		cfg.Scheduler.ExecuteInterval = 15 * time.Minute
	}
	if cfg.Scheduler.RetryInterval == 0 {
		cfg.Scheduler.RetryInterval = time.Minute
	}
	if cfg.Scheduler.SweepInterval == 0 {
		cfg.Scheduler.SweepInterval = 5 * time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
	if cfg.Scheduler.BatchLimit == 0 {
		cfg.Scheduler.BatchLimit = 200
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "n3-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.Profiling.ServerAddress == "" {
		cfg.Profiling.ServerAddress = "http://localhost:4040"
	}
	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.Telemetry.ServiceName
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}
	}
	if cfg.Profiling.MutexFraction == 0 {
		cfg.Profiling.MutexFraction = 5
	}
	if cfg.Profiling.BlockRate == 0 {
		cfg.Profiling.BlockRate = 5
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}

	// Zero is a legitimate margin, so only fill when the key is absent.
	if !v.IsSet("pricing.default_target_margin") {
		cfg.Pricing.DefaultTargetMargin = 0.15
	}
	if !v.IsSet("pricing.default_duty_rate") {
		cfg.Pricing.DefaultDutyRate = 0.05
	}
	if cfg.Pricing.DefaultPlatform == "" {
		cfg.Pricing.DefaultPlatform = "EBAY"
	}
	if cfg.Pricing.DefaultAccount == "" {
		cfg.Pricing.DefaultAccount = "default"
	}
	if cfg.Pricing.BatchConcurrency == 0 {
		cfg.Pricing.BatchConcurrency = 8
	}
	if cfg.Pricing.MaxBatchSize == 0 {
		cfg.Pricing.MaxBatchSize = 500
	}

	w := &cfg.Strategy.Weights
	if w.Margin == 0 && w.Profit == 0 && w.Platform == 0 {
		*w = StrategyWeights{Margin: 0.5, Profit: 0.3, Platform: 0.2}
	}
	if cfg.Strategy.Concurrency == 0 {
		cfg.Strategy.Concurrency = 8
	}
	if cfg.Strategy.BatchLimit == 0 {
		cfg.Strategy.BatchLimit = 500
	}

	if cfg.Execution.AdapterTimeout == 0 {
		cfg.Execution.AdapterTimeout = 30 * time.Second
	}
	if cfg.Execution.MaxRetries == 0 {
		cfg.Execution.MaxRetries = 5
	}
	if cfg.Execution.BackoffBase == 0 {
		cfg.Execution.BackoffBase = time.Minute
	}
	if cfg.Execution.BackoffMax == 0 {
		cfg.Execution.BackoffMax = time.Hour
	}
	if cfg.Execution.AccountConcurrency == 0 {
		cfg.Execution.AccountConcurrency = 2
	}
	if cfg.Execution.BatchConcurrency == 0 {
		cfg.Execution.BatchConcurrency = 8
	}
	if cfg.Execution.BatchLimit == 0 {
		cfg.Execution.BatchLimit = 200
	}
	if cfg.Execution.StaleAfter == 0 {
		cfg.Execution.StaleAfter = 10 * time.Minute
	}
	if cfg.Execution.StatsWindow == 0 {
		cfg.Execution.StatsWindow = 24 * time.Hour
	}

	if cfg.Webhook.IdempotencyTTL == 0 {
		cfg.Webhook.IdempotencyTTL = 24 * time.Hour
	}

	if !v.IsSet("marketplace.settings_cache_ttl") {
		cfg.Marketplace.SettingsCacheTTL = time.Minute
	}
	if cfg.Marketplace.Ebay.BaseURL == "" {
		cfg.Marketplace.Ebay.BaseURL = "https://api.ebay.com"
	}
	if cfg.Marketplace.Ebay.MarketplaceID == "" {
		cfg.Marketplace.Ebay.MarketplaceID = "EBAY_US"
	}
	if cfg.Marketplace.Ebay.Timeout == 0 {
		cfg.Marketplace.Ebay.Timeout = 20 * time.Second
	}
	if cfg.Marketplace.Shopee.BaseURL == "" {
		cfg.Marketplace.Shopee.BaseURL = "https://partner.shopeemobile.com"
	}
	if cfg.Marketplace.Shopee.Timeout == 0 {
		cfg.Marketplace.Shopee.Timeout = 20 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Pricing.DefaultTargetMargin < 0 || c.Pricing.DefaultTargetMargin >= 1 {
		return fmt.Errorf("pricing.default_target_margin must be in [0, 1), got %f", c.Pricing.DefaultTargetMargin)
	}
	if c.Pricing.DefaultDutyRate < 0 {
		return fmt.Errorf("pricing.default_duty_rate cannot be negative")
	}
	w := c.Strategy.Weights
	if w.Margin < 0 || w.Profit < 0 || w.Platform < 0 {
		return fmt.Errorf("strategy.weights cannot be negative")
	}
	if c.Strategy.MaxPrice > 0 && c.Strategy.MinPrice > c.Strategy.MaxPrice {
		return fmt.Errorf("strategy.min_price (%f) cannot exceed strategy.max_price (%f)",
			c.Strategy.MinPrice, c.Strategy.MaxPrice)
	}
	if c.Execution.MaxRetries < 0 {
		return fmt.Errorf("execution.max_retries cannot be negative")
	}
	if c.Execution.BackoffMax < c.Execution.BackoffBase {
		return fmt.Errorf("execution.backoff_max cannot be below execution.backoff_base")
	}
	if c.Execution.StaleAfter < 2*c.Execution.AdapterTimeout {
		return fmt.Errorf("execution.stale_after (%s) must be at least twice execution.adapter_timeout (%s)",
			c.Execution.StaleAfter, c.Execution.AdapterTimeout)
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if c.Marketplace.Ebay.Enabled && c.Marketplace.Ebay.AccessToken == "" {
		return fmt.Errorf("marketplace.ebay.access_token is required when eBay is enabled")
	}
	if sh := c.Marketplace.Shopee; sh.Enabled &&
		(sh.PartnerID == 0 || sh.PartnerKey == "" || sh.ShopID == 0 || sh.Token == "") {
		return fmt.Errorf("marketplace.shopee partner_id, partner_key, shop_id and token are required when Shopee is enabled")
	}

	if c.App.Env == "production" {
		if c.Database.Driver != DriverPostgres {
			return fmt.Errorf("database.driver must be postgres in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled or IP restricted in production")
		}
		if c.Webhook.Secret == "" {
			return fmt.Errorf("webhook.secret is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.Profiling.Enabled && c.Profiling.BasicAuthUser != "" && c.Profiling.BasicAuthPassword == "" {
		return fmt.Errorf("profiling.basic_auth_password is required when basic_auth_user is set")
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
