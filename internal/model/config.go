package model

import "time"

// Config holds all runtime configuration
type Config struct {
	HTTP        HTTPConfig              `yaml:"http" mapstructure:"http"`
	Retry       RetryConfig             `yaml:"retry" mapstructure:"retry"`
	Cache       CacheConfig             `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig       `yaml:"concurrency" mapstructure:"concurrency"`
	Quota       QuotaConfig             `yaml:"quota" mapstructure:"quota"`
	Accounts    map[string]AccountQuota `yaml:"accounts" mapstructure:"accounts"`
	Sources     map[string]SourceConfig `yaml:"sources" mapstructure:"sources"`
	Scoring     ScoringConfig           `yaml:"scoring" mapstructure:"scoring"`
	Server      ServerConfig            `yaml:"server" mapstructure:"server"`
	Logging     LoggingConfig           `yaml:"logging" mapstructure:"logging"`
	Output      OutputConfig            `yaml:"output" mapstructure:"output"`
	RulesFile   string                  `yaml:"rules_file" mapstructure:"rules_file"` // empty: embedded rules
}

// HTTPConfig configures the shared outbound client
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"` // per attempt
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// RetryConfig configures the call substrate retry loop
type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	BaseBackoff       time.Duration `yaml:"base_backoff" mapstructure:"base_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown" mapstructure:"rate_limit_cooldown"`
}

// CacheConfig configures dataset memoization
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"` // empty: memory only
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
}

// ConcurrencyConfig configures batch workers and per-host soft limits
type ConcurrencyConfig struct {
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
	AdapterTimeout    time.Duration `yaml:"adapter_timeout" mapstructure:"adapter_timeout"` // minimum per adapter fetch, raised to its retry ceiling
}

// QuotaConfig selects the quota window backend
type QuotaConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"` // memory, redis
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int    `yaml:"redis_db" mapstructure:"redis_db"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// AccountQuota is a rolling request budget shared by every source on one upstream account
type AccountQuota struct {
	Limit  int           `yaml:"limit" mapstructure:"limit"`
	Window time.Duration `yaml:"window" mapstructure:"window"`
}

// SourceConfig configures one adapter's upstream
type SourceConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	KeyEnv            string        `yaml:"key_env,omitempty" mapstructure:"key_env"` // conventional env var for the key
	Timeout           time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"` // zero: http.timeout
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst,omitempty" mapstructure:"burst"`
	Account           string        `yaml:"account,omitempty" mapstructure:"account"` // quota account, empty: unmetered
}

// ScoringConfig holds the confidence weights
type ScoringConfig struct {
	Baseline          int            `yaml:"baseline" mapstructure:"baseline"`
	Strong            int            `yaml:"strong" mapstructure:"strong"`
	Moderate          int            `yaml:"moderate" mapstructure:"moderate"`
	Minor             int            `yaml:"minor" mapstructure:"minor"`
	VerifiedThreshold int            `yaml:"verified_threshold" mapstructure:"verified_threshold"`
	MaxConfidence     int            `yaml:"max_confidence" mapstructure:"max_confidence"`
	NeutralConfidence int            `yaml:"neutral_confidence" mapstructure:"neutral_confidence"`
	Baselines         map[string]int `yaml:"baselines,omitempty" mapstructure:"baselines"` // per-adapter override
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	VerifyTimeout  time.Duration `yaml:"verify_timeout" mapstructure:"verify_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// OutputConfig configures CLI reports
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// Quota accounts
const (
	AccountDataGov = "datagov" // api.data.gov keys: FEC, Congress.gov, College Scorecard
	AccountCensus  = "census"
	AccountNOAA    = "noaa"
	AccountEIA     = "eia"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "corroborate/0.3 (+https://github.com/policyvoice/corroborate)",
			MaxBodyBytes: 8_000_000,
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			BaseBackoff:       2 * time.Second,
			MaxBackoff:        30 * time.Second,
			RateLimitCooldown: 60 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			TTL:       15 * time.Minute,
			MemoryTTL: 15 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers:           4,
			RequestsPerSecond: 5,
			BurstSize:         5,
			AdapterTimeout:    90 * time.Second,
		},
		Quota: QuotaConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			KeyPrefix: "corroborate:quota:",
		},
		Accounts: map[string]AccountQuota{
			AccountDataGov: {Limit: 1000, Window: time.Hour},
			AccountCensus:  {Limit: 500, Window: 24 * time.Hour},
			AccountNOAA:    {Limit: 10000, Window: 24 * time.Hour},
			AccountEIA:     {Limit: 5000, Window: time.Hour},
		},
		Sources: DefaultSources(),
		Scoring: ScoringConfig{
			Baseline:          65,
			Strong:            15,
			Moderate:          10,
			Minor:             5,
			VerifiedThreshold: 60,
			MaxConfidence:     95,
			NeutralConfidence: 50,
			Baselines: map[string]int{
				AdapterCrime:     60,
				AdapterEmergency: 70,
				AdapterHousing:   60,
			},
		},
		Server: ServerConfig{
			Addr:           ":8080",
			VerifyTimeout:  15 * time.Minute,
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// DefaultSources returns the built-in upstream endpoints
func DefaultSources() map[string]SourceConfig {
	return map[string]SourceConfig{
		AdapterDemographics: {
			Enabled: true, BaseURL: "https://api.census.gov/data", KeyEnv: "CENSUS_API_KEY",
			RequestsPerSecond: 5, Burst: 5, Account: AccountCensus,
		},
		AdapterEnergy: {
			Enabled: true, BaseURL: "https://api.eia.gov/v2", KeyEnv: "EIA_API_KEY",
			RequestsPerSecond: 5, Burst: 5, Account: AccountEIA,
		},
		AdapterClimate: {
			Enabled: true, BaseURL: "https://www.ncei.noaa.gov/cdo-web/api/v2", KeyEnv: "NOAA_TOKEN",
			RequestsPerSecond: 5, Burst: 5, Account: AccountNOAA,
		},
		AdapterHousing: {
			Enabled: true, BaseURL: "https://www.huduser.gov/hudapi/public", KeyEnv: "HUD_API_TOKEN",
			RequestsPerSecond: 2, Burst: 2,
		},
		AdapterInfrastructure: {
			Enabled: true, BaseURL: "https://datahub.transportation.gov/resource",
			RequestsPerSecond: 5, Burst: 5,
		},
		AdapterEmergency: {
			Enabled: true, BaseURL: "https://www.fema.gov/api/open", Timeout: 45 * time.Second,
			RequestsPerSecond: 5, Burst: 5,
		},
		AdapterCrime: {
			Enabled: true, BaseURL: "https://data.ojp.usdoj.gov/resource",
			RequestsPerSecond: 5, Burst: 5,
		},
		AdapterCampaignFinance: {
			Enabled: true, BaseURL: "https://api.open.fec.gov/v1", KeyEnv: "DATA_GOV_API_KEY",
			RequestsPerSecond: 2, Burst: 2, Account: AccountDataGov,
		},
		AdapterLegislative: {
			Enabled: true, BaseURL: "https://api.congress.gov/v3", KeyEnv: "DATA_GOV_API_KEY",
			RequestsPerSecond: 2, Burst: 2, Account: AccountDataGov,
		},
		AdapterHigherEducation: {
			Enabled: true, BaseURL: "https://api.data.gov/ed/collegescorecard/v1", KeyEnv: "DATA_GOV_API_KEY",
			RequestsPerSecond: 2, Burst: 2, Account: AccountDataGov,
		},
		AdapterVeterans: {
			Enabled: true, BaseURL: "https://api.va.gov/services/va_facilities/v1", KeyEnv: "VA_API_KEY",
			RequestsPerSecond: 2, Burst: 2,
		},
		AdapterSpending: {
			Enabled: true, BaseURL: "https://api.usaspending.gov/api/v2", Timeout: 45 * time.Second,
			RequestsPerSecond: 2, Burst: 2,
		},
		AdapterRegulatory: {
			Enabled: true, BaseURL: "https://www.federalregister.gov/api/v1",
			RequestsPerSecond: 5, Burst: 5,
		},
	}
}

// Source returns the configuration for one adapter, falling back to built-in defaults
func (c *Config) Source(name string) SourceConfig {
	if src, ok := c.Sources[name]; ok {
		return src
	}
	return DefaultSources()[name]
}
