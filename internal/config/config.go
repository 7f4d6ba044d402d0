package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Sheets     SheetsConfig     `yaml:"sheets" mapstructure:"sheets"`
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	Places     PlacesConfig     `yaml:"places" mapstructure:"places"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects where leads, contacts and run logs are persisted.
// Driver is one of "sheets", "sqlite" or "postgres".
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SheetsConfig holds Google Sheets settings.
type SheetsConfig struct {
	SpreadsheetID      string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	ServiceAccountJSON string `yaml:"service_account_json" mapstructure:"service_account_json"`
	LeadsTab           string `yaml:"leads_tab" mapstructure:"leads_tab"`
	ContactsTab        string `yaml:"contacts_tab" mapstructure:"contacts_tab"`
	IngestLogTab       string `yaml:"ingest_log_tab" mapstructure:"ingest_log_tab"`
	EnrichmentLogTab   string `yaml:"enrichment_log_tab" mapstructure:"enrichment_log_tab"`
}

// ApolloConfig holds people-search provider settings.
type ApolloConfig struct {
	Key               string   `yaml:"key" mapstructure:"key"`
	BaseURL           string   `yaml:"base_url" mapstructure:"base_url"`
	SearchPerPage     int      `yaml:"search_per_page" mapstructure:"search_per_page"`
	TargetSeniorities []string `yaml:"target_seniorities" mapstructure:"target_seniorities"`
	SearchRatePerSec  float64  `yaml:"search_rate_per_sec" mapstructure:"search_rate_per_sec"`
	RevealRatePerHour int      `yaml:"reveal_rate_per_hour" mapstructure:"reveal_rate_per_hour"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PlacesConfig holds map-search provider settings.
type PlacesConfig struct {
	Key              string  `yaml:"key" mapstructure:"key"`
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	ResultsPerQuery  int     `yaml:"results_per_query" mapstructure:"results_per_query"`
	Language         string  `yaml:"language" mapstructure:"language"`
	Region           string  `yaml:"region" mapstructure:"region"`
	RateLimitPerSec  float64 `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxPagesPerQuery int     `yaml:"max_pages_per_query" mapstructure:"max_pages_per_query"`
}

// EnrichConfig configures the contact-enrichment cycle and its title policy.
type EnrichConfig struct {
	PrimaryTitles         []string `yaml:"primary_titles" mapstructure:"primary_titles"`
	SecondaryTitles       []string `yaml:"secondary_titles" mapstructure:"secondary_titles"`
	SmallCompanyThreshold int      `yaml:"small_company_threshold" mapstructure:"small_company_threshold"`
	MaxContactsPerCompany int      `yaml:"max_contacts_per_company" mapstructure:"max_contacts_per_company"`
	DefaultBatchSize      int      `yaml:"default_batch_size" mapstructure:"default_batch_size"`
	CreditBudget          int      `yaml:"credit_budget" mapstructure:"credit_budget"`
	RevealRetries         int      `yaml:"reveal_retries" mapstructure:"reveal_retries"`
	DomainBlocklist       []string `yaml:"domain_blocklist" mapstructure:"domain_blocklist"`
}

// IngestConfig configures the daily lead-ingest cycle.
type IngestConfig struct {
	QueryFile   string `yaml:"query_file" mapstructure:"query_file"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// RetryConfig holds retry tuning for external API calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	ApolloPerCredit  float64 `yaml:"apollo_per_credit" mapstructure:"apollo_per_credit"`
	PlacesPerRequest float64 `yaml:"places_per_request" mapstructure:"places_per_request"`
}

// ServerConfig configures the read-only HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MonitoringConfig configures run-log alerting for the serve command.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sheets")
	v.SetDefault("store.database_url", "leadgen.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("sheets.service_account_json", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.leads_tab", "Leads")
	v.SetDefault("sheets.contacts_tab", "Contacts")
	v.SetDefault("sheets.ingest_log_tab", "Run_Log")
	v.SetDefault("sheets.enrichment_log_tab", "Enrichment_Log")
	v.SetDefault("apollo.key", "")
	v.SetDefault("apollo.base_url", "https://api.apollo.io/api/v1")
	v.SetDefault("apollo.search_per_page", 10)
	v.SetDefault("apollo.target_seniorities", []string{"owner", "founder", "c_suite", "director", "manager"})
	v.SetDefault("apollo.search_rate_per_sec", 1.0)
	v.SetDefault("apollo.reveal_rate_per_hour", 600)
	v.SetDefault("apollo.timeout_secs", 30)
	v.SetDefault("places.key", "")
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.results_per_query", 20)
	v.SetDefault("places.language", "en")
	v.SetDefault("places.region", "us")
	v.SetDefault("places.rate_limit_per_sec", 1.0)
	v.SetDefault("places.timeout_secs", 10)
	v.SetDefault("places.max_pages_per_query", 3)
	v.SetDefault("enrich.primary_titles", []string{
		"facility manager", "director of facilities", "facilities director",
		"building manager", "maintenance manager", "director of maintenance",
		"property manager", "office manager", "operations manager",
		"director of operations", "general manager",
	})
	v.SetDefault("enrich.secondary_titles", []string{"owner", "ceo", "president", "founder"})
	v.SetDefault("enrich.small_company_threshold", 50)
	v.SetDefault("enrich.max_contacts_per_company", 2)
	v.SetDefault("enrich.default_batch_size", 10)
	v.SetDefault("enrich.credit_budget", 50)
	v.SetDefault("enrich.reveal_retries", 0)
	v.SetDefault("enrich.domain_blocklist", []string{
		"facebook.com", "instagram.com", "twitter.com", "x.com",
		"linkedin.com", "yelp.com", "yellowpages.com", "bbb.org",
		"google.com", "youtube.com", "tiktok.com",
	})
	v.SetDefault("ingest.query_file", "configs/queries.yaml")
	v.SetDefault("ingest.concurrency", 2)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 2000)
	v.SetDefault("retry.max_backoff_ms", 8000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("retry.failure_threshold", 5)
	v.SetDefault("retry.reset_timeout_secs", 60)
	v.SetDefault("pricing.apollo_per_credit", 0.20)
	v.SetDefault("pricing.places_per_request", 0.032)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.cost_threshold_usd", 25.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings required by the given command mode are
// present. Mode is one of "ingest", "enrich", "runs", "export", "migrate" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sheets":
		if c.Sheets.SpreadsheetID == "" {
			errs = append(errs, "sheets.spreadsheet_id is required (LEADGEN_SHEETS_SPREADSHEET_ID)")
		}
		if c.Sheets.ServiceAccountJSON == "" {
			errs = append(errs, "sheets.service_account_json is required (LEADGEN_SHEETS_SERVICE_ACCOUNT_JSON)")
		}
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	switch mode {
	case "enrich":
		if c.Apollo.Key == "" {
			errs = append(errs, "apollo.key is required (LEADGEN_APOLLO_KEY)")
		}
		if len(c.Enrich.PrimaryTitles) == 0 && len(c.Enrich.SecondaryTitles) == 0 {
			errs = append(errs, "enrich.primary_titles or enrich.secondary_titles must be set")
		}
		if c.Enrich.MaxContactsPerCompany <= 0 {
			errs = append(errs, "enrich.max_contacts_per_company must be positive")
		}
	case "ingest":
		if c.Places.Key == "" {
			errs = append(errs, "places.key is required (LEADGEN_PLACES_KEY)")
		}
		if c.Ingest.QueryFile == "" {
			errs = append(errs, "ingest.query_file is required")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
