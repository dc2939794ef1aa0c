package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is constructed once at startup and passed into the engine and index
// builders; nothing reads configuration at scoring time.
type Config struct {
	Server   ServerConfig
	Matching MatchingConfig
	Lexicon  LexiconConfig
	Oracle   OracleConfig
	Cache    CacheConfig
	Store    StoreConfig
	Webhook  WebhookConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MatchingConfig holds the scoring and decision thresholds
type MatchingConfig struct {
	AcceptThreshold    float64 `mapstructure:"accept_threshold"` // minimum composite score to count as a match
	HighConfidence     float64 `mapstructure:"high_confidence"`  // auto-accept cutoff, skips arbitration
	ReviewThreshold    float64 `mapstructure:"review_threshold"`
	LooseThreshold     float64 `mapstructure:"loose_threshold"`  // retrieval pre-filter, well below accept
	ExistsThreshold    float64 `mapstructure:"exists_threshold"` // missing-products existence cutoff
	PriceTolerance     float64 `mapstructure:"price_tolerance"`  // currency units
	ShortlistSize      int     `mapstructure:"shortlist_size"`
	SizeCutoffML       float64 `mapstructure:"size_cutoff_ml"`    // retrieval-time hard rejection
	SizeToleranceML    float64 `mapstructure:"size_tolerance_ml"` // scoring-time small gap allowance
	EnableDebugLogging bool    `mapstructure:"debug"`
}

// LexiconConfig holds the domain vocabulary: brand list, bilingual synonym
// table and exclusion keyword lists.
type LexiconConfig struct {
	Brands         []string          `mapstructure:"brands"`
	Synonyms       map[string]string `mapstructure:"synonyms"`
	SampleKeywords []string          `mapstructure:"sample_keywords"`
	TesterKeywords []string          `mapstructure:"tester_keywords"`
	SetKeywords    []string          `mapstructure:"set_keywords"`
	MaleKeywords   []string          `mapstructure:"male_keywords"`
	FemaleKeywords []string          `mapstructure:"female_keywords"`
}

// OracleConfig holds arbitration oracle configuration.
// APIKeys is an ordered list; keys are tried in order when a provider
// answers with a quota error.
type OracleConfig struct {
	APIKeys           []string      `mapstructure:"api_keys"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	BatchSize         int           `mapstructure:"batch_size"`
	MaxRetries        int           `mapstructure:"max_retries"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	// Fallback decides what happens when every provider fails:
	// "top_candidate" keeps the best-scored candidate, "needs_review" flags the row.
	Fallback string `mapstructure:"fallback"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// StoreConfig holds the history database configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// WebhookConfig holds outbound automation endpoints
type WebhookConfig struct {
	PriceUpdatesURL string        `mapstructure:"price_updates_url"`
	NewProductsURL  string        `mapstructure:"new_products_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/scentmatch/")

	// Environment variable settings
	v.SetEnvPrefix("SCENTMATCH")
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Matching defaults. The numeric thresholds are tunable, not load-bearing.
	v.SetDefault("matching.accept_threshold", 60.0)
	v.SetDefault("matching.high_confidence", 95.0)
	v.SetDefault("matching.review_threshold", 85.0)
	v.SetDefault("matching.loose_threshold", 45.0)
	v.SetDefault("matching.exists_threshold", 70.0)
	v.SetDefault("matching.price_tolerance", 5.0)
	v.SetDefault("matching.shortlist_size", 5)
	v.SetDefault("matching.size_cutoff_ml", 30.0)
	v.SetDefault("matching.size_tolerance_ml", 5.0)
	v.SetDefault("matching.debug", false)

	// Lexicon defaults
	v.SetDefault("lexicon.brands", DefaultBrands)
	v.SetDefault("lexicon.synonyms", DefaultSynonyms)
	v.SetDefault("lexicon.sample_keywords", DefaultSampleKeywords)
	v.SetDefault("lexicon.tester_keywords", DefaultTesterKeywords)
	v.SetDefault("lexicon.set_keywords", DefaultSetKeywords)
	v.SetDefault("lexicon.male_keywords", DefaultMaleKeywords)
	v.SetDefault("lexicon.female_keywords", DefaultFemaleKeywords)

	// Oracle defaults
	v.SetDefault("oracle.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("oracle.model", "google/gemini-2.0-flash-001")
	v.SetDefault("oracle.batch_size", 10)
	v.SetDefault("oracle.max_retries", 3)
	v.SetDefault("oracle.timeout", "30s")
	v.SetDefault("oracle.requests_per_minute", 30)
	v.SetDefault("oracle.fallback", "top_candidate")

	// Cache defaults
	v.SetDefault("cache.ttl", "720h") // 30 days

	// Store defaults
	v.SetDefault("store.path", "pricing_history.db")

	// Webhook defaults
	v.SetDefault("webhook.timeout", "15s")
}

// validate validates the configuration
func validate(config *Config) error {
	m := &config.Matching
	if m.AcceptThreshold <= 0 || m.AcceptThreshold > 100 {
		return fmt.Errorf("matching accept_threshold must be in (0,100], got: %v", m.AcceptThreshold)
	}
	if m.HighConfidence < m.AcceptThreshold || m.HighConfidence > 100 {
		return fmt.Errorf("matching high_confidence must be between accept_threshold and 100, got: %v", m.HighConfidence)
	}
	if m.ShortlistSize <= 0 {
		return fmt.Errorf("matching shortlist_size must be positive, got: %d", m.ShortlistSize)
	}

	o := &config.Oracle
	if o.BatchSize <= 0 {
		return fmt.Errorf("oracle batch_size must be positive, got: %d", o.BatchSize)
	}
	if o.Fallback != "top_candidate" && o.Fallback != "needs_review" {
		return fmt.Errorf("oracle fallback must be 'top_candidate' or 'needs_review', got: %s", o.Fallback)
	}

	return nil
}
