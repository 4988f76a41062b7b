package config

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// ProviderConfig holds NNTP server connection settings.
type ProviderConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// Configured reports whether a provider host has been set.
func (p ProviderConfig) Configured() bool {
	return p.Host != ""
}

// RedisConfig holds redis connection settings for the catalog cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// OpenAIConfig controls the semantic scoring capability. An empty APIKey
// leaves the capability unavailable and every component falls back to
// deterministic matching.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"` // optional
}

// SearchConfig holds retrieval and filtering defaults.
type SearchConfig struct {
	MaxWorkers    int     `mapstructure:"max_workers"`    // parallel group fetches
	MaxGroups     int     `mapstructure:"max_groups"`     // groups per multi-group search
	SinceDays     int     `mapstructure:"since_days"`     // default lookback window
	MaxMessages   int     `mapstructure:"max_messages"`   // default retrieval budget
	MinConfidence float64 `mapstructure:"min_confidence"` // poster/topic confidence floor
	MinRelevance  float64 `mapstructure:"min_relevance"`  // topic relevance floor
	CacheMaxAge   string  `mapstructure:"cache_max_age"`  // duration string, e.g. "24h"
	ListPageSize  int     `mapstructure:"list_page_size"` // progress granularity for full listings
	RefreshEvery  string  `mapstructure:"refresh_every"`  // serve-mode refresher interval
}

// Config is the top-level configuration structure.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Provider ProviderConfig `mapstructure:"provider"`
	Redis    RedisConfig    `mapstructure:"redis"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Search   SearchConfig   `mapstructure:"search"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Provider.Port == 0 {
		c.Provider.Port = 119
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Search.MaxWorkers == 0 {
		c.Search.MaxWorkers = 4
	}
	if c.Search.MaxGroups == 0 {
		c.Search.MaxGroups = 20
	}
	if c.Search.SinceDays == 0 {
		c.Search.SinceDays = 7
	}
	if c.Search.MaxMessages == 0 {
		c.Search.MaxMessages = 100
	}
	if c.Search.MinConfidence == 0 {
		c.Search.MinConfidence = 0.5
	}
	if c.Search.MinRelevance == 0 {
		c.Search.MinRelevance = 0.5
	}
	if c.Search.CacheMaxAge == "" {
		c.Search.CacheMaxAge = "24h"
	}
	if c.Search.ListPageSize == 0 {
		c.Search.ListPageSize = 1000
	}
	if c.Search.RefreshEvery == "" {
		c.Search.RefreshEvery = "6h"
	}
}
