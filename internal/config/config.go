package config

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig holds the sqlite DSN.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// BreakerConfig tunes the circuit breaker instances.
type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	RecoveryTimeout  string `mapstructure:"recovery_timeout"` // duration string, e.g., "60s"
}

// SerpConfig controls the external search API.
type SerpConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	MinInterval string `mapstructure:"min_interval"` // minimum spacing between calls
}

// OpenAIConfig controls the generation model.
type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	BaseURL     string `mapstructure:"base_url"`
	MinInterval string `mapstructure:"min_interval"`
}

// PostingConfig controls the external posting service.
type PostingConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	MinInterval string `mapstructure:"min_interval"`
}

// BrandConfig describes the brand a project promotes.
type BrandConfig struct {
	Name            string   `mapstructure:"name"`
	Description     string   `mapstructure:"description"`
	Differentiators []string `mapstructure:"differentiators"`
	Competitors     []string `mapstructure:"competitors"`
}

// VoiceConfig describes how generated replies should read.
type VoiceConfig struct {
	Tone               string   `mapstructure:"tone"`
	PreferredPhrases   []string `mapstructure:"preferred_phrases"`
	AvoidedPhrases     []string `mapstructure:"avoided_phrases"`
	CustomInstructions string   `mapstructure:"custom_instructions"`
}

// ProjectConfig defines one promotion project and its targeting parameters.
type ProjectConfig struct {
	Name             string      `mapstructure:"name"`
	Keywords         []string    `mapstructure:"keywords"`
	TargetChannels   []string    `mapstructure:"target_channels"`
	BannedChannels   []string    `mapstructure:"banned_channels"`
	TimeWindow       string      `mapstructure:"time_window"` // day, week, month
	MinRelevance     float64     `mapstructure:"min_relevance"`
	PromotionalRatio float64     `mapstructure:"promotional_ratio"`
	DiscoverInterval string      `mapstructure:"discover_interval"` // duration string, e.g., "1h"
	ClassifyInterval string      `mapstructure:"classify_interval"`
	DraftInterval    string      `mapstructure:"draft_interval"`
	Brand            BrandConfig `mapstructure:"brand"`
	Voice            VoiceConfig `mapstructure:"voice"`
}

// PipelineConfig groups pipeline-wide tunables.
type PipelineConfig struct {
	Fanout         int    `mapstructure:"fanout"`          // bounded concurrency per run
	ApproachesFile string `mapstructure:"approaches_file"` // optional YAML approach catalog
}

// Config is the top-level configuration structure.
type Config struct {
	App      AppConfig       `mapstructure:"app"`
	Server   ServerConfig    `mapstructure:"server"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Database DatabaseConfig  `mapstructure:"database"`
	Breaker  BreakerConfig   `mapstructure:"breaker"`
	Serp     SerpConfig      `mapstructure:"serp"`
	OpenAI   OpenAIConfig    `mapstructure:"openai"`
	Posting  PostingConfig   `mapstructure:"posting"`
	Pipeline PipelineConfig  `mapstructure:"pipeline"`
	Projects []ProjectConfig `mapstructure:"projects"`
}

// Project returns the project with the given name, or nil.
func (c *Config) Project(name string) *ProjectConfig {
	for i := range c.Projects {
		if c.Projects[i].Name == name {
			return &c.Projects[i]
		}
	}
	return nil
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "promoscout.db"
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.RecoveryTimeout == "" {
		c.Breaker.RecoveryTimeout = "60s"
	}
	if c.Serp.BaseURL == "" {
		c.Serp.BaseURL = "https://google.serper.dev"
	}
	if c.Serp.MinInterval == "" {
		c.Serp.MinInterval = "1s"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.MinInterval == "" {
		c.OpenAI.MinInterval = "1s"
	}
	if c.Posting.MinInterval == "" {
		c.Posting.MinInterval = "2s"
	}
	if c.Pipeline.Fanout == 0 {
		c.Pipeline.Fanout = 4
	}
	// Fill project defaults
	for i := range c.Projects {
		p := &c.Projects[i]
		if p.TimeWindow == "" {
			p.TimeWindow = "week"
		}
		if p.MinRelevance == 0 {
			p.MinRelevance = 0.6
		}
		if p.PromotionalRatio == 0 {
			p.PromotionalRatio = 0.5
		}
		if p.DiscoverInterval == "" {
			p.DiscoverInterval = "1h"
		}
		if p.ClassifyInterval == "" {
			p.ClassifyInterval = "30m"
		}
		if p.DraftInterval == "" {
			p.DraftInterval = "30m"
		}
	}
}
