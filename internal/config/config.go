package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "FEED_DIGEST_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	openAIKeyEnv     = "OPENAI_API_KEY"
	openAIBaseEnv    = "OPENAI_BASE_URL"
	smtpHostEnv      = "SMTP_HOST"
	smtpPortEnv      = "SMTP_PORT"
	smtpUsernameEnv  = "SMTP_USERNAME"
	smtpPasswordEnv  = "SMTP_PASSWORD"
	emailFromEnv     = "EMAIL_FROM"
	emailToEnv       = "EMAIL_TO"
	sendEmailEnv     = "SEND_EMAIL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Feeds     FeedsConfig           `yaml:"feeds"`
	Dedup     DedupConfig           `yaml:"dedup"`
	Models    ModelsConfig          `yaml:"models"`
	Pricing   map[string]ModelPrice `yaml:"pricing"`
	Reports   ReportsConfig         `yaml:"reports"`
	Email     EmailConfig           `yaml:"email"`
	Database  DatabaseConfig        `yaml:"database"`
	Scheduler SchedulerConfig       `yaml:"scheduler"`
	Logging   LoggingConfig         `yaml:"logging"`
}

// FeedsConfig controls the fetch stage.
type FeedsConfig struct {
	ListPath        string        `yaml:"listPath"`
	MaxFeeds        int           `yaml:"maxFeeds"`
	MaxItemsPerFeed int           `yaml:"maxItemsPerFeed"`
	Timeout         time.Duration `yaml:"timeout"`
}

// DedupConfig controls the rolling-window fingerprint store.
// Disabled (rather than Enabled) so the YAML zero value keeps dedup on.
type DedupConfig struct {
	Disabled     bool   `yaml:"disabled"`
	LookbackDays int    `yaml:"lookbackDays"`
	StateFile    string `yaml:"stateFile"`
}

// Enabled reports whether the dedup filter participates in the run.
func (d DedupConfig) Enabled() bool {
	return !d.Disabled
}

// ModelsConfig assigns a model to each pipeline stage.
type ModelsConfig struct {
	APIKey      string `yaml:"apiKey"`
	BaseURL     string `yaml:"baseUrl"`
	Summarize   string `yaml:"summarize"`
	Themes      string `yaml:"themes"`
	Synthesize  string `yaml:"synthesize"`
	Workers     int    `yaml:"workers"`
	MaxAttempts int    `yaml:"maxAttempts"`
}

// ModelPrice is the cost per million tokens for one model.
type ModelPrice struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// ReportsConfig locates the per-run artifact directory tree.
type ReportsConfig struct {
	Dir string `yaml:"dir"`
}

// EmailConfig wires SMTP delivery of the finished digest.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// DatabaseConfig describes the optional Postgres run archive.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig tunes the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.Models.APIKey = v
	}
	if v := os.Getenv(openAIBaseEnv); v != "" {
		c.Models.BaseURL = v
	}

	if v := os.Getenv(smtpHostEnv); v != "" {
		c.Email.Host = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Email.Port = port
		}
	}
	if v := os.Getenv(smtpUsernameEnv); v != "" {
		c.Email.Username = v
	}
	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv(emailFromEnv); v != "" {
		c.Email.From = v
	}
	if v := os.Getenv(emailToEnv); v != "" {
		c.Email.To = v
	}
	if v := os.Getenv(sendEmailEnv); v != "" {
		c.Email.Enabled = v == "true" || v == "1"
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Feeds.ListPath != "" {
		base.Feeds.ListPath = override.Feeds.ListPath
	}
	if override.Feeds.MaxFeeds != 0 {
		base.Feeds.MaxFeeds = override.Feeds.MaxFeeds
	}
	if override.Feeds.MaxItemsPerFeed != 0 {
		base.Feeds.MaxItemsPerFeed = override.Feeds.MaxItemsPerFeed
	}
	if override.Feeds.Timeout != 0 {
		base.Feeds.Timeout = override.Feeds.Timeout
	}

	base.Dedup.Disabled = base.Dedup.Disabled || override.Dedup.Disabled
	if override.Dedup.LookbackDays != 0 {
		base.Dedup.LookbackDays = override.Dedup.LookbackDays
	}
	if override.Dedup.StateFile != "" {
		base.Dedup.StateFile = override.Dedup.StateFile
	}

	if override.Models.APIKey != "" {
		base.Models.APIKey = override.Models.APIKey
	}
	if override.Models.BaseURL != "" {
		base.Models.BaseURL = override.Models.BaseURL
	}
	if override.Models.Summarize != "" {
		base.Models.Summarize = override.Models.Summarize
	}
	if override.Models.Themes != "" {
		base.Models.Themes = override.Models.Themes
	}
	if override.Models.Synthesize != "" {
		base.Models.Synthesize = override.Models.Synthesize
	}
	if override.Models.Workers != 0 {
		base.Models.Workers = override.Models.Workers
	}
	if override.Models.MaxAttempts != 0 {
		base.Models.MaxAttempts = override.Models.MaxAttempts
	}

	if len(override.Pricing) > 0 {
		base.Pricing = override.Pricing
	}

	if override.Reports.Dir != "" {
		base.Reports.Dir = override.Reports.Dir
	}

	if override.Email.Host != "" {
		base.Email = override.Email
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Feeds: FeedsConfig{
			ListPath:        "feeds.md",
			MaxItemsPerFeed: 10,
			Timeout:         20 * time.Second,
		},
		Dedup: DedupConfig{
			LookbackDays: 7,
			StateFile:    "reports/.dedup_state.json",
		},
		Models: ModelsConfig{
			Summarize:   "gpt-4o-mini",
			Themes:      "gpt-4o-mini",
			Synthesize:  "gpt-4o",
			Workers:     5,
			MaxAttempts: 1,
		},
		Pricing: map[string]ModelPrice{
			"gpt-4o-mini": {Input: 0.15, Output: 0.60},
			"gpt-4o":      {Input: 2.50, Output: 10.00},
		},
		Reports:   ReportsConfig{Dir: "reports"},
		Email:     EmailConfig{Port: 587},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Logging:   LoggingConfig{Level: "info"},
	}
}
