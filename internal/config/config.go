package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Dir      string `yaml:"dir"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"quiz"`
	Defaults struct {
		QuestionCount int  `yaml:"question_count"`
		RandomOrder   bool `yaml:"random_order"`
		TimerSeconds  int  `yaml:"timer_seconds"`
	} `yaml:"defaults"`
	Engine struct {
		TickSeconds     int    `yaml:"tick_seconds"`
		QuestionDelay   string `yaml:"question_delay"`
		CleanupInterval string `yaml:"cleanup_interval"`
		FinishedMaxAge  string `yaml:"finished_max_age"`
	} `yaml:"engine"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TickInterval returns the countdown cadence clamped to the 1-5s range.
func (c Config) TickInterval() time.Duration {
	t := c.Engine.TickSeconds
	if t < 1 {
		t = 1
	}
	if t > 5 {
		t = 5
	}
	return time.Duration(t) * time.Second
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
