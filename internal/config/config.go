package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Portal struct {
		BaseURL              string  `yaml:"base_url"`
		UserAgent            string  `yaml:"user_agent"`
		ActionTimeoutSeconds int     `yaml:"action_timeout_seconds"`
		ReadyTimeoutSeconds  int     `yaml:"ready_timeout_seconds"`
		ReadyPollMillis      int     `yaml:"ready_poll_millis"`
		RequestsPerSecond    float64 `yaml:"requests_per_second"`
		Burst                int     `yaml:"burst"`
	} `yaml:"portal"`

	Runner struct {
		MaxPages                int `yaml:"max_pages"`
		MaxApplications         int `yaml:"max_applications"`
		ConsecutiveFailureLimit int `yaml:"consecutive_failure_limit"`
		RunTimeoutMinutes       int `yaml:"run_timeout_minutes"`
		MaxRetries              int `yaml:"max_retries"`
		RetryBackoffSeconds     int `yaml:"retry_backoff_seconds"`
		WorkerSlots             int `yaml:"worker_slots"`
	} `yaml:"runner"`

	Queue struct {
		RedisURL string `yaml:"redis_url"`
		Key      string `yaml:"key"`
	} `yaml:"queue"`

	Schedule struct {
		Enabled bool   `yaml:"enabled"`
		Spec    string `yaml:"spec"` // cron spec, e.g. "@every 6h"
	} `yaml:"schedule"`
}

// Default is the config written into a fresh data dir.
func Default() Config {
	var cfg Config
	cfg.App.Port = 38471
	cfg.App.DataDir = "."
	cfg.Portal.BaseURL = "https://www.naukri.com"
	cfg.Portal.ActionTimeoutSeconds = 20
	cfg.Portal.ReadyTimeoutSeconds = 30
	cfg.Portal.ReadyPollMillis = 500
	cfg.Portal.RequestsPerSecond = 1.0
	cfg.Portal.Burst = 2
	cfg.Runner.MaxPages = 10
	cfg.Runner.MaxApplications = 50
	cfg.Runner.ConsecutiveFailureLimit = 5
	cfg.Runner.RunTimeoutMinutes = 30
	cfg.Runner.MaxRetries = 2
	cfg.Runner.RetryBackoffSeconds = 10
	cfg.Runner.WorkerSlots = 2
	cfg.Schedule.Spec = "@every 6h"
	return cfg
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) ActionTimeout() time.Duration {
	return time.Duration(c.Portal.ActionTimeoutSeconds) * time.Second
}

func (c Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Portal.ReadyTimeoutSeconds) * time.Second
}

func (c Config) ReadyInterval() time.Duration {
	return time.Duration(c.Portal.ReadyPollMillis) * time.Millisecond
}

func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Runner.RunTimeoutMinutes) * time.Minute
}

func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.Runner.RetryBackoffSeconds) * time.Second
}
