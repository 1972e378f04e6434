package config

import (
	"errors"
	"fmt"
	"strings"
)

func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if strings.TrimSpace(cfg.Portal.BaseURL) == "" {
		errs = append(errs, "portal.base_url is required")
	}
	if cfg.Portal.ActionTimeoutSeconds <= 0 {
		errs = append(errs, "portal.action_timeout_seconds must be > 0")
	}
	if cfg.Portal.ReadyTimeoutSeconds <= 0 {
		errs = append(errs, "portal.ready_timeout_seconds must be > 0")
	}
	if cfg.Portal.RequestsPerSecond <= 0 {
		errs = append(errs, "portal.requests_per_second must be > 0")
	}
	if cfg.Runner.MaxPages <= 0 {
		errs = append(errs, "runner.max_pages must be > 0")
	}
	if cfg.Runner.MaxApplications <= 0 {
		errs = append(errs, "runner.max_applications must be > 0")
	}
	if cfg.Runner.ConsecutiveFailureLimit <= 0 {
		errs = append(errs, "runner.consecutive_failure_limit must be > 0")
	}
	if cfg.Runner.RunTimeoutMinutes <= 0 {
		errs = append(errs, "runner.run_timeout_minutes must be > 0")
	}
	if cfg.Runner.MaxRetries < 0 {
		errs = append(errs, "runner.max_retries must be >= 0")
	}
	if cfg.Runner.WorkerSlots <= 0 {
		errs = append(errs, "runner.worker_slots must be > 0")
	}
	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// warnings that don't block startup
func Warnings(cfg Config) []string {
	var out []string
	if cfg.Portal.RequestsPerSecond > 2 {
		out = append(out, fmt.Sprintf(
			"portal.requests_per_second is high (%.1f); the portal may throttle the session", cfg.Portal.RequestsPerSecond))
	}
	if cfg.Runner.WorkerSlots > 8 {
		out = append(out, fmt.Sprintf(
			"runner.worker_slots=%d; each slot is a full browser session, watch memory", cfg.Runner.WorkerSlots))
	}
	if cfg.Schedule.Enabled && cfg.Queue.RedisURL == "" {
		out = append(out, "schedule.enabled without queue.redis_url: scheduled runs stay in-process")
	}
	return out
}
