package eventmodels

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RiskConfig holds the monitor and hub tunables, loaded from a yaml file at
// startup. Thresholds are fractions: 0.20 means 20%.
type RiskConfig struct {
	MonitorInterval   time.Duration `yaml:"monitor_interval"`
	LoggedOutInterval time.Duration `yaml:"logged_out_interval"`
	FanOutLimit       int           `yaml:"fan_out_limit"`
	DefaultTakeProfit float64       `yaml:"default_take_profit"`
	DefaultStopLoss   float64       `yaml:"default_stop_loss"`
	MaxPositionSize   float64       `yaml:"max_position_size"`

	SessionTTL   time.Duration `yaml:"session_ttl"`
	ChallengeTTL time.Duration `yaml:"challenge_ttl"`

	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	ReconnectMaxAttempts int           `yaml:"reconnect_max_attempts"`

	JobStaleness time.Duration `yaml:"job_staleness"`
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MonitorInterval:      30 * time.Second,
		LoggedOutInterval:    60 * time.Second,
		FanOutLimit:          8,
		DefaultTakeProfit:    0.30,
		DefaultStopLoss:      0.25,
		MaxPositionSize:      1000,
		SessionTTL:           24 * time.Hour,
		ChallengeTTL:         5 * time.Minute,
		ReconnectInterval:    5 * time.Second,
		ReconnectMaxAttempts: 5,
		JobStaleness:         5 * time.Minute,
	}
}

// LoadRiskConfig reads the yaml file at path, filling unset fields with
// defaults. A missing path returns the defaults.
func LoadRiskConfig(path string) (RiskConfig, error) {
	cfg := DefaultRiskConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("LoadRiskConfig: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("LoadRiskConfig: failed to parse %s: %w", path, err)
	}

	if cfg.FanOutLimit <= 0 {
		return cfg, fmt.Errorf("LoadRiskConfig: fan_out_limit must be positive, got %d", cfg.FanOutLimit)
	}

	if cfg.ReconnectMaxAttempts <= 0 {
		return cfg, fmt.Errorf("LoadRiskConfig: reconnect_max_attempts must be positive, got %d", cfg.ReconnectMaxAttempts)
	}

	return cfg, nil
}
