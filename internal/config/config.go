package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Google struct {
		CalendarID string `yaml:"calendar_id"`
	} `yaml:"google"`

	Email struct {
		SendGridAPIKey string  `yaml:"sendgrid_api_key"`
		FromEmail      string  `yaml:"from_email"`
		FromName       string  `yaml:"from_name"`
		PerSecond      float64 `yaml:"per_second"`
	} `yaml:"email"`

	Reminders struct {
		OffsetsMinutes []int `yaml:"offsets_minutes"`
	} `yaml:"reminders"`

	Booking struct {
		ConsultationMinutes int `yaml:"consultation_minutes"`
	} `yaml:"booking"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/mediconnect.db"
	}
	if cfg.Google.CalendarID == "" {
		cfg.Google.CalendarID = "primary"
	}
	if cfg.Booking.ConsultationMinutes <= 0 {
		cfg.Booking.ConsultationMinutes = 30
	}
	if len(cfg.Reminders.OffsetsMinutes) == 0 {
		cfg.Reminders.OffsetsMinutes = []int{30, 15}
	}
	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8081
	}
	if cfg.Monitoring.PrometheusPort == 0 {
		cfg.Monitoring.PrometheusPort = 9090
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ReminderOffsets returns the configured offsets as durations.
func (c *Config) ReminderOffsets() []time.Duration {
	offsets := make([]time.Duration, 0, len(c.Reminders.OffsetsMinutes))
	for _, m := range c.Reminders.OffsetsMinutes {
		if m > 0 {
			offsets = append(offsets, time.Duration(m)*time.Minute)
		}
	}
	return offsets
}

// ConsultationDuration returns the invite length for confirmations.
func (c *Config) ConsultationDuration() time.Duration {
	return time.Duration(c.Booking.ConsultationMinutes) * time.Minute
}
