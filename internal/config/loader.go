package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SMTPConfig configures the outbound mail relay. An empty Host disables
// email notifications.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Workers  int
	Timeout  time.Duration
}

// Config captures the runtime configuration of the booking service. Values
// come from an optional YAML file, overridden by ROOMBOOK_* environment
// variables.
type Config struct {
	HTTPPort     int
	DatabasePath string
	SeedPath     string
	Timezone     string
	Rooms        []string
	SessionTTL   time.Duration
	SearchLimit  int
	SnapshotTTL  time.Duration
	LogLevel     string
	SMTP         SMTPConfig
}

// DefaultRooms lists the bookable meeting rooms when none are configured.
var DefaultRooms = []string{"ห้องประชุม 1", "ห้องประชุม 2", "ห้องประชุม 3"}

type fileSMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Workers  int    `yaml:"workers"`
	Timeout  string `yaml:"timeout"`
}

type fileConfig struct {
	HTTPPort     int      `yaml:"http_port"`
	DatabasePath string   `yaml:"database_path"`
	SeedPath     string   `yaml:"seed_path"`
	Timezone     string   `yaml:"timezone"`
	Rooms        []string `yaml:"rooms"`
	SessionTTL   string   `yaml:"session_ttl"`
	SearchLimit  int      `yaml:"search_limit"`
	SnapshotTTL  string   `yaml:"snapshot_ttl"`
	LogLevel     string   `yaml:"log_level"`
	SMTP         fileSMTP `yaml:"smtp"`
}

// Load builds the configuration. path names a YAML file; when empty, the
// ROOMBOOK_CONFIG environment variable is consulted, and when that is empty
// too only defaults and environment overrides apply.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		DatabasePath: "roombook.db",
		Timezone:     "Asia/Bangkok",
		Rooms:        append([]string(nil), DefaultRooms...),
		SessionTTL:   24 * time.Hour,
		SearchLimit:  20,
		SnapshotTTL:  30 * time.Second,
		LogLevel:     "info",
		SMTP: SMTPConfig{
			Port:    587,
			Workers: 2,
			Timeout: 10 * time.Second,
		},
	}

	if path == "" {
		path = strings.TrimSpace(os.Getenv("ROOMBOOK_CONFIG"))
	}

	var invalid []string

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("ไม่สามารถอ่านไฟล์คอนฟิก %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Config{}, fmt.Errorf("ไฟล์คอนฟิก %s ไม่ถูกต้อง: %w", path, err)
		}
		applyFile(&cfg, fc, &invalid)
	}

	applyEnv(&cfg, &invalid)

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("ค่าคอนฟิกไม่ถูกต้อง: %s", strings.Join(invalid, ", "))
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("ไม่รู้จักเขตเวลา %s: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func applyFile(cfg *Config, fc fileConfig, invalid *[]string) {
	if fc.HTTPPort > 0 {
		cfg.HTTPPort = fc.HTTPPort
	}
	if fc.DatabasePath != "" {
		cfg.DatabasePath = fc.DatabasePath
	}
	if fc.SeedPath != "" {
		cfg.SeedPath = fc.SeedPath
	}
	if fc.Timezone != "" {
		cfg.Timezone = fc.Timezone
	}
	if len(fc.Rooms) > 0 {
		cfg.Rooms = fc.Rooms
	}
	if fc.SessionTTL != "" {
		if ttl, err := time.ParseDuration(fc.SessionTTL); err == nil && ttl > 0 {
			cfg.SessionTTL = ttl
		} else {
			*invalid = append(*invalid, "session_ttl")
		}
	}
	if fc.SearchLimit > 0 {
		cfg.SearchLimit = fc.SearchLimit
	}
	if fc.SnapshotTTL != "" {
		if ttl, err := time.ParseDuration(fc.SnapshotTTL); err == nil && ttl > 0 {
			cfg.SnapshotTTL = ttl
		} else {
			*invalid = append(*invalid, "snapshot_ttl")
		}
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}

	if fc.SMTP.Host != "" {
		cfg.SMTP.Host = fc.SMTP.Host
	}
	if fc.SMTP.Port > 0 {
		cfg.SMTP.Port = fc.SMTP.Port
	}
	if fc.SMTP.Username != "" {
		cfg.SMTP.Username = fc.SMTP.Username
	}
	if fc.SMTP.Password != "" {
		cfg.SMTP.Password = fc.SMTP.Password
	}
	if fc.SMTP.From != "" {
		cfg.SMTP.From = fc.SMTP.From
	}
	if fc.SMTP.Workers > 0 {
		cfg.SMTP.Workers = fc.SMTP.Workers
	}
	if fc.SMTP.Timeout != "" {
		if timeout, err := time.ParseDuration(fc.SMTP.Timeout); err == nil && timeout > 0 {
			cfg.SMTP.Timeout = timeout
		} else {
			*invalid = append(*invalid, "smtp.timeout")
		}
	}
}

func applyEnv(cfg *Config, invalid *[]string) {
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_HTTP_PORT")); value != "" {
		if port, err := strconv.Atoi(value); err == nil && port > 0 {
			cfg.HTTPPort = port
		} else {
			*invalid = append(*invalid, "ROOMBOOK_HTTP_PORT")
		}
	}
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_DB_PATH")); value != "" {
		cfg.DatabasePath = value
	}
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_SEED")); value != "" {
		cfg.SeedPath = value
	}
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_TIMEZONE")); value != "" {
		cfg.Timezone = value
	}
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_ROOMS")); value != "" {
		var rooms []string
		for _, room := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(room); trimmed != "" {
				rooms = append(rooms, trimmed)
			}
		}
		if len(rooms) > 0 {
			cfg.Rooms = rooms
		}
	}
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_SESSION_TTL")); value != "" {
		if ttl, err := time.ParseDuration(value); err == nil && ttl > 0 {
			cfg.SessionTTL = ttl
		} else {
			*invalid = append(*invalid, "ROOMBOOK_SESSION_TTL")
		}
	}
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_LOG_LEVEL")); value != "" {
		cfg.LogLevel = value
	}
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_SMTP_HOST")); value != "" {
		cfg.SMTP.Host = value
	}
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_SMTP_PORT")); value != "" {
		if port, err := strconv.Atoi(value); err == nil && port > 0 {
			cfg.SMTP.Port = port
		} else {
			*invalid = append(*invalid, "ROOMBOOK_SMTP_PORT")
		}
	}
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_SMTP_USERNAME")); value != "" {
		cfg.SMTP.Username = value
	}
	if value := os.Getenv("ROOMBOOK_SMTP_PASSWORD"); value != "" {
		cfg.SMTP.Password = value
	}
	if value := strings.TrimSpace(os.Getenv("ROOMBOOK_SMTP_FROM")); value != "" {
		cfg.SMTP.From = value
	}
}
