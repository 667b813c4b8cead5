package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for a gateway instance.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Limits    LimitsConfig    `yaml:"limits"`
	Access    AccessConfig    `yaml:"access"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// AuthConfig holds identity extraction settings. When JWTSecret is empty the
// server accepts identity claims from query parameters (development mode).
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// HeartbeatConfig holds heartbeat sweep settings.
type HeartbeatConfig struct {
	// SweepInterval is how often the tracker scans for stale connections.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// ExpectedInterval is how recent a heartbeat must be to count as live.
	ExpectedInterval time.Duration `yaml:"expected_interval"`
	// UnresponsiveThreshold is the consecutive-failure count at which a
	// degraded connection becomes unresponsive.
	UnresponsiveThreshold int `yaml:"unresponsive_threshold"`
	// ExpiredThreshold is the consecutive-failure count at which an
	// unresponsive connection is force-removed.
	ExpiredThreshold int `yaml:"expired_threshold"`
}

// LimitsConfig holds client input limits.
type LimitsConfig struct {
	MaxMessageChars int `yaml:"max_message_chars"`
	SendBufferSize  int `yaml:"send_buffer_size"`
}

// AccessConfig holds role-based access settings.
type AccessConfig struct {
	// SuperAdminRole may join any group.
	SuperAdminRole string `yaml:"super_admin_role"`
	// AdminRoles may query connection statistics.
	AdminRoles []string `yaml:"admin_roles"`
}

// AuditConfig holds the audit store settings.
type AuditConfig struct {
	DBPath string `yaml:"db_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Heartbeat.SweepInterval == 0 {
		c.Heartbeat.SweepInterval = 15 * time.Second
	}
	if c.Heartbeat.ExpectedInterval == 0 {
		c.Heartbeat.ExpectedInterval = c.Heartbeat.SweepInterval
	}
	if c.Heartbeat.UnresponsiveThreshold == 0 {
		c.Heartbeat.UnresponsiveThreshold = 3
	}
	if c.Heartbeat.ExpiredThreshold == 0 {
		c.Heartbeat.ExpiredThreshold = 6
	}
	if c.Limits.MaxMessageChars == 0 {
		c.Limits.MaxMessageChars = 500
	}
	if c.Limits.SendBufferSize == 0 {
		c.Limits.SendBufferSize = 256
	}
	if c.Access.SuperAdminRole == "" {
		c.Access.SuperAdminRole = "SuperAdmin"
	}
	if len(c.Access.AdminRoles) == 0 {
		c.Access.AdminRoles = []string{"SuperAdmin", "Admin", "HRManager"}
	}
	if c.Audit.DBPath == "" {
		c.Audit.DBPath = "data/audit.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Heartbeat.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	if c.Heartbeat.ExpiredThreshold <= c.Heartbeat.UnresponsiveThreshold {
		return fmt.Errorf("expired_threshold (%d) must exceed unresponsive_threshold (%d)",
			c.Heartbeat.ExpiredThreshold, c.Heartbeat.UnresponsiveThreshold)
	}
	if c.Limits.MaxMessageChars <= 0 {
		return fmt.Errorf("max_message_chars must be positive")
	}
	return nil
}

// Default returns a configuration with all defaults applied, used when no
// config file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
