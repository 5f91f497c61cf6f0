// Package config loads the ledger's runtime configuration, env-first with an
// optional YAML overlay for checked-in settings files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultLogRoot is used when LOG_ROOT is unset and no overlay supplies one.
const DefaultLogRoot = "./log"

// AuditFileName is the fixed audit log filename inside LogRoot.
const AuditFileName = "sidecar-audit.edn"

// Config holds the ledger's runtime configuration.
type Config struct {
	// LogRoot is the directory the audit sink writes its append-only log
	// into. Resolved once at store construction, never re-read.
	LogRoot string `yaml:"log_root"`
}

// FromEnv reads configuration from the environment. LOG_ROOT defaults to
// DefaultLogRoot when unset, matching spec §6.
func FromEnv() *Config {
	return &Config{
		LogRoot: getEnv("LOG_ROOT", DefaultLogRoot),
	}
}

// FromYAML loads a YAML settings file and overlays it on top of FromEnv(),
// so a checked-in file can supply defaults while LOG_ROOT still wins if set
// in the environment. Returns an error only if the file exists but cannot be
// parsed; a missing path is not an error (callers needing a required file
// should stat it themselves).
func FromYAML(path string) (*Config, error) {
	cfg := FromEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if os.Getenv("LOG_ROOT") == "" && overlay.LogRoot != "" {
		cfg.LogRoot = overlay.LogRoot
	}
	return cfg, nil
}

// AuditPath returns the resolved path to the audit log file.
func (c *Config) AuditPath() string {
	if c == nil || c.LogRoot == "" {
		return filepath.Join(DefaultLogRoot, AuditFileName)
	}
	return filepath.Join(c.LogRoot, AuditFileName)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
