// Package config loads, validates, and persists the cupswatch YAML
// configuration, and can watch it for live edits.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/msageha/cupswatch/internal/model"
)

// DefaultFileName is the conventional config filename.
const DefaultFileName = "cupswatch.yaml"

// Load reads and validates the config file at path, applying defaults
// for unset fields.
func Load(path string) (*model.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the fields defaults cannot repair.
func Validate(cfg *model.Config) error {
	if cfg.Printer.Name == "" {
		return fmt.Errorf("printer.name is required")
	}
	if cfg.Wake.Enabled && cfg.Printer.Host == "" {
		return fmt.Errorf("wake.enabled requires printer.host")
	}
	if cfg.Wake.Port < 1 || cfg.Wake.Port > 65535 {
		return fmt.Errorf("wake.port %d out of range", cfg.Wake.Port)
	}
	return nil
}

// Save writes the config atomically: marshal to a temp file in the same
// directory, fsync, then rename over the target, so a crash mid-write
// never leaves a half-written config behind.
func Save(path string, cfg *model.Config) error {
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cupswatch-tmp-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
