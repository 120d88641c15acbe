package model

import "time"

// Config is the on-disk cupswatch configuration (cupswatch.yaml).
type Config struct {
	Printer   PrinterConfig   `yaml:"printer"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Highlight HighlightConfig `yaml:"highlight"`
	Wake      WakeConfig      `yaml:"wake"`
	History   HistoryConfig   `yaml:"history"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type PrinterConfig struct {
	// Name is the CUPS queue name passed to lpstat/cupsenable/cupsdisable.
	Name string `yaml:"name"`
	// Host is the printer's network address, used by the wake prober and
	// the diagnostics probes. Optional; those features are skipped when empty.
	Host string `yaml:"host,omitempty"`
	// UseSudo prefixes the enable/disable mutations with sudo, which CUPS
	// typically requires for non-root users.
	UseSudo bool `yaml:"use_sudo"`
}

type RefreshConfig struct {
	// IntervalSec is the auto-refresh period in seconds. Zero disables
	// the scheduler; snapshots are then produced only by forced refreshes.
	IntervalSec int `yaml:"interval_sec"`
}

type HighlightConfig struct {
	// ThresholdMin flags jobs at least this many minutes old. Zero disables
	// highlighting entirely.
	ThresholdMin int `yaml:"threshold_min"`
}

type WakeConfig struct {
	Enabled     bool `yaml:"enabled"`
	IntervalMin int  `yaml:"interval_min"`
	// Port is the raw print port touched by the prober (JetDirect).
	Port int `yaml:"port"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

type DaemonConfig struct {
	// Dir holds the control socket, lock file, logs, and default history DB.
	Dir                string `yaml:"dir,omitempty"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RefreshInterval returns the scheduler interval, zero when auto-refresh
// is disabled.
func (c *Config) RefreshInterval() time.Duration {
	if c.Refresh.IntervalSec <= 0 {
		return 0
	}
	return time.Duration(c.Refresh.IntervalSec) * time.Second
}

// WakeInterval returns the wake prober interval, zero when disabled.
func (c *Config) WakeInterval() time.Duration {
	if !c.Wake.Enabled || c.Wake.IntervalMin <= 0 {
		return 0
	}
	return time.Duration(c.Wake.IntervalMin) * time.Minute
}

// ApplyDefaults fills unset fields with working values. The printer name
// has no default; validation rejects an empty one at load time.
func (c *Config) ApplyDefaults() {
	if c.Refresh.IntervalSec < 0 {
		c.Refresh.IntervalSec = 0
	}
	if c.Highlight.ThresholdMin < 0 {
		c.Highlight.ThresholdMin = 0
	}
	if c.Wake.Port == 0 {
		c.Wake.Port = 9100
	}
	if c.Wake.IntervalMin == 0 {
		c.Wake.IntervalMin = 5
	}
	if c.Daemon.ShutdownTimeoutSec == 0 {
		c.Daemon.ShutdownTimeoutSec = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
