// Package config handles all server configuration.
// CLI flags take precedence over environment variables, which take precedence
// over the optional YAML config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"rootserve/handlers"
)

// Config holds the complete server configuration. It is immutable once Load
// returns.
type Config struct {
	// Root is the absolute directory files are served from. nil disables
	// file serving and every file request is answered with 500.
	Root *string `yaml:"root" env:"ROOTSERVE_ROOT"`
	// Port is the TCP port the HTTP server listens on.
	Port int `yaml:"port" env:"ROOTSERVE_PORT"`
	// Index is the file served in place of a directory.
	Index string `yaml:"index" env:"ROOTSERVE_INDEX"`
	// Bandwidth is the server-wide upload cap as written by the user,
	// e.g. "10mbps". Empty or "0" means unlimited.
	Bandwidth string `yaml:"bandwidth" env:"ROOTSERVE_BANDWIDTH"`
	// StatsDir holds the download counters file. Empty keeps the counters
	// in memory only.
	StatsDir string `yaml:"stats_dir" env:"ROOTSERVE_STATS_DIR"`
	// HealthPath and StatsPath are the request paths of the status
	// endpoints. Empty disables the endpoint.
	HealthPath string `yaml:"health_path" env:"ROOTSERVE_HEALTH_PATH"`
	StatsPath  string `yaml:"stats_path" env:"ROOTSERVE_STATS_PATH"`
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level" env:"ROOTSERVE_LOG_LEVEL"`

	// BandwidthLimit is Bandwidth in bytes per second; 0 means unlimited.
	BandwidthLimit float64 `yaml:"-"`
	// Level is LogLevel parsed.
	Level logrus.Level `yaml:"-"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Port:       7887,
		Index:      handlers.DefaultIndex,
		HealthPath: "/-/health",
		StatsPath:  "/-/stats",
		LogLevel:   "info",
	}
}

// BindFlags registers the configuration flags on fs. Only flags the user
// actually sets override other sources.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("root", "", "Directory to serve (env: ROOTSERVE_ROOT; unset disables serving)")
	fs.Int("port", 0, "HTTP port to listen on (env: ROOTSERVE_PORT, default: 7887)")
	fs.String("index", "", "File served for directory requests (env: ROOTSERVE_INDEX, default: index.html)")
	fs.String("bandwidth", "", "Total upload bandwidth cap, e.g. 10mbps, 500kbps, 1gbps (env: ROOTSERVE_BANDWIDTH, default: unlimited)")
	fs.String("stats-dir", "", "Directory in which rootserve.json is stored (env: ROOTSERVE_STATS_DIR, default: in-memory)")
	fs.String("health-path", "", "Health endpoint path (env: ROOTSERVE_HEALTH_PATH, default: /-/health)")
	fs.String("stats-path", "", "Download stats endpoint path (env: ROOTSERVE_STATS_PATH, default: /-/stats)")
	fs.String("log-level", "", "Log level: trace, debug, info, warn, error (env: ROOTSERVE_LOG_LEVEL, default: info)")
}

// Load builds the configuration from the YAML file at path (skipped when
// path is empty), the environment and the flags in fs (may be nil), then
// validates it.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	c := NewConfig()

	if path != "" {
		if err := readYAMLFile(path, c); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if fs != nil {
		if err := applyFlags(fs, c); err != nil {
			return nil, err
		}
	}

	if err := c.finalize(); err != nil {
		return nil, err
	}
	return c, nil
}

func readYAMLFile(path string, c *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to parse YAML config file %q: %w", path, err)
	}
	return nil
}

func applyFlags(fs *pflag.FlagSet, c *Config) error {
	strs := map[string]*string{
		"index":       &c.Index,
		"bandwidth":   &c.Bandwidth,
		"stats-dir":   &c.StatsDir,
		"health-path": &c.HealthPath,
		"stats-path":  &c.StatsPath,
		"log-level":   &c.LogLevel,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}

	if fs.Changed("root") {
		v, err := fs.GetString("root")
		if err != nil {
			return fmt.Errorf("flag --root: %w", err)
		}
		c.Root = &v
	}
	if fs.Changed("port") {
		v, err := fs.GetInt("port")
		if err != nil {
			return fmt.Errorf("flag --port: %w", err)
		}
		c.Port = v
	}
	return nil
}

// finalize validates the merged values and derives the parsed fields.
func (c *Config) finalize() error {
	// --- root ---
	if c.Root != nil && strings.TrimSpace(*c.Root) == "" {
		c.Root = nil
	}
	if c.Root != nil {
		abs, err := filepath.Abs(*c.Root)
		if err != nil {
			return fmt.Errorf("root %q: %w", *c.Root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("root %q: %w", abs, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("root %q is not a directory", abs)
		}
		c.Root = &abs
	}

	// --- port ---
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	// --- index ---
	// The index name is appended to sanitised paths, so it must not be able
	// to leave the directory it is appended to.
	if c.Index == "" || c.Index == "." || c.Index == ".." || strings.ContainsAny(c.Index, `/\`) {
		return fmt.Errorf("invalid index %q: must be a plain file name", c.Index)
	}

	// --- endpoints ---
	for name, p := range map[string]string{"health path": c.HealthPath, "stats path": c.StatsPath} {
		if p != "" && !strings.HasPrefix(p, "/") {
			return fmt.Errorf("invalid %s %q: must start with /", name, p)
		}
	}

	// --- bandwidth ---
	bps, err := parseBandwidth(c.Bandwidth)
	if err != nil {
		return fmt.Errorf("invalid bandwidth %q: %w", c.Bandwidth, err)
	}
	c.BandwidthLimit = bps

	// --- log level ---
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	c.Level = level
	return nil
}

// parseBandwidth converts a human-readable bandwidth string to bytes per
// second. Accepted units (case-insensitive): bps, kbps, mbps, gbps.
// A bare number is treated as bits per second.
//
// Examples: "10mbps", "500 kbps", "1gbps", "131072"
func parseBandwidth(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	// Split into numeric prefix and unit suffix.
	i := 0
	for i < len(s) && (s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("no numeric value found")
	}
	numStr := s[:i]
	unit := strings.ToLower(strings.TrimFunc(s[i:], unicode.IsSpace))

	val, err := strconv.ParseFloat(numStr, 64)
	if err != nil || val < 0 {
		return 0, fmt.Errorf("invalid number %q", numStr)
	}

	switch unit {
	case "", "bps":
		return val / 8, nil
	case "kbps":
		return val * 1_000 / 8, nil
	case "mbps":
		return val * 1_000_000 / 8, nil
	case "gbps":
		return val * 1_000_000_000 / 8, nil
	default:
		return 0, fmt.Errorf("unknown unit %q (accepted: bps, kbps, mbps, gbps)", unit)
	}
}
