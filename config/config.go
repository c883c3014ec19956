// Package config loads the listener's startup configuration from a
// YAML file, in the same style cuemby/warren uses for its apply
// manifests: a plain struct with yaml tags, unmarshaled with
// gopkg.in/yaml.v3 and defaulted by hand afterward.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of a peerrpcd configuration file.
type Config struct {
	// Listen is the TCP address the websocket/REST transports bind to.
	Listen string `yaml:"listen"`

	// WSPath is the HTTP path the websocket transport upgrades on.
	WSPath string `yaml:"wsPath"`

	// RESTPrefix is the path prefix the REST shim mounts under, ahead
	// of /v{major}/{category}/{fn}.
	RESTPrefix string `yaml:"restPrefix"`

	// AllowedOrigins lists the Origin header values the websocket
	// handshake accepts. A single "*" allows any origin.
	AllowedOrigins []string `yaml:"allowedOrigins"`

	// Codec names the wire codec from message.Codecs; "json" if empty.
	Codec string `yaml:"codec"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// MetricsPath, if non-empty, mounts a Prometheus scrape endpoint
	// at that path on the same listen address.
	MetricsPath string `yaml:"metricsPath"`
}

// LogConfig mirrors log.Config's shape so it round-trips through YAML
// without the log package needing to know about file formats. JSON
// selects log.Config.JSONOutput; unset, logs render as console text.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Defaults returns the configuration used when no file is supplied.
func Defaults() Config {
	return Config{
		Listen:         ":4242",
		WSPath:         "/connect",
		RESTPrefix:     "/api",
		AllowedOrigins: []string{"*"},
		Codec:          "json",
		Log:            LogConfig{Level: "info"},
	}
}

// Load reads and parses a YAML configuration file at path, filling any
// zero-valued field in the result with Defaults(). An empty path
// returns Defaults() unchanged.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	applyOverrides(&cfg, &parsed)
	return cfg, nil
}

func applyOverrides(base, override *Config) {
	if override.Listen != "" {
		base.Listen = override.Listen
	}
	if override.WSPath != "" {
		base.WSPath = override.WSPath
	}
	if override.RESTPrefix != "" {
		base.RESTPrefix = override.RESTPrefix
	}
	if len(override.AllowedOrigins) > 0 {
		base.AllowedOrigins = override.AllowedOrigins
	}
	if override.Codec != "" {
		base.Codec = override.Codec
	}
	if override.Log.Level != "" {
		base.Log.Level = override.Log.Level
	}
	base.Log.JSON = base.Log.JSON || override.Log.JSON
	if override.MetricsPath != "" {
		base.MetricsPath = override.MetricsPath
	}
}
