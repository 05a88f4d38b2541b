package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"github.com/quantaphp/http-endpoint/web/endpoint"
	stypes "github.com/quantaphp/http-endpoint/web/server/types"
	"github.com/quantaphp/http-endpoint/xtime"
)

// DefaultAddress is the address the server listens on if none is configured.
const DefaultAddress = "localhost:8080"

// Config represents the application configuration, backed by a filesystem for
// persistence.
type Config struct {
	Server   Server
	Endpoint Endpoint

	fs   vfs.FileSystem
	path string
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	configJSON, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	// Ensure that unmarshalling JSON doesn't fail if the file doesn't exist or is empty.
	if len(configJSON) == 0 {
		configJSON = []byte("{}")
	}

	if err = json.Unmarshal(configJSON, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

// Save writes the current configuration to the filesystem as JSON.
func (c *Config) Save() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed serializing configuration data: %w", err)
	}
	if err = vfs.WriteFile(c.fs, c.path, configJSON, 0o644); err != nil {
		return fmt.Errorf("failed writing configuration file: %w", err)
	}

	return nil
}

// Server defines configuration options specific to the HTTP server.
type Server struct {
	// Address is the network address in [host]:port format the server will listen on.
	Address sql.Null[string] `json:"address"`
	// ReadTimeout is the maximum duration for reading an entire request.
	// It serializes from/to xtime.Duration string values.
	ReadTimeout sql.Null[time.Duration] `json:"read_timeout"`
	// WriteTimeout is the maximum duration before timing out writes of a response.
	WriteTimeout sql.Null[time.Duration] `json:"write_timeout"`
	// ShutdownTimeout is how long in-flight requests are given to complete when
	// the server is stopped.
	ShutdownTimeout sql.Null[time.Duration] `json:"shutdown_timeout"`
}

// Endpoint defines how endpoint results and errors are rendered.
type Endpoint struct {
	// ErrorLevel is the detail level of error messages returned to clients.
	ErrorLevel sql.Null[stypes.ErrorLevel] `json:"error_level"`
	// Key is the response envelope field results are placed in.
	Key sql.Null[string] `json:"key"`
	// Metadata are static fields added to every response envelope.
	Metadata map[string]any `json:"metadata"`
}

// Options returns the endpoint options corresponding to the configuration.
// Unset values keep the endpoint defaults.
func (e Endpoint) Options() []endpoint.Option {
	var opts []endpoint.Option
	if e.ErrorLevel.Valid {
		opts = append(opts, endpoint.WithErrorLevel(e.ErrorLevel.V))
	}
	if e.Key.Valid {
		opts = append(opts, endpoint.WithKey(e.Key.V))
	}
	if e.Metadata != nil {
		opts = append(opts, endpoint.WithMetadata(e.Metadata))
	}
	return opts
}

type cfgWrapper struct {
	Server   srvCfgWrapper      `json:"server"`
	Endpoint endpointCfgWrapper `json:"endpoint"`
}
type srvCfgWrapper struct {
	Address         string `json:"address,omitempty"`
	ReadTimeout     string `json:"read_timeout,omitempty"`
	WriteTimeout    string `json:"write_timeout,omitempty"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`
}
type endpointCfgWrapper struct {
	ErrorLevel string         `json:"error_level,omitempty"`
	Key        string         `json:"key,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON implements custom JSON marshaling to convert sql.Null values
// to their underlying types, omitting invalid/null fields from the output.
func (c Config) MarshalJSON() ([]byte, error) {
	w := cfgWrapper{}

	if c.Server.Address.Valid {
		w.Server.Address = c.Server.Address.V
	}
	w.Server.ReadTimeout = formatDuration(c.Server.ReadTimeout)
	w.Server.WriteTimeout = formatDuration(c.Server.WriteTimeout)
	w.Server.ShutdownTimeout = formatDuration(c.Server.ShutdownTimeout)

	if c.Endpoint.ErrorLevel.Valid {
		w.Endpoint.ErrorLevel = c.Endpoint.ErrorLevel.V.String()
	}
	if c.Endpoint.Key.Valid {
		w.Endpoint.Key = c.Endpoint.Key.V
	}
	w.Endpoint.Metadata = c.Endpoint.Metadata

	//nolint:wrapcheck // This is fine.
	return json.Marshal(w)
}

// UnmarshalJSON implements custom JSON unmarshaling to convert plain values
// into sql.Null types and parse duration strings into time.Duration values.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w cfgWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	if w.Server.Address != "" {
		c.Server.Address = sql.Null[string]{V: w.Server.Address, Valid: true}
	}

	durations := []struct {
		name  string
		value string
		dst   *sql.Null[time.Duration]
	}{
		{"read timeout", w.Server.ReadTimeout, &c.Server.ReadTimeout},
		{"write timeout", w.Server.WriteTimeout, &c.Server.WriteTimeout},
		{"shutdown timeout", w.Server.ShutdownTimeout, &c.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		dur, err := xtime.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("failed parsing server %s: %w", d.name, err)
		}
		if dur <= 0 {
			return fmt.Errorf("server %s must be positive, got '%s'", d.name, d.value)
		}
		*d.dst = sql.Null[time.Duration]{V: dur, Valid: true}
	}

	if w.Endpoint.ErrorLevel != "" {
		var lvl stypes.ErrorLevel
		if err := lvl.UnmarshalText([]byte(w.Endpoint.ErrorLevel)); err != nil {
			return err
		}
		c.Endpoint.ErrorLevel = sql.Null[stypes.ErrorLevel]{V: lvl, Valid: true}
	}
	if w.Endpoint.Key != "" {
		c.Endpoint.Key = sql.Null[string]{V: w.Endpoint.Key, Valid: true}
	}
	if w.Endpoint.Metadata != nil {
		c.Endpoint.Metadata = w.Endpoint.Metadata
	}

	return nil
}

// SetDefaults sets default configuration values if they weren't set already.
func (c *Config) SetDefaults() {
	if !c.Server.Address.Valid {
		c.Server.Address = sql.Null[string]{V: DefaultAddress, Valid: true}
	}
	if !c.Server.ReadTimeout.Valid {
		c.Server.ReadTimeout = sql.Null[time.Duration]{V: 30 * time.Second, Valid: true}
	}
	if !c.Server.WriteTimeout.Valid {
		c.Server.WriteTimeout = sql.Null[time.Duration]{V: time.Minute, Valid: true}
	}
	if !c.Server.ShutdownTimeout.Valid {
		c.Server.ShutdownTimeout = sql.Null[time.Duration]{V: 10 * time.Second, Valid: true}
	}
	if !c.Endpoint.ErrorLevel.Valid {
		c.Endpoint.ErrorLevel = sql.Null[stypes.ErrorLevel]{V: stypes.ErrorLevelNone, Valid: true}
	}
	if !c.Endpoint.Key.Valid {
		c.Endpoint.Key = sql.Null[string]{V: endpoint.DefaultKey, Valid: true}
	}
}

func formatDuration(d sql.Null[time.Duration]) string {
	if !d.Valid {
		return ""
	}
	return xtime.FormatDuration(d.V, time.Second)
}
