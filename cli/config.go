package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/alecthomas/kong"

	actx "github.com/quantaphp/http-endpoint/app/context"
	aerrors "github.com/quantaphp/http-endpoint/app/errors"
)

// The Config command manages the application configuration file.
type Config struct {
	Show struct{} `kong:"cmd,help='Show the effective configuration.'"`
	Set  struct {
		Key   string `arg:"" help:"The configuration key, e.g. server.address or endpoint.metadata.version."`
		Value string `arg:"" help:"The configuration value."`
	} `kong:"cmd,help='Change a configuration value.'"`
}

// configKeys are the keys of scalar configuration values.
var configKeys = []string{
	"server.address",
	"server.read_timeout",
	"server.write_timeout",
	"server.shutdown_timeout",
	"endpoint.error_level",
	"endpoint.key",
}

// Run the config command.
func (c *Config) Run(kctx *kong.Context, appCtx *actx.Context) error {
	switch kctx.Selected().Name {
	case "show":
		return c.show(appCtx)
	case "set":
		return c.set(appCtx)
	}

	return nil
}

func (c *Config) show(appCtx *actx.Context) error {
	values, err := flatConfig(appCtx)
	if err != nil {
		return err
	}

	data := make([][]string, 0, len(values))
	for _, k := range slices.Sorted(maps.Keys(values)) {
		data = append(data, []string{k, values[k]})
	}

	if err = renderTable([]string{"Key", "Value"}, data, appCtx.Stdout); err != nil {
		return fmt.Errorf("failed rendering configuration: %w", err)
	}

	return nil
}

func (c *Config) set(appCtx *actx.Context) error {
	path := strings.Split(c.Set.Key, ".")
	isMetadata := len(path) == 3 && path[0] == "endpoint" && path[1] == "metadata" && path[2] != ""
	if !isMetadata && !slices.Contains(configKeys, c.Set.Key) {
		return aerrors.New("invalid configuration key", "key", c.Set.Key)
	}

	cfg := appCtx.Config
	if isMetadata {
		if cfg.Endpoint.Metadata == nil {
			cfg.Endpoint.Metadata = map[string]any{}
		}
		cfg.Endpoint.Metadata[path[2]] = c.Set.Value
	} else {
		// The change is applied as a partial JSON document, so that values are
		// validated the same way as when loading the configuration file.
		patchJSON, err := json.Marshal(map[string]any{path[0]: map[string]any{path[1]: c.Set.Value}})
		if err != nil {
			return fmt.Errorf("failed serializing configuration value: %w", err)
		}
		if err = json.Unmarshal(patchJSON, cfg); err != nil {
			return aerrors.NewWithCause("invalid configuration value", err, "key", c.Set.Key)
		}
	}

	if err := cfg.Save(); err != nil {
		return aerrors.NewWithCause("failed saving configuration", err, "path", cfg.Path())
	}

	appCtx.Logger.Info("updated configuration", "key", c.Set.Key, "path", cfg.Path())

	return nil
}

// flatConfig returns the configuration as a map of dotted keys to values.
func flatConfig(appCtx *actx.Context) (map[string]string, error) {
	cfgJSON, err := json.Marshal(appCtx.Config)
	if err != nil {
		return nil, fmt.Errorf("failed serializing configuration: %w", err)
	}

	var doc map[string]any
	if err = json.Unmarshal(cfgJSON, &doc); err != nil {
		return nil, fmt.Errorf("failed parsing configuration: %w", err)
	}

	values := map[string]string{}
	flattenInto(values, "", doc)

	return values, nil
}

func flattenInto(dst map[string]string, prefix string, v any) {
	m, ok := v.(map[string]any)
	if !ok {
		dst[prefix] = fmt.Sprint(v)
		return
	}
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		flattenInto(dst, key, val)
	}
}
