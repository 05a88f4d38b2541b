package config

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantaphp/http-endpoint/web/endpoint"
	stypes "github.com/quantaphp/http-endpoint/web/server/types"
)

func TestConfigLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   string
		exp    Config
		expErr string
	}{
		{name: "ok/missing_file"},
		{name: "ok/empty_object", data: "{}"},
		{
			name: "ok/full",
			data: `{
				"server": {"address": ":9000", "read_timeout": "5s", "write_timeout": "1m30s", "shutdown_timeout": "1d"},
				"endpoint": {"error_level": "MINIMAL", "key": "result", "metadata": {"api": "v1"}}
			}`,
			exp: Config{
				Server: Server{
					Address:         sql.Null[string]{V: ":9000", Valid: true},
					ReadTimeout:     sql.Null[time.Duration]{V: 5 * time.Second, Valid: true},
					WriteTimeout:    sql.Null[time.Duration]{V: 90 * time.Second, Valid: true},
					ShutdownTimeout: sql.Null[time.Duration]{V: 24 * time.Hour, Valid: true},
				},
				Endpoint: Endpoint{
					ErrorLevel: sql.Null[stypes.ErrorLevel]{V: stypes.ErrorLevelMinimal, Valid: true},
					Key:        sql.Null[string]{V: "result", Valid: true},
					Metadata:   map[string]any{"api": "v1"},
				},
			},
		},
		{
			name:   "err/invalid_json",
			data:   `{"server":`,
			expErr: "failed parsing configuration file: unexpected end of JSON input",
		},
		{
			name:   "err/invalid_duration",
			data:   `{"server": {"read_timeout": "soon"}}`,
			expErr: "failed parsing configuration file: failed parsing server read timeout: invalid duration 'soon'",
		},
		{
			name:   "err/negative_duration",
			data:   `{"server": {"write_timeout": "-1m"}}`,
			expErr: "failed parsing configuration file: server write timeout must be positive, got '-1m'",
		},
		{
			name:   "err/invalid_error_level",
			data:   `{"endpoint": {"error_level": "verbose"}}`,
			expErr: "failed parsing configuration file: invalid error level 'verbose'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := memoryfs.New()
			if tt.data != "" {
				require.NoError(t, vfs.WriteFile(fs, "/config.json", []byte(tt.data), 0o644))
			}

			cfg := NewConfig(fs, "/config.json")
			err := cfg.Load()
			if tt.expErr != "" {
				assert.EqualError(t, err, tt.expErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.exp.Server, cfg.Server)
			assert.Equal(t, tt.exp.Endpoint, cfg.Endpoint)
			assert.Equal(t, "/config.json", cfg.Path())
		})
	}
}

func TestConfigSaveRoundTrip(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	cfg := NewConfig(fs, "/etc/endpoint/config.json")
	cfg.Server.Address = sql.Null[string]{V: ":0", Valid: true}
	cfg.Endpoint.Metadata = map[string]any{"version": "1"}
	cfg.SetDefaults()
	require.NoError(t, cfg.Save())

	data, err := vfs.ReadFile(fs, "/etc/endpoint/config.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"server": {"address": ":0", "read_timeout": "30s", "write_timeout": "1m", "shutdown_timeout": "10s"},
		"endpoint": {"error_level": "none", "key": "data", "metadata": {"version": "1"}}
	}`, string(data))

	loaded := NewConfig(fs, "/etc/endpoint/config.json")
	require.NoError(t, loaded.Load())
	assert.Equal(t, cfg.Server, loaded.Server)
	assert.Equal(t, cfg.Endpoint, loaded.Endpoint)
}

func TestEndpointOptions(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Endpoint{}.Options())

	cfg := Endpoint{
		ErrorLevel: sql.Null[stypes.ErrorLevel]{V: stypes.ErrorLevelFull, Valid: true},
		Key:        sql.Null[string]{V: "result", Valid: true},
		Metadata:   map[string]any{"api": "v1"},
	}
	e := endpoint.New(endpoint.NewResponder(), nil, cfg.Options()...)
	assert.Equal(t, "result", e.Key())
	assert.Equal(t, map[string]any{"api": "v1"}, e.Metadata())
}
