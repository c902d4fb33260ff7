package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/combo/internal/engine"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, 500*time.Microsecond, cfg.Tick)
		assert.Equal(t, int64(0), cfg.Seed)
		assert.Equal(t, 0, cfg.BufferCapacity)
		assert.Equal(t, engine.Controls{
			Clear:      "+",
			Stop:       "-",
			Replay:     "*",
			ReplayMove: "Reloadshot",
		}, cfg.EngineControls())

		keys := cfg.KeyMap()
		assert.Len(t, keys, 12)
		assert.Equal(t, "↑", keys["w"])
		assert.Equal(t, "→", keys["d"])
		assert.Equal(t, "R", keys["space"])
		assert.Equal(t, "A", keys["mouse_left"])
		assert.Equal(t, "B", keys["mouse_x2"])
		assert.Equal(t, "s", cfg.ReverseMap()["↓"])

		colors := cfg.Colors()
		assert.Equal(t, "#FF9000", colors["↑"])
		assert.Equal(t, "#036FFC", colors["W1"])
		assert.Equal(t, "#FF1500", colors["R"])
	})

	t.Run("empty_mapping_clears_defaults", func(t *testing.T) {
		path := writeConfig(t, "combo.toml", "mapping = []\n")
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Nil(t, cfg.KeyMap(), "every key stands for itself")
	})

	t.Run("toml_file_overrides_defaults", func(t *testing.T) {
		path := writeConfig(t, "combo.toml", `
tick = "2ms"
seed = 7

[controls]
replay_move = "Dash"

[[mapping]]
key = "w"
action = "↑"
color = "#FF9000"

[[mapping]]
key = "x"
action = "X"
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 2*time.Millisecond, cfg.Tick)
		assert.Equal(t, int64(7), cfg.Seed)
		assert.Equal(t, "Dash", cfg.Controls.ReplayMove)
		// Untouched controls keep their defaults
		assert.Equal(t, "+", cfg.Controls.Clear)

		assert.Equal(t, engine.KeyMap{"w": "↑", "x": "X"}, cfg.KeyMap())
		assert.Equal(t, map[string]string{"↑": "w", "X": "x"}, cfg.ReverseMap())
		assert.Equal(t, map[string]string{"↑": "#FF9000", "X": DefaultColor}, cfg.Colors())
	})

	t.Run("yaml_file", func(t *testing.T) {
		path := writeConfig(t, "combo.yaml", `
buffer_capacity: 16
mapping:
  - key: a
    action: "←"
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 16, cfg.BufferCapacity)
		assert.Equal(t, engine.KeyMap{"a": "←"}, cfg.KeyMap())
	})

	t.Run("env_overrides_file", func(t *testing.T) {
		path := writeConfig(t, "combo.toml", `seed = 7`)
		t.Setenv("COMBO_SEED", "99")
		t.Setenv("COMBO_CONTROLS__REPLAY_MOVE", "Uppercut")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, int64(99), cfg.Seed)
		assert.Equal(t, "Uppercut", cfg.Controls.ReplayMove)
	})

	t.Run("unsupported_extension", func(t *testing.T) {
		path := writeConfig(t, "combo.ini", `seed = 1`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config format")
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Tick:     time.Millisecond,
			Controls: Controls{Clear: "+", Stop: "-", Replay: "*"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "zero tick",
			mutate:  func(c *Config) { c.Tick = 0 },
			wantErr: "tick must be positive",
		},
		{
			name:    "negative capacity",
			mutate:  func(c *Config) { c.BufferCapacity = -1 },
			wantErr: "buffer_capacity",
		},
		{
			name: "duplicate key",
			mutate: func(c *Config) {
				c.Mapping = []Mapping{{Key: "w", Action: "↑"}, {Key: "w", Action: "↓"}}
			},
			wantErr: "already mapped",
		},
		{
			name: "duplicate action",
			mutate: func(c *Config) {
				c.Mapping = []Mapping{{Key: "w", Action: "↑"}, {Key: "k", Action: "↑"}}
			},
			wantErr: "already mapped",
		},
		{
			name:    "missing action",
			mutate:  func(c *Config) { c.Mapping = []Mapping{{Key: "w"}} },
			wantErr: "action is required",
		},
		{
			name:    "action with separator",
			mutate:  func(c *Config) { c.Mapping = []Mapping{{Key: "w", Action: "A|B"}} },
			wantErr: "must not contain",
		},
		{
			name:    "bad color",
			mutate:  func(c *Config) { c.Mapping = []Mapping{{Key: "w", Action: "↑", Color: "orange"}} },
			wantErr: "not #RRGGBB",
		},
		{
			name:    "control key mapped",
			mutate:  func(c *Config) { c.Mapping = []Mapping{{Key: "*", Action: "S"}} },
			wantErr: "control key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid", func(t *testing.T) {
		cfg := base()
		cfg.Mapping = []Mapping{{Key: "w", Action: "↑", Color: "#abcdef"}}
		assert.NoError(t, cfg.Validate())
	})
}
