// Package config loads session options: tick interval, jitter seed, input
// buffer bound, control keys and the physical key mapping.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/roach88/combo/internal/engine"
	"github.com/roach88/combo/internal/move"
)

// DefaultColor is used for actions whose mapping has no color.
const DefaultColor = "#19EEE7"

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates sections, e.g. COMBO_CONTROLS__REPLAY_MOVE.
const EnvPrefix = "COMBO_"

//go:embed embedded/defaults.toml
var defaultConfig []byte

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Config is the resolved session configuration.
type Config struct {
	Tick           time.Duration `koanf:"tick"`
	Seed           int64         `koanf:"seed"`
	BufferCapacity int           `koanf:"buffer_capacity"`
	Controls       Controls      `koanf:"controls"`
	Mapping        []Mapping     `koanf:"mapping"`
}

// Controls names the keys handled by the session itself.
type Controls struct {
	Clear      string `koanf:"clear"`
	Stop       string `koanf:"stop"`
	Replay     string `koanf:"replay"`
	ReplayMove string `koanf:"replay_move"`
}

// Mapping binds one physical key to an action symbol and its display color.
type Mapping struct {
	Key    string `koanf:"key"`
	Action string `koanf:"action"`
	Color  string `koanf:"color"`
}

// Load resolves the configuration from the embedded defaults, the optional
// file at path (.toml, .yaml or .yml) and COMBO_ environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. User file
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	// 3. Environment
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Unmarshal
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// 5. Normalize and validate
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

func (c *Config) normalize() {
	c.Controls.Clear = move.NormalizeSymbol(c.Controls.Clear)
	c.Controls.Stop = move.NormalizeSymbol(c.Controls.Stop)
	c.Controls.Replay = move.NormalizeSymbol(c.Controls.Replay)
	c.Controls.ReplayMove = strings.TrimSpace(c.Controls.ReplayMove)
	for i := range c.Mapping {
		c.Mapping[i].Key = move.NormalizeSymbol(c.Mapping[i].Key)
		c.Mapping[i].Action = move.NormalizeSymbol(c.Mapping[i].Action)
		c.Mapping[i].Color = strings.TrimSpace(c.Mapping[i].Color)
	}
}

// Validate checks the configuration for values the session cannot run with.
func (c *Config) Validate() error {
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	if c.BufferCapacity < 0 {
		return fmt.Errorf("buffer_capacity must not be negative, got %d", c.BufferCapacity)
	}

	keys := make(map[string]int, len(c.Mapping))
	actions := make(map[string]int, len(c.Mapping))
	for i, m := range c.Mapping {
		if m.Key == "" {
			return fmt.Errorf("mapping %d: key is required", i)
		}
		if m.Action == "" {
			return fmt.Errorf("mapping %d: action is required", i)
		}
		if strings.Contains(m.Action, move.AlternativeSeparator) {
			return fmt.Errorf("mapping %d: action %q must not contain %q", i, m.Action, move.AlternativeSeparator)
		}
		if m.Color != "" && !colorPattern.MatchString(m.Color) {
			return fmt.Errorf("mapping %d: color %q is not #RRGGBB", i, m.Color)
		}
		if first, dup := keys[m.Key]; dup {
			return fmt.Errorf("mapping %d: key %q already mapped by mapping %d", i, m.Key, first)
		}
		if first, dup := actions[m.Action]; dup {
			return fmt.Errorf("mapping %d: action %q already mapped by mapping %d", i, m.Action, first)
		}
		if c.isControl(m.Key) {
			return fmt.Errorf("mapping %d: key %q is a control key", i, m.Key)
		}
		keys[m.Key] = i
		actions[m.Action] = i
	}
	return nil
}

func (c *Config) isControl(key string) bool {
	return key == c.Controls.Clear || key == c.Controls.Stop || key == c.Controls.Replay
}

// KeyMap returns the physical key to action table. Nil when no mapping is
// configured, in which case every key stands for itself.
func (c *Config) KeyMap() engine.KeyMap {
	if len(c.Mapping) == 0 {
		return nil
	}
	m := make(engine.KeyMap, len(c.Mapping))
	for _, entry := range c.Mapping {
		m[entry.Key] = entry.Action
	}
	return m
}

// ReverseMap returns the action to physical key table used when replaying.
func (c *Config) ReverseMap() map[string]string {
	m := make(map[string]string, len(c.Mapping))
	for _, entry := range c.Mapping {
		m[entry.Action] = entry.Key
	}
	return m
}

// Colors returns the display color per action.
func (c *Config) Colors() map[string]string {
	m := make(map[string]string, len(c.Mapping))
	for _, entry := range c.Mapping {
		color := entry.Color
		if color == "" {
			color = DefaultColor
		}
		m[entry.Action] = color
	}
	return m
}

// EngineControls converts the control keys for the dispatcher.
func (c *Config) EngineControls() engine.Controls {
	return engine.Controls{
		Clear:      c.Controls.Clear,
		Stop:       c.Controls.Stop,
		Replay:     c.Controls.Replay,
		ReplayMove: c.Controls.ReplayMove,
	}
}
