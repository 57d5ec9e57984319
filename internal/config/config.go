// Package config loads the AirInteract configuration from defaults, an
// optional YAML file and AIRINTERACT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/airinteract/internal/capture"
	"github.com/ayusman/airinteract/internal/control"
	"github.com/ayusman/airinteract/internal/detector"
	"github.com/ayusman/airinteract/internal/gesture"
	"github.com/ayusman/airinteract/internal/observability"
)

// EnvPrefix prefixes every environment override, e.g.
// AIRINTERACT_GESTURE_GENERAL_COOLDOWNS_LEFT_CLICK=250ms.
const EnvPrefix = "AIRINTERACT"

// Config is the complete runtime configuration.
type Config struct {
	// Mode selects the interpreter: general, presentation or racing.
	Mode string `mapstructure:"mode" yaml:"mode"`

	// Strict panics on internal invariant violations instead of logging.
	Strict bool `mapstructure:"strict" yaml:"strict"`

	Logger   observability.LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Camera   capture.Config             `mapstructure:"camera" yaml:"camera"`
	Detector detector.Config            `mapstructure:"detector" yaml:"detector"`
	Plugins  PluginsConfig              `mapstructure:"plugins" yaml:"plugins"`
	Server   ServerConfig               `mapstructure:"server" yaml:"server"`
	Tray     TrayConfig                 `mapstructure:"tray" yaml:"tray"`
	Gesture  gesture.Settings           `mapstructure:"gesture" yaml:"gesture"`
}

// PluginsConfig locates the plugins that back the audio collaborator.
type PluginsConfig struct {
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig configures the local status server.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`

	// StaticDir, when set, is served at the root path.
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

// TrayConfig configures the system tray icon.
type TrayConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode:     string(gesture.ProfileGeneral),
		Logger:   observability.DefaultLoggerConfig(),
		Camera:   capture.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Plugins: PluginsConfig{
			Dir:     "~/.airinteract/plugins",
			Timeout: 2 * time.Second,
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8765",
		},
		Tray:    TrayConfig{Enabled: true},
		Gesture: gesture.DefaultSettings(),
	}
}

// SetDefaults registers every field of Default as a viper default, so that
// environment variables can override keys that no file mentions.
func SetDefaults(v *viper.Viper) {
	data, err := yaml.Marshal(Default())
	if err != nil {
		panic(fmt.Sprintf("config: marshal defaults: %v", err))
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		panic(fmt.Sprintf("config: unmarshal defaults: %v", err))
	}
	setLeaves(v, "", tree)
}

func setLeaves(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setLeaves(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Load reads file, or airinteract.yaml from the working directory or
// ~/.airinteract when file is empty. A missing default file is not an error;
// a missing explicit file is.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		path, err := homedir.Expand(file)
		if err != nil {
			return nil, fmt.Errorf("config file %q: %w", file, err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("airinteract")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".airinteract"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	dir, err := homedir.Expand(cfg.Plugins.Dir)
	if err != nil {
		return nil, fmt.Errorf("plugins dir %q: %w", cfg.Plugins.Dir, err)
	}
	cfg.Plugins.Dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := gesture.ParseProfile(c.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Camera.Validate(); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	if c.Detector.MaxHands < 1 {
		return fmt.Errorf("detector: max_hands %d: must be at least 1", c.Detector.MaxHands)
	}
	if c.Plugins.Timeout <= 0 {
		return fmt.Errorf("plugins: timeout must be positive")
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server: addr is required when enabled")
	}
	return c.validateGesture()
}

func (c *Config) validateGesture() error {
	g, p, r := c.Gesture.General, c.Gesture.Presentation, c.Gesture.Racing

	if err := g.Validate(); err != nil {
		return fmt.Errorf("gesture.general: %w", err)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("gesture.presentation: %w", err)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("gesture.racing: %w", err)
	}

	for name, vc := range map[string]control.VelocityConfig{"scroll": g.Scroll, "zoom": g.Zoom} {
		if vc.Smoothing <= 0 || vc.Smoothing >= 1 {
			return fmt.Errorf("gesture.general.%s: smoothing %v: want (0,1)", name, vc.Smoothing)
		}
	}
	if g.Volume.Divisor < 1 || g.Volume.Step < 1 {
		return fmt.Errorf("gesture.general.volume: divisor and step must be at least 1")
	}

	cooldowns := map[string]time.Duration{
		"general.cooldowns.left_click":   g.Cooldowns.LeftClick,
		"general.cooldowns.right_click":  g.Cooldowns.RightClick,
		"general.cooldowns.double_click": g.Cooldowns.DoubleClick,
		"general.cooldowns.drag_toggle":  g.Cooldowns.DragToggle,
		"general.cooldowns.mode_enter":   g.Cooldowns.ModeEnter,
		"general.volume.interval":        g.Volume.Interval,
		"presentation.slide_cooldown":    p.SlideCooldown,
		"presentation.mode_enter":        p.ModeEnter,
		"racing.nitro_cooldown":          r.NitroCooldown,
		"racing.mode_enter":              r.ModeEnter,
	}
	for name, d := range cooldowns {
		if d <= 0 {
			return fmt.Errorf("gesture.%s: must be positive", name)
		}
	}

	for name, cur := range map[string]control.CursorConfig{"general": g.Cursor, "presentation": p.Cursor} {
		if 2*cur.FrameReduction >= float64(c.Camera.Width) || 2*cur.FrameReduction >= float64(c.Camera.Height) {
			return fmt.Errorf("gesture.%s.cursor: frame_reduction %v leaves no active zone in %dx%d",
				name, cur.FrameReduction, c.Camera.Width, c.Camera.Height)
		}
	}
	return nil
}

// Dump writes cfg as YAML.
func Dump(cfg *Config, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
