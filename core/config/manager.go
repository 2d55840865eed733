package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/adalundhe/txrank/core/storage"
	"gopkg.in/yaml.v3"

	txerrors "github.com/adalundhe/txrank/core/errors"
)

type Manager struct {
	config      atomic.Pointer[Config]
	dirs        *storage.Dirs
	projectRoot string
}

type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Correlate CorrelateConfig `yaml:"correlate"`
	Log       LogConfig       `yaml:"log"`
}

type WindowConfig struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

type CorrelateConfig struct {
	Reverse bool `yaml:"reverse"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func NewManager(dirs *storage.Dirs, projectRoot string) *Manager {
	if projectRoot == "" {
		projectRoot = "."
	}
	m := &Manager{
		dirs:        dirs,
		projectRoot: projectRoot,
	}
	m.config.Store(DefaultConfig())
	return m
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Lower: math.Inf(-1),
			Upper: math.Inf(1),
		},
		Correlate: CorrelateConfig{
			Reverse: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (m *Manager) Get() *Config {
	return m.config.Load()
}

// Load rebuilds the configuration from defaults, the user file, the project file,
// the project-local file and TXRANK_* variables, in that order. explicit, when
// non-empty, is applied last and must exist.
func (m *Manager) Load(explicit string) error {
	cfg := DefaultConfig()

	if m.dirs != nil {
		if err := loadYAMLFile(m.dirs.ConfigDir("config.yaml"), cfg, false); err != nil {
			return fmt.Errorf("user config: %w", err)
		}
	}

	projectDirs := storage.ResolveProjectDirs(m.projectRoot)
	if err := loadYAMLFile(projectDirs.Config, cfg, false); err != nil {
		return fmt.Errorf("project config: %w", err)
	}

	if err := loadYAMLFile(filepath.Join(projectDirs.Local, "config.yaml"), cfg, false); err != nil {
		return fmt.Errorf("local config: %w", err)
	}

	if err := applyEnvironment(cfg); err != nil {
		return err
	}

	if explicit != "" {
		if err := loadYAMLFile(explicit, cfg, true); err != nil {
			return fmt.Errorf("config %s: %w", explicit, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	m.config.Store(cfg)
	return nil
}

func loadYAMLFile(path string, cfg *Config, required bool) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// applyEnvironment overlays TXRANK_* variables. A value that does not parse is
// an InvalidInput error naming the variable.
func applyEnvironment(cfg *Config) error {
	if v := os.Getenv("TXRANK_WINDOW_LOWER"); v != "" {
		f, err := parseFloat(v)
		if err != nil {
			return envError("TXRANK_WINDOW_LOWER", v, err)
		}
		cfg.Window.Lower = f
	}
	if v := os.Getenv("TXRANK_WINDOW_UPPER"); v != "" {
		f, err := parseFloat(v)
		if err != nil {
			return envError("TXRANK_WINDOW_UPPER", v, err)
		}
		cfg.Window.Upper = f
	}
	if v := os.Getenv("TXRANK_REVERSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("TXRANK_REVERSE", v, err)
		}
		cfg.Correlate.Reverse = b
	}
	if v := os.Getenv("TXRANK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TXRANK_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

func envError(name, value string, err error) error {
	return txerrors.NewKindError(txerrors.KindInvalidInput, "cannot parse environment variable", err).
		WithContext("name", name).
		WithContext("value", value)
}

// Validate checks the window ordering and the logging settings.
func (c *Config) Validate() error {
	if math.IsNaN(c.Window.Lower) || math.IsNaN(c.Window.Upper) {
		return invalid("window bounds must be numbers")
	}
	if c.Window.Lower > c.Window.Upper {
		return invalid(fmt.Sprintf("window lower bound %g is above upper bound %g", c.Window.Lower, c.Window.Upper))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return txerrors.WrapWithKind(txerrors.KindInvalidInput, "invalid log configuration", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid(fmt.Sprintf("log format must be text or json, got %q", c.Log.Format))
	}
	return nil
}

func invalid(msg string) error {
	return txerrors.NewKindError(txerrors.KindInvalidInput, msg, nil)
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
