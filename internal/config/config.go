// Package config holds the client's own settings and the engine parameter
// presets and ranges.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/natsel/internal/controller"
	"github.com/san-kum/natsel/internal/engine"
	"github.com/san-kum/natsel/internal/overlay"
)

const (
	DefaultPath      = "natsel.yaml"
	DefaultDataDir   = ".natsel"
	DefaultLogFile   = "natsel.log"
	DefaultTheme     = "default"
	DefaultCellWidth = 2
)

type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Controller ControllerConfig `yaml:"controller"`
	UI         UIConfig         `yaml:"ui"`
	Log        LogConfig        `yaml:"log"`
	DataDir    string           `yaml:"data_dir"`
	Record     bool             `yaml:"record"`
}

type EngineConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ControllerConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	AnimationInterval time.Duration `yaml:"animation_interval"`
	DeathDuration     time.Duration `yaml:"death_duration"`
}

type UIConfig struct {
	Theme     string `yaml:"theme"`
	CellWidth int    `yaml:"cell_width"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			BaseURL: engine.DefaultBaseURL,
			Timeout: engine.DefaultTimeout,
		},
		Controller: ControllerConfig{
			PollInterval:      controller.DefaultPollInterval,
			AnimationInterval: controller.DefaultAnimationInterval,
			DeathDuration:     overlay.DefaultDuration,
		},
		UI: UIConfig{
			Theme:     DefaultTheme,
			CellWidth: DefaultCellWidth,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			File:   DefaultLogFile,
		},
		DataDir: DefaultDataDir,
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Engine.BaseURL == "":
		return errors.New("engine.base_url is required")
	case c.Engine.Timeout < 0:
		return errors.New("engine.timeout must not be negative")
	case c.Controller.PollInterval <= 0:
		return errors.New("controller.poll_interval must be positive")
	case c.Controller.AnimationInterval <= 0:
		return errors.New("controller.animation_interval must be positive")
	case c.Controller.DeathDuration <= 0:
		return errors.New("controller.death_duration must be positive")
	case c.UI.CellWidth < 1 || c.UI.CellWidth > 4:
		return fmt.Errorf("ui.cell_width %d out of range 1..4", c.UI.CellWidth)
	}
	return nil
}

// ControllerOptions maps the controller section onto controller.Options.
func (c *Config) ControllerOptions() controller.Options {
	return controller.Options{
		PollInterval:      c.Controller.PollInterval,
		AnimationInterval: c.Controller.AnimationInterval,
		DeathDuration:     c.Controller.DeathDuration,
	}
}
