package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/officialn8/ctatracks"
	"github.com/officialn8/ctatracks/internal/logger"
)

// Environment variables
const (
	EnvConfigPath = "CTATRACKS_CONFIG"
	EnvLogLevel   = "CTATRACKS_LOG_LEVEL"
	EnvLogFile    = "CTATRACKS_LOG_FILE"
)

// Config is configuration of segment processing
type Config struct {
	OffsetStep     float64 `yaml:"offset_step" validate:"gt=0"`
	LoopOffsetStep float64 `yaml:"loop_offset_step" validate:"gt=0"`
	StitchOnlyLoop bool    `yaml:"stitch_only_loop"`
	// ActiveLines lists enabled lines; empty means every line
	ActiveLines   []string      `yaml:"active_lines" validate:"dive,ctaline"`
	ColorProperty bool          `yaml:"color_property"`
	Log           logger.Config `yaml:"log"`
}

// Default returns configuration used when no file is given
func Default() *Config {
	return &Config{
		OffsetStep:     ctatracks.DefaultOffsetStep,
		LoopOffsetStep: ctatracks.DefaultLoopOffsetStep,
		StitchOnlyLoop: true,
		ActiveLines:    []string{},
		ColorProperty:  true,
		Log:            logger.DefaultConfig(),
	}
}

// Load reads .env (when present), then YAML file at path on top of defaults, then
// applies environment overrides and validates result.
// When path is empty CTATRACKS_CONFIG is used; no file at all is fine.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "Can't read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "Can't parse config file")
		}
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if file := os.Getenv(EnvLogFile); file != "" {
		cfg.Log.FilePath = file
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (cfg *Config) Validate() error {
	v := validator.New()
	err := v.RegisterValidation("ctaline", func(fl validator.FieldLevel) bool {
		_, ok := ctatracks.ParseLine(fl.Field().String())
		return ok
	})
	if err != nil {
		return errors.Wrap(err, "Can't register line validation")
	}
	if err := v.Struct(cfg); err != nil {
		return errors.Wrap(err, "Invalid configuration")
	}
	return nil
}

// LineFilter returns filter enabling ActiveLines or every line when the list is empty
func (cfg *Config) LineFilter() ctatracks.LineFilter {
	if len(cfg.ActiveLines) == 0 {
		return ctatracks.AllLines(true)
	}
	filter := ctatracks.AllLines(false)
	for _, name := range cfg.ActiveLines {
		if line, ok := ctatracks.ParseLine(name); ok {
			filter[line] = true
		}
	}
	return filter
}

// ProcessorOptions converts configuration into processor options
func (cfg *Config) ProcessorOptions() []func(*ctatracks.Processor) {
	return []func(*ctatracks.Processor){
		ctatracks.WithOffsetStep(cfg.OffsetStep),
		ctatracks.WithLoopOffsetStep(cfg.LoopOffsetStep),
		ctatracks.WithStitchOnlyLoop(cfg.StitchOnlyLoop),
	}
}
