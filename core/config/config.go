// Package config provides configuration loading and validation for the CLI.
// Values come from built-in defaults, an optional YAML file and
// DIAGRAMPIPE_* environment variables, in that order; command line flags
// are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/diagrampipe/core/extract"
	"github.com/gaurav-prasanna/diagrampipe/core/render"
	"github.com/gaurav-prasanna/diagrampipe/core/validate"
	"github.com/gaurav-prasanna/diagrampipe/corpus"
)

// DefaultFile is read when no --config is given and it exists.
const DefaultFile = "diagrampipe.yaml"

// Renderer backends.
const (
	RendererCLI = "mmdc"
	RendererInk = "ink"
)

// Environment variables.
const (
	EnvRenderer    = "DIAGRAMPIPE_RENDERER"
	EnvRendererBin = "DIAGRAMPIPE_RENDERER_BIN"
	EnvOutputDir   = "DIAGRAMPIPE_OUTPUT_DIR"
	EnvLogLevel    = "DIAGRAMPIPE_LOG_LEVEL"
	EnvInkURL      = "DIAGRAMPIPE_INK_URL"
)

// ErrInvalid is wrapped by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config is the run configuration.
type Config struct {
	// Corpus
	Exclude    []string `yaml:"exclude"`
	Extensions []string `yaml:"extensions" validate:"dive,required,startswith=."`
	Tag        string   `yaml:"tag" validate:"required"`
	MinLength  int      `yaml:"min_length" validate:"gte=0"`

	// Output
	OutputDir string `yaml:"output_dir"`

	// Renderer
	Renderer        string        `yaml:"renderer" validate:"oneof=mmdc ink"`
	RendererBin     string        `yaml:"renderer_bin" validate:"required"`
	Background      string        `yaml:"background" validate:"required"`
	Width           int           `yaml:"width" validate:"gt=0"`
	Height          int           `yaml:"height" validate:"gt=0"`
	Theme           string        `yaml:"theme" validate:"omitempty,oneof=default forest dark neutral base"`
	PuppeteerConfig string        `yaml:"puppeteer_config"`
	Timeout         time.Duration `yaml:"timeout" validate:"gte=0"`
	InkURL          string        `yaml:"ink_url" validate:"required,url"`

	// Run
	Jobs     int    `yaml:"jobs" validate:"gte=1"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Exclude:     append([]string(nil), corpus.DefaultExclude...),
		Extensions:  append([]string(nil), corpus.DefaultExtensions...),
		Tag:         extract.DefaultTag,
		MinLength:   validate.DefaultMinLength,
		Renderer:    RendererCLI,
		RendererBin: render.DefaultBin,
		Background:  render.DefaultBackground,
		Width:       render.DefaultWidth,
		Height:      render.DefaultHeight,
		InkURL:      render.DefaultInkURL,
		Jobs:        1,
		LogLevel:    "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path and then
// the environment. An empty path reads DefaultFile if it exists.
func Load(path string) (Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from DIAGRAMPIPE_* variables. Empty values are
// ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvRenderer, &c.Renderer)
	set(EnvRendererBin, &c.RendererBin)
	set(EnvOutputDir, &c.OutputDir)
	set(EnvLogLevel, &c.LogLevel)
	set(EnvInkURL, &c.InkURL)
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	})
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("'%s' fails '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, ", "))
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// RenderOptions returns the renderer backend options.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Bin:             c.RendererBin,
		Background:      c.Background,
		Width:           c.Width,
		Height:          c.Height,
		Theme:           c.Theme,
		PuppeteerConfig: c.PuppeteerConfig,
		Timeout:         c.Timeout,
		BaseURL:         c.InkURL,
	}
}
