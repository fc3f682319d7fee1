// Package config loads the TOML configuration of the splatview command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-splat/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/Carmen-Shannon/oxy-splat/engine/viewer"
	"github.com/Carmen-Shannon/oxy-splat/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete splatview configuration.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Viewer   ViewerConfig   `toml:"viewer"`
	Export   ExportConfig   `toml:"export"`
	Log      LogConfig      `toml:"log"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type RendererConfig struct {
	// PresentMode is "vsync" or "uncapped".
	PresentMode string `toml:"present_mode"`
	// MSAA is the sample count: 1, 4, 8 or 16.
	MSAA       int        `toml:"msaa"`
	Software   bool       `toml:"software"`
	ClearColor [4]float64 `toml:"clear_color"`
	FrameLimit float64    `toml:"frame_limit"`
	Profiling  bool       `toml:"profiling"`
}

type ViewerConfig struct {
	// DisplayMode is "color" or "normal".
	DisplayMode   string `toml:"display_mode"`
	DensifyFactor int    `toml:"densify_factor"`
	Workers       int    `toml:"workers"`
	Watch         bool   `toml:"watch"`
}

type ExportConfig struct {
	// ASCII writes PLY exports as text.
	ASCII bool `toml:"ascii"`
}

type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`
}

// Default returns a Config with every value set.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "oxy-splat",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			PresentMode: "vsync",
			MSAA:        int(renderer.MSAA4x),
			ClearColor:  [4]float64{0, 0, 0, 1},
		},
		Viewer: ViewerConfig{
			DisplayMode:   viewer.DisplayModeColor.String(),
			DensifyFactor: 2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path over Default and validates the result.
// Unknown keys are rejected.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the merged configuration
//   - error: a read, decode or validation error
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML bytes over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid value, each wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	bad := func(msg string) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, msg))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		bad(fmt.Sprintf("window size %dx%d", c.Window.Width, c.Window.Height))
	}
	if _, err := c.PresentMode(); err != nil {
		bad(err.Error())
	}
	switch renderer.MSAASampleCount(c.Renderer.MSAA) {
	case renderer.MSAAOff, renderer.MSAA4x, renderer.MSAA8x, renderer.MSAA16x:
	default:
		bad(fmt.Sprintf("msaa %d", c.Renderer.MSAA))
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			bad(fmt.Sprintf("clear_color[%d] = %g", i, v))
		}
	}
	if c.Renderer.FrameLimit < 0 {
		bad(fmt.Sprintf("frame_limit %g", c.Renderer.FrameLimit))
	}
	if _, err := c.DisplayMode(); err != nil {
		bad(err.Error())
	}
	if err := splat.CheckFactor(0, c.Viewer.DensifyFactor); err != nil {
		bad("densify_factor: " + err.Error())
	}
	if c.Viewer.Workers < 0 {
		bad(fmt.Sprintf("workers %d", c.Viewer.Workers))
	}
	if _, err := c.LogLevel(); err != nil {
		bad(err.Error())
	}
	return errors.Join(errs...)
}

// PresentMode parses Renderer.PresentMode.
func (c Config) PresentMode() (renderer.PresentMode, error) {
	switch strings.ToLower(c.Renderer.PresentMode) {
	case "vsync", "":
		return renderer.PresentModeVSync, nil
	case "uncapped":
		return renderer.PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("present_mode %q", c.Renderer.PresentMode)
	}
}

// DisplayMode parses Viewer.DisplayMode.
func (c Config) DisplayMode() (viewer.DisplayMode, error) {
	return viewer.ParseDisplayMode(c.Viewer.DisplayMode)
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log level %q", c.Log.Level)
	}
	return level, nil
}

// ClearColor returns Renderer.ClearColor as a wgpu color.
func (c Config) ClearColor() wgpu.Color {
	cc := c.Renderer.ClearColor
	return wgpu.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}
}

// WindowOptions returns the window options described by c.
func (c Config) WindowOptions() []window.WindowBuilderOption {
	return []window.WindowBuilderOption{
		window.WithTitle(c.Window.Title),
		window.WithSize(c.Window.Width, c.Window.Height),
	}
}

// BackendOptions returns the device options described by c. c must be valid.
func (c Config) BackendOptions() []renderer.BackendBuilderOption {
	mode, _ := c.PresentMode()
	return []renderer.BackendBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithMSAA(renderer.MSAASampleCount(c.Renderer.MSAA)),
		renderer.WithForceSoftwareRenderer(c.Renderer.Software),
	}
}

// CodecOptions returns the scene codec options described by c.
func (c Config) CodecOptions() []splat.CodecBuilderOption {
	opts := []splat.CodecBuilderOption{splat.WithWorkers(c.Viewer.Workers)}
	if c.Export.ASCII {
		opts = append(opts, splat.WithASCII())
	}
	return opts
}

// ViewerOptions returns the viewer options described by c, excluding the device. c must be valid.
func (c Config) ViewerOptions() []viewer.ViewerBuilderOption {
	mode, _ := c.DisplayMode()
	return []viewer.ViewerBuilderOption{
		viewer.WithDisplayMode(mode),
		viewer.WithCodec(splat.NewCodec(c.CodecOptions()...)),
		viewer.WithRendererOptions(renderer.WithClearColor(c.ClearColor())),
	}
}
