// Package config holds runtime configuration: defaults, file/env loading via
// viper, and validation. Capture defaults match the upstream recorder
// behavior (1920x1080 @ 30fps, first screen device).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// --- Enum types for validated string fields ---

// BackendKind selects the screen-capture backend.
type BackendKind string

const (
	BackendAuto    BackendKind = "auto"    // Virtual in containers, host otherwise (default).
	BackendHost    BackendKind = "host"    // Native display capture for the running OS.
	BackendVirtual BackendKind = "virtual" // Frame-grab from a synthetic X server (Xvfb).
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [Default] and then
// overlaid by [Load] from the config file and DEMOREEL_* environment
// variables before being passed (by pointer) to packages that need it.
type Config struct {
	// Output location for recordings, voiceover audio, and assembled cuts.
	// Relative tool paths resolve against this directory.
	RecordingsDir string `mapstructure:"recordings_dir"`

	// Capture settings.
	CaptureBackend BackendKind `mapstructure:"capture_backend"`
	Width          int         `mapstructure:"width"`        // Default: 1920.
	Height         int         `mapstructure:"height"`       // Default: 1080.
	FPS            int         `mapstructure:"fps"`          // Default: 30.
	ScreenIndex    int         `mapstructure:"screen_index"` // Capture device selector. Default: 1.
	Display        string      `mapstructure:"display"`      // X display for the virtual backend. Default: ":99".

	// Seconds to wait for the capture process to finalize its file on stop
	// before escalating to SIGTERM/SIGKILL. Default: 10.
	StopTimeoutSeconds int `mapstructure:"stop_timeout_seconds"`

	// Voiceover settings. The premium engine is used when an API key is
	// present; otherwise synthesis falls back to a local engine.
	OpenAIKey string `mapstructure:"openai_api_key"`
	TTSVoice  string `mapstructure:"tts_voice"` // Default: "onyx".

	// Display and logging.
	Verbose   bool      `mapstructure:"verbose"`
	ColorMode ColorMode `mapstructure:"color"`
	LogFile   string    `mapstructure:"log_file"` // Optional log file path.
}

// Default returns a Config with defaults matching the upstream recorder.
func Default() *Config {
	return &Config{
		RecordingsDir:      defaultRecordingsDir(),
		CaptureBackend:     BackendAuto,
		Width:              1920,
		Height:             1080,
		FPS:                30,
		ScreenIndex:        1,
		Display:            ":99",
		StopTimeoutSeconds: 10,
		TTSVoice:           "onyx",
		Verbose:            false,
		ColorMode:          ColorAuto,
	}
}

// Load builds a Config from defaults, an optional yaml config file, and
// DEMOREEL_* environment variables. When cfgFile is empty, demoreel.yaml is
// searched in the platform config directory and the working directory. A
// missing config file is not an error; a malformed one is.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("demoreel")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	// Register every key with its default so env lookups apply during
	// Unmarshal; AutomaticEnv only covers keys viper knows about.
	v.SetDefault("recordings_dir", cfg.RecordingsDir)
	v.SetDefault("capture_backend", string(cfg.CaptureBackend))
	v.SetDefault("width", cfg.Width)
	v.SetDefault("height", cfg.Height)
	v.SetDefault("fps", cfg.FPS)
	v.SetDefault("screen_index", cfg.ScreenIndex)
	v.SetDefault("display", cfg.Display)
	v.SetDefault("stop_timeout_seconds", cfg.StopTimeoutSeconds)
	v.SetDefault("openai_api_key", cfg.OpenAIKey)
	v.SetDefault("tts_voice", cfg.TTSVoice)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("color", string(cfg.ColorMode))
	v.SetDefault("log_file", cfg.LogFile)

	v.SetEnvPrefix("DEMOREEL")
	v.AutomaticEnv()
	// Legacy variable names honored by the upstream recorder.
	_ = v.BindEnv("recordings_dir", "DEMOREEL_RECORDINGS_DIR", "RECORDINGS_DIR")
	_ = v.BindEnv("openai_api_key", "DEMOREEL_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("display", "DEMOREEL_DISPLAY", "DISPLAY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum fields and numeric ranges. Called once after Load,
// before any backend or tool is constructed.
func (c *Config) Validate() error {
	switch c.CaptureBackend {
	case BackendAuto, BackendHost, BackendVirtual:
		// valid
	default:
		return errors.New("invalid capture backend (use 'auto', 'host' or 'virtual')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.RecordingsDir == "" {
		return errors.New("recordings directory must not be empty")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid capture resolution %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("invalid capture frame rate %d (use 1-240)", c.FPS)
	}
	if c.ScreenIndex < 0 {
		return fmt.Errorf("invalid screen index %d", c.ScreenIndex)
	}
	if c.StopTimeoutSeconds < 1 || c.StopTimeoutSeconds > 120 {
		return fmt.Errorf("invalid stop timeout %ds (use 1-120)", c.StopTimeoutSeconds)
	}
	return nil
}

// EnsureRecordingsDir creates the recordings directory if needed.
func (c *Config) EnsureRecordingsDir() error {
	return os.MkdirAll(c.RecordingsDir, 0o755)
}

func defaultRecordingsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "recordings"
	}
	return filepath.Join(home, "recordings")
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Demoreel")
	case "darwin":
		return "/Library/Application Support/Demoreel"
	default:
		return "/etc/demoreel"
	}
}
