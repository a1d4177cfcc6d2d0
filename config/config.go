package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for out-of-range values.
var ErrInvalidConfig = errors.New("invalid config")

const (
	appName    = "meeting-notes"
	fileName   = "config.yaml"
	envPrefix  = "MEETING_NOTES"
	statusName = "meeting-notes.status"
)

var (
	validModes   = []string{"mic", "system", "combined"}
	validTools   = []string{"auto", "pw-record", "parec"}
	validLevels  = []string{"debug", "info", "warn", "warning", "error"}
	validFormats = []string{"text", "json"}
)

type Config struct {
	RecordingMode string `mapstructure:"recording_mode" yaml:"recording_mode"`
	RecordingsDir string `mapstructure:"recordings_dir" yaml:"recordings_dir"`
	KeepTempFiles bool   `mapstructure:"keep_temp_files" yaml:"keep_temp_files"`
	CaptureTool   string `mapstructure:"capture_tool" yaml:"capture_tool"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat     string `mapstructure:"log_format" yaml:"log_format"`
	StatusFile    string `mapstructure:"status_file" yaml:"status_file"`
}

func Default() *Config {
	return &Config{
		RecordingMode: "combined",
		RecordingsDir: defaultRecordingsDir(),
		CaptureTool:   "auto",
		LogLevel:      "info",
		LogFormat:     "text",
		StatusFile:    defaultStatusFile(),
	}
}

// Load reads cfgFile, or config.yaml from the config directory when cfgFile
// is empty. A missing file yields the defaults; MEETING_NOTES_* environment
// variables override both.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	v.SetDefault("recording_mode", cfg.RecordingMode)
	v.SetDefault("recordings_dir", cfg.RecordingsDir)
	v.SetDefault("keep_temp_files", cfg.KeepTempFiles)
	v.SetDefault("capture_tool", cfg.CaptureTool)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("status_file", cfg.StatusFile)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(cfgFile != "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.RecordingsDir = expandTilde(cfg.RecordingsDir)
	cfg.StatusFile = expandTilde(cfg.StatusFile)
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !contains(validModes, c.RecordingMode) {
		return fmt.Errorf("%w: recording_mode %q must be one of %s", ErrInvalidConfig, c.RecordingMode, strings.Join(validModes, ", "))
	}
	if !contains(validTools, c.CaptureTool) {
		return fmt.Errorf("%w: capture_tool %q must be one of %s", ErrInvalidConfig, c.CaptureTool, strings.Join(validTools, ", "))
	}
	if !contains(validLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("%w: log_level %q must be one of %s", ErrInvalidConfig, c.LogLevel, strings.Join(validLevels, ", "))
	}
	if !contains(validFormats, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("%w: log_format %q must be one of %s", ErrInvalidConfig, c.LogFormat, strings.Join(validFormats, ", "))
	}
	if c.RecordingsDir == "" {
		return fmt.Errorf("%w: recordings_dir is empty", ErrInvalidConfig)
	}
	return nil
}

// Save writes cfg as YAML to path (Path() when empty) with owner-only
// permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// Dir is $XDG_CONFIG_HOME/meeting-notes, falling back to ~/.config.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", appName)
	}
	return filepath.Join(".", appName)
}

func Path() string {
	return filepath.Join(Dir(), fileName)
}

func defaultRecordingsDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, appName, "recordings")
	}
	return filepath.Join(".", "recordings")
}

func defaultStatusFile() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, statusName)
	}
	return filepath.Join(Dir(), ".status")
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
