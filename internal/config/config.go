package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration. Every field has a working
// default; a missing config file is not an error.
type Config struct {
	Audio   AudioConfig   `mapstructure:"audio" yaml:"audio"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels   int `mapstructure:"channels" yaml:"channels"`
}

type CaptureConfig struct {
	// MicDevice is the microphone selection: a device name, "default", or
	// "none" to record system audio only.
	MicDevice string `mapstructure:"mic_device" yaml:"mic_device"`
	// SystemAudio enables capture of the system/application audio mix.
	SystemAudio bool `mapstructure:"system_audio" yaml:"system_audio"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

func defaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: 48000,
			Channels:   2,
		},
		Capture: CaptureConfig{
			MicDevice:   "default",
			SystemAudio: true,
		},
		Output: OutputConfig{
			Directory: "~/Audio/Scriberr",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	return os.ExpandEnv("$HOME/.config/scriberr.yaml")
}

// Load reads the config file, applies defaults for anything not set and
// validates the result. A missing file yields the default configuration.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	defaults := defaultConfig()
	v.SetDefault("audio.sample_rate", defaults.Audio.SampleRate)
	v.SetDefault("audio.channels", defaults.Audio.Channels)
	v.SetDefault("capture.mic_device", defaults.Capture.MicDevice)
	v.SetDefault("capture.system_audio", defaults.Capture.SystemAudio)
	v.SetDefault("output.directory", defaults.Output.Directory)
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)

	v.SetEnvPrefix("SCRIBERR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Output.Directory = expandPath(cfg.Output.Directory)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration describes a session the capture
// pipeline can actually run. The pipeline records interleaved stereo float
// at 48 kHz; other formats are rejected up front instead of failing at
// device open time.
func (c *Config) Validate() error {
	if c.Audio.SampleRate != 48000 {
		return fmt.Errorf("audio.sample_rate must be 48000, got: %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 2 {
		return fmt.Errorf("audio.channels must be 2, got: %d", c.Audio.Channels)
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got: %d", c.Server.Port)
	}
	if !c.Capture.SystemAudio && (c.Capture.MicDevice == "" || c.Capture.MicDevice == "none") {
		return fmt.Errorf("at least one capture source must be enabled")
	}
	return nil
}

// Save writes the configuration to path as YAML, creating the parent
// directory if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		return fmt.Errorf("no config file specified")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
