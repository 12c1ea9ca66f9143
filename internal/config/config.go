package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

// Capture sources.
const (
	SourceLoopback = "loopback"
	SourceMic      = "mic"
)

type Config struct {
	LogLevel string        `json:"log_level"`
	Capture  CaptureConfig `json:"capture"`
	Whisper  WhisperConfig `json:"whisper"`

	// SaveAudio also writes the captured stream to a WAV file.
	SaveAudio  bool   `json:"save_audio"`
	OutputFile string `json:"output_file"`
}

type CaptureConfig struct {
	Source string `json:"source"` // "loopback" or "mic"
	PID    uint32 `json:"pid"`    // capture only this process's session (0 = whole endpoint)

	StepMS   int `json:"step_ms"`   // new audio per recognition pass; <=0 enables VAD mode
	LengthMS int `json:"length_ms"` // total window handed to the recognizer
	KeepMS   int `json:"keep_ms"`   // tail carried between windows

	VADThreshold float32 `json:"vad_threshold"`
}

type WhisperConfig struct {
	Model     string `json:"model"`    // "base.en", "small", etc.
	Language  string `json:"language"` // "auto", "en", etc.
	Threads   int    `json:"threads"`  // 0 = auto-detect
	Translate bool   `json:"translate"`
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	path := configPath()

	cfg := &Config{
		LogLevel: "info",
		Capture: CaptureConfig{
			Source:       SourceLoopback,
			StepMS:       3000,
			LengthMS:     10000,
			KeepMS:       200,
			VADThreshold: 0.6,
		},
		Whisper: WhisperConfig{
			Model:    "base.en",
			Language: "auto",
			Threads:  0,
		},
	}

	// Load existing config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := configPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "voice-whisper", "config.json")
}

// ModelsPath returns the platform-specific models directory path
func ModelsPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, "voice-whisper", "models")
}
