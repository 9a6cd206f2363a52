package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

const redactedKey = "<redacted>"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir     string `yaml:"work_dir"`
	Concurrency int    `yaml:"concurrency"`

	Download      DownloadConfig      `yaml:"download"`
	FFmpeg        FFmpegConfig        `yaml:"ffmpeg"`
	Sampler       SamplerConfig       `yaml:"sampler"`
	AI            AIConfig            `yaml:"ai"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Report        ReportConfig        `yaml:"report"`
}

type DownloadConfig struct {
	BinaryPath string        `yaml:"binary_path"`
	Format     string        `yaml:"format"`
	Timeout    time.Duration `yaml:"timeout"`
}

type FFmpegConfig struct {
	BinaryPath     string        `yaml:"binary_path"`
	ProbePath      string        `yaml:"probe_path"`
	Threads        int           `yaml:"threads"`
	SceneThreshold float64       `yaml:"scene_threshold"`
	Timeout        time.Duration `yaml:"timeout"`
}

type SamplerConfig struct {
	// MaxGap is the longest stretch between boundaries left without a midpoint frame
	MaxGap       float64 `yaml:"max_gap"`
	AllowPartial bool    `yaml:"allow_partial"`
}

type AIConfig struct {
	BaseURL            string        `yaml:"base_url"`
	APIKey             string        `yaml:"api_key"`
	VisionModel        string        `yaml:"vision_model"`
	TranscriptionModel string        `yaml:"transcription_model"`
	BatchSize          int           `yaml:"batch_size"`
	MinCallInterval    time.Duration `yaml:"min_call_interval"`
	MaxImageWidth      int           `yaml:"max_image_width"`
	MaxTokens          int           `yaml:"max_tokens"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ScopedTranscript   bool          `yaml:"scoped_transcript"`
}

type TranscriptionConfig struct {
	// Required turns a transcription failure into a pipeline failure
	Required bool `yaml:"required"`
}

type ReportConfig struct {
	DeriveInsights bool `yaml:"derive_insights"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

// Save writes configuration to file. The API key is left empty so a saved
// file never holds a secret; it comes back from OPENAI_API_KEY on Load.
func (c *Config) Save(path string) error {
	data, err := c.encode("")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Marshal renders the configuration as YAML for display, with the API key redacted
func (c *Config) Marshal() ([]byte, error) {
	key := ""
	if c.AI.APIKey != "" {
		key = redactedKey
	}
	return c.encode(key)
}

func (c *Config) encode(apiKey string) ([]byte, error) {
	out := *c
	out.AI.APIKey = apiKey
	return yaml.Marshal(&out)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("SHOTLIST_AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("SHOTLIST_WORK_DIR"); v != "" {
		c.WorkDir = v
	}
}

func defaultConfig() *Config {
	return &Config{
		WorkDir:     filepath.Join(os.TempDir(), "shotlist"),
		Concurrency: 2,
		Download: DownloadConfig{
			BinaryPath: "yt-dlp",
			Format:     "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			Timeout:    5 * time.Minute,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath:     "ffmpeg",
			ProbePath:      "ffprobe",
			Threads:        0,
			SceneThreshold: 0.3,
			Timeout:        3 * time.Minute,
		},
		Sampler: SamplerConfig{
			MaxGap:       5.0,
			AllowPartial: false,
		},
		AI: AIConfig{
			VisionModel:        "gpt-4o",
			TranscriptionModel: "whisper-1",
			BatchSize:          3,
			MinCallInterval:    2 * time.Second,
			MaxImageWidth:      1024,
			MaxTokens:          1500,
			RequestTimeout:     2 * time.Minute,
		},
		Report: ReportConfig{
			DeriveInsights: true,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".shotlist", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
