package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted application configuration edited by the settings
// surface and read-only to the workflow core. Credentials may be left empty
// in the file and supplied through environment variables instead.
type Settings struct {
	GeminiAPIKey      string `yaml:"gemini_api_key"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`
	YouTubeOAuth      OAuth  `yaml:"youtube_oauth"`
	AgentInstructions string `yaml:"agent_instructions"`

	VideoDuration   int    `yaml:"video_duration"`   // seconds, clamped to [5,60] by the generator
	VideoResolution string `yaml:"video_resolution"` // 1080p, 720p, or 480p

	// WeeklySchedule maps weekday names ("Monday".."Sunday") to "HH:MM".
	WeeklySchedule map[string]string `yaml:"weekly_schedule"`

	// UploadDestination selects the publish target: "main" or "shorts".
	UploadDestination string `yaml:"upload_destination"`
	Visibility        string `yaml:"visibility"` // public, private, or unlisted

	OutputDirectory string `yaml:"output_directory"`
	TempDirectory   string `yaml:"temp_directory"`
	LedgerFile      string `yaml:"ledger_file"`
}

// OAuth holds the refresh-token credentials for the YouTube Data API.
type OAuth struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// DefaultSettings returns the settings used when no settings file exists.
func DefaultSettings() Settings {
	return Settings{
		AgentInstructions: "Generate engaging, high-quality videos suitable for YouTube. " +
			"Focus on trending topics, educational content, or entertainment. " +
			"Keep videos between 30-60 seconds.",
		VideoDuration:     30,
		VideoResolution:   "1080p",
		WeeklySchedule:    map[string]string{},
		UploadDestination: "main",
		Visibility:        "public",
		OutputDirectory:   "output",
		TempDirectory:     "temp",
		LedgerFile:        "logs/upload_tracker.json",
	}
}

// LoadSettings reads the YAML settings file at path. A missing file is not an
// error; defaults are returned so the service can start unconfigured and be
// pointed at credentials later. Credentials found in the environment override
// the file.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to env overrides
	case err != nil:
		return s, fmt.Errorf("read settings %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	s.GeminiAPIKey = GetEnv("GEMINI_API_KEY", s.GeminiAPIKey)
	s.OpenAIAPIKey = GetEnv("OPENAI_API_KEY", s.OpenAIAPIKey)
	s.YouTubeOAuth.ClientID = GetEnv("YOUTUBE_CLIENT_ID", s.YouTubeOAuth.ClientID)
	s.YouTubeOAuth.ClientSecret = GetEnv("YOUTUBE_CLIENT_SECRET", s.YouTubeOAuth.ClientSecret)
	s.YouTubeOAuth.RefreshToken = GetEnv("YOUTUBE_REFRESH_TOKEN", s.YouTubeOAuth.RefreshToken)

	return s, nil
}

// Redacted returns a copy of s safe to expose over the control surface:
// every present credential is replaced with a mask.
func (s Settings) Redacted() Settings {
	out := s
	out.GeminiAPIKey = mask(s.GeminiAPIKey)
	out.OpenAIAPIKey = mask(s.OpenAIAPIKey)
	out.YouTubeOAuth.ClientID = mask(s.YouTubeOAuth.ClientID)
	out.YouTubeOAuth.ClientSecret = mask(s.YouTubeOAuth.ClientSecret)
	out.YouTubeOAuth.RefreshToken = mask(s.YouTubeOAuth.RefreshToken)
	return out
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	return "********"
}
