package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalYAML = `run:
  topic: "semiconductors"
  query: "semiconductor news"
  mode: analyst
news:
  max_items: 5
  lookback_days: 1
script:
  min_segments: 3
  max_segments: 6
paths:
  work_dir: "work"
  output: "output"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Run.MaxConcurrency != 3 {
		t.Errorf("MaxConcurrency = %d, want default 3", cfg.Run.MaxConcurrency)
	}
	if cfg.Script.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q", cfg.Script.Model)
	}
	if cfg.Voice.Name != "en-US-ChristopherNeural" || cfg.Voice.Rate != 1.0 {
		t.Errorf("voice defaults = %q / %f", cfg.Voice.Name, cfg.Voice.Rate)
	}
	if cfg.Video.Width != 1080 || cfg.Video.Height != 1920 || cfg.Video.FPS != 24 {
		t.Errorf("canvas defaults = %dx%d@%d", cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS)
	}
	if cfg.Video.HeaderHeight != 200 || cfg.Video.ContentSize != 900 || cfg.Video.ContentY != 250 {
		t.Errorf("layout defaults = %d/%d/%d", cfg.Video.HeaderHeight, cfg.Video.ContentSize, cfg.Video.ContentY)
	}
	if cfg.Video.ZoomRate != 0.06 || cfg.Video.ZoomMax != 1.3 {
		t.Errorf("zoom defaults = %f/%f", cfg.Video.ZoomRate, cfg.Video.ZoomMax)
	}
	if cfg.Video.BackgroundRGB != [3]int{20, 20, 30} || cfg.Video.HeaderRGB != [3]int{0, 51, 102} {
		t.Errorf("color defaults = %v / %v", cfg.Video.BackgroundRGB, cfg.Video.HeaderRGB)
	}
	if cfg.Subtitle.MaxChars != 42 {
		t.Errorf("MaxChars = %d, want 42", cfg.Subtitle.MaxChars)
	}
	if cfg.Upload.Visibility != "private" || cfg.Upload.CategoryID != "28" {
		t.Errorf("upload defaults = %q / %q", cfg.Upload.Visibility, cfg.Upload.CategoryID)
	}
	if len(cfg.Visuals.PollinationModels) != 2 {
		t.Errorf("PollinationModels = %v", cfg.Visuals.PollinationModels)
	}
}

func TestLoadExplicitValuesWin(t *testing.T) {
	yaml := minimalYAML + `voice:
  name: en-GB-RyanNeural
  rate: 1.2
video:
  zoom_max: 1.5
subtitle:
  max_chars: 30
`
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Voice.Name != "en-GB-RyanNeural" || cfg.Voice.Rate != 1.2 {
		t.Errorf("voice = %q / %f", cfg.Voice.Name, cfg.Voice.Rate)
	}
	if cfg.Video.ZoomMax != 1.5 {
		t.Errorf("ZoomMax = %f", cfg.Video.ZoomMax)
	}
	if cfg.Subtitle.MaxChars != 30 {
		t.Errorf("MaxChars = %d", cfg.Subtitle.MaxChars)
	}
}

func TestLoadExplicitZeroValuesSurvive(t *testing.T) {
	yaml := minimalYAML + `video:
  fade_in_sec: 0
  background_rgb: [0, 0, 0]
audio:
  music_volume: 0
`
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Video.FadeInSec != 0 {
		t.Errorf("FadeInSec = %f, explicit 0 must not be replaced", cfg.Video.FadeInSec)
	}
	if cfg.Video.BackgroundRGB != [3]int{0, 0, 0} {
		t.Errorf("BackgroundRGB = %v, explicit black must not be replaced", cfg.Video.BackgroundRGB)
	}
	if cfg.Audio.MusicVolume != 0 {
		t.Errorf("MusicVolume = %f, explicit 0 must not be replaced", cfg.Audio.MusicVolume)
	}
	// Sections absent from the file still get their defaults.
	if cfg.Subtitle.MaxChars != 42 {
		t.Errorf("MaxChars = %d, want default 42", cfg.Subtitle.MaxChars)
	}
	if cfg.Video.ZoomRate != 0.06 {
		t.Errorf("ZoomRate = %f, want default — only keys present in the file override", cfg.Video.ZoomRate)
	}
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mangle  func(string) string
		wantErr string
	}{
		{
			name:    "missing topic",
			mangle:  func(s string) string { return strings.Replace(s, `topic: "semiconductors"`, `topic: ""`, 1) },
			wantErr: "validate",
		},
		{
			name:    "bad mode",
			mangle:  func(s string) string { return strings.Replace(s, "mode: analyst", "mode: poet", 1) },
			wantErr: "validate",
		},
		{
			name:    "max below min segments",
			mangle:  func(s string) string { return strings.Replace(s, "max_segments: 6", "max_segments: 2", 1) },
			wantErr: "validate",
		},
		{
			name:    "too many news items",
			mangle:  func(s string) string { return strings.Replace(s, "max_items: 5", "max_items: 50", 1) },
			wantErr: "validate",
		},
		{
			name:    "not yaml",
			mangle:  func(string) string { return "{{{" },
			wantErr: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.mangle(minimalYAML)))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadReadsSecretsFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gk")
	t.Setenv("SERPER_API_KEY", "sk")
	t.Setenv("CLOUDFLARE_API_KEY", "")
	t.Setenv("CLOUDFLARE_API_TOKEN", "cf-token")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Secrets.GeminiAPIKey != "gk" || cfg.Secrets.SerperAPIKey != "sk" {
		t.Errorf("secrets = %+v", cfg.Secrets)
	}
	// CLOUDFLARE_API_TOKEN is the documented fallback name.
	if cfg.Secrets.CloudflareAPIKey != "cf-token" {
		t.Errorf("CloudflareAPIKey = %q, want token fallback", cfg.Secrets.CloudflareAPIKey)
	}
}
