package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Run      RunConfig      `yaml:"run" validate:"required"`
	News     NewsConfig     `yaml:"news" validate:"required"`
	Script   ScriptConfig   `yaml:"script" validate:"required"`
	Voice    VoiceConfig    `yaml:"voice" validate:"required"`
	Visuals  VisualsConfig  `yaml:"visuals" validate:"required"`
	Video    VideoConfig    `yaml:"video" validate:"required"`
	Subtitle SubtitleConfig `yaml:"subtitle" validate:"required"`
	Audio    AudioConfig    `yaml:"audio"`
	Upload   UploadConfig   `yaml:"upload"`
	Paths    PathsConfig    `yaml:"paths" validate:"required"`
	Secrets  Secrets        `yaml:"-"`
}

type RunConfig struct {
	Topic string `yaml:"topic" validate:"required"`
	Query string `yaml:"query" validate:"required"`
	// Mode selects the tone-of-voice prompt template: analyst | general.
	Mode           string `yaml:"mode" validate:"required,oneof=analyst general"`
	MaxConcurrency int    `yaml:"max_concurrency" validate:"min=1,max=8"`
}

type NewsConfig struct {
	MaxItems     int      `yaml:"max_items" validate:"required,min=1,max=10"`
	LookbackDays int      `yaml:"lookback_days" validate:"required,min=1,max=7"`
	Subreddits   []string `yaml:"subreddits"`
}

type ScriptConfig struct {
	Model       string  `yaml:"model" validate:"required"`
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`
	MinSegments int     `yaml:"min_segments" validate:"required,min=1"`
	MaxSegments int     `yaml:"max_segments" validate:"required,gtefield=MinSegments"`
}

type VoiceConfig struct {
	Name string `yaml:"name" validate:"required"`
	// Rate is the speaking-rate multiplier, 1.0 = natural pace.
	Rate float64 `yaml:"rate" validate:"required,min=0.5,max=2"`
}

type VisualsConfig struct {
	CloudflareModel   string   `yaml:"cloudflare_model"`
	PollinationModels []string `yaml:"pollination_models"`
	// RequestsPerMinute paces each provider endpoint.
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"min=1"`
}

type VideoConfig struct {
	Width         int     `yaml:"width" validate:"required"`
	Height        int     `yaml:"height" validate:"required"`
	FPS           int     `yaml:"fps" validate:"required,min=1,max=60"`
	HeaderHeight  int     `yaml:"header_height" validate:"required"`
	ContentSize   int     `yaml:"content_size" validate:"required"`
	ContentY      int     `yaml:"content_y" validate:"required"`
	ZoomRate      float64 `yaml:"zoom_rate" validate:"required"`
	ZoomMax       float64 `yaml:"zoom_max" validate:"required,min=1"`
	PanSpeed      float64 `yaml:"pan_speed" validate:"required"`
	FadeInSec     float64 `yaml:"fade_in_sec"`
	BackgroundRGB [3]int  `yaml:"background_rgb"`
	HeaderRGB     [3]int  `yaml:"header_rgb"`
}

type SubtitleConfig struct {
	MaxChars  int    `yaml:"max_chars" validate:"required,min=10,max=120"`
	FontFile  string `yaml:"font_file"`
	FontSize  int    `yaml:"font_size" validate:"required"`
	MarginTop int    `yaml:"margin_top"`
}

type AudioConfig struct {
	MusicFile   string  `yaml:"music_file"`
	MusicVolume float64 `yaml:"music_volume"`
	WhooshFile  string  `yaml:"whoosh_file"`
	// WhooshVolume caps the stinger so it never overpowers narration.
	WhooshVolume float64 `yaml:"whoosh_volume"`
}

type UploadConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility" validate:"omitempty,oneof=public private unlisted"`
	CategoryID        string `yaml:"category_id"`
	DefaultLanguage   string `yaml:"default_language"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	ScheduleTimeUTC   string `yaml:"schedule_time_utc"`
}

type PathsConfig struct {
	// WorkDir is exclusively owned by one run and wiped at run start.
	// Concurrent runs must not share it.
	WorkDir     string `yaml:"work_dir" validate:"required"`
	Output      string `yaml:"output" validate:"required"`
	HeaderImage string `yaml:"header_image"`
	OutroImage  string `yaml:"outro_image"`
}

// Secrets holds everything read from the process environment. They live on
// the Config so stages never reach for os.Getenv themselves.
type Secrets struct {
	GeminiAPIKey        string
	SerperAPIKey        string
	CloudflareAccountID string
	CloudflareAPIKey    string
	PixabayAPIKey       string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
}

// Load reads config.yaml, validates it, and fills Secrets from the
// environment (.env is honored for local dev).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	// Defaults are seeded before unmarshal: yaml only overwrites keys
	// present in the document, so an explicit zero in the file survives.
	var cfg Config
	cfg.setDefaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.Secrets = Secrets{
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		SerperAPIKey:        os.Getenv("SERPER_API_KEY"),
		CloudflareAccountID: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		CloudflareAPIKey:    os.Getenv("CLOUDFLARE_API_KEY"),
		PixabayAPIKey:       os.Getenv("PIXABAY_API_KEY"),
		YouTubeClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeRefreshToken: os.Getenv("YOUTUBE_REFRESH_TOKEN"),
	}
	if cfg.Secrets.CloudflareAPIKey == "" {
		cfg.Secrets.CloudflareAPIKey = os.Getenv("CLOUDFLARE_API_TOKEN")
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	c.Run.MaxConcurrency = 3
	c.Script.Model = "gemini-2.5-flash"
	c.Voice.Name = "en-US-ChristopherNeural"
	c.Voice.Rate = 1.0
	c.Visuals.CloudflareModel = "@cf/black-forest-labs/flux-1-schnell"
	c.Visuals.PollinationModels = []string{"flux", "turbo"}
	c.Visuals.RequestsPerMinute = 20
	c.Video.Width = 1080
	c.Video.Height = 1920
	c.Video.FPS = 24
	c.Video.HeaderHeight = 200
	c.Video.ContentSize = 900
	c.Video.ContentY = 250
	c.Video.ZoomRate = 0.06
	c.Video.ZoomMax = 1.3
	c.Video.PanSpeed = 40
	c.Video.FadeInSec = 0.25
	c.Video.BackgroundRGB = [3]int{20, 20, 30}
	c.Video.HeaderRGB = [3]int{0, 51, 102}
	c.Subtitle.MaxChars = 42
	c.Subtitle.FontSize = 60
	c.Subtitle.MarginTop = 50
	c.Audio.MusicVolume = 0.12
	c.Audio.WhooshVolume = 0.5
	c.Upload.Visibility = "private"
	c.Upload.CategoryID = "28" // Science & Technology
	c.Upload.DefaultLanguage = "en"
}
