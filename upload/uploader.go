// Package upload publishes the finished video to YouTube via the Data API.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"daily-shorts-pipeline/config"
	"daily-shorts-pipeline/types"
)

// Uploader handles the YouTube upload with all metadata.
type Uploader struct {
	cfg *config.Config
}

// New creates a new Uploader.
func New(cfg *config.Config) *Uploader {
	return &Uploader{cfg: cfg}
}

// BuildMetadata derives upload metadata from the script plan and the news
// items that fed it.
func (u *Uploader) BuildMetadata(plan *types.ScriptPlan, items []types.NewsItem, thumbnailFile string) *types.VideoMetadata {
	var sb strings.Builder
	if plan.HookPlan != nil && plan.HookPlan.Text != "" {
		sb.WriteString(plan.HookPlan.Text + "\n\n")
	}
	sb.WriteString("Today's stories:\n")
	for _, item := range items {
		sb.WriteString("• " + item.Title + "\n  " + item.Link + "\n")
	}
	sb.WriteString("\n#shorts #" + strings.ReplaceAll(strings.ToLower(u.cfg.Run.Topic), " ", ""))

	tags := []string{"shorts", "news", u.cfg.Run.Topic}
	for _, seg := range plan.Segments {
		if seg.Keyword != "" && len(tags) < 12 {
			tags = append(tags, seg.Keyword)
		}
	}

	return &types.VideoMetadata{
		Title:            plan.Title,
		Description:      sb.String(),
		Tags:             tags,
		CategoryID:       u.cfg.Upload.CategoryID,
		Visibility:       u.cfg.Upload.Visibility,
		ScheduledTimeUTC: u.cfg.Upload.ScheduleTimeUTC,
		ThumbnailFile:    thumbnailFile,
	}
}

// Run uploads the video and returns its ID and watch URL.
func (u *Uploader) Run(ctx context.Context, videoFile string, metadata *types.VideoMetadata) (string, string, error) {
	log.Println("[upload] Authenticating with YouTube API...")

	tokenSource, err := u.tokenSource(ctx)
	if err != nil {
		return "", "", fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	status := &youtube.VideoStatus{
		PrivacyStatus:           metadata.Visibility,
		SelfDeclaredMadeForKids: false,
	}
	if metadata.ScheduledTimeUTC != "" && metadata.Visibility == "public" {
		// Scheduled videos must sit private until PublishAt.
		status.PrivacyStatus = "private"
		status.PublishAt = metadata.ScheduledTimeUTC
		log.Printf("[upload] Scheduled for: %s UTC", metadata.ScheduledTimeUTC)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                metadata.Title,
			Description:          metadata.Description,
			Tags:                 metadata.Tags,
			CategoryId:           metadata.CategoryID,
			DefaultLanguage:      u.cfg.Upload.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.Upload.DefaultLanguage,
		},
		Status: status,
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("[upload] Uploading %q (%.1f MB)...", metadata.Title, float64(fi.Size())/1024/1024)
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		NotifySubscribers(u.cfg.Upload.NotifySubscribers).
		Media(f).Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	videoID := uploaded.Id
	videoURL := "https://www.youtube.com/watch?v=" + videoID
	log.Printf("[upload] ✅ Uploaded: %s", videoURL)

	if metadata.ThumbnailFile != "" {
		if err := u.setThumbnail(svc, videoID, metadata.ThumbnailFile); err != nil {
			log.Printf("[upload] ⚠️ Thumbnail set failed: %v — keeping auto thumbnail", err)
		}
	}

	return videoID, videoURL, nil
}

func (u *Uploader) setThumbnail(svc *youtube.Service, videoID, thumbnailFile string) error {
	f, err := os.Open(thumbnailFile)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = svc.Thumbnails.Set(videoID).Media(f).Do()
	return err
}

func (u *Uploader) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	s := u.cfg.Secrets
	if s.YouTubeClientID == "" || s.YouTubeClientSecret == "" || s.YouTubeRefreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     s.YouTubeClientID,
		ClientSecret: s.YouTubeClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: s.YouTubeRefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.TokenSource(ctx, token), nil
}

// LogUpload appends the upload result to the output directory for auditing.
func LogUpload(videoID, videoURL, videoFile, outputDir string, metadata *types.VideoMetadata) error {
	entry := map[string]any{
		"video_id":      videoID,
		"video_url":     videoURL,
		"title":         metadata.Title,
		"scheduled_utc": metadata.ScheduledTimeUTC,
		"uploaded_at":   time.Now().UTC().Format(time.RFC3339),
		"video_file":    videoFile,
	}
	data, _ := json.MarshalIndent(entry, "", "  ")
	logFile := filepath.Join(outputDir, "upload_"+time.Now().Format("20060102_150405")+".json")
	return os.WriteFile(logFile, data, 0644)
}
