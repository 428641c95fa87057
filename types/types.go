package types

// NewsItem is one headline pulled from a news source. It only lives long
// enough to be rendered into the script prompt.
type NewsItem struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Link        string `json:"link"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at,omitempty"`
}

// CameraEffect names the motion applied to a segment's visual.
type CameraEffect string

const (
	EffectStatic   CameraEffect = "static"
	EffectZoomIn   CameraEffect = "zoom_in"
	EffectZoomOut  CameraEffect = "zoom_out"
	EffectPanLeft  CameraEffect = "pan_left"
	EffectPanRight CameraEffect = "pan_right"
)

// OutroImageMarker is the sentinel image prompt on the fixed closing segment.
// The visual resolver maps it to the static subscribe-prompt image instead of
// calling any provider.
const OutroImageMarker = "outro"

// OutroText is the literal closing line appended to every script.
const OutroText = "That's today's chip briefing. Subscribe for tomorrow's update!"

// Segment is one model-authored unit of narration with its visual direction.
// Read-only after the script is built.
type Segment struct {
	Text         string       `json:"text"`
	ImagePrompt  string       `json:"image_prompt,omitempty"`
	Keyword      string       `json:"keyword,omitempty"`
	CameraEffect CameraEffect `json:"camera_effect,omitempty"`
}

// VisualQuery returns the text used to fetch a visual for this segment,
// preferring the full image prompt over the bare keyword.
func (s Segment) VisualQuery() string {
	if s.ImagePrompt != "" {
		return s.ImagePrompt
	}
	return s.Keyword
}

// HookPlan describes the opening seconds of the video.
type HookPlan struct {
	Text        string `json:"text,omitempty"`
	ImagePrompt string `json:"image_prompt,omitempty"`
}

// ThumbnailPlan describes the optional static thumbnail.
type ThumbnailPlan struct {
	Text        string `json:"text,omitempty"`
	ImagePrompt string `json:"image_prompt,omitempty"`
}

// ScriptPlan is the full structured script for one video. Invariant: Segments
// is non-empty and its last element is always the fixed outro segment.
type ScriptPlan struct {
	Title         string         `json:"title"`
	HookPlan      *HookPlan      `json:"hook_plan,omitempty"`
	ThumbnailPlan *ThumbnailPlan `json:"thumbnail_plan,omitempty"`
	Segments      []Segment      `json:"segments"`
}

// WordBoundary is one word-level timing event from speech synthesis,
// converted from the provider's 100-nanosecond ticks to seconds.
type WordBoundary struct {
	Word     string  `json:"word"`
	Offset   float64 `json:"offset_sec"`
	Duration float64 `json:"duration_sec"`
}

// NarrationChunk is a sub-span of one sentence, bounded by a maximum
// character count, used as the unit of subtitle display. Chunk texts joined
// with single spaces reconstruct the sentence; durations sum to the
// sentence's audio duration; start times are contiguous.
type NarrationChunk struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
}

// SentenceAudio is the synthesized narration for one sentence.
type SentenceAudio struct {
	File       string         `json:"file"`
	Duration   float64        `json:"duration_sec"`
	Boundaries []WordBoundary `json:"boundaries,omitempty"`
	// Silent marks the last-resort degraded mode: no audio could be
	// synthesized and timing was allocated proportionally.
	Silent bool `json:"silent,omitempty"`
}

// VisualAsset is a resolved background image for one group of chunks.
type VisualAsset struct {
	Path     string `json:"path"`
	Provider string `json:"provider"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// VideoMetadata holds the upload metadata for the finished video.
type VideoMetadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	CategoryID       string   `json:"category_id"`
	Visibility       string   `json:"visibility"`
	ScheduledTimeUTC string   `json:"scheduled_time_utc,omitempty"`
	ThumbnailFile    string   `json:"thumbnail_file,omitempty"`
}

// PipelineState tracks one full run for the pipeline_state.json artifact.
type PipelineState struct {
	RunID       string         `json:"run_id"`
	StartedAt   string         `json:"started_at"`
	CompletedAt string         `json:"completed_at"`
	Topic       string         `json:"topic"`
	Mode        string         `json:"mode"`
	News        []NewsItem     `json:"news,omitempty"`
	Script      *ScriptPlan    `json:"script,omitempty"`
	VideoFile   string         `json:"video_file,omitempty"`
	Metadata    *VideoMetadata `json:"metadata,omitempty"`
	YouTubeID   string         `json:"youtube_id,omitempty"`
	YouTubeURL  string         `json:"youtube_url,omitempty"`
	Error       string         `json:"error,omitempty"`
}
