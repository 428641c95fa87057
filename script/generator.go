// Package script turns a news digest into a structured ScriptPlan via one
// text-generation call, then enforces the outro invariant in code.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"daily-shorts-pipeline/config"
	"daily-shorts-pipeline/types"
)

// ErrParse reports that the model's output was not valid JSON matching the
// segment schema. It terminates the run.
var ErrParse = errors.New("script: model response is not a valid script")

// TextModel is the single LLM call the generator depends on. Tests inject a
// deterministic fake.
type TextModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator produces a ScriptPlan for one run.
type Generator struct {
	cfg   *config.Config
	model TextModel
}

// New creates a Generator backed by Gemini.
func New(ctx context.Context, cfg *config.Config) (*Generator, error) {
	if cfg.Secrets.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Secrets.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Generator{cfg: cfg, model: &geminiModel{client: client, cfg: cfg}}, nil
}

// NewWithModel is the injection point for tests.
func NewWithModel(cfg *config.Config, model TextModel) *Generator {
	return &Generator{cfg: cfg, model: model}
}

// rawPlan mirrors the JSON contract in the prompt.
type rawPlan struct {
	Title         string               `json:"title"`
	HookPlan      *types.HookPlan      `json:"hook_plan"`
	ThumbnailPlan *types.ThumbnailPlan `json:"thumbnail_plan"`
	Segments      []rawSegment         `json:"segments"`
}

type rawSegment struct {
	Text         string `json:"text"`
	ImagePrompt  string `json:"image_prompt"`
	Keyword      string `json:"keyword"`
	CameraEffect string `json:"camera_effect"`
}

// Run issues the model call and returns the post-processed plan. A parse
// failure is retried once before giving up.
func (g *Generator) Run(ctx context.Context, digest string) (*types.ScriptPlan, error) {
	prompt, err := buildPrompt(g.cfg.Run.Mode, g.cfg.Run.Topic, digest, g.cfg.Script.MinSegments, g.cfg.Script.MaxSegments)
	if err != nil {
		return nil, err
	}

	log.Printf("[script] Generating script via %s (mode: %s)...", g.cfg.Script.Model, g.cfg.Run.Mode)

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		content, err := g.model.Generate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("script generation: %w", err)
		}
		plan, err := parsePlan(content)
		if err != nil {
			lastErr = err
			if attempt < 2 {
				log.Printf("[script] Attempt %d: %v — retrying", attempt, err)
			} else {
				log.Printf("[script] Attempt %d: %v — giving up", attempt, err)
			}
			continue
		}
		finalize(plan)
		log.Printf("[script] ✅ Script ready: %q, %d segments", plan.Title, len(plan.Segments))
		return plan, nil
	}
	return nil, lastErr
}

func parsePlan(content string) (*types.ScriptPlan, error) {
	var raw rawPlan
	if err := json.Unmarshal([]byte(cleanJSON(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if raw.Title == "" || len(raw.Segments) == 0 {
		return nil, fmt.Errorf("%w: missing title or segments", ErrParse)
	}

	plan := &types.ScriptPlan{
		Title:         raw.Title,
		HookPlan:      raw.HookPlan,
		ThumbnailPlan: raw.ThumbnailPlan,
	}
	for _, s := range raw.Segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		plan.Segments = append(plan.Segments, types.Segment{
			Text:         strings.TrimSpace(s.Text),
			ImagePrompt:  strings.TrimSpace(s.ImagePrompt),
			Keyword:      strings.TrimSpace(s.Keyword),
			CameraEffect: normalizeEffect(s.CameraEffect),
		})
	}
	if len(plan.Segments) == 0 {
		return nil, fmt.Errorf("%w: all segments empty", ErrParse)
	}
	return plan, nil
}

// outroPhrases mark a model-authored segment as an outro regardless of the
// prompt's instructions. Matched case-insensitively against both the
// narration and the visual descriptor.
var outroPhrases = []string{"subscribe", "follow us", "follow for", "like and", "smash that", "see you tomorrow", "thanks for watching"}

// finalize removes any model-authored outro and appends the fixed closing
// segment. Enforced in code so the invariant never depends on the model.
func finalize(plan *types.ScriptPlan) {
	kept := plan.Segments[:0]
	for _, seg := range plan.Segments {
		if isOutro(seg) {
			log.Printf("[script] Dropping model-authored outro segment: %q", seg.Text)
			continue
		}
		kept = append(kept, seg)
	}
	plan.Segments = append(kept, types.Segment{
		Text:         types.OutroText,
		ImagePrompt:  types.OutroImageMarker,
		CameraEffect: types.EffectStatic,
	})
}

func isOutro(seg types.Segment) bool {
	haystack := strings.ToLower(seg.Text + " " + seg.ImagePrompt + " " + seg.Keyword)
	for _, phrase := range outroPhrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}

func normalizeEffect(s string) types.CameraEffect {
	switch types.CameraEffect(strings.ToLower(strings.TrimSpace(s))) {
	case types.EffectZoomIn:
		return types.EffectZoomIn
	case types.EffectZoomOut:
		return types.EffectZoomOut
	case types.EffectPanLeft:
		return types.EffectPanLeft
	case types.EffectPanRight:
		return types.EffectPanRight
	default:
		return types.EffectStatic
	}
}

// geminiModel is the production TextModel.
type geminiModel struct {
	client *genai.Client
	cfg    *config.Config
}

func (m *geminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	model := m.client.GenerativeModel(m.cfg.Script.Model)
	model.ResponseMIMEType = "application/json"
	temp := float32(m.cfg.Script.Temperature)
	model.Temperature = &temp

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("gemini: unexpected part type %T", resp.Candidates[0].Content.Parts[0])
	}
	return string(text), nil
}
