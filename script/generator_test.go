package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"reflect"
	"strings"
	"testing"

	"daily-shorts-pipeline/config"
	"daily-shorts-pipeline/types"
)

// fakeModel replays canned responses in order.
type fakeModel struct {
	responses []string
	calls     int
	err       error
}

func (m *fakeModel) Generate(_ context.Context, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	return m.responses[i], nil
}

func scriptConfig() *config.Config {
	return &config.Config{
		Run:    config.RunConfig{Topic: "semiconductors", Mode: "analyst"},
		Script: config.ScriptConfig{Model: "gemini-2.5-flash", MinSegments: 3, MaxSegments: 6},
	}
}

const goodResponse = `{
  "title": "Nvidia Shatters Records Again",
  "hook_plan": {"text": "The chip wars just escalated.", "image_prompt": "glowing circuit board macro shot"},
  "thumbnail_plan": {"text": "CHIP WARS ESCALATE", "image_prompt": "dramatic silicon wafer close-up"},
  "segments": [
    {"text": "Nvidia posted record quarterly revenue of thirty five billion dollars, beating every analyst estimate on data center demand.", "image_prompt": "rows of server racks with green light", "keyword": "data center", "camera_effect": "zoom_in"},
    {"text": "TSMC confirmed its Arizona fab hit volume production, the first leading edge node manufactured on American soil.", "image_prompt": "semiconductor cleanroom with robotic arms", "keyword": "chip factory", "camera_effect": "pan_right"},
    {"text": "Intel meanwhile delayed its next node again, and the market punished the stock with a seven percent drop.", "image_prompt": "falling red stock chart on dark screen", "keyword": "stock chart", "camera_effect": "zoom_out"}
  ]
}`

func TestRunAppendsFixedOutro(t *testing.T) {
	gen := NewWithModel(scriptConfig(), &fakeModel{responses: []string{goodResponse}})

	plan, err := gen.Run(context.Background(), "- Title: something")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if plan.Title != "Nvidia Shatters Records Again" {
		t.Errorf("Title = %q", plan.Title)
	}
	if len(plan.Segments) != 4 {
		t.Fatalf("got %d segments, want 3 model segments + outro", len(plan.Segments))
	}

	last := plan.Segments[len(plan.Segments)-1]
	if last.Text != types.OutroText {
		t.Errorf("last segment text = %q, want the fixed outro", last.Text)
	}
	if last.ImagePrompt != types.OutroImageMarker {
		t.Errorf("last segment image prompt = %q, want %q", last.ImagePrompt, types.OutroImageMarker)
	}
	if last.CameraEffect != types.EffectStatic {
		t.Errorf("outro camera effect = %q, want static", last.CameraEffect)
	}

	if plan.HookPlan == nil || plan.HookPlan.Text == "" {
		t.Error("hook plan not carried through")
	}
	if plan.ThumbnailPlan == nil || plan.ThumbnailPlan.Text == "" {
		t.Error("thumbnail plan not carried through")
	}
}

func TestRunDropsModelAuthoredOutro(t *testing.T) {
	tests := []struct {
		name    string
		segment string
	}{
		{"subscribe in text", `{"text": "Make sure you subscribe for more chip news every single day.", "image_prompt": "abstract background", "keyword": "outro", "camera_effect": "static"}`},
		{"cta in image prompt", `{"text": "And one more thing before you go today.", "image_prompt": "subscribe button animation with bell icon", "keyword": "button", "camera_effect": "static"}`},
		{"thanks for watching", `{"text": "Thanks for watching, see you in the next one.", "image_prompt": "waving hand", "keyword": "goodbye", "camera_effect": "static"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := `{"title": "T", "segments": [
				{"text": "Nvidia posted record revenue this quarter on surging AI accelerator demand worldwide.", "image_prompt": "server racks", "keyword": "servers", "camera_effect": "zoom_in"},
				` + tt.segment + `]}`
			gen := NewWithModel(scriptConfig(), &fakeModel{responses: []string{resp}})

			plan, err := gen.Run(context.Background(), "digest")
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(plan.Segments) != 2 {
				t.Fatalf("got %d segments, want model segment + fixed outro", len(plan.Segments))
			}
			if plan.Segments[1].Text != types.OutroText {
				t.Errorf("outro not the fixed closing line: %q", plan.Segments[1].Text)
			}
		})
	}
}

func TestRunIsDeterministicForSameResponse(t *testing.T) {
	a, err := NewWithModel(scriptConfig(), &fakeModel{responses: []string{goodResponse}}).Run(context.Background(), "d")
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	b, err := NewWithModel(scriptConfig(), &fakeModel{responses: []string{goodResponse}}).Run(context.Background(), "d")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if !reflect.DeepEqual(a, b) || string(ja) != string(jb) {
		t.Errorf("same model output produced different plans:\n%s\n%s", ja, jb)
	}
}

func TestRunRetriesParseFailureOnce(t *testing.T) {
	model := &fakeModel{responses: []string{"this is not json", goodResponse}}
	gen := NewWithModel(scriptConfig(), model)

	plan, err := gen.Run(context.Background(), "d")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if model.calls != 2 {
		t.Errorf("model called %d times, want 2", model.calls)
	}
	if len(plan.Segments) != 4 {
		t.Errorf("got %d segments after retry, want 4", len(plan.Segments))
	}
}

func TestRunGivesUpAfterTwoParseFailures(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	model := &fakeModel{responses: []string{"garbage"}}
	gen := NewWithModel(scriptConfig(), model)

	_, err := gen.Run(context.Background(), "d")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
	if model.calls != 2 {
		t.Errorf("model called %d times, want 2", model.calls)
	}

	// Only the first failure promises a retry; the last reports giving up.
	if got := strings.Count(logs.String(), "retrying"); got != 1 {
		t.Errorf("%d retry log lines, want 1:\n%s", got, logs.String())
	}
	if !strings.Contains(logs.String(), "giving up") {
		t.Errorf("final attempt did not log giving up:\n%s", logs.String())
	}
}

func TestRunPropagatesModelError(t *testing.T) {
	wantErr := errors.New("quota exhausted")
	gen := NewWithModel(scriptConfig(), &fakeModel{err: wantErr})

	if _, err := gen.Run(context.Background(), "d"); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestParsePlanStripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + goodResponse + "\n```"
	plan, err := parsePlan(fenced)
	if err != nil {
		t.Fatalf("parsePlan: %v", err)
	}
	if len(plan.Segments) != 3 {
		t.Errorf("got %d segments, want 3", len(plan.Segments))
	}
}

func TestParsePlanRejections(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", "hello world"},
		{"missing title", `{"segments": [{"text": "a"}]}`},
		{"no segments", `{"title": "T", "segments": []}`},
		{"all segments blank", `{"title": "T", "segments": [{"text": "   "}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parsePlan(tt.in); !errors.Is(err, ErrParse) {
				t.Errorf("parsePlan(%q) err = %v, want ErrParse", tt.in, err)
			}
		})
	}
}

func TestNormalizeEffect(t *testing.T) {
	tests := []struct {
		in   string
		want types.CameraEffect
	}{
		{"zoom_in", types.EffectZoomIn},
		{" ZOOM_OUT ", types.EffectZoomOut},
		{"pan_left", types.EffectPanLeft},
		{"pan_right", types.EffectPanRight},
		{"static", types.EffectStatic},
		{"dolly_zoom", types.EffectStatic},
		{"", types.EffectStatic},
	}
	for _, tt := range tests {
		if got := normalizeEffect(tt.in); got != tt.want {
			t.Errorf("normalizeEffect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	for _, mode := range []string{"analyst", "general"} {
		p, err := buildPrompt(mode, "semiconductors", "- Title: chips", 3, 6)
		if err != nil {
			t.Fatalf("buildPrompt(%s): %v", mode, err)
		}
		for _, want := range []string{"semiconductors", "- Title: chips", "Between 3 and 6 segments"} {
			if !strings.Contains(p, want) {
				t.Errorf("%s prompt missing %q", mode, want)
			}
		}
	}
	if _, err := buildPrompt("poet", "t", "d", 3, 6); err == nil {
		t.Error("unknown mode accepted")
	}
}
