package script

import (
	"fmt"
	"strings"
)

// Each mode is a fixed prompt template; the generator only substitutes the
// topic and the news digest. Structural and stylistic rules ride inside the
// prompt itself so the model and the pipeline never disagree about what was
// asked for.

const jsonContract = `Respond with ONLY a valid JSON object — no preamble, no markdown, no explanation:
{
  "title": "engaging video title",
  "hook_plan": {"text": "opening line", "image_prompt": "visual for the hook"},
  "thumbnail_plan": {"text": "3-5 word thumbnail caption", "image_prompt": "thumbnail visual"},
  "segments": [
    {"text": "narration sentence(s)", "image_prompt": "detailed visual description", "keyword": "short stock-search keyword", "camera_effect": "zoom_in"}
  ]
}

Rules for segments:
- Between %d and %d segments.
- 15 to 35 words per segment.
- camera_effect is one of: static, zoom_in, zoom_out, pan_left, pan_right.
- image_prompt must describe environments, objects, and technology only: no text, no logos, no watermarks, no identifiable people or faces.
- Do NOT write an outro, sign-off, or any call to action (no "subscribe", "follow", "like"). The channel outro is added automatically.`

const analystTemplate = `Role: You are a sharp semiconductor market analyst writing a 60-second YouTube Shorts briefing about %s.
Your audience is retail investors. Lead with the single most market-moving fact, quantify everything you can, and close each story with what it means for the industry.

[TODAY'S NEWS]
%s

Structure: Hook (0-5s) that stops the scroll, then the stories in order of impact, fast and precise.
Tone: confident, analytical, no filler.

%s`

const generalTemplate = `Role: You are an energetic tech news YouTuber with 1M subscribers making a 60-second YouTube Shorts video about %s.
Explain today's stories so that anyone can follow them. Replace jargon with plain words and vivid comparisons.

[TODAY'S NEWS]
%s

Structure: Hook (0-5s) that grabs attention immediately, then the key points of each story.
Tone: fast-paced, enthusiastic, friendly.

%s`

func buildPrompt(mode, topic, digest string, minSegments, maxSegments int) (string, error) {
	contract := fmt.Sprintf(jsonContract, minSegments, maxSegments)
	switch mode {
	case "analyst":
		return fmt.Sprintf(analystTemplate, topic, digest, contract), nil
	case "general":
		return fmt.Sprintf(generalTemplate, topic, digest, contract), nil
	default:
		return "", fmt.Errorf("unknown mode %q", mode)
	}
}

// cleanJSON strips markdown fences if the model wraps its response despite the
// instructions.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
