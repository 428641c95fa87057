// Package tts converts narration sentences to speech audio with word-level
// timing metadata from a cloud neural voice.
package tts

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"daily-shorts-pipeline/config"
	"daily-shorts-pipeline/types"
)

// wordsPerSecond is the assumed natural narration pace, used only for the
// silent last-resort fallback where no audio exists at all.
const wordsPerSecond = 130.0 / 60.0

// Synthesizer produces one audio file per sentence.
type Synthesizer struct {
	cfg *config.Config
}

// New creates a Synthesizer.
func New(cfg *config.Config) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Synthesize converts one sentence to speech and writes it to outFile. The
// returned SentenceAudio carries word-boundary events converted to seconds;
// an empty boundary list is the documented degraded mode, not an error.
func (s *Synthesizer) Synthesize(ctx context.Context, text, outFile string) (*types.SentenceAudio, error) {
	var audio []byte
	var raw []rawBoundary
	var err error

	// The speech service occasionally drops connections mid-turn; one retry
	// before surfacing the failure.
	for attempt := 1; attempt <= 2; attempt++ {
		audio, raw, err = synthesizeOnce(ctx, text, s.cfg.Voice.Name, s.cfg.Voice.Rate)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < 2 {
			log.Printf("[tts] Attempt %d failed: %v — retrying", attempt, err)
			time.Sleep(time.Duration(attempt) * time.Second)
		} else {
			log.Printf("[tts] Attempt %d failed: %v — giving up", attempt, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("synthesize %q: %w", truncate(text, 40), err)
	}

	if err := os.WriteFile(outFile, audio, 0644); err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}

	boundaries := make([]types.WordBoundary, 0, len(raw))
	for _, b := range raw {
		boundaries = append(boundaries, types.WordBoundary{
			Word:     b.Word,
			Offset:   float64(b.Offset) / ticksPerSecond,
			Duration: float64(b.Duration) / ticksPerSecond,
		})
	}

	duration, err := probeDuration(outFile)
	if err != nil {
		// ffprobe missing or file unreadable: fall back to the last
		// boundary's end before giving up on timing entirely.
		if len(boundaries) > 0 {
			last := boundaries[len(boundaries)-1]
			duration = last.Offset + last.Duration
			log.Printf("[tts] Warning: ffprobe failed (%v) — using boundary end %.2fs", err, duration)
		} else {
			return nil, fmt.Errorf("measure audio duration: %w", err)
		}
	}

	if len(boundaries) == 0 {
		log.Printf("[tts] Warning: no word boundaries for %q — downstream chunking degrades to proportional timing", truncate(text, 40))
	}

	return &types.SentenceAudio{File: outFile, Duration: duration, Boundaries: boundaries}, nil
}

// SilentFallback builds a zero-audio SentenceAudio with a pace-estimated
// duration. Last resort only; a muted segment is a visible defect, so the
// caller is expected to have logged the underlying failure already.
func SilentFallback(text string) *types.SentenceAudio {
	words := len(strings.Fields(text))
	duration := float64(words) / wordsPerSecond
	if duration < 1.0 {
		duration = 1.0
	}
	return &types.SentenceAudio{Duration: duration, Silent: true}
}

func probeDuration(audioFile string) (float64, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioFile,
	).Output()
	if err != nil {
		return 0, err
	}
	var dur float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur)
	return dur, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
