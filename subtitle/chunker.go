// Package subtitle derives the karaoke chunks a sentence is displayed as:
// word-boundary-aware sub-spans capped at a maximum character count.
package subtitle

import (
	"strings"

	"daily-shorts-pipeline/types"
)

// SplitSentences breaks a segment's narration into display sentences.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Chunks splits one sentence into NarrationChunks. Words are never split;
// joining the chunk texts with single spaces reproduces the sentence (after
// trimming); durations sum to audio.Duration; starts are contiguous.
//
// Timing comes from word-boundary events when the synthesizer provided one
// per word. Otherwise timing degrades to proportional allocation by
// character count — the defined degraded mode, not an error.
func Chunks(sentence string, audio *types.SentenceAudio, maxChars int) []types.NarrationChunk {
	words := strings.Fields(sentence)
	if len(words) == 0 {
		return nil
	}

	groups := groupWords(words, maxChars)

	if len(audio.Boundaries) == len(words) && len(words) > 0 {
		return timeFromBoundaries(groups, audio)
	}
	return timeProportionally(groups, audio.Duration)
}

// wordGroup is a run of words forming one chunk, with its first word's index.
type wordGroup struct {
	text      string
	firstWord int
}

func groupWords(words []string, maxChars int) []wordGroup {
	var groups []wordGroup
	var current []string
	length := 0
	first := 0

	for i, w := range words {
		add := len(w)
		if len(current) > 0 {
			add++ // joining space
		}
		if len(current) > 0 && length+add > maxChars {
			groups = append(groups, wordGroup{text: strings.Join(current, " "), firstWord: first})
			current = current[:0]
			length = 0
			first = i
			add = len(w)
		}
		current = append(current, w)
		length += add
	}
	groups = append(groups, wordGroup{text: strings.Join(current, " "), firstWord: first})
	return groups
}

// timeFromBoundaries anchors each chunk after the first at its first word's
// boundary offset; the previous chunk runs up to that anchor so the timeline
// stays contiguous. The first chunk starts at zero and the last ends at the
// total duration.
func timeFromBoundaries(groups []wordGroup, audio *types.SentenceAudio) []types.NarrationChunk {
	chunks := make([]types.NarrationChunk, len(groups))
	for i, g := range groups {
		start := 0.0
		if i > 0 {
			start = audio.Boundaries[g.firstWord].Offset
			if start < chunks[i-1].StartTime {
				start = chunks[i-1].StartTime
			}
		}
		chunks[i] = types.NarrationChunk{Text: g.text, StartTime: start}
		if i > 0 {
			chunks[i-1].Duration = start - chunks[i-1].StartTime
		}
	}
	last := len(chunks) - 1
	chunks[last].Duration = audio.Duration - chunks[last].StartTime
	if chunks[last].Duration < 0 {
		chunks[last].Duration = 0
	}
	return chunks
}

func timeProportionally(groups []wordGroup, total float64) []types.NarrationChunk {
	sum := 0
	for _, g := range groups {
		sum += len(g.text)
	}
	if sum == 0 {
		return nil
	}

	chunks := make([]types.NarrationChunk, len(groups))
	elapsed := 0.0
	for i, g := range groups {
		chunks[i] = types.NarrationChunk{
			Text:      g.text,
			StartTime: elapsed,
			Duration:  total * float64(len(g.text)) / float64(sum),
		}
		elapsed += chunks[i].Duration
	}
	// The last chunk absorbs float drift so the sum is exact.
	last := len(chunks) - 1
	chunks[last].Duration = total - chunks[last].StartTime
	return chunks
}
