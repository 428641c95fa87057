// Package assemble lays narration chunks out on the fixed vertical template
// and encodes the final video.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"daily-shorts-pipeline/config"
	"daily-shorts-pipeline/subtitle"
	"daily-shorts-pipeline/tts"
	"daily-shorts-pipeline/types"
)

// ErrNoClips reports that not a single playable clip could be constructed.
// Individual segment failures only degrade that segment; this is the one
// fatal case.
var ErrNoClips = errors.New("assemble: no playable clips could be constructed")

// AssetResolver resolves one visual per group key (see package visuals).
type AssetResolver interface {
	Resolve(ctx context.Context, prompt string, width, height int, groupKey string) (types.VisualAsset, error)
}

// Narrator synthesizes one sentence to an audio file.
type Narrator interface {
	Synthesize(ctx context.Context, text, outFile string) (*types.SentenceAudio, error)
}

// Assembler renders a ScriptPlan into the output video.
type Assembler struct {
	cfg      *config.Config
	workDir  string
	resolver AssetResolver
	narrator Narrator
}

// New creates an Assembler working inside workDir.
func New(cfg *config.Config, workDir string, resolver AssetResolver, narrator Narrator) *Assembler {
	return &Assembler{cfg: cfg, workDir: workDir, resolver: resolver, narrator: narrator}
}

// sentenceJob is one sentence of one segment, flattened for processing.
type sentenceJob struct {
	segIndex    int
	sentIndex   int
	text        string
	visualQuery string
	effect      types.CameraEffect
	firstOfSeg  bool
	audio       *types.SentenceAudio
}

// Run assembles the full video: split sentences, synthesize narration
// (bounded parallel), then sequentially resolve visuals, render chunk clips
// with continuous camera motion, concatenate, and mix the final audio.
func (a *Assembler) Run(ctx context.Context, plan *types.ScriptPlan) (string, error) {
	log.Println("[assemble] Starting video assembly...")

	jobs := a.flatten(plan)
	if len(jobs) == 0 {
		return "", ErrNoClips
	}

	if err := a.synthesizeAll(ctx, jobs); err != nil {
		return "", err
	}

	var clips []string
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		clip, err := a.renderSentence(ctx, job, i)
		if err != nil {
			log.Printf("[assemble] ⚠️ Sentence %d/%d failed: %v — skipping", i+1, len(jobs), err)
			continue
		}
		clips = append(clips, clip)
	}

	if len(clips) == 0 {
		return "", ErrNoClips
	}

	final, err := a.finalize(ctx, clips)
	if err != nil {
		return "", err
	}
	log.Printf("[assemble] ✅ Final video ready: %s", final)
	return final, nil
}

// flatten expands segments into per-sentence jobs, marking the first
// sentence of each segment for the transition stinger.
func (a *Assembler) flatten(plan *types.ScriptPlan) []*sentenceJob {
	var jobs []*sentenceJob
	for segIdx, seg := range plan.Segments {
		sentences := subtitle.SplitSentences(seg.Text)
		for sentIdx, sentence := range sentences {
			jobs = append(jobs, &sentenceJob{
				segIndex:    segIdx,
				sentIndex:   sentIdx,
				text:        sentence,
				visualQuery: seg.VisualQuery(),
				effect:      seg.CameraEffect,
				firstOfSeg:  sentIdx == 0,
			})
		}
	}
	return jobs
}

// synthesizeAll runs narration synthesis across sentences with bounded
// parallelism. Output ordering is by job index, never completion order. A
// failed sentence degrades to silent proportional timing — loudly.
func (a *Assembler) synthesizeAll(ctx context.Context, jobs []*sentenceJob) error {
	audioDir := filepath.Join(a.workDir, "audio")
	if err := os.MkdirAll(audioDir, 0755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Run.MaxConcurrency)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			outFile := filepath.Join(audioDir, fmt.Sprintf("sentence_%03d.mp3", i))
			audio, err := a.narrator.Synthesize(gctx, job.text, outFile)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("[assemble] ❌ TTS FAILED for sentence %d (%q): %v — SEGMENT WILL BE MUTED", i, truncate(job.text, 40), err)
				audio = tts.SilentFallback(job.text)
			}
			job.audio = audio
			return nil
		})
	}
	return g.Wait()
}

// visualDims picks the request aspect for the camera effect: wide for pans
// so there is horizontal travel, portrait for static and zooms.
func (a *Assembler) visualDims(effect types.CameraEffect) (int, int) {
	switch effect {
	case types.EffectPanLeft, types.EffectPanRight:
		return 1920, 1080
	default:
		return 1080, 1350
	}
}

// renderSentence builds one sentence clip: per-chunk template composites
// concatenated, then the full-sentence audio attached so voice timing stays
// authoritative and chunk visuals are purely cosmetic subdivisions.
func (a *Assembler) renderSentence(ctx context.Context, job *sentenceJob, index int) (string, error) {
	sentDir := filepath.Join(a.workDir, fmt.Sprintf("sentence_%03d", index))
	if err := os.MkdirAll(sentDir, 0755); err != nil {
		return "", err
	}

	width, height := a.visualDims(job.effect)
	groupKey := fmt.Sprintf("seg%02d/sent%02d", job.segIndex, job.sentIndex)
	asset, err := a.resolver.Resolve(ctx, job.visualQuery, width, height, groupKey)
	if err != nil {
		return "", fmt.Errorf("resolve visual: %w", err)
	}

	chunks := subtitle.Chunks(job.text, job.audio, a.cfg.Subtitle.MaxChars)
	if len(chunks) == 0 {
		return "", fmt.Errorf("sentence produced no chunks")
	}

	slot := a.cfg.Video.ContentSize
	fitW, fitH := coverFit(job.effect, asset.Width, asset.Height, slot, slot)
	motion := Motion{
		Effect: job.effect,
		SlotW:  slot, SlotH: slot,
		AssetW: fitW, AssetH: fitH,
		ZoomRate: a.cfg.Video.ZoomRate,
		ZoomMax:  a.cfg.Video.ZoomMax,
		PanSpeed: a.cfg.Video.PanSpeed,
	}

	// The camera time parameter advances across chunk boundaries so the
	// effect plays continuously over the whole sentence.
	var chunkFiles []string
	for ci, chunk := range chunks {
		out := filepath.Join(sentDir, fmt.Sprintf("chunk_%02d.mp4", ci))
		if err := a.renderChunk(ctx, asset.Path, motion, chunk, chunk.StartTime, out); err != nil {
			return "", fmt.Errorf("chunk %d: %w", ci, err)
		}
		chunkFiles = append(chunkFiles, out)
	}

	silentVideo := filepath.Join(sentDir, "video.mp4")
	if len(chunkFiles) == 1 {
		silentVideo = chunkFiles[0]
	} else {
		list := filepath.Join(sentDir, "chunks.txt")
		if err := concatFiles(ctx, chunkFiles, list, silentVideo, []string{"-c", "copy"}); err != nil {
			return "", fmt.Errorf("concat chunks: %w", err)
		}
	}

	return a.attachAudio(ctx, job, silentVideo, sentDir)
}

// renderChunk composites one chunk: background canvas, header banner, the
// asset with its motion window, and the subtitle text.
func (a *Assembler) renderChunk(ctx context.Context, assetPath string, motion Motion, chunk types.NarrationChunk, timeOffset float64, outFile string) error {
	v := a.cfg.Video
	fps := v.FPS
	dur := chunk.Duration
	if dur <= 0 {
		dur = 0.5
	}
	frames := int(dur*float64(fps)) + 1

	zooming := motion.Effect == types.EffectZoomIn || motion.Effect == types.EffectZoomOut

	var args []string
	if zooming {
		args = append(args, "-i", assetPath)
	} else {
		args = append(args, "-loop", "1", "-t", fmt.Sprintf("%.3f", dur), "-i", assetPath)
	}
	args = append(args, "-f", "lavfi", "-t", fmt.Sprintf("%.3f", dur),
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", rgbHex(v.BackgroundRGB), v.Width, v.Height, fps))

	headerInput := -1
	if a.cfg.Paths.HeaderImage != "" {
		headerInput = 2
		args = append(args, "-i", a.cfg.Paths.HeaderImage)
	}

	content := contentFilter(motion, timeOffset, fps, frames)

	contentX := (v.Width - motion.SlotW) / 2
	filter := fmt.Sprintf(
		"%s;[1:v]drawbox=x=0:y=0:w=%d:h=%d:color=%s:t=fill[canvas];[canvas][content]overlay=x=%d:y=%d[comp]",
		content, v.Width, v.HeaderHeight, rgbHex(v.HeaderRGB), contentX, v.ContentY,
	)

	label := "comp"
	if headerInput >= 0 {
		filter += fmt.Sprintf(
			";[%d:v]scale=-1:%d[hdr];[comp][hdr]overlay=x=(W-w)/2:y=%d[comp2]",
			headerInput, v.HeaderHeight/2, v.HeaderHeight/4,
		)
		label = "comp2"
	}

	sub := a.cfg.Subtitle
	subtitleY := v.ContentY + v.ContentSize + sub.MarginTop
	text := escapeDrawtext(wrapSubtitle(chunk.Text, 24))
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=white:borderw=3:bordercolor=black:x=(w-text_w)/2:y=%d:line_spacing=12",
		text, sub.FontSize, subtitleY,
	)
	if sub.FontFile != "" {
		drawtext += ":fontfile=" + sub.FontFile
	}
	filter += fmt.Sprintf(";[%s]%s[out]", label, drawtext)

	args = append(args,
		"-filter_complex", filter,
		"-map", "[out]",
		"-t", fmt.Sprintf("%.3f", dur),
		"-r", fmt.Sprintf("%d", fps),
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	return runFFmpeg(ctx, args...)
}

// contentFilter renders the camera effect as the filter stage producing the
// slot-sized [content] stream. Zooms upscale first (keeps zoompan from
// shimmering) and center-crop to the slot's aspect before zoompan: zoompan
// stretches its sampling window to the output size, so a non-slot-aspect
// input would be squashed for the whole chunk.
func contentFilter(m Motion, timeOffset float64, fps, frames int) string {
	switch m.Effect {
	case types.EffectZoomIn, types.EffectZoomOut:
		scaledW, scaledH := m.AssetW*2, m.AssetH*2
		cropW := scaledW
		cropH := cropW * m.SlotH / m.SlotW
		if cropH > scaledH {
			cropH = scaledH
			cropW = cropH * m.SlotW / m.SlotH
		}
		return fmt.Sprintf(
			"[0:v]scale=%d:%d,crop=%d:%d,zoompan=z='%s':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:fps=%d:s=%dx%d[content]",
			scaledW, scaledH, cropW, cropH,
			m.zoomExpr(timeOffset, fps),
			frames, fps, m.SlotW, m.SlotH,
		)
	default:
		return fmt.Sprintf(
			"[0:v]fps=%d,scale=%d:%d,crop=%d:%d:x='%s':y='(ih-oh)/2'[content]",
			fps, m.AssetW, m.AssetH,
			m.SlotW, m.SlotH,
			m.cropXExpr(timeOffset),
		)
	}
}

// attachAudio muxes the full-sentence narration onto the concatenated chunk
// video, applies the sentence fade-in, and mixes the topic-change stinger on
// the first sentence of each segment.
func (a *Assembler) attachAudio(ctx context.Context, job *sentenceJob, videoFile, sentDir string) (string, error) {
	outFile := filepath.Join(sentDir, "final.mp4")
	dur := job.audio.Duration

	args := []string{"-i", videoFile}
	if job.audio.Silent {
		args = append(args, "-f", "lavfi", "-t", fmt.Sprintf("%.3f", dur), "-i", "anullsrc=r=44100:cl=mono")
	} else {
		args = append(args, "-i", job.audio.File)
	}

	withWhoosh := job.firstOfSeg && a.cfg.Audio.WhooshFile != ""
	if withWhoosh {
		args = append(args, "-i", a.cfg.Audio.WhooshFile)
	}

	filter := fmt.Sprintf("[0:v]fade=t=in:st=0:d=%.2f[v]", a.cfg.Video.FadeInSec)
	audioMap := "1:a"
	if withWhoosh {
		// The stinger is volume-limited and trimmed to the sentence so it
		// can never outlast or overpower the narration.
		filter += fmt.Sprintf(
			";[2:a]volume=%.2f,atrim=0:%.3f[whoosh];[1:a][whoosh]amix=inputs=2:duration=first:normalize=0[a]",
			a.cfg.Audio.WhooshVolume, dur,
		)
		audioMap = "[a]"
	}

	args = append(args,
		"-filter_complex", filter,
		"-map", "[v]", "-map", audioMap,
		"-t", fmt.Sprintf("%.3f", dur),
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "192k", "-ar", "44100",
		outFile,
	)
	if err := runFFmpeg(ctx, args...); err != nil {
		return "", fmt.Errorf("attach audio: %w", err)
	}
	return outFile, nil
}

// finalize concatenates all sentence clips in order and mixes the looping
// background music underneath at low volume.
func (a *Assembler) finalize(ctx context.Context, clips []string) (string, error) {
	combined := filepath.Join(a.workDir, "combined.mp4")
	list := filepath.Join(a.workDir, "sentences.txt")
	if err := concatFiles(ctx, clips, list, combined, []string{"-c", "copy"}); err != nil {
		return "", fmt.Errorf("concat sentences: %w", err)
	}

	if err := os.MkdirAll(a.cfg.Paths.Output, 0755); err != nil {
		return "", err
	}
	final := filepath.Join(a.cfg.Paths.Output, "shorts_final.mp4")

	if a.cfg.Audio.MusicFile == "" {
		err := runFFmpeg(ctx, "-i", combined, "-c", "copy", "-movflags", "+faststart", final)
		if err != nil {
			return "", fmt.Errorf("finalize: %w", err)
		}
		return final, nil
	}

	// -stream_loop -1 loops the music; duration=first truncates it at the
	// narration's end.
	err := runFFmpeg(ctx,
		"-i", combined,
		"-stream_loop", "-1", "-i", a.cfg.Audio.MusicFile,
		"-filter_complex", fmt.Sprintf(
			"[1:a]volume=%.2f[music];[0:a][music]amix=inputs=2:duration=first:normalize=0[a]",
			a.cfg.Audio.MusicVolume,
		),
		"-map", "0:v", "-map", "[a]",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		final,
	)
	if err != nil {
		return "", fmt.Errorf("music mix: %w", err)
	}
	return final, nil
}

// RenderThumbnail resolves the thumbnail plan into a static 1280x720 image
// with the caption burned in. Optional: a missing plan is not an error.
func (a *Assembler) RenderThumbnail(ctx context.Context, plan *types.ScriptPlan) (string, error) {
	if plan.ThumbnailPlan == nil || plan.ThumbnailPlan.ImagePrompt == "" {
		return "", nil
	}
	asset, err := a.resolver.Resolve(ctx, plan.ThumbnailPlan.ImagePrompt, 1280, 720, "thumbnail")
	if err != nil {
		return "", err
	}

	out := filepath.Join(a.cfg.Paths.Output, "thumbnail.jpg")
	filter := "scale=1280:720:force_original_aspect_ratio=increase,crop=1280:720"
	if caption := plan.ThumbnailPlan.Text; caption != "" {
		filter += fmt.Sprintf(
			",drawtext=text='%s':fontsize=96:fontcolor=white:borderw=4:bordercolor=black:x=(w-text_w)/2:y=h-text_h-60",
			escapeDrawtext(wrapSubtitle(caption, 18)),
		)
	}
	if err := runFFmpeg(ctx, "-i", asset.Path, "-vf", filter, "-frames:v", "1", "-q:v", "2", out); err != nil {
		return "", fmt.Errorf("thumbnail: %w", err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
