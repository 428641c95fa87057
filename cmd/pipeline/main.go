package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"daily-shorts-pipeline/assemble"
	"daily-shorts-pipeline/config"
	"daily-shorts-pipeline/news"
	"daily-shorts-pipeline/script"
	"daily-shorts-pipeline/tts"
	"daily-shorts-pipeline/types"
	"daily-shorts-pipeline/upload"
	"daily-shorts-pipeline/visuals"
)

func main() {
	// Exiting from main (not from inside a defer) lets run's own defers —
	// signal cleanup, state write — finish first.
	if err := run(); err != nil {
		log.Fatalf("❌ Pipeline failed: %v", err)
	}
}

func run() (err error) {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// WorkDir belongs to exactly one run: wipe any leftovers from a
	// previous crash before starting.
	if err := os.RemoveAll(cfg.Paths.WorkDir); err != nil {
		return fmt.Errorf("clear work dir: %w", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.Output} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	runID := uuid.NewString()[:8]
	log.Printf("🎬 Daily Shorts Pipeline starting — Run ID: %s", runID)
	log.Printf("📁 Work dir: %s", cfg.Paths.WorkDir)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	state := &types.PipelineState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Topic:     cfg.Run.Topic,
		Mode:      cfg.Run.Mode,
	}

	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		if err != nil {
			state.Error = err.Error()
		}
		saveJSON(filepath.Join(cfg.Paths.Output, "pipeline_state.json"), state)
		if err == nil {
			log.Printf("✅ Pipeline complete! Video: %s", state.VideoFile)
		}
	}()

	// ─────────────────────────────────────────────
	// STAGE 1: News
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 1: News ━━━")
	fetcher := news.New(cfg)
	items, err := fetcher.Run(ctx, cfg.Run.Query)
	if err != nil {
		return fmt.Errorf("stage 1 news: %w", err)
	}
	state.News = items
	saveJSON(filepath.Join(cfg.Paths.WorkDir, "news.json"), items)

	// ─────────────────────────────────────────────
	// STAGE 2: Script
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 2: Script ━━━")
	writer, err := script.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("stage 2 script init: %w", err)
	}
	plan, err := writer.Run(ctx, news.Digest(items))
	if err != nil {
		return fmt.Errorf("stage 2 script: %w", err)
	}
	state.Script = plan
	saveJSON(filepath.Join(cfg.Paths.WorkDir, "script.json"), plan)

	// ─────────────────────────────────────────────
	// STAGE 3: Assembly (TTS + visuals + render)
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 3: Assembly ━━━")
	resolver := visuals.NewResolver(cfg, filepath.Join(cfg.Paths.WorkDir, "assets"))
	if err := resolver.Clear(); err != nil {
		return fmt.Errorf("stage 3 assembly init: %w", err)
	}
	assembler := assemble.New(cfg, cfg.Paths.WorkDir, resolver, tts.New(cfg))
	finalVideo, err := assembler.Run(ctx, plan)
	if err != nil {
		return fmt.Errorf("stage 3 assembly: %w", err)
	}
	state.VideoFile = finalVideo

	// ─────────────────────────────────────────────
	// STAGE 4: Thumbnail
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 4: Thumbnail ━━━")
	thumbnailFile, err := assembler.RenderThumbnail(ctx, plan)
	if err != nil {
		log.Printf("⚠️  Stage 4 Thumbnail failed: %v — continuing without thumbnail", err)
		thumbnailFile = ""
	}

	// ─────────────────────────────────────────────
	// STAGE 5: Metadata + Upload
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 5: Metadata + Upload ━━━")
	uploader := upload.New(cfg)
	metadata := uploader.BuildMetadata(plan, items, thumbnailFile)
	state.Metadata = metadata
	saveJSON(filepath.Join(cfg.Paths.Output, "metadata.json"), metadata)

	if !cfg.Upload.Enabled {
		log.Println("[upload] Disabled in config — skipping")
		return nil
	}
	videoID, videoURL, err := uploader.Run(ctx, finalVideo, metadata)
	if err != nil {
		return fmt.Errorf("stage 5 upload: %w", err)
	}
	state.YouTubeID = videoID
	state.YouTubeURL = videoURL
	_ = upload.LogUpload(videoID, videoURL, finalVideo, cfg.Paths.Output, metadata)
	return nil
}

func saveJSON(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
