package visuals

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/time/rate"

	"daily-shorts-pipeline/config"
	"daily-shorts-pipeline/types"
)

// Resolver walks the provider chain in priority order and memoizes the first
// success per group key for the remainder of the run. It exclusively owns
// the cache and the downloaded files' lifetime.
type Resolver struct {
	cfg       *config.Config
	dir       string
	providers []Provider
	limiters  map[string]*rate.Limiter

	mu    sync.Mutex
	cache map[string]types.VisualAsset
	seq   int
}

// NewResolver wires the default chain: Cloudflare FLUX, Pollinations with its
// model fallback, Pixabay stock search, then the local placeholder. dir must
// be inside the run's working directory; Clear wipes it.
func NewResolver(cfg *config.Config, dir string) *Resolver {
	providers := []Provider{
		newCloudflare(cfg.Secrets.CloudflareAccountID, cfg.Secrets.CloudflareAPIKey, cfg.Visuals.CloudflareModel),
		newPollinations(cfg.Visuals.PollinationModels),
		newPixabay(cfg.Secrets.PixabayAPIKey),
		placeholder{},
	}
	return newResolver(cfg, dir, providers)
}

// NewResolverWithProviders is the injection point for tests.
func NewResolverWithProviders(cfg *config.Config, dir string, providers ...Provider) *Resolver {
	return newResolver(cfg, dir, providers)
}

func newResolver(cfg *config.Config, dir string, providers []Provider) *Resolver {
	limiters := make(map[string]*rate.Limiter, len(providers))
	perSecond := rate.Limit(float64(cfg.Visuals.RequestsPerMinute) / 60.0)
	for _, p := range providers {
		limiters[p.Name()] = rate.NewLimiter(perSecond, 1)
	}
	return &Resolver{
		cfg:       cfg,
		dir:       dir,
		providers: providers,
		limiters:  limiters,
		cache:     make(map[string]types.VisualAsset),
	}
}

// Clear wipes the asset directory and forgets all memoized resolutions.
// Called once at run start; the directory is owned by a single run.
func (r *Resolver) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]types.VisualAsset)
	r.seq = 0
	if err := os.RemoveAll(r.dir); err != nil {
		return fmt.Errorf("clear asset dir: %w", err)
	}
	return os.MkdirAll(r.dir, 0755)
}

// Resolve returns the visual for a group key, fetching it on first use.
// Later calls with the same key return the cached asset without any network
// call, regardless of prompt differences — callers pass a stable key when
// chunks should share an image. The chain is total, so the only error paths
// are cancellation and local disk failure.
func (r *Resolver) Resolve(ctx context.Context, prompt string, width, height int, groupKey string) (types.VisualAsset, error) {
	r.mu.Lock()
	if asset, ok := r.cache[groupKey]; ok {
		r.mu.Unlock()
		return asset, nil
	}
	r.mu.Unlock()

	if prompt == types.OutroImageMarker {
		return r.resolveOutro(ctx, width, height, groupKey)
	}

	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return types.VisualAsset{}, err
		}
		if err := r.limiters[p.Name()].Wait(ctx); err != nil {
			return types.VisualAsset{}, err
		}

		data, err := p.Attempt(ctx, prompt, width, height)
		if err != nil {
			log.Printf("[visuals] %v — trying next provider", err)
			continue
		}

		asset, err := r.store(p.Name(), data, width, height)
		if err != nil {
			return types.VisualAsset{}, err
		}
		r.remember(groupKey, asset)
		log.Printf("[visuals] ✅ %q resolved via %s (%dx%d)", truncate(prompt, 50), p.Name(), asset.Width, asset.Height)
		return asset, nil
	}

	// Unreachable with the default chain: the placeholder cannot fail.
	return types.VisualAsset{}, fmt.Errorf("all providers failed for %q", prompt)
}

// resolveOutro maps the sentinel marker to the static subscribe-prompt image.
func (r *Resolver) resolveOutro(ctx context.Context, width, height int, groupKey string) (types.VisualAsset, error) {
	if path := r.cfg.Paths.OutroImage; path != "" {
		if w, h, err := probeImage(path); err == nil {
			asset := types.VisualAsset{Path: path, Provider: "static", Width: w, Height: h}
			r.remember(groupKey, asset)
			return asset, nil
		}
		log.Printf("[visuals] Warning: outro image %s unreadable — using placeholder", path)
	}
	data, err := placeholder{}.Attempt(ctx, types.OutroImageMarker, width, height)
	if err != nil {
		return types.VisualAsset{}, err
	}
	asset, err := r.store("placeholder", data, width, height)
	if err != nil {
		return types.VisualAsset{}, err
	}
	r.remember(groupKey, asset)
	return asset, nil
}

func (r *Resolver) remember(groupKey string, asset types.VisualAsset) {
	r.mu.Lock()
	r.cache[groupKey] = asset
	r.mu.Unlock()
}

// store writes the image bytes and records actual dimensions. Providers that
// cannot honor exact dimensions return their nearest size; the assembler
// post-crops, so requested dims are only the fallback when decoding fails.
func (r *Resolver) store(provider string, data []byte, reqW, reqH int) (types.VisualAsset, error) {
	// ffmpeg's image loop demuxer selects by extension, so the file gets
	// the extension matching its actual bytes.
	ext := ".img"
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		ext = ".png"
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		ext = ".jpg"
	}

	r.mu.Lock()
	r.seq++
	path := filepath.Join(r.dir, fmt.Sprintf("asset_%03d%s", r.seq, ext))
	r.mu.Unlock()

	if err := os.WriteFile(path, data, 0644); err != nil {
		return types.VisualAsset{}, fmt.Errorf("write asset: %w", err)
	}

	w, h := reqW, reqH
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		w, h = cfg.Width, cfg.Height
	}
	return types.VisualAsset{Path: path, Provider: provider, Width: w, Height: h}, nil
}

func probeImage(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
