package visuals

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"strings"
	"testing"

	"daily-shorts-pipeline/config"
	"daily-shorts-pipeline/types"
)

// countingProvider records how often it is asked, succeeding or failing on
// command.
type countingProvider struct {
	name  string
	fail  bool
	calls int
	data  []byte
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) Attempt(_ context.Context, _ string, width, height int) ([]byte, error) {
	p.calls++
	if p.fail {
		return nil, failure(p.name, errors.New("simulated outage"))
	}
	if p.data != nil {
		return p.data, nil
	}
	return placeholder{}.Attempt(context.Background(), "test", width, height)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Visuals: config.VisualsConfig{RequestsPerMinute: 100000},
	}
}

func newTestResolver(t *testing.T, providers ...Provider) *Resolver {
	t.Helper()
	r := NewResolverWithProviders(testConfig(t), t.TempDir(), providers...)
	if err := r.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	return r
}

func TestResolveWalksChainInOrder(t *testing.T) {
	first := &countingProvider{name: "first", fail: true}
	second := &countingProvider{name: "second", fail: true}
	third := &countingProvider{name: "third"}

	r := newTestResolver(t, first, second, third)
	asset, err := r.Resolve(context.Background(), "quantum fab cleanroom", 1080, 1350, "seg00/sent00")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Errorf("call counts = %d/%d/%d, want 1/1/1", first.calls, second.calls, third.calls)
	}
	if asset.Provider != "third" {
		t.Errorf("asset.Provider = %q, want %q", asset.Provider, "third")
	}
	if _, err := os.Stat(asset.Path); err != nil {
		t.Errorf("asset file missing: %v", err)
	}
}

func TestResolveStopsAtFirstSuccess(t *testing.T) {
	first := &countingProvider{name: "first"}
	second := &countingProvider{name: "second"}

	r := newTestResolver(t, first, second)
	if _, err := r.Resolve(context.Background(), "wafer inspection", 1080, 1350, "k"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.calls != 1 {
		t.Errorf("first.calls = %d, want 1", first.calls)
	}
	if second.calls != 0 {
		t.Errorf("second.calls = %d, want 0 — chain should stop at first success", second.calls)
	}
}

func TestResolveCacheHitSkipsProviders(t *testing.T) {
	p := &countingProvider{name: "only"}
	r := newTestResolver(t, p)

	ctx := context.Background()
	a1, err := r.Resolve(ctx, "lithography machine", 1080, 1350, "seg01/sent00")
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	// Same key, different prompt: must return the cached asset untouched.
	a2, err := r.Resolve(ctx, "completely different prompt", 1080, 1350, "seg01/sent00")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}

	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1 — cache hit must not re-fetch", p.calls)
	}
	if a1.Path != a2.Path {
		t.Errorf("cache returned different asset: %q vs %q", a1.Path, a2.Path)
	}

	// A different key fetches again.
	if _, err := r.Resolve(ctx, "lithography machine", 1080, 1350, "seg01/sent01"); err != nil {
		t.Fatalf("third Resolve: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times after new key, want 2", p.calls)
	}
}

func TestResolveAllFailFallsToPlaceholder(t *testing.T) {
	first := &countingProvider{name: "first", fail: true}
	second := &countingProvider{name: "second", fail: true}

	r := newTestResolver(t, first, second, placeholder{})
	asset, err := r.Resolve(context.Background(), "unreachable everything", 1080, 1350, "k")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.Provider != "placeholder" {
		t.Errorf("asset.Provider = %q, want placeholder", asset.Provider)
	}

	data, err := os.ReadFile(asset.Path)
	if err != nil {
		t.Fatalf("read placeholder asset: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("placeholder is not a decodable image: %v", err)
	}
	if cfg.Width != 1080 || cfg.Height != 1350 {
		t.Errorf("placeholder dims = %dx%d, want 1080x1350", cfg.Width, cfg.Height)
	}
	if asset.Width != 1080 || asset.Height != 1350 {
		t.Errorf("asset dims = %dx%d, want 1080x1350", asset.Width, asset.Height)
	}
}

func TestStoreExtensionMatchesImageBytes(t *testing.T) {
	jpegBytes := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 200)...)

	tests := []struct {
		name     string
		provider Provider
		wantExt  string
	}{
		{"png from placeholder", placeholder{}, ".png"},
		{"jpeg magic", &countingProvider{name: "jpg", data: jpegBytes}, ".jpg"},
		{"unknown bytes", &countingProvider{name: "raw", data: make([]byte, 200)}, ".img"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, tt.provider)
			asset, err := r.Resolve(context.Background(), "prompt", 1080, 1350, "k")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !strings.HasSuffix(asset.Path, tt.wantExt) {
				t.Errorf("asset path %q, want extension %s", asset.Path, tt.wantExt)
			}
		})
	}
}

func TestResolveOutroMarkerBypassesChain(t *testing.T) {
	p := &countingProvider{name: "network"}
	r := newTestResolver(t, p)

	asset, err := r.Resolve(context.Background(), types.OutroImageMarker, 1080, 1350, "outro")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.calls != 0 {
		t.Errorf("network provider called %d times for the outro marker, want 0", p.calls)
	}
	// No configured outro image: the local placeholder stands in.
	if asset.Provider != "placeholder" {
		t.Errorf("asset.Provider = %q, want placeholder", asset.Provider)
	}
}

func TestResolveHonorsCancellation(t *testing.T) {
	p := &countingProvider{name: "only"}
	r := newTestResolver(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Resolve(ctx, "anything", 1080, 1350, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve with canceled ctx = %v, want context.Canceled", err)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times after cancellation, want 0", p.calls)
	}
}

func TestClearForgetsCache(t *testing.T) {
	p := &countingProvider{name: "only"}
	r := newTestResolver(t, p)

	ctx := context.Background()
	if _, err := r.Resolve(ctx, "prompt", 1080, 1350, "k"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := r.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := r.Resolve(ctx, "prompt", 1080, 1350, "k"); err != nil {
		t.Fatalf("Resolve after Clear: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times, want 2 — Clear must drop the cache", p.calls)
	}
}

func TestProviderErrorUnwraps(t *testing.T) {
	sentinel := errors.New("boom")
	err := failure("pixabay", sentinel)
	if !errors.Is(err, sentinel) {
		t.Error("ProviderError does not unwrap to its cause")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Provider != "pixabay" {
		t.Errorf("errors.As failed or wrong provider: %v", err)
	}
}
