package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/imageproxy/internal/cache"
	"github.com/kozaktomas/imageproxy/internal/generator"
)

// fakeProvider fails scripted times before succeeding. failUntil < 0
// means it always fails.
type fakeProvider struct {
	name      string
	failUntil int
	failErr   error

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(_ context.Context, _ generator.Request) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failUntil < 0 || f.calls <= f.failUntil {
		return nil, f.failErr
	}
	return []byte("image-from-" + f.name), nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCache returns a fixed match when armed.
type fakeCache struct {
	match     *cache.Match
	threshold float64
	hits      []string
}

func (f *fakeCache) FindSimilar(_ context.Context, _ string, _ cache.Filters, threshold float64) (*cache.Match, error) {
	f.threshold = threshold
	return f.match, nil
}

func (f *fakeCache) Store(_ context.Context, entry cache.Entry) (string, error) {
	return entry.ID, nil
}

func (f *fakeCache) RecordHit(_ context.Context, id string) error {
	f.hits = append(f.hits, id)
	return nil
}

func testConfig() Config {
	return Config{
		BaseDelay:              time.Millisecond,
		CacheFallbackThreshold: cache.FallbackSimilarityThreshold,
	}
}

func TestGenerate_PrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "gemini"}
	fallback := &fakeProvider{name: "openai"}

	o, err := New([]generator.Descriptor{
		{Provider: primary, MaxRetries: 2},
		{Provider: fallback, MaxRetries: 1},
	}, nil, testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := o.Generate(context.Background(), generator.Request{Prompt: "a lighthouse"}, cache.Filters{})

	if !result.Success {
		t.Fatalf("expected success, got error: %v", result.Err)
	}
	if result.UsedFallback {
		t.Error("expected UsedFallback=false for primary success")
	}
	if result.GeneratorName != "gemini" {
		t.Errorf("expected generator gemini, got %s", result.GeneratorName)
	}
	if len(result.AttemptedGenerators) != 1 || result.AttemptedGenerators[0] != "gemini" {
		t.Errorf("unexpected attempted list: %v", result.AttemptedGenerators)
	}
	if fallback.callCount() != 0 {
		t.Errorf("fallback should not be called, got %d calls", fallback.callCount())
	}
}

func TestGenerate_FallbackAfterRetryableFailures(t *testing.T) {
	primary := &fakeProvider{name: "gemini", failUntil: -1, failErr: errors.New("429: rate limit exceeded")}
	fallback := &fakeProvider{name: "openai"}

	o, err := New([]generator.Descriptor{
		{Provider: primary, MaxRetries: 2},
		{Provider: fallback, MaxRetries: 1},
	}, nil, testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := o.Generate(context.Background(), generator.Request{Prompt: "a lighthouse"}, cache.Filters{})

	if !result.Success {
		t.Fatalf("expected success, got error: %v", result.Err)
	}
	if !result.UsedFallback {
		t.Error("expected UsedFallback=true")
	}
	if result.GeneratorName != "openai" {
		t.Errorf("expected generator openai, got %s", result.GeneratorName)
	}
	want := []string{"gemini", "openai"}
	if len(result.AttemptedGenerators) != len(want) {
		t.Fatalf("unexpected attempted list: %v", result.AttemptedGenerators)
	}
	for i, name := range want {
		if result.AttemptedGenerators[i] != name {
			t.Errorf("attempted[%d] = %s, want %s", i, result.AttemptedGenerators[i], name)
		}
	}
	if primary.callCount() != 3 {
		t.Errorf("primary should exhaust its retry budget (3 attempts), got %d", primary.callCount())
	}
}

func TestGenerate_FatalErrorSkipsRetries(t *testing.T) {
	primary := &fakeProvider{name: "gemini", failUntil: -1, failErr: errors.New("request blocked by content policy")}
	fallback := &fakeProvider{name: "openai"}

	o, err := New([]generator.Descriptor{
		{Provider: primary, MaxRetries: 2},
		{Provider: fallback, MaxRetries: 1},
	}, nil, testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := o.Generate(context.Background(), generator.Request{Prompt: "a lighthouse"}, cache.Filters{})

	if !result.Success {
		t.Fatalf("expected success via fallback, got error: %v", result.Err)
	}
	if primary.callCount() != 1 {
		t.Errorf("fatal error should abort retries, primary called %d times", primary.callCount())
	}
	if result.GeneratorName != "openai" {
		t.Errorf("expected generator openai, got %s", result.GeneratorName)
	}
}

func TestGenerate_CacheFallback(t *testing.T) {
	primary := &fakeProvider{name: "gemini", failUntil: -1, failErr: errors.New("503 service unavailable")}
	fallback := &fakeProvider{name: "openai", failUntil: -1, failErr: errors.New("timeout")}

	c := &fakeCache{match: &cache.Match{
		Entry:      cache.Entry{ID: "cached-1", ImagePath: "/images/cached-1/original.png"},
		Similarity: 0.74,
	}}

	o, err := New([]generator.Descriptor{
		{Provider: primary, MaxRetries: 1},
		{Provider: fallback, MaxRetries: 1},
	}, c, testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := o.Generate(context.Background(), generator.Request{Prompt: "a lighthouse"}, cache.Filters{})

	if !result.Success {
		t.Fatalf("expected cache fallback success, got error: %v", result.Err)
	}
	if !result.CacheFallback {
		t.Error("expected CacheFallback=true")
	}
	if result.GeneratorName != "" {
		t.Errorf("cache fallback must not claim a generator, got %s", result.GeneratorName)
	}
	if result.CachedMatch == nil || result.CachedMatch.ID != "cached-1" {
		t.Errorf("unexpected cached match: %+v", result.CachedMatch)
	}
	if c.threshold != cache.FallbackSimilarityThreshold {
		t.Errorf("cache fallback must use the relaxed threshold, got %.2f", c.threshold)
	}
	if len(c.hits) != 1 || c.hits[0] != "cached-1" {
		t.Errorf("expected hit recorded for cached-1, got %v", c.hits)
	}
	if len(result.AttemptedGenerators) != 2 {
		t.Errorf("unexpected attempted list: %v", result.AttemptedGenerators)
	}
}

func TestGenerate_TerminalFailureListsGenerators(t *testing.T) {
	primary := &fakeProvider{name: "gemini", failUntil: -1, failErr: errors.New("503 service unavailable")}
	fallback := &fakeProvider{name: "imagen", failUntil: -1, failErr: errors.New("quota exceeded")}

	o, err := New([]generator.Descriptor{
		{Provider: primary, MaxRetries: 1},
		{Provider: fallback, MaxRetries: 0},
	}, nil, testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := o.Generate(context.Background(), generator.Request{Prompt: "a lighthouse"}, cache.Filters{})

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err == nil {
		t.Fatal("expected terminal error")
	}
	msg := result.Err.Error()
	for _, name := range []string{"gemini", "imagen"} {
		if !strings.Contains(msg, name) {
			t.Errorf("terminal error should mention %s: %s", name, msg)
		}
	}
	if !strings.Contains(msg, "quota exceeded") {
		t.Errorf("terminal error should include the last underlying error: %s", msg)
	}
}

func TestGenerate_ContextCancelledDuringBackoff(t *testing.T) {
	primary := &fakeProvider{name: "gemini", failUntil: -1, failErr: errors.New("timeout")}

	o, err := New([]generator.Descriptor{
		{Provider: primary, MaxRetries: 5},
	}, nil, Config{BaseDelay: time.Hour, CacheFallbackThreshold: 0.70}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	done := make(chan Result, 1)
	go func() {
		done <- o.Generate(ctx, generator.Request{Prompt: "a lighthouse"}, cache.Filters{})
	}()

	select {
	case result := <-done:
		if result.Success {
			t.Error("expected failure after cancellation")
		}
		if primary.callCount() != 1 {
			t.Errorf("expected a single attempt before the cancelled backoff, got %d", primary.callCount())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Generate did not return after context cancellation")
	}
}

func TestNew_EmptyChain(t *testing.T) {
	if _, err := New(nil, nil, testConfig(), nil); err == nil {
		t.Fatal("expected error for empty generator chain")
	}
}
