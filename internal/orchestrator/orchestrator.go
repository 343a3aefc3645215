package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/imageproxy/internal/cache"
	"github.com/kozaktomas/imageproxy/internal/generator"
)

// Logger receives progress messages. May be nil.
type Logger func(format string, args ...any)

// Config tunes retry pacing and the last-resort cache lookup.
type Config struct {
	// BaseDelay is the unit for exponential backoff between retries.
	// The delay after attempt n is 2^n * BaseDelay.
	BaseDelay time.Duration

	// CacheFallbackThreshold is the relaxed similarity threshold used
	// only after every generator has failed.
	CacheFallbackThreshold float64
}

func DefaultConfig() Config {
	return Config{
		BaseDelay:              500 * time.Millisecond,
		CacheFallbackThreshold: cache.FallbackSimilarityThreshold,
	}
}

// Result is the outcome of a single generation request. Every outcome,
// including total failure, resolves into one of these; Generate never
// panics and never returns an error alongside it.
type Result struct {
	Success    bool
	ImageBytes []byte
	Err        error

	// GeneratorName is the generator that produced the image.
	GeneratorName string

	// UsedFallback is set when a generator other than the first in
	// the chain produced the image.
	UsedFallback bool

	// CacheFallback is set when the image came from the semantic
	// cache after every generator failed. Distinct from a normal
	// pre-generation cache hit.
	CacheFallback bool

	// CachedMatch holds the cache entry when CacheFallback is set.
	CachedMatch *cache.Match

	// AttemptedGenerators lists every generator tried, in order,
	// including the failed ones.
	AttemptedGenerators []string
}

// Orchestrator walks an ordered generator chain, retrying transient
// failures with exponential backoff and falling back to the semantic
// cache when the whole chain is exhausted.
type Orchestrator struct {
	chain  []generator.Descriptor
	cache  cache.Cache
	config Config
	logf   Logger
}

func New(chain []generator.Descriptor, c cache.Cache, config Config, logf Logger) (*Orchestrator, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("generator chain is empty")
	}
	if c == nil {
		c = cache.NewNoop()
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultConfig().BaseDelay
	}
	if config.CacheFallbackThreshold <= 0 {
		config.CacheFallbackThreshold = DefaultConfig().CacheFallbackThreshold
	}

	return &Orchestrator{
		chain:  chain,
		cache:  c,
		config: config,
		logf:   logf,
	}, nil
}

// Generate tries each generator in priority order until one succeeds.
// A retryable failure consumes the generator's retry budget with
// backoff; a fatal failure moves to the next generator immediately.
// When the chain is exhausted it consults the cache at the relaxed
// threshold before reporting terminal failure.
func (o *Orchestrator) Generate(ctx context.Context, req generator.Request, filters cache.Filters) Result {
	attempted := make([]string, 0, len(o.chain))
	var lastErr error

	for i, desc := range o.chain {
		name := desc.Provider.Name()
		attempted = append(attempted, name)

		imageBytes, err := o.tryGenerator(ctx, desc, req)
		if err == nil {
			return Result{
				Success:             true,
				ImageBytes:          imageBytes,
				GeneratorName:       name,
				UsedFallback:        i > 0,
				AttemptedGenerators: attempted,
			}
		}

		lastErr = err
		o.log("generator %s failed: %v", name, err)

		if ctx.Err() != nil {
			break
		}
	}

	if match := o.cacheFallback(ctx, req, filters); match != nil {
		o.log("all generators failed, serving cached image %s (similarity %.2f)", match.ID, match.Similarity)
		return Result{
			Success:             true,
			CacheFallback:       true,
			CachedMatch:         match,
			AttemptedGenerators: attempted,
		}
	}

	return Result{
		Success: false,
		Err: fmt.Errorf("all generators failed (attempted: %s), no cached fallback available, last error: %w",
			strings.Join(attempted, ", "), lastErr),
		AttemptedGenerators: attempted,
	}
}

// tryGenerator runs one generator with up to MaxRetries+1 attempts.
func (o *Orchestrator) tryGenerator(ctx context.Context, desc generator.Descriptor, req generator.Request) ([]byte, error) {
	name := desc.Provider.Name()
	var lastErr error

	for attempt := 0; attempt <= desc.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		imageBytes, err := desc.Provider.Generate(ctx, req)
		if err == nil {
			return imageBytes, nil
		}
		lastErr = err

		if generator.Classify(err.Error()) == generator.Fatal {
			o.log("generator %s rejected the request, not retrying: %v", name, err)
			return nil, err
		}

		if attempt < desc.MaxRetries {
			delay := (1 << attempt) * o.config.BaseDelay
			o.log("generator %s attempt %d/%d failed, retrying in %s: %v",
				name, attempt+1, desc.MaxRetries+1, delay, err)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, lastErr
}

func (o *Orchestrator) cacheFallback(ctx context.Context, req generator.Request, filters cache.Filters) *cache.Match {
	if ctx.Err() != nil {
		return nil
	}

	match, err := o.cache.FindSimilar(ctx, req.Prompt, filters, o.config.CacheFallbackThreshold)
	if err != nil {
		o.log("cache fallback lookup failed: %v", err)
		return nil
	}
	if match == nil {
		return nil
	}

	if err := o.cache.RecordHit(ctx, match.ID); err != nil {
		o.log("could not record cache hit for %s: %v", match.ID, err)
	}
	return match
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) log(format string, args ...any) {
	if o.logf != nil {
		o.logf(format, args...)
	}
}
