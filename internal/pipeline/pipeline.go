package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/imageproxy/internal/cache"
	"github.com/kozaktomas/imageproxy/internal/generator"
	"github.com/kozaktomas/imageproxy/internal/imgproc"
	"github.com/kozaktomas/imageproxy/internal/orchestrator"
	"github.com/kozaktomas/imageproxy/internal/ratio"
	"github.com/kozaktomas/imageproxy/internal/storage"
)

const thumbnailSize = 256

// Logger receives progress messages. May be nil.
type Logger func(format string, args ...any)

// Request describes one image to produce.
type Request struct {
	Prompt           string
	TargetRatio      string
	NegativePrompt   string
	Topics           []string
	Style            string
	Anchor           ratio.Anchor
	RemoveBackground bool
}

// Result is the outcome of one pipeline run.
type Result struct {
	ImageID string
	Plan    ratio.GenerationPlan

	GeneratorName string
	UsedFallback  bool

	// CacheHit marks the fast path: a strict-threshold match found
	// before any generation attempt.
	CacheHit bool
	// CacheFallback marks the degraded path: a relaxed-threshold
	// match used after every generator failed.
	CacheFallback bool
	Similarity    float64

	OriginalPath    string
	CroppedPath     string
	TransparentPath string
	ThumbnailPath   string

	Elapsed time.Duration
}

// FinalPath returns the path of the most processed full-size variant.
func (r *Result) FinalPath() string {
	if r.TransparentPath != "" {
		return r.TransparentPath
	}
	if r.CroppedPath != "" {
		return r.CroppedPath
	}
	return r.OriginalPath
}

// Pipeline runs the full generation flow: cache check, ratio planning,
// orchestrated generation, cropping, optional background removal,
// thumbnailing, storage and cache registration.
type Pipeline struct {
	orch            *orchestrator.Orchestrator
	cache           cache.Cache
	store           storage.Store
	strictThreshold float64
	logf            Logger
}

func New(orch *orchestrator.Orchestrator, c cache.Cache, store storage.Store, strictThreshold float64, logf Logger) (*Pipeline, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if c == nil {
		c = cache.NewNoop()
	}
	if strictThreshold <= 0 {
		strictThreshold = cache.DefaultSimilarityThreshold
	}

	return &Pipeline{
		orch:            orch,
		cache:           c,
		store:           store,
		strictThreshold: strictThreshold,
		logf:            logf,
	}, nil
}

// Run executes the pipeline for a single request.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	target, err := ratio.Parse(req.TargetRatio)
	if err != nil {
		return nil, fmt.Errorf("invalid target ratio %q: %w", req.TargetRatio, err)
	}

	filters := cache.Filters{Topics: req.Topics, Style: req.Style}

	// Fast path: a confident cached match skips generation entirely.
	if match, err := p.cache.FindSimilar(ctx, req.Prompt, filters, p.strictThreshold); err != nil {
		p.log("cache lookup failed, generating instead: %v", err)
	} else if match != nil {
		if err := p.cache.RecordHit(ctx, match.ID); err != nil {
			p.log("could not record cache hit for %s: %v", match.ID, err)
		}
		p.log("cache hit %s (similarity %.2f)", match.ID, match.Similarity)
		return &Result{
			ImageID:      match.ID,
			CacheHit:     true,
			Similarity:   match.Similarity,
			OriginalPath: match.ImagePath,
			CroppedPath:  match.CroppedPath,
			Elapsed:      time.Since(start),
		}, nil
	}

	plan, err := ratio.Plan(req.TargetRatio, ratio.Logger(p.logf))
	if err != nil {
		return nil, err
	}
	p.log("%s", plan.Strategy)

	genResult := p.orch.Generate(ctx, generator.Request{
		Prompt:         req.Prompt,
		AspectRatio:    plan.SourceRatio,
		NegativePrompt: req.NegativePrompt,
	}, filters)

	if !genResult.Success {
		return nil, genResult.Err
	}

	if genResult.CacheFallback {
		match := genResult.CachedMatch
		return &Result{
			ImageID:       match.ID,
			Plan:          plan,
			CacheFallback: true,
			Similarity:    match.Similarity,
			OriginalPath:  match.ImagePath,
			CroppedPath:   match.CroppedPath,
			Elapsed:       time.Since(start),
		}, nil
	}

	result := &Result{
		ImageID:       uuid.NewString(),
		Plan:          plan,
		GeneratorName: genResult.GeneratorName,
		UsedFallback:  genResult.UsedFallback,
	}

	if err := p.process(result, genResult.ImageBytes, target, req); err != nil {
		return nil, err
	}

	result.Elapsed = time.Since(start)

	entry := cache.Entry{
		ID:           result.ImageID,
		Prompt:       req.Prompt,
		Topics:       req.Topics,
		Style:        req.Style,
		ImagePath:    result.OriginalPath,
		CroppedPath:  result.CroppedPath,
		Model:        genResult.GeneratorName,
		GenerationMS: int(result.Elapsed.Milliseconds()),
	}
	if _, err := p.cache.Store(ctx, entry); err != nil {
		// Generation succeeded; a cache write failure is not fatal.
		p.log("could not store cache entry: %v", err)
	}

	return result, nil
}

// process crops, strips the background when requested, thumbnails and
// stores every variant.
func (p *Pipeline) process(result *Result, imageBytes []byte, target ratio.Ratio, req Request) error {
	path, err := p.store.Save(result.ImageID, storage.VariantOriginal, imageBytes)
	if err != nil {
		return err
	}
	result.OriginalPath = path

	final := imageBytes
	if result.Plan.RequiresCrop {
		cropped, err := imgproc.CropToRatio(imageBytes, target, req.Anchor)
		if err != nil {
			return fmt.Errorf("could not crop to %s: %w", target, err)
		}
		path, err := p.store.Save(result.ImageID, storage.VariantCropped, cropped)
		if err != nil {
			return err
		}
		result.CroppedPath = path
		final = cropped
	}

	if req.RemoveBackground {
		transparent, err := imgproc.RemoveWhiteBackground(final)
		if err != nil {
			return fmt.Errorf("could not remove background: %w", err)
		}
		path, err := p.store.Save(result.ImageID, storage.VariantTransparent, transparent)
		if err != nil {
			return err
		}
		result.TransparentPath = path
		final = transparent
	}

	thumb, err := imgproc.Thumbnail(final, thumbnailSize)
	if err != nil {
		return fmt.Errorf("could not create thumbnail: %w", err)
	}
	path, err = p.store.Save(result.ImageID, storage.VariantThumbnail, thumb)
	if err != nil {
		return err
	}
	result.ThumbnailPath = path

	return nil
}

func (p *Pipeline) log(format string, args ...any) {
	if p.logf != nil {
		p.logf(format, args...)
	}
}
