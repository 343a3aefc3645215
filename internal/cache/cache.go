package cache

import (
	"context"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Similarity thresholds. The opportunistic pre-generation check uses the
// strict threshold; the last-resort lookup after every generator failed uses
// the relaxed one. A cheap near-match beats total failure, but only then.
const (
	DefaultSimilarityThreshold  = 0.85
	FallbackSimilarityThreshold = 0.70
)

// Filters narrow a similarity search to entries that are actually relevant.
// Topic matching prevents "the style has hundreds of images" from counting
// as relevance when none of them cover the requested subject.
type Filters struct {
	Topics []string
	Style  string
}

// Entry is a cached generation result.
type Entry struct {
	ID           string
	Prompt       string
	Topics       []string
	Style        string
	ImagePath    string
	CroppedPath  string
	Model        string
	GenerationMS int
	HitCount     int
	CreatedAt    time.Time
}

// Match is an Entry found by similarity search.
type Match struct {
	Entry
	Similarity float64
}

// Embedder vectorizes prompt text for similarity search.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Cache finds previously generated images for semantically similar prompts.
type Cache interface {
	// FindSimilar returns the best match at or above threshold, or nil.
	FindSimilar(ctx context.Context, prompt string, filters Filters, threshold float64) (*Match, error)
	// Store records a generated image for future matching and returns its ID.
	Store(ctx context.Context, entry Entry) (string, error)
	// RecordHit increments the hit counter of a cache entry.
	RecordHit(ctx context.Context, id string) error
}

// removeDiacritics strips diacritical marks (e.g. "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeTopic normalizes a topic keyword for comparison and storage.
func NormalizeTopic(topic string) string {
	topic = removeDiacritics(topic)
	topic = strings.ToLower(strings.TrimSpace(topic))
	return topic
}

// NormalizeTopics normalizes a topic list, dropping empty entries.
func NormalizeTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if n := NormalizeTopic(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}
