package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed generators.yaml
var generatorsYAML []byte

type Config struct {
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Embedding  EmbeddingConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Generation GenerationConfig
	Cache      CacheConfig
	Generators GeneratorsConfig
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 768
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type StorageConfig struct {
	Dir string // root directory for stored image variants (default ./images)
}

type GenerationConfig struct {
	BaseDelay       time.Duration // backoff unit between retries (default 500ms)
	PrimaryRetries  int           // retry budget of the first generator (default 2)
	FallbackRetries int           // retry budget of the remaining generators (default 1)
}

type CacheConfig struct {
	SimilarityThreshold float64 // strict pre-generation threshold (default 0.85)
	FallbackThreshold   float64 // relaxed last-resort threshold (default 0.70)
}

// GeneratorsConfig is the embedded fallback chain definition.
type GeneratorsConfig struct {
	Chain []ChainEntry `yaml:"chain"`
}

// ChainEntry describes one backend in the fallback chain.
type ChainEntry struct {
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in (0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var generators GeneratorsConfig
	if err := yaml.Unmarshal(generatorsYAML, &generators); err != nil {
		// Embedded file, cannot fail in practice
		panic("failed to unmarshal embedded generators.yaml: " + err.Error())
	}

	return &Config{
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 768),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Storage: StorageConfig{
			Dir: envString("STORAGE_DIR", "./images"),
		},
		Generation: GenerationConfig{
			BaseDelay:       envDuration("GENERATION_BASE_DELAY", 500*time.Millisecond),
			PrimaryRetries:  envInt("GENERATION_PRIMARY_RETRIES", 2),
			FallbackRetries: envInt("GENERATION_FALLBACK_RETRIES", 1),
		},
		Cache: CacheConfig{
			SimilarityThreshold: envFloat("CACHE_SIMILARITY_THRESHOLD", 0.85),
			FallbackThreshold:   envFloat("CACHE_FALLBACK_THRESHOLD", 0.70),
		},
		Generators: generators,
	}
}
