package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"
)

const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// hnswSearchMultiplier requests extra candidates from the graph so
	// enough survive the topic and style filters.
	hnswSearchMultiplier = 4
)

type memoryEntry struct {
	entry     Entry
	embedding []float32
	topicSet  map[string]struct{}
}

// Memory is an in-process cache backed by an HNSW graph with cosine
// distance. Entries are lost on restart; use the postgres cache when
// persistence matters.
type Memory struct {
	embedder Embedder

	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	entries map[string]*memoryEntry
}

func NewMemory(embedder Embedder) *Memory {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	return &Memory{
		embedder: embedder,
		graph:    g,
		entries:  make(map[string]*memoryEntry),
	}
}

func (m *Memory) FindSimilar(ctx context.Context, prompt string, filters Filters, threshold float64) (*Match, error) {
	m.mu.RLock()
	empty := len(m.entries) == 0
	m.mu.RUnlock()
	if empty {
		return nil, nil
	}

	query, err := m.embedder.EmbedText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("could not embed prompt: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	k := min(len(m.entries), hnswSearchMultiplier*hnswMaxNeighbors)
	neighbors := m.graph.Search(query, k)

	topics := NormalizeTopics(filters.Topics)

	var best *Match
	for _, n := range neighbors {
		me, ok := m.entries[n.Key]
		if !ok {
			continue
		}
		if !matchesFilters(me, filters.Style, topics) {
			continue
		}
		sim := CosineSimilarity(query, me.embedding)
		if sim < threshold {
			continue
		}
		if best == nil || sim > best.Similarity {
			best = &Match{Entry: me.entry, Similarity: sim}
		}
	}

	return best, nil
}

// matchesFilters requires style equality when a style is given, and at
// least one shared topic when topics are given.
func matchesFilters(me *memoryEntry, style string, topics []string) bool {
	if style != "" && me.entry.Style != style {
		return false
	}
	if len(topics) == 0 {
		return true
	}
	for _, t := range topics {
		if _, ok := me.topicSet[t]; ok {
			return true
		}
	}
	return false
}

func (m *Memory) Store(ctx context.Context, entry Entry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Topics = NormalizeTopics(entry.Topics)

	embedding, err := m.embedder.EmbedText(ctx, entry.Prompt)
	if err != nil {
		return "", fmt.Errorf("could not embed prompt: %w", err)
	}

	topicSet := make(map[string]struct{}, len(entry.Topics))
	for _, t := range entry.Topics {
		topicSet[t] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.graph.Add(hnsw.MakeNode(entry.ID, embedding))
	m.entries[entry.ID] = &memoryEntry{
		entry:     entry,
		embedding: embedding,
		topicSet:  topicSet,
	}

	return entry.ID, nil
}

func (m *Memory) RecordHit(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	me, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("cache entry %s not found", id)
	}
	me.entry.HitCount++
	return nil
}
