package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"rentalsearch-ai/internal/contextutil"
)

// MemoryIndex is an in-memory Index using a brute-force cosine scan.
// Vectors are L2-normalized at build time so a query is a dot product per entry.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   []Entry
	unit      [][]float32
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Build replaces the index contents. All vectors must share one dimension.
// On error the previous contents are kept.
func (m *MemoryIndex) Build(ctx context.Context, entries []Entry) error {
	logger := contextutil.LoggerFromContext(ctx)

	dimension := 0
	stored := make([]Entry, len(entries))
	unit := make([][]float32, len(entries))
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("entry %d (%s) has an empty vector", i, e.ID)
		}
		if dimension == 0 {
			dimension = len(e.Vector)
		}
		if len(e.Vector) != dimension {
			return fmt.Errorf("entry %d (%s) has dimension %d, expected %d", i, e.ID, len(e.Vector), dimension)
		}
		stored[i] = e
		unit[i] = normalize(e.Vector)
	}

	m.mu.Lock()
	m.dimension = dimension
	m.entries = stored
	m.unit = unit
	m.mu.Unlock()

	logger.DebugContext(ctx, "memory index built", "entries", len(stored), "dimension", dimension)
	return nil
}

// Query scans every entry and returns the k most similar.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if k <= 0 || len(m.entries) == 0 {
		return []Result{}, nil
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, expected %d", len(vector), m.dimension)
	}

	q := normalize(vector)
	scores := make([]float32, len(m.unit))
	order := make([]int, len(m.unit))
	for i, v := range m.unit {
		scores[i] = dot(v, q)
		order[i] = i
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]Result, k)
	for i := 0; i < k; i++ {
		j := order[i]
		results[i] = Result{Entry: m.entries[j], Score: scores[j]}
	}
	return results, nil
}

// Count returns the number of indexed entries.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
