package vector

import (
	"fmt"
	"math"
	"strings"
)

// ItemText assembles the embedding input for an article. The policy is
// deterministic so re-embedding an unchanged item reproduces the same
// input: title, then description, then a category clause when present.
func ItemText(title, description, category string) string {
	parts := make([]string, 0, 3)
	if title != "" {
		parts = append(parts, title)
	}
	if description != "" {
		parts = append(parts, description)
	}
	if category != "" {
		parts = append(parts, fmt.Sprintf("Category: %s", category))
	}
	return strings.Join(parts, " ")
}

// Normalize scales v to unit length in place and returns it. A zero
// vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// CosineSimilarity returns dot(a,b)/(|a||b|) in [-1,1]. Zero vectors
// yield 0 rather than dividing by zero. Mismatched dimensions also yield
// 0; callers that need to distinguish that case validate via Decode first.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Clamp floating error so callers can rely on the [-1,1] contract.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim
}
