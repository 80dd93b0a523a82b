package embedder

import (
	"context"
	"hash/fnv"
	"math"
)

const defaultHashDimensions = 384

// Hash is a local, dependency-free embedder that derives a unit vector from
// an FNV-1a hash of the text. Identical input always yields the identical
// vector, which is all the index and its tests require; it carries no
// semantic meaning. Useful for offline runs and tests.
type Hash struct {
	dims int
}

func NewHash() *Hash {
	return &Hash{dims: defaultHashDimensions}
}

// NewHashWithDimensions creates a hash embedder with a custom vector size.
func NewHashWithDimensions(dims int) *Hash {
	if dims <= 0 {
		dims = defaultHashDimensions
	}
	return &Hash{dims: dims}
}

func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	hasher := fnv.New64a()
	hasher.Write([]byte(text))
	seed := hasher.Sum64()

	vec := make([]float32, h.dims)
	for i := range vec {
		// LCG stream seeded by the text hash, mapped into [-1, 1].
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(vec), nil
}

func (h *Hash) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := h.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (h *Hash) Dimensions() int {
	return h.dims
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
