package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"polsearch/internal/config"
)

// Embedder converts text into embedding vectors. Ingestion and search share
// a single Embedder instance guarded internally against concurrent API calls.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
	Ping(ctx context.Context) error
}

// clientEmbedder calls the configured HTTP embedding endpoint, one request
// per EmbedBatch call, serialized by mu so the shared resource is never hit
// concurrently.
type clientEmbedder struct {
	cfg config.EmbeddingConfig
	dim int
	mu  sync.Mutex
}

// NewClient constructs an Embedder backed by the HTTP embedding endpoint.
func NewClient(cfg config.EmbeddingConfig) Embedder {
	return &clientEmbedder{cfg: cfg, dim: cfg.Dimensions}
}

func (c *clientEmbedder) Name() string   { return c.cfg.Model }
func (c *clientEmbedder) Dimension() int { return c.dim }

func (c *clientEmbedder) Ping(ctx context.Context) error {
	return CheckReachability(ctx, c.cfg)
}

func (c *clientEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return embedText(ctx, c.cfg, texts)
}

// deterministicEmbedder hashes byte 3-grams into a fixed-size, L2-normalized
// vector. Used in tests and local development where no embedding service is
// configured.
type deterministicEmbedder struct {
	dim  int
	seed uint64
}

// NewDeterministic constructs a deterministic, L2-normalized Embedder with no
// external dependency, suitable for tests.
func NewDeterministic(dim int, seed uint64) Embedder {
	if dim <= 0 {
		dim = 384
	}
	return &deterministicEmbedder{dim: dim, seed: seed}
}

func (d *deterministicEmbedder) Name() string   { return "deterministic" }
func (d *deterministicEmbedder) Dimension() int { return d.dim }

func (d *deterministicEmbedder) Ping(_ context.Context) error { return nil }

func (d *deterministicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *deterministicEmbedder) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	b := []byte(s)
	if len(b) < 3 {
		hashInto(d.seed, b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			hashInto(d.seed, b[i:i+3], v)
		}
	}
	Normalize(v)
	return v
}

func hashInto(seed uint64, gram []byte, v []float32) {
	h := fnv.New64a()
	if seed != 0 {
		var tmp [8]byte
		for i := 0; i < 8; i++ {
			tmp[i] = byte(seed >> (8 * i))
		}
		_, _ = h.Write(tmp[:])
	}
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}

// Normalize L2-normalizes v in place. A zero vector is left unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
