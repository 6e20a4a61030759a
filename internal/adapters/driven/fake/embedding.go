package fake

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/custodia-labs/medlens/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.EmbeddingService = (*Embedder)(nil)

// DefaultDimensions matches text-embedding-004.
const DefaultDimensions = 768

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Embedder hashes lower-cased words into a fixed number of buckets and
// L2-normalises the counts. Texts sharing words get a positive cosine.
type Embedder struct {
	dims int

	mu    sync.Mutex
	err   error
	calls int
}

// NewEmbedder creates a hashing embedder. Non-positive dims uses DefaultDimensions.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (e *Embedder) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns the number of Embed invocations.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Embed returns the hashed vector for text. The task type does not change the vector.
func (e *Embedder) Embed(ctx context.Context, text string, _ driven.TaskType) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.err
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dims)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// ModelName returns the fake model name.
func (e *Embedder) ModelName() string {
	return "fake-hash"
}
