package matrix

import (
	crand "crypto/rand"
	"math/rand/v2"
)

// Generator fills matrices with values drawn uniformly from [0, 1).
// It is owned by its caller and is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator uses src as the only source of randomness, so a fixed seed
// gives a reproducible sequence of matrices.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewSeededGenerator seeds a ChaCha8 stream from the operating system's
// entropy source.
func NewSeededGenerator() *Generator {
	var seed [32]byte
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = crand.Read(seed[:])
	return NewGenerator(rand.NewChaCha8(seed))
}

// Generate returns a freshly allocated rows x cols matrix of independent
// uniform samples.
func (g *Generator) Generate(rows, cols int) (*Matrix, error) {
	m, err := New(rows, cols)
	if err != nil {
		return nil, err
	}
	for i := range m.Data {
		m.Data[i] = g.rng.Float32()
	}
	return m, nil
}
