package random

import (
	"math/rand/v2"

	"github.com/polluterofminds/parallax-server/internal/errors"
)

var ErrInvalidRange = errors.NewSentinel("invalid range")

// Source is the randomness used by case generation. It is satisfied by [*rand.Rand].
type Source interface {
	// IntN returns a uniform integer in [0, n). It panics if n <= 0.
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int {
	return rand.IntN(n) //nolint:gosec // game randomness, not security sensitive
}

// Default is backed by the auto-seeded math/rand/v2 top-level generator and is safe for concurrent use.
var Default Source = globalSource{} //nolint:gochecknoglobals // stateless

// NewSeeded returns a deterministic Source, useful in tests.
func NewSeeded(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec,mnd // deterministic on purpose
}

// IntRange returns a uniform integer in [minimum, maximum] inclusive.
func IntRange(src Source, minimum, maximum int) (int, error) {
	if minimum > maximum {
		return 0, errors.Wrap(ErrInvalidRange, "minimum greater than maximum")
	}
	return minimum + src.IntN(maximum-minimum+1), nil
}

// Pick returns a uniformly chosen element of options.
func Pick[T any](src Source, options []T) T {
	return options[src.IntN(len(options))]
}

// Sample draws k distinct indices from [0, n) uniformly without replacement using a partial Fisher-Yates shuffle.
func Sample(src Source, n, k int) ([]int, error) {
	if k < 0 || k > n {
		return nil, errors.Wrap(ErrInvalidRange, "sample size out of range")
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := range k {
		j := i + src.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k], nil
}
