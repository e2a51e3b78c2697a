package backend

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/transpile"
)

// Statevector samples from the exact final state.
type Statevector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewStatevector(seed int64) *Statevector {
	return &Statevector{rng: rand.New(rand.NewSource(seed))}
}

func (s *Statevector) Name() string      { return "statevector" }
func (s *Statevector) IsSimulator() bool { return true }

func (s *Statevector) Target() transpile.Target {
	return transpile.Target{NumQubits: quantum.MaxQubits, BasisGates: quantum.Gates()}
}

func (s *Statevector) State(ctx context.Context, c *quantum.Circuit) (*quantum.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return quantum.Simulate(c)
}

func (s *Statevector) Run(ctx context.Context, c *quantum.Circuit, shots int) (quantum.Counts, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShots, shots)
	}
	st, err := s.State(ctx, c)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return st.Sample(c, shots, s.rng)
}
