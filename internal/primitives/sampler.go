// Package primitives provides Sampler and Estimator over any backend.
// A pub (primitive unified bloc) is a circuit plus the parameter sets
// it should be run with; pubs run concurrently and results keep their
// order.
package primitives

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/san-kum/qlab/internal/backend"
	"github.com/san-kum/qlab/internal/quantum"
)

const DefaultShots = 1024

var (
	ErrNoPubs        = errors.New("primitives: no pubs given")
	ErrShapeMismatch = errors.New("primitives: observables and parameter sets cannot be broadcast")
	ErrNoObservables = errors.New("primitives: estimator pub has no observables")
)

type SamplerPub struct {
	Circuit *quantum.Circuit
	// ParameterValues holds one row per run. Empty means the circuit is
	// already bound.
	ParameterValues [][]float64
}

// SamplerResult has one counts map per parameter set of its pub.
type SamplerResult struct {
	Counts []quantum.Counts
	Shots  int
}

type Sampler struct {
	backend backend.Backend
}

func NewSampler(b backend.Backend) *Sampler {
	return &Sampler{backend: b}
}

// FromBackend builds both primitives on one backend.
func FromBackend(b backend.Backend, seed int64) (*Sampler, *Estimator) {
	return NewSampler(b), NewEstimator(b, seed)
}

func (s *Sampler) Backend() backend.Backend { return s.backend }

// bind expands a circuit over its parameter sets.
func bind(c *quantum.Circuit, sets [][]float64) ([]*quantum.Circuit, error) {
	if len(sets) == 0 {
		if c.NumParameters() > 0 {
			return nil, fmt.Errorf("%w: circuit needs %d values", quantum.ErrUnboundParameter, c.NumParameters())
		}
		return []*quantum.Circuit{c}, nil
	}
	out := make([]*quantum.Circuit, len(sets))
	for i, vals := range sets {
		b, err := c.Bind(vals)
		if err != nil {
			return nil, fmt.Errorf("parameter set %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

// Run executes every pub for shots shots; shots <= 0 means DefaultShots.
func (s *Sampler) Run(ctx context.Context, pubs []SamplerPub, shots int) ([]SamplerResult, error) {
	if len(pubs) == 0 {
		return nil, ErrNoPubs
	}
	if shots <= 0 {
		shots = DefaultShots
	}

	type task struct{ pub, set int }
	var (
		tasks []task
		flat  []*quantum.Circuit
	)
	results := make([]SamplerResult, len(pubs))
	for i, pub := range pubs {
		bound, err := bind(pub.Circuit, pub.ParameterValues)
		if err != nil {
			return nil, fmt.Errorf("pub %d: %w", i, err)
		}
		results[i] = SamplerResult{Counts: make([]quantum.Counts, len(bound)), Shots: shots}
		for j, c := range bound {
			tasks = append(tasks, task{i, j})
			flat = append(flat, c)
		}
	}
	log.FromContext(ctx).Debug("sampler run", "backend", s.backend.Name(), "pubs", len(pubs), "circuits", len(flat), "shots", shots)

	counts, err := s.runAll(ctx, flat, shots)
	if err != nil {
		return nil, err
	}
	for k, t := range tasks {
		results[t.pub].Counts[t.set] = counts[k]
	}
	return results, nil
}

func (s *Sampler) runAll(ctx context.Context, cs []*quantum.Circuit, shots int) ([]quantum.Counts, error) {
	if bb, ok := s.backend.(backend.BatchBackend); ok {
		out, err := bb.RunBatch(ctx, cs, shots)
		if err != nil {
			return nil, err
		}
		if len(out) != len(cs) {
			return nil, fmt.Errorf("%w: got %d counts for %d circuits", backend.ErrResultCount, len(out), len(cs))
		}
		return out, nil
	}

	out := make([]quantum.Counts, len(cs))
	errs := make([]error, len(cs))

	var wg sync.WaitGroup
	for i := range cs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			out[idx], errs[idx] = s.backend.Run(ctx, cs[idx], shots)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("circuit %d: %w", i, err)
		}
	}
	return out, nil
}
