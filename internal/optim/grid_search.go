// Package optim searches parameter grids for the point that minimises an
// objective, e.g. the energy of an ansatz under a Hamiltonian.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

// MaxPoints bounds the size of a grid.
const MaxPoints = 1 << 20

var (
	ErrEmptyGrid    = errors.New("optim: empty grid")
	ErrGridTooLarge = errors.New("optim: grid too large")
)

// Objective evaluates a batch of points and returns one value per point.
// It may be called from several goroutines at once.
type Objective func(ctx context.Context, points [][]float64) ([]float64, error)

type Result struct {
	Best        []float64
	Value       float64
	Evaluations int
}

type GridSearch struct {
	axes    [][]float64
	batch   int
	workers int
}

// NewGridSearch searches the cartesian product of axes. Points are handed
// to the objective in batches of at most batch, with up to workers
// batches in flight.
func NewGridSearch(axes [][]float64, batch, workers int) *GridSearch {
	if batch < 1 {
		batch = 256
	}
	if workers < 1 {
		workers = 4
	}
	return &GridSearch{axes: axes, batch: batch, workers: workers}
}

// Uniform repeats one axis for every parameter.
func Uniform(values []float64, params int) [][]float64 {
	axes := make([][]float64, params)
	for i := range axes {
		axes[i] = values
	}
	return axes
}

// Size is the number of grid points, or -1 past MaxPoints.
func (g *GridSearch) Size() int {
	if len(g.axes) == 0 {
		return 0
	}
	n := 1
	for _, a := range g.axes {
		n *= len(a)
		if n > MaxPoints {
			return -1
		}
	}
	return n
}

// Point returns grid point i; the last axis varies fastest.
func (g *GridSearch) Point(i int) []float64 {
	p := make([]float64, len(g.axes))
	for d := len(g.axes) - 1; d >= 0; d-- {
		a := g.axes[d]
		p[d] = a[i%len(a)]
		i /= len(a)
	}
	return p
}

func (g *GridSearch) Search(ctx context.Context, objective Objective) (*Result, error) {
	size := g.Size()
	switch {
	case size == 0:
		return nil, ErrEmptyGrid
	case size < 0:
		return nil, fmt.Errorf("%w: more than %d points", ErrGridTooLarge, MaxPoints)
	}

	nBatches := (size + g.batch - 1) / g.batch
	bests := make([]Result, nBatches)
	errs := make([]error, nBatches)

	sem := make(chan struct{}, g.workers)
	var wg sync.WaitGroup
	for b := 0; b < nBatches; b++ {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			bests[idx], errs[idx] = g.evaluate(ctx, objective, idx*g.batch, min(size, (idx+1)*g.batch))
		}(b)
	}
	wg.Wait()

	res := &Result{Value: math.Inf(1)}
	for i, r := range bests {
		if errs[i] != nil {
			return nil, fmt.Errorf("batch %d: %w", i, errs[i])
		}
		res.Evaluations += r.Evaluations
		if r.Value < res.Value {
			res.Value, res.Best = r.Value, r.Best
		}
	}
	return res, nil
}

func (g *GridSearch) evaluate(ctx context.Context, objective Objective, start, end int) (Result, error) {
	points := make([][]float64, 0, end-start)
	for i := start; i < end; i++ {
		points = append(points, g.Point(i))
	}
	values, err := objective(ctx, points)
	if err != nil {
		return Result{}, err
	}
	if len(values) != len(points) {
		return Result{}, fmt.Errorf("optim: objective returned %d values for %d points", len(values), len(points))
	}

	r := Result{Value: math.Inf(1), Evaluations: len(points)}
	for i, v := range values {
		// ties keep the earliest point
		if v < r.Value {
			r.Value, r.Best = v, points[i]
		}
	}
	return r, nil
}
