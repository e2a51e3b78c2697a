// Package backend runs circuits and returns measurement counts. The
// local backends simulate exactly or with a calibration-driven noise
// model; the remote backend forwards to the IBM Quantum runtime.
package backend

import (
	"context"
	"errors"

	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/runtime"
	"github.com/san-kum/qlab/internal/transpile"
)

var (
	ErrInvalidShots = errors.New("backend: shots must be positive")
	ErrTooWide      = errors.New("backend: circuit wider than backend")
	ErrResultCount  = errors.New("backend: result count does not match circuits")
)

// Backend executes circuits with terminal measurements.
type Backend interface {
	Name() string
	Target() transpile.Target
	IsSimulator() bool
	Run(ctx context.Context, c *quantum.Circuit, shots int) (quantum.Counts, error)
}

// StateBackend can also return the exact final statevector.
type StateBackend interface {
	Backend
	State(ctx context.Context, c *quantum.Circuit) (*quantum.State, error)
}

// BatchBackend runs several circuits as one unit of work.
type BatchBackend interface {
	Backend
	RunBatch(ctx context.Context, cs []*quantum.Circuit, shots int) ([]quantum.Counts, error)
}

// EstimatorBackend evaluates observables natively.
type EstimatorBackend interface {
	Backend
	Estimate(ctx context.Context, cs []*quantum.Circuit, obs [][]quantum.SparsePauliOp, precision float64) ([]runtime.EstimatorValues, error)
}

// NumQubits is a shorthand for b.Target().NumQubits.
func NumQubits(b Backend) int {
	return b.Target().NumQubits
}
