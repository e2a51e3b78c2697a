package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/runtime"
	"github.com/san-kum/qlab/internal/transpile"
)

type RemoteOptions struct {
	OptimizationLevel int
	PollInterval      time.Duration

	// UseSession opens a dedicated session on first use. Close releases it.
	UseSession bool
}

// Remote submits circuits as runtime primitive jobs and blocks until the
// results arrive.
type Remote struct {
	svc     *runtime.Service
	config  *runtime.BackendConfiguration
	opts    RemoteOptions
	session *runtime.Session
}

// NewRemote fetches the configuration of the named device.
func NewRemote(ctx context.Context, svc *runtime.Service, name string, opts RemoteOptions) (*Remote, error) {
	cfg, err := svc.Backend(ctx, name)
	if err != nil {
		return nil, err
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Remote{svc: svc, config: cfg, opts: opts}, nil
}

func (r *Remote) Name() string                                 { return r.config.Name }
func (r *Remote) IsSimulator() bool                            { return r.config.Simulator }
func (r *Remote) Configuration() *runtime.BackendConfiguration { return r.config }

func (r *Remote) Target() transpile.Target {
	return transpile.Target{
		NumQubits:   r.config.NumQubits,
		BasisGates:  r.config.BasisGates,
		CouplingMap: r.config.CouplingMap,
	}
}

// Calibration fetches the device's latest properties as a noise model.
func (r *Remote) Calibration(ctx context.Context) (Calibration, error) {
	props, err := r.svc.Properties(ctx, r.config.Name)
	if err != nil {
		return Calibration{}, err
	}
	return CalibrationFromProperties(r.config, props), nil
}

func (r *Remote) Run(ctx context.Context, c *quantum.Circuit, shots int) (quantum.Counts, error) {
	out, err := r.RunBatch(ctx, []*quantum.Circuit{c}, shots)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// RunBatch submits all circuits as the pubs of a single sampler job.
func (r *Remote) RunBatch(ctx context.Context, cs []*quantum.Circuit, shots int) ([]quantum.Counts, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShots, shots)
	}
	compiled, err := r.compile(cs)
	if err != nil {
		return nil, err
	}
	sess, err := r.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	id, err := r.svc.RunSampler(ctx, runtime.SamplerRequest{
		Backend:  r.config.Name,
		Session:  sess,
		Circuits: compiled,
		Shots:    shots,
	})
	if err != nil {
		return nil, err
	}
	if _, err := r.svc.Wait(ctx, id, r.opts.PollInterval); err != nil {
		return nil, err
	}
	out, err := r.svc.SamplerResults(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(out) != len(cs) {
		return nil, fmt.Errorf("%w: job %s returned %d for %d", ErrResultCount, id, len(out), len(cs))
	}
	return out, nil
}

// Estimate submits an estimator job. Observables are not remapped since
// compilation keeps qubit indices.
func (r *Remote) Estimate(ctx context.Context, cs []*quantum.Circuit, obs [][]quantum.SparsePauliOp, precision float64) ([]runtime.EstimatorValues, error) {
	compiled, err := r.compile(cs)
	if err != nil {
		return nil, err
	}
	sess, err := r.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	id, err := r.svc.RunEstimator(ctx, runtime.EstimatorRequest{
		Backend:     r.config.Name,
		Session:     sess,
		Circuits:    compiled,
		Observables: obs,
		Precision:   precision,
	})
	if err != nil {
		return nil, err
	}
	if _, err := r.svc.Wait(ctx, id, r.opts.PollInterval); err != nil {
		return nil, err
	}
	out, err := r.svc.EstimatorResults(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(out) != len(cs) {
		return nil, fmt.Errorf("%w: job %s returned %d for %d", ErrResultCount, id, len(out), len(cs))
	}
	return out, nil
}

func (r *Remote) compile(cs []*quantum.Circuit) ([]*quantum.Circuit, error) {
	out := make([]*quantum.Circuit, len(cs))
	for i, c := range cs {
		if c.NumParameters() > 0 {
			return nil, fmt.Errorf("circuit %d: %w", i, quantum.ErrUnboundParameter)
		}
		t, err := transpile.Transpile(c, r.Target(), transpile.Options{OptimizationLevel: r.opts.OptimizationLevel})
		if err != nil {
			return nil, fmt.Errorf("circuit %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

func (r *Remote) ensureSession(ctx context.Context) (*runtime.Session, error) {
	if !r.opts.UseSession || r.session != nil {
		return r.session, nil
	}
	sess, err := r.svc.OpenSession(ctx, r.config.Name)
	if err != nil {
		return nil, err
	}
	r.session = sess
	return sess, nil
}

// Close ends the session if one was opened.
func (r *Remote) Close(ctx context.Context) error {
	if r.session == nil {
		return nil
	}
	err := r.session.Close(ctx)
	if err != nil {
		log.FromContext(ctx).Warn("closing session", "id", r.session.ID, "err", err)
	}
	r.session = nil
	return err
}
