package experiment

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/san-kum/qlab/internal/backend"
	"github.com/san-kum/qlab/internal/circuits"
	"github.com/san-kum/qlab/internal/config"
	"github.com/san-kum/qlab/internal/optim"
	"github.com/san-kum/qlab/internal/primitives"
	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/storage"
)

// Experiment runs configured primitives on one backend and turns the
// results into storable runs.
type Experiment struct {
	cfg       *config.Config
	backend   backend.Backend
	sampler   *primitives.Sampler
	estimator *primitives.Estimator
}

func New(cfg *config.Config, b backend.Backend) *Experiment {
	s, e := primitives.FromBackend(b, cfg.Seed)
	return &Experiment{cfg: cfg, backend: b, sampler: s, estimator: e}
}

func (e *Experiment) Backend() backend.Backend { return e.backend }

func (e *Experiment) meta(kind storage.Kind, circuit string, qubits int) storage.RunMetadata {
	return storage.RunMetadata{
		Kind:    kind,
		Circuit: circuit,
		Backend: e.backend.Name(),
		Seed:    e.cfg.Seed,
		Qubits:  qubits,
	}
}

// Ansatz builds a named RealAmplitudes circuit from the config.
func (e *Experiment) Ansatz(name string) (*quantum.Circuit, error) {
	a, ok := e.cfg.Ansatz(name)
	if !ok {
		return nil, fmt.Errorf("%w: ansatz %q", ErrUnknownCircuit, name)
	}
	c, err := circuits.RealAmplitudes(a.Qubits, a.Reps)
	if err != nil {
		return nil, err
	}
	c.Name = a.Name
	return c, nil
}

// Sample runs one pub and returns a run per parameter set.
func (e *Experiment) Sample(ctx context.Context, pub primitives.SamplerPub, shots int) ([]*storage.Run, error) {
	res, err := e.sampler.Run(ctx, []primitives.SamplerPub{pub}, shots)
	if err != nil {
		return nil, err
	}
	runs := make([]*storage.Run, len(res[0].Counts))
	for i, counts := range res[0].Counts {
		meta := e.meta(storage.KindSample, pub.Circuit.Name, pub.Circuit.NumQubits)
		meta.Shots = res[0].Shots
		if i < len(pub.ParameterValues) {
			meta.Parameters = pub.ParameterValues[i]
		}
		runs[i] = &storage.Run{Meta: meta, Counts: counts}
	}
	return runs, nil
}

// SamplerPubs builds the configured parameterised sampling pubs. Each
// ansatz is measured on every qubit.
func (e *Experiment) SamplerPubs() ([]primitives.SamplerPub, error) {
	pubs := make([]primitives.SamplerPub, 0, len(e.cfg.Sampler.Ansatz))
	for i, name := range e.cfg.Sampler.Ansatz {
		c, err := e.Ansatz(name)
		if err != nil {
			return nil, err
		}
		c.MeasureAll()
		pub := primitives.SamplerPub{Circuit: c}
		if i < len(e.cfg.Sampler.Parameters) {
			pub.ParameterValues = [][]float64{e.cfg.Sampler.Parameters[i]}
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// EstimatorPubs builds the configured estimator pubs with a label per
// broadcast entry.
func (e *Experiment) EstimatorPubs() ([]primitives.EstimatorPub, [][]string, error) {
	pubs := make([]primitives.EstimatorPub, 0, len(e.cfg.Estimator.Pubs))
	labels := make([][]string, 0, len(e.cfg.Estimator.Pubs))
	for _, pc := range e.cfg.Estimator.Pubs {
		c, err := e.Ansatz(pc.Circuit)
		if err != nil {
			return nil, nil, err
		}
		pub := primitives.EstimatorPub{Circuit: c, ParameterValues: pc.ParameterSet}
		for _, name := range pc.Observables {
			op, err := e.cfg.Hamiltonian(name)
			if err != nil {
				return nil, nil, err
			}
			pub.Observables = append(pub.Observables, op)
		}
		pubs = append(pubs, pub)

		n := max(len(pc.Observables), len(pc.ParameterSet))
		ls := make([]string, n)
		for i := range ls {
			obs := pc.Observables[min(i, len(pc.Observables)-1)]
			ls[i] = fmt.Sprintf("%s %s", pc.Circuit, obs)
			if len(pc.ParameterSet) > 0 {
				ls[i] += fmt.Sprintf(" θ%d", min(i, len(pc.ParameterSet)-1))
			}
		}
		labels = append(labels, ls)
	}
	return pubs, labels, nil
}

// Estimate evaluates the configured pubs and collects every expectation
// value into one run.
func (e *Experiment) Estimate(ctx context.Context) ([]primitives.EstimatorResult, *storage.Run, error) {
	pubs, labels, err := e.EstimatorPubs()
	if err != nil {
		return nil, nil, err
	}
	res, err := e.estimator.Run(ctx, pubs, e.cfg.Precision)
	if err != nil {
		return nil, nil, err
	}

	qubits := 0
	for _, p := range pubs {
		qubits = max(qubits, p.Circuit.NumQubits)
	}
	run := &storage.Run{Meta: e.meta(storage.KindEstimate, "", qubits)}
	run.Meta.Precision = e.cfg.Precision
	for i, r := range res {
		for j, v := range r.Values {
			label := fmt.Sprintf("pub%d[%d]", i, j)
			if j < len(labels[i]) {
				label = labels[i][j]
			}
			run.Values = append(run.Values, storage.Value{Label: label, Value: v, Std: r.Stds[j]})
		}
	}
	log.FromContext(ctx).Debug("estimated", "pubs", len(pubs), "values", len(run.Values))
	return res, run, nil
}

// SweepResult tracks the probability of selected outcomes across the
// sweep's parameter sets.
type SweepResult struct {
	Sets   [][]float64
	Track  []string
	Series map[string][]float64
	Counts []quantum.Counts
}

// Sweep samples the sweep ansatz for every parameter set.
func (e *Experiment) Sweep(ctx context.Context) (*SweepResult, *storage.Run, error) {
	c, err := e.Ansatz(e.cfg.Sweep.Circuit)
	if err != nil {
		return nil, nil, err
	}
	c.MeasureAll()
	sets := e.cfg.SweepSets()
	res, err := e.sampler.Run(ctx, []primitives.SamplerPub{{Circuit: c, ParameterValues: sets}}, e.cfg.Shots)
	if err != nil {
		return nil, nil, err
	}

	out := &SweepResult{
		Sets:   sets,
		Track:  e.cfg.Sweep.Track,
		Series: make(map[string][]float64, len(e.cfg.Sweep.Track)),
		Counts: res[0].Counts,
	}
	run := &storage.Run{Meta: e.meta(storage.KindSweep, c.Name, c.NumQubits)}
	run.Meta.Shots = res[0].Shots
	for i, counts := range res[0].Counts {
		probs := counts.Probabilities()
		for _, key := range out.Track {
			out.Series[key] = append(out.Series[key], probs[key])
			run.Values = append(run.Values, storage.Value{
				Label: fmt.Sprintf("set%d %s", i, key),
				Value: probs[key],
			})
		}
	}
	return out, run, nil
}

// Minimize grid-searches the configured ansatz for the parameters with
// the lowest expectation value of the configured Hamiltonian. Each batch
// of grid points goes to the estimator as one pub.
func (e *Experiment) Minimize(ctx context.Context) (*optim.Result, *storage.Run, error) {
	mc := e.cfg.Minimize
	c, err := e.Ansatz(mc.Circuit)
	if err != nil {
		return nil, nil, err
	}
	h, err := e.cfg.Hamiltonian(mc.Hamiltonian)
	if err != nil {
		return nil, nil, err
	}

	search := optim.NewGridSearch(optim.Uniform(mc.Grid, c.NumParameters()), mc.Batch, mc.Workers)
	logger := log.FromContext(ctx)
	logger.Info("minimizing", "circuit", mc.Circuit, "hamiltonian", mc.Hamiltonian, "points", search.Size())

	res, err := search.Search(ctx, func(ctx context.Context, points [][]float64) ([]float64, error) {
		out, err := e.estimator.Run(ctx, []primitives.EstimatorPub{{
			Circuit:         c,
			Observables:     []quantum.SparsePauliOp{h},
			ParameterValues: points,
		}}, e.cfg.Precision)
		if err != nil {
			return nil, err
		}
		return out[0].Values, nil
	})
	if err != nil {
		return nil, nil, err
	}

	run := &storage.Run{Meta: e.meta(storage.KindMinimize, c.Name, c.NumQubits)}
	run.Meta.Precision = e.cfg.Precision
	run.Meta.Parameters = res.Best
	run.Meta.Metrics = map[string]float64{
		"energy":      res.Value,
		"evaluations": float64(res.Evaluations),
	}
	run.Values = []storage.Value{{Label: fmt.Sprintf("%s %s min", mc.Circuit, mc.Hamiltonian), Value: res.Value}}
	return res, run, nil
}
