package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/qlab/internal/qasm"
	"github.com/san-kum/qlab/internal/quantum"
)

type JobStatus string

const (
	StatusQueued    JobStatus = "Queued"
	StatusRunning   JobStatus = "Running"
	StatusCompleted JobStatus = "Completed"
	StatusFailed    JobStatus = "Failed"
	StatusCancelled JobStatus = "Cancelled"
)

// Terminal reports whether the job will not change status again.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

type Job struct {
	ID        string    `json:"id"`
	Backend   string    `json:"backend"`
	Status    JobStatus `json:"status"`
	SessionID string    `json:"session_id,omitempty"`
	Created   time.Time `json:"created"`
	State     struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"state"`
	Program struct {
		ID string `json:"id"`
	} `json:"program"`
}

// SamplerRequest runs every circuit for Shots shots.
type SamplerRequest struct {
	Backend  string
	Session  *Session
	Circuits []*quantum.Circuit
	Shots    int
}

// EstimatorRequest evaluates observables on bound circuits. Each
// Observables[i] belongs to Circuits[i].
type EstimatorRequest struct {
	Backend     string
	Session     *Session
	Circuits    []*quantum.Circuit
	Observables [][]quantum.SparsePauliOp
	Precision   float64
}

type jobBody struct {
	ProgramID string         `json:"program_id"`
	Backend   string         `json:"backend"`
	SessionID string         `json:"session_id,omitempty"`
	Hub       string         `json:"hub,omitempty"`
	Group     string         `json:"group,omitempty"`
	Project   string         `json:"project,omitempty"`
	Params    map[string]any `json:"params"`
}

func (s *Service) newJobBody(program, backend string, sess *Session) jobBody {
	body := jobBody{ProgramID: program, Backend: backend}
	if sess != nil {
		body.SessionID = sess.ID
		if backend == "" {
			body.Backend = sess.Backend
		}
	}
	if s.opts.Channel == ChannelIBMQuantum {
		if parts := strings.Split(s.opts.Instance, "/"); len(parts) == 3 {
			body.Hub, body.Group, body.Project = parts[0], parts[1], parts[2]
		}
	}
	return body
}

// RunSampler submits a V2 sampler job and returns its id.
func (s *Service) RunSampler(ctx context.Context, req SamplerRequest) (string, error) {
	pubs := make([][]any, len(req.Circuits))
	for i, c := range req.Circuits {
		text, err := qasm.Emit(c)
		if err != nil {
			return "", fmt.Errorf("pub %d: %w", i, err)
		}
		pubs[i] = []any{text, nil, req.Shots}
	}
	body := s.newJobBody("sampler", req.Backend, req.Session)
	body.Params = map[string]any{"pubs": pubs, "version": 2}
	return s.submit(ctx, body)
}

// RunEstimator submits a V2 estimator job and returns its id.
func (s *Service) RunEstimator(ctx context.Context, req EstimatorRequest) (string, error) {
	if len(req.Observables) != len(req.Circuits) {
		return "", fmt.Errorf("runtime: %d circuits but %d observable lists", len(req.Circuits), len(req.Observables))
	}
	pubs := make([][]any, len(req.Circuits))
	for i, c := range req.Circuits {
		text, err := qasm.Emit(c)
		if err != nil {
			return "", fmt.Errorf("pub %d: %w", i, err)
		}
		obs := make([]map[string]float64, len(req.Observables[i]))
		for j, op := range req.Observables[i] {
			terms := make(map[string]float64, len(op.Terms))
			for _, t := range op.Terms {
				terms[t.Label] += t.Coeff
			}
			obs[j] = terms
		}
		pubs[i] = []any{text, obs}
	}
	body := s.newJobBody("estimator", req.Backend, req.Session)
	body.Params = map[string]any{"pubs": pubs, "version": 2}
	if req.Precision > 0 {
		body.Params["options"] = map[string]any{"default_precision": req.Precision}
	}
	return s.submit(ctx, body)
}

func (s *Service) submit(ctx context.Context, body jobBody) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	resp, err := s.request(ctx).SetBody(body).SetResult(&out).Post("/jobs")
	if err := s.check(resp, err, ErrBackendNotFound); err != nil {
		return "", fmt.Errorf("submit %s job: %w", body.ProgramID, err)
	}
	s.logger.Info("job submitted", "id", out.ID, "program", body.ProgramID, "backend", body.Backend)
	return out.ID, nil
}

func (s *Service) Job(ctx context.Context, id string) (*Job, error) {
	var out Job
	resp, err := s.request(ctx).SetPathParam("id", id).SetResult(&out).Get("/jobs/{id}")
	if err := s.check(resp, err, ErrJobNotFound); err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	if out.Status == "" {
		out.Status = JobStatus(out.State.Status)
	}
	return &out, nil
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	resp, err := s.request(ctx).SetPathParam("id", id).Post("/jobs/{id}/cancel")
	if err := s.check(resp, err, ErrJobNotFound); err != nil {
		return fmt.Errorf("cancel job %s: %w", id, err)
	}
	return nil
}

// Wait polls the job until it reaches a terminal status or ctx ends.
func (s *Service) Wait(ctx context.Context, id string, poll time.Duration) (*Job, error) {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	last := JobStatus("")
	for {
		job, err := s.Job(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status != last {
			s.logger.Info("job status", "id", id, "status", job.Status)
			last = job.Status
		}
		switch job.Status {
		case StatusCompleted:
			return job, nil
		case StatusFailed:
			return job, fmt.Errorf("%w: %s: %s", ErrJobFailed, id, job.State.Reason)
		case StatusCancelled:
			return job, fmt.Errorf("%w: %s", ErrJobCancelled, id)
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

type resultEnvelope struct {
	Results []struct {
		Data     map[string]json.RawMessage `json:"data"`
		Metadata map[string]any             `json:"metadata"`
	} `json:"results"`
}

func (s *Service) results(ctx context.Context, id string) (*resultEnvelope, error) {
	var out resultEnvelope
	resp, err := s.request(ctx).SetPathParam("id", id).SetResult(&out).Get("/jobs/{id}/results")
	if err := s.check(resp, err, ErrJobNotFound); err != nil {
		return nil, fmt.Errorf("results of %s: %w", id, err)
	}
	if len(out.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, id)
	}
	return &out, nil
}

// BitArray is one classical register of a sampler result.
type BitArray struct {
	Samples []string `json:"samples"`
	NumBits int      `json:"num_bits"`
}

// SamplerResults decodes one counts map per pub. Registers of a pub are
// concatenated in name order, later registers to the left.
func (s *Service) SamplerResults(ctx context.Context, id string) ([]quantum.Counts, error) {
	env, err := s.results(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]quantum.Counts, len(env.Results))
	for i, r := range env.Results {
		names := make([]string, 0, len(r.Data))
		for name := range r.Data {
			names = append(names, name)
		}
		sort.Strings(names)

		var regs []BitArray
		for _, name := range names {
			var ba BitArray
			if err := json.Unmarshal(r.Data[name], &ba); err != nil || ba.Samples == nil {
				continue
			}
			regs = append(regs, ba)
		}
		if len(regs) == 0 {
			return nil, fmt.Errorf("%w: pub %d has no samples", ErrNoResults, i)
		}
		counts, err := DecodeSamples(regs)
		if err != nil {
			return nil, fmt.Errorf("pub %d: %w", i, err)
		}
		out[i] = counts
	}
	return out, nil
}

// DecodeSamples turns hex-encoded shots into counts keyed by bitstring.
func DecodeSamples(regs []BitArray) (quantum.Counts, error) {
	shots := len(regs[0].Samples)
	counts := make(quantum.Counts)
	for shot := 0; shot < shots; shot++ {
		var sb strings.Builder
		for r := len(regs) - 1; r >= 0; r-- {
			if len(regs[r].Samples) != shots {
				return nil, fmt.Errorf("runtime: registers disagree on shot count")
			}
			bits, err := hexToBits(regs[r].Samples[shot], regs[r].NumBits)
			if err != nil {
				return nil, err
			}
			sb.WriteString(bits)
		}
		counts[sb.String()]++
	}
	return counts, nil
}

func hexToBits(hex string, width int) (string, error) {
	v, ok := new(big.Int).SetString(strings.TrimPrefix(strings.ToLower(hex), "0x"), 16)
	if !ok {
		return "", fmt.Errorf("runtime: bad sample %q", hex)
	}
	bits := v.Text(2)
	if len(bits) > width {
		return "", fmt.Errorf("runtime: sample %q exceeds %d bits", hex, width)
	}
	return strings.Repeat("0", width-len(bits)) + bits, nil
}

// EstimatorValues holds expectation values and standard errors per
// observable of one pub.
type EstimatorValues struct {
	Values []float64
	Stds   []float64
}

func (s *Service) EstimatorResults(ctx context.Context, id string) ([]EstimatorValues, error) {
	env, err := s.results(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]EstimatorValues, len(env.Results))
	for i, r := range env.Results {
		evs, err := floats(r.Data["evs"])
		if err != nil {
			return nil, fmt.Errorf("pub %d evs: %w", i, err)
		}
		stds, err := floats(r.Data["stds"])
		if err != nil {
			return nil, fmt.Errorf("pub %d stds: %w", i, err)
		}
		out[i] = EstimatorValues{Values: evs, Stds: stds}
	}
	return out, nil
}

// floats accepts a scalar or an array of numbers.
func floats(raw json.RawMessage) ([]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var many []float64
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one float64
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []float64{one}, nil
}
