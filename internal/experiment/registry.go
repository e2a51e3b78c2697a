package experiment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/san-kum/qlab/internal/algorithms"
	"github.com/san-kum/qlab/internal/backend"
	"github.com/san-kum/qlab/internal/circuits"
	"github.com/san-kum/qlab/internal/config"
	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/runtime"
)

var (
	ErrUnknownBackend = errors.New("experiment: unknown backend")
	ErrUnknownCircuit = errors.New("experiment: unknown circuit")
)

type BackendFactory func(ctx context.Context, cfg *config.Config) (backend.Backend, error)

type CircuitFactory func(cfg *config.Config) (*quantum.Circuit, error)

type Registry struct {
	backends map[string]BackendFactory
	circuits map[string]CircuitFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		backends: make(map[string]BackendFactory),
		circuits: make(map[string]CircuitFactory),
	}

	r.backends["statevector"] = func(_ context.Context, cfg *config.Config) (backend.Backend, error) {
		return backend.NewStatevector(cfg.Seed), nil
	}
	r.backends["noisy"] = func(_ context.Context, cfg *config.Config) (backend.Backend, error) {
		cal := backend.FakeEagle()
		if cfg.Noise != nil {
			cal = *cfg.Noise
		}
		return backend.NewNoisy(cal, cfg.Seed), nil
	}
	r.backends["ibm"] = ibmBackend

	r.circuits["bell"] = func(*config.Config) (*quantum.Circuit, error) { return circuits.Bell(), nil }
	r.circuits["ghz"] = func(*config.Config) (*quantum.Circuit, error) { return circuits.GHZ(3) }
	r.circuits["qft"] = func(*config.Config) (*quantum.Circuit, error) {
		c, err := circuits.QFT(3, true)
		if err != nil {
			return nil, err
		}
		return c.MeasureAll(), nil
	}
	r.circuits["real_amplitudes"] = func(cfg *config.Config) (*quantum.Circuit, error) {
		a, ok := cfg.Ansatz(cfg.Sweep.Circuit)
		if !ok {
			return nil, fmt.Errorf("%w: ansatz %q", ErrUnknownCircuit, cfg.Sweep.Circuit)
		}
		c, err := circuits.RealAmplitudes(a.Qubits, a.Reps)
		if err != nil {
			return nil, err
		}
		return c.MeasureAll(), nil
	}
	r.circuits["grover"] = func(cfg *config.Config) (*quantum.Circuit, error) {
		res, err := algorithms.Grover(cfg.Grover.Qubits, cfg.Grover.Marked, cfg.Grover.Iterations)
		if err != nil {
			return nil, err
		}
		return res.Circuit, nil
	}

	return r
}

// NewService opens a runtime account from the config, using the logger
// in ctx for request diagnostics.
func NewService(ctx context.Context, cfg *config.Config) (*runtime.Service, error) {
	return runtime.NewService(runtime.Options{
		Channel:  runtime.Channel(cfg.Runtime.Channel),
		Token:    cfg.Runtime.Token,
		Instance: cfg.Runtime.Instance,
		BaseURL:  cfg.Runtime.BaseURL,
		Timeout:  cfg.Runtime.Timeout,
		Retries:  2,
		Logger:   log.FromContext(ctx),
	})
}

// ibmBackend either simulates the device from its calibration or runs on
// it, depending on runtime.mode.
func ibmBackend(ctx context.Context, cfg *config.Config) (backend.Backend, error) {
	svc, err := NewService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	device := cfg.Runtime.Device
	if cfg.Runtime.Mode == "hardware" {
		return backend.NewRemote(ctx, svc, device, backend.RemoteOptions{
			OptimizationLevel: cfg.OptimizationLevel,
			PollInterval:      cfg.Runtime.PollInterval,
			UseSession:        cfg.Runtime.Session,
		})
	}

	conf, err := svc.Backend(ctx, device)
	if err != nil {
		return nil, err
	}
	props, err := svc.Properties(ctx, device)
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).Info("simulating device from calibration", "device", device, "qubits", conf.NumQubits)
	return backend.NewNoisy(backend.CalibrationFromProperties(conf, props), cfg.Seed), nil
}

func (r *Registry) RegisterBackend(name string, f BackendFactory) { r.backends[name] = f }
func (r *Registry) RegisterCircuit(name string, f CircuitFactory) { r.circuits[name] = f }

func (r *Registry) GetBackend(ctx context.Context, name string, cfg *config.Config) (backend.Backend, error) {
	fn, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
	return fn(ctx, cfg)
}

func (r *Registry) GetCircuit(name string, cfg *config.Config) (*quantum.Circuit, error) {
	fn, ok := r.circuits[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCircuit, name)
	}
	c, err := fn(cfg)
	if err != nil {
		return nil, err
	}
	if c.Name == "" {
		c.Name = name
	}
	return c, nil
}

func (r *Registry) ListBackends() []string { return sortedKeys(r.backends) }
func (r *Registry) ListCircuits() []string { return sortedKeys(r.circuits) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases whatever the backend holds open, such as a runtime
// session.
func Close(ctx context.Context, b backend.Backend) error {
	if c, ok := b.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}
