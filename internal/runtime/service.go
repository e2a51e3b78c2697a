// Package runtime is a client for the IBM Quantum runtime REST API:
// backend discovery, calibration data, sessions and sampler/estimator
// jobs carrying OpenQASM circuits.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"resty.dev/v3"
)

type Channel string

const (
	ChannelIBMQuantum Channel = "ibm_quantum"
	ChannelIBMCloud   Channel = "ibm_cloud"
)

// TokenEnv is read when Options.Token is empty.
const TokenEnv = "QLAB_IBM_TOKEN"

var defaultURLs = map[Channel]string{
	ChannelIBMQuantum: "https://api.quantum-computing.ibm.com/runtime",
	ChannelIBMCloud:   "https://us-east.quantum-computing.cloud.ibm.com",
}

type Options struct {
	Channel  Channel
	Token    string
	Instance string // hub/group/project or a cloud CRN
	BaseURL  string
	Timeout  time.Duration
	Retries  int
	Logger   *log.Logger
}

// Service talks to one runtime account.
type Service struct {
	client *resty.Client
	opts   Options
	logger *log.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Channel == "" {
		opts.Channel = ChannelIBMQuantum
	}
	base, ok := defaultURLs[opts.Channel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, opts.Channel)
	}
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}
	if opts.Token == "" {
		opts.Token = os.Getenv(TokenEnv)
	}
	if opts.Token == "" {
		return nil, ErrNoToken
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetAuthToken(opts.Token).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetLogger(logger)
	if opts.Channel == ChannelIBMCloud && opts.Instance != "" {
		client.SetHeader("Service-CRN", opts.Instance)
	}

	return &Service{client: client, opts: opts, logger: logger}, nil
}

func (s *Service) Close() error {
	return s.client.Close()
}

func (s *Service) Channel() Channel {
	return s.opts.Channel
}

func (s *Service) request(ctx context.Context) *resty.Request {
	return s.client.R().SetContext(ctx).SetError(&errorBody{})
}

// check turns transport failures and error statuses into errors.
// notFound is the sentinel reported for 404.
func (s *Service) check(resp *resty.Response, err error, notFound error) error {
	if err != nil {
		return fmt.Errorf("runtime: request failed: %w", err)
	}
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok {
		apiErr.Message, apiErr.Code = body.message()
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(resp.String())
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Err = ErrUnauthorized
	case http.StatusNotFound:
		apiErr.Err = notFound
	}
	return apiErr
}

// Backends lists the backend names visible to the account.
func (s *Service) Backends(ctx context.Context) ([]string, error) {
	var out struct {
		Devices []string `json:"devices"`
	}
	resp, err := s.request(ctx).SetResult(&out).Get("/backends")
	if err := s.check(resp, err, nil); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// BackendConfiguration is the static description of a device.
type BackendConfiguration struct {
	Name        string   `json:"backend_name"`
	Version     string   `json:"backend_version"`
	NumQubits   int      `json:"n_qubits"`
	BasisGates  []string `json:"basis_gates"`
	CouplingMap [][2]int `json:"coupling_map"`
	Simulator   bool     `json:"simulator"`
	MaxShots    int      `json:"max_shots"`
	Processor   struct {
		Family   string  `json:"family"`
		Revision float64 `json:"revision"`
	} `json:"processor_type"`
}

func (s *Service) Backend(ctx context.Context, name string) (*BackendConfiguration, error) {
	var out BackendConfiguration
	resp, err := s.request(ctx).
		SetPathParam("name", name).
		SetResult(&out).
		Get("/backends/{name}/configuration")
	if err := s.check(resp, err, ErrBackendNotFound); err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return &out, nil
}

type BackendStatus struct {
	Name        string `json:"backend_name"`
	Operational bool   `json:"state"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	PendingJobs int    `json:"length_queue"`
}

func (s *Service) Status(ctx context.Context, name string) (*BackendStatus, error) {
	var out BackendStatus
	resp, err := s.request(ctx).
		SetPathParam("name", name).
		SetResult(&out).
		Get("/backends/{name}/status")
	if err := s.check(resp, err, ErrBackendNotFound); err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	if out.Name == "" {
		out.Name = name
	}
	return &out, nil
}

// Nduv is a named calibration value with its unit.
type Nduv struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type GateProperties struct {
	Gate       string `json:"gate"`
	Qubits     []int  `json:"qubits"`
	Parameters []Nduv `json:"parameters"`
}

// Properties is the latest calibration snapshot of a device.
type Properties struct {
	BackendName string           `json:"backend_name"`
	LastUpdate  string           `json:"last_update_date"`
	Qubits      [][]Nduv         `json:"qubits"`
	Gates       []GateProperties `json:"gates"`
}

func (s *Service) Properties(ctx context.Context, name string) (*Properties, error) {
	var out Properties
	resp, err := s.request(ctx).
		SetPathParam("name", name).
		SetResult(&out).
		Get("/backends/{name}/properties")
	if err := s.check(resp, err, ErrBackendNotFound); err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return &out, nil
}

// QubitValue looks up a per-qubit calibration value such as T1 or
// readout_error.
func (p *Properties) QubitValue(q int, name string) (float64, bool) {
	if q < 0 || q >= len(p.Qubits) {
		return 0, false
	}
	for _, v := range p.Qubits[q] {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// GateError returns the reported error rate of gate on the given qubits.
func (p *Properties) GateError(gate string, qubits ...int) (float64, bool) {
	for _, g := range p.Gates {
		if g.Gate != gate || len(g.Qubits) != len(qubits) {
			continue
		}
		match := true
		for i := range qubits {
			if g.Qubits[i] != qubits[i] {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		for _, v := range g.Parameters {
			if v.Name == "gate_error" {
				return v.Value, true
			}
		}
	}
	return 0, false
}

// MeanGateError averages gate_error over every instance of a gate.
func (p *Properties) MeanGateError(gate string) (float64, bool) {
	sum, n := 0.0, 0
	for _, g := range p.Gates {
		if g.Gate != gate {
			continue
		}
		for _, v := range g.Parameters {
			if v.Name == "gate_error" {
				sum += v.Value
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
