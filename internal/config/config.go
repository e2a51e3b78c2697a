package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/qlab/internal/backend"
	"github.com/san-kum/qlab/internal/quantum"
)

const (
	DefaultShots        = 1024
	DefaultBellShots    = 128
	DefaultPrecision    = 0.01
	DefaultOptimization = 3
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 30 * time.Second
	DefaultWord         = "timjavornik"
)

var ErrInvalid = errors.New("config: invalid")

var validate = validator.New()

type Config struct {
	Backend           string   `yaml:"backend" validate:"oneof=statevector noisy ibm" jsonschema:"enum=statevector,enum=noisy,enum=ibm"`
	Shots             int      `yaml:"shots" validate:"gt=0"`
	Seed              int64    `yaml:"seed"`
	Precision         float64  `yaml:"precision" validate:"gte=0,lt=1"`
	OptimizationLevel int      `yaml:"optimization_level" validate:"gte=0,lte=3"`
	BasisGates        []string `yaml:"basis_gates" validate:"min=1,dive,required"`

	Estimator EstimatorConfig      `yaml:"estimator"`
	Sampler   SamplerConfig        `yaml:"sampler"`
	Sweep     SweepConfig          `yaml:"sweep"`
	Minimize  MinimizeConfig       `yaml:"minimize"`
	Grover    GroverConfig         `yaml:"grover"`
	Shor      ShorConfig           `yaml:"shor"`
	Bloch     BlochConfig          `yaml:"bloch"`
	Bits      BitsConfig           `yaml:"bits"`
	Runtime   RuntimeConfig        `yaml:"runtime"`
	Noise     *backend.Calibration `yaml:"noise,omitempty"`
}

// AnsatzConfig names a RealAmplitudes circuit.
type AnsatzConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Qubits int    `yaml:"qubits" validate:"gte=1,lte=22"`
	Reps   int    `yaml:"reps" validate:"gte=0"`
}

func (a AnsatzConfig) NumParameters() int {
	return a.Qubits * (a.Reps + 1)
}

type HamiltonianConfig struct {
	Name  string              `yaml:"name" validate:"required"`
	Terms []quantum.PauliTerm `yaml:"terms" validate:"min=1"`
}

func (h HamiltonianConfig) Operator() (quantum.SparsePauliOp, error) {
	return quantum.FromList(h.Terms)
}

// PubConfig is one estimator pub: an ansatz, the Hamiltonians to measure
// and the parameter sets to bind.
type PubConfig struct {
	Circuit      string      `yaml:"circuit" validate:"required"`
	Observables  []string    `yaml:"observables" validate:"min=1"`
	ParameterSet [][]float64 `yaml:"parameters"`
}

type EstimatorConfig struct {
	Ansatze      []AnsatzConfig      `yaml:"ansatze" validate:"dive"`
	Hamiltonians []HamiltonianConfig `yaml:"hamiltonians" validate:"dive"`
	Pubs         []PubConfig         `yaml:"pubs" validate:"dive"`
}

type SamplerConfig struct {
	BellShots int `yaml:"bell_shots" validate:"gt=0"`
	// Ansatz and Parameters describe the parameterized sampling pubs.
	Ansatz     []string    `yaml:"ansatz"`
	Parameters [][]float64 `yaml:"parameters"`
}

// SweepConfig sweeps parameter sets start, start+step, ... < stop where
// set i is [i, i+1, ..., i+width-1].
type SweepConfig struct {
	Circuit string   `yaml:"circuit" validate:"required"`
	Start   int      `yaml:"start"`
	Stop    int      `yaml:"stop"`
	Step    int      `yaml:"step" validate:"gt=0"`
	Track   []string `yaml:"track" validate:"min=1"`
}

// MinimizeConfig is a grid search for the lowest energy of a Hamiltonian
// over an ansatz. Every parameter takes each value of Grid.
type MinimizeConfig struct {
	Circuit     string    `yaml:"circuit" validate:"required"`
	Hamiltonian string    `yaml:"hamiltonian" validate:"required"`
	Grid        []float64 `yaml:"grid" validate:"min=1"`
	Batch       int       `yaml:"batch" validate:"gte=0"`
	Workers     int       `yaml:"workers" validate:"gte=0"`
}

type GroverConfig struct {
	Qubits     int   `yaml:"qubits" validate:"gte=1,lte=12"`
	Marked     []int `yaml:"marked" validate:"min=1,dive,gte=0"`
	Iterations int   `yaml:"iterations" validate:"gte=0"`
}

type ShorConfig struct {
	N        int `yaml:"n" validate:"gte=4"`
	A        int `yaml:"a" validate:"gte=0"`
	Attempts int `yaml:"attempts" validate:"gt=0"`
	Shots    int `yaml:"shots" validate:"gt=0"`

	PeriodA  int `yaml:"period_a" validate:"gte=2"`
	PeriodN  int `yaml:"period_n" validate:"gte=3"`
	Points   int `yaml:"points" validate:"gt=0"`
	Counting int `yaml:"counting" validate:"gte=1,lte=10"`

	SpectrumQubits int `yaml:"spectrum_qubits" validate:"gte=1,lte=16"`
	SpectrumPeriod int `yaml:"spectrum_period" validate:"gte=1"`
	SpectrumS      int `yaml:"spectrum_s" validate:"gte=1"`
}

type BlochConfig struct {
	Vectors [][3]float64 `yaml:"vectors"`
}

type BitsConfig struct {
	Word  string  `yaml:"word" validate:"required"`
	Alpha float64 `yaml:"alpha" validate:"gte=0,lte=1"`
	Beta  float64 `yaml:"beta" validate:"gte=0,lte=1"`
}

type RuntimeConfig struct {
	Channel  string `yaml:"channel" validate:"oneof=ibm_quantum ibm_cloud"`
	Token    string `yaml:"token,omitempty" jsonschema:"description=Bearer token; QLAB_IBM_TOKEN is used when empty"`
	Instance string `yaml:"instance,omitempty"`
	Device   string `yaml:"device" validate:"required"`
	BaseURL  string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	// Mode selects noisy local simulation from the device calibration or
	// execution on the device itself.
	Mode         string        `yaml:"mode" validate:"oneof=noisy hardware"`
	Session      bool          `yaml:"session"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gte=0"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend:           "statevector",
		Shots:             DefaultShots,
		Precision:         DefaultPrecision,
		OptimizationLevel: DefaultOptimization,
		BasisGates:        []string{"ecr", "id", "rz", "sx", "x"},
		Estimator: EstimatorConfig{
			Ansatze: []AnsatzConfig{
				{Name: "psi1", Qubits: 2, Reps: 2},
				{Name: "psi2", Qubits: 2, Reps: 3},
			},
			Hamiltonians: []HamiltonianConfig{
				{Name: "H1", Terms: []quantum.PauliTerm{{Label: "II", Coeff: 1}, {Label: "IZ", Coeff: 2}, {Label: "XI", Coeff: 3}}},
				{Name: "H2", Terms: []quantum.PauliTerm{{Label: "IZ", Coeff: 1}}},
				{Name: "H3", Terms: []quantum.PauliTerm{{Label: "ZI", Coeff: 1}, {Label: "ZZ", Coeff: 1}}},
			},
			Pubs: []PubConfig{
				{Circuit: "psi1", Observables: []string{"H1", "H3"}, ParameterSet: [][]float64{{0, 1, 1, 2, 3, 5}, {1, 2, 3, 4, 5, 6}}},
				{Circuit: "psi2", Observables: []string{"H2"}, ParameterSet: [][]float64{{0, 1, 1, 2, 3, 5, 8, 13}}},
			},
		},
		Sampler: SamplerConfig{
			BellShots:  DefaultBellShots,
			Ansatz:     []string{"psi1", "psi2"},
			Parameters: [][]float64{{0, 1, 1, 2, 3, 5}, {0, 1, 1, 2, 3, 5, 8, 13}},
		},
		Sweep: SweepConfig{
			Circuit: "psi1",
			Start:   0,
			Stop:    10,
			Step:    2,
			Track:   []string{"00", "01", "11"},
		},
		Minimize: MinimizeConfig{
			Circuit:     "psi1",
			Hamiltonian: "H1",
			Grid:        []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2},
			Batch:       256,
			Workers:     4,
		},
		Grover: GroverConfig{Qubits: 2, Marked: []int{3}},
		Shor: ShorConfig{
			N: 15, Attempts: 10, Shots: 8,
			PeriodA: 2, PeriodN: 15, Points: 15, Counting: 4,
			SpectrumQubits: 13, SpectrumPeriod: 5, SpectrumS: 7,
		},
		Bloch: BlochConfig{Vectors: [][3]float64{
			{1, 0, 0},
			{.3, .5, .6},
			{.4, 0, .5},
			{-.3, -.6, .4},
			{-.6, .3, -.3},
		}},
		Bits: BitsConfig{Word: DefaultWord, Alpha: 0.5, Beta: 0.5},
		Runtime: RuntimeConfig{
			Channel:      "ibm_quantum",
			Device:       "ibm_brisbane",
			Mode:         "noisy",
			Session:      true,
			PollInterval: DefaultPollInterval,
			Timeout:      DefaultTimeout,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks field constraints and that pubs refer to declared
// ansatze and Hamiltonians with matching sizes.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	ansatze := make(map[string]AnsatzConfig, len(c.Estimator.Ansatze))
	for _, a := range c.Estimator.Ansatze {
		ansatze[a.Name] = a
	}
	hams := make(map[string]int, len(c.Estimator.Hamiltonians))
	for _, h := range c.Estimator.Hamiltonians {
		op, err := h.Operator()
		if err != nil {
			return fmt.Errorf("%w: hamiltonian %s: %v", ErrInvalid, h.Name, err)
		}
		hams[h.Name] = op.NumQubits
	}

	for i, pub := range c.Estimator.Pubs {
		a, ok := ansatze[pub.Circuit]
		if !ok {
			return fmt.Errorf("%w: pub %d uses unknown circuit %q", ErrInvalid, i, pub.Circuit)
		}
		for _, name := range pub.Observables {
			n, ok := hams[name]
			if !ok {
				return fmt.Errorf("%w: pub %d uses unknown hamiltonian %q", ErrInvalid, i, name)
			}
			if n != a.Qubits {
				return fmt.Errorf("%w: hamiltonian %s acts on %d qubits, %s has %d", ErrInvalid, name, n, a.Name, a.Qubits)
			}
		}
		for j, set := range pub.ParameterSet {
			if len(set) != a.NumParameters() {
				return fmt.Errorf("%w: pub %d parameter set %d has %d values, %s needs %d", ErrInvalid, i, j, len(set), a.Name, a.NumParameters())
			}
		}
	}

	for i, name := range c.Sampler.Ansatz {
		a, ok := ansatze[name]
		if !ok {
			return fmt.Errorf("%w: sampler pub %d uses unknown circuit %q", ErrInvalid, i, name)
		}
		if i < len(c.Sampler.Parameters) && len(c.Sampler.Parameters[i]) != a.NumParameters() {
			return fmt.Errorf("%w: sampler pub %d has %d values, %s needs %d", ErrInvalid, i, len(c.Sampler.Parameters[i]), name, a.NumParameters())
		}
	}
	if _, ok := ansatze[c.Sweep.Circuit]; !ok {
		return fmt.Errorf("%w: sweep uses unknown circuit %q", ErrInvalid, c.Sweep.Circuit)
	}
	ma, ok := ansatze[c.Minimize.Circuit]
	if !ok {
		return fmt.Errorf("%w: minimize uses unknown circuit %q", ErrInvalid, c.Minimize.Circuit)
	}
	if n, ok := hams[c.Minimize.Hamiltonian]; !ok {
		return fmt.Errorf("%w: minimize uses unknown hamiltonian %q", ErrInvalid, c.Minimize.Hamiltonian)
	} else if n != ma.Qubits {
		return fmt.Errorf("%w: hamiltonian %s acts on %d qubits, %s has %d", ErrInvalid, c.Minimize.Hamiltonian, n, ma.Name, ma.Qubits)
	}
	for _, m := range c.Grover.Marked {
		if m >= 1<<c.Grover.Qubits {
			return fmt.Errorf("%w: marked state %d outside %d qubits", ErrInvalid, m, c.Grover.Qubits)
		}
	}
	return nil
}

// Ansatz looks up a declared ansatz by name.
func (c *Config) Ansatz(name string) (AnsatzConfig, bool) {
	for _, a := range c.Estimator.Ansatze {
		if a.Name == name {
			return a, true
		}
	}
	return AnsatzConfig{}, false
}

// Hamiltonian looks up a declared Hamiltonian by name.
func (c *Config) Hamiltonian(name string) (quantum.SparsePauliOp, error) {
	for _, h := range c.Estimator.Hamiltonians {
		if h.Name == name {
			return h.Operator()
		}
	}
	return quantum.SparsePauliOp{}, fmt.Errorf("%w: unknown hamiltonian %q", ErrInvalid, name)
}

// SweepSets expands the sweep into its parameter sets.
func (c *Config) SweepSets() [][]float64 {
	a, _ := c.Ansatz(c.Sweep.Circuit)
	width := a.NumParameters()
	var sets [][]float64
	for i := c.Sweep.Start; i < c.Sweep.Stop; i += c.Sweep.Step {
		set := make([]float64, width)
		for j := range set {
			set[j] = float64(i + j)
		}
		sets = append(sets, set)
	}
	return sets
}

// Schema returns the JSON schema of the config file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		FieldNameTag:   "yaml",
	}
	schema := reflector.Reflect(&Config{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
