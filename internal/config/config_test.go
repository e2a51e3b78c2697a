package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != "statevector" {
		t.Errorf("expected backend statevector, got %s", cfg.Backend)
	}
	if cfg.Shots != DefaultShots {
		t.Errorf("expected %d shots, got %d", DefaultShots, cfg.Shots)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if len(cfg.Bloch.Vectors) != 5 {
		t.Errorf("expected 5 bloch vectors, got %d", len(cfg.Bloch.Vectors))
	}
}

func TestDefaultHamiltonians(t *testing.T) {
	cfg := DefaultConfig()
	h1, err := cfg.Hamiltonian("H1")
	if err != nil {
		t.Fatal(err)
	}
	if h1.NumQubits != 2 || len(h1.Terms) != 3 {
		t.Errorf("expected 2-qubit H1 with 3 terms, got %d qubits, %d terms", h1.NumQubits, len(h1.Terms))
	}
	if _, err := cfg.Hamiltonian("H9"); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}

	a, ok := cfg.Ansatz("psi2")
	if !ok {
		t.Fatal("expected psi2")
	}
	if a.NumParameters() != 8 {
		t.Errorf("expected 8 parameters, got %d", a.NumParameters())
	}
}

func TestSweepSets(t *testing.T) {
	sets := DefaultConfig().SweepSets()
	if len(sets) != 5 {
		t.Fatalf("expected 5 sets, got %d", len(sets))
	}
	for i, set := range sets {
		if len(set) != 6 {
			t.Fatalf("set %d: expected 6 values, got %d", i, len(set))
		}
		if set[0] != float64(2*i) || set[5] != float64(2*i+5) {
			t.Errorf("set %d: expected %d..%d, got %v", i, 2*i, 2*i+5, set)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero shots", func(c *Config) { c.Shots = 0 }},
		{"unknown backend", func(c *Config) { c.Backend = "qpu" }},
		{"optimization level", func(c *Config) { c.OptimizationLevel = 4 }},
		{"unknown circuit", func(c *Config) { c.Estimator.Pubs[0].Circuit = "psi9" }},
		{"unknown hamiltonian", func(c *Config) { c.Estimator.Pubs[0].Observables = []string{"H9"} }},
		{"parameter width", func(c *Config) { c.Estimator.Pubs[1].ParameterSet = [][]float64{{1, 2}} }},
		{"hamiltonian width", func(c *Config) {
			c.Estimator.Hamiltonians[1].Terms[0].Label = "ZZZ"
		}},
		{"marked out of range", func(c *Config) { c.Grover.Marked = []int{4} }},
		{"runtime mode", func(c *Config) { c.Runtime.Mode = "cloud" }},
		{"sweep circuit", func(c *Config) { c.Sweep.Circuit = "bell" }},
		{"minimize hamiltonian", func(c *Config) { c.Minimize.Hamiltonian = "H9" }},
		{"empty minimize grid", func(c *Config) { c.Minimize.Grid = nil }},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", tt.name, err)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qlab.yaml")

	cfg := DefaultConfig()
	cfg.Shots = 4000
	cfg.Runtime.PollInterval = 2 * time.Second
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Shots != 4000 {
		t.Errorf("expected 4000 shots, got %d", loaded.Shots)
	}
	if loaded.Runtime.PollInterval != 2*time.Second {
		t.Errorf("expected poll interval 2s, got %v", loaded.Runtime.PollInterval)
	}
	if len(loaded.Estimator.Pubs) != 2 {
		t.Errorf("expected 2 pubs, got %d", len(loaded.Estimator.Pubs))
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qlab.yaml")
	if err := os.WriteFile(path, []byte("shots: 256\ngrover:\n  qubits: 3\n  marked: [5]\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Shots != 256 || cfg.Grover.Qubits != 3 {
		t.Errorf("overrides not applied: %+v", cfg.Grover)
	}
	if cfg.Bits.Word != DefaultWord {
		t.Errorf("expected default word, got %q", cfg.Bits.Word)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qlab.yaml")
	if err := os.WriteFile(path, []byte("shots: -1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("grover", "four_qubit")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Grover.Qubits != 4 {
		t.Errorf("expected 4 qubits, got %d", cfg.Grover.Qubits)
	}

	eagle := GetPreset("backend", "fake_eagle")
	if eagle == nil || eagle.Noise == nil {
		t.Fatal("expected fake_eagle preset with calibration")
	}
	if eagle.Noise.NumQubits != 5 {
		t.Errorf("expected 5 qubits, got %d", eagle.Noise.NumQubits)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	cfg := GetPreset("grover", "nonexistent")
	if cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}

	cfg = GetPreset("nonexistent", "two_qubit")
	if cfg != nil {
		t.Error("expected nil for nonexistent kind")
	}
}

func TestPresetsValidate(t *testing.T) {
	for kind, presets := range Presets {
		for name, cfg := range presets {
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", kind, name, err)
			}
		}
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("shor")
	if len(presets) != 3 || presets[0] != "fifteen" {
		t.Errorf("expected sorted shor presets, got %v", presets)
	}

	presets = ListPresets("nonexistent")
	if presets != nil {
		t.Error("expected nil for nonexistent kind")
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("schema is not json: %v", err)
	}
	for _, key := range []string{`"shots"`, `"optimization_level"`, `"estimator"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("schema missing %s", key)
		}
	}
}
