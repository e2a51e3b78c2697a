package config

import (
	"sort"

	"github.com/san-kum/qlab/internal/backend"
)

func preset(apply func(*Config)) *Config {
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

// Presets holds ready-made configurations grouped by experiment.
var Presets = map[string]map[string]*Config{
	"grover": {
		"two_qubit": preset(func(c *Config) {
			c.Grover = GroverConfig{Qubits: 2, Marked: []int{3}}
		}),
		"four_qubit": preset(func(c *Config) {
			c.Grover = GroverConfig{Qubits: 4, Marked: []int{5, 10}}
		}),
		"single_of_64": preset(func(c *Config) {
			c.Grover = GroverConfig{Qubits: 6, Marked: []int{42}}
		}),
	},
	"shor": {
		"fifteen": preset(func(c *Config) {
			c.Shor.N, c.Shor.A = 15, 7
		}),
		"twentyone": preset(func(c *Config) {
			c.Shor.N, c.Shor.A = 21, 2
		}),
		"thirtyfive": preset(func(c *Config) {
			c.Shor.N, c.Shor.A, c.Shor.Attempts = 35, 3, 20
		}),
	},
	"backend": {
		"ideal": preset(func(c *Config) {
			c.Backend = "statevector"
		}),
		"fake_eagle": preset(func(c *Config) {
			cal := backend.FakeEagle()
			c.Backend = "noisy"
			c.Noise = &cal
			c.BasisGates = cal.BasisGates
		}),
		"ibm_noisy": preset(func(c *Config) {
			c.Backend, c.Runtime.Mode = "ibm", "noisy"
		}),
		"ibm_hardware": preset(func(c *Config) {
			c.Backend, c.Runtime.Mode = "ibm", "hardware"
			c.Shots = 4096
		}),
	},
}

func GetPreset(kind, name string) *Config {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	cfg, ok := kindPresets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(kind string) []string {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(kindPresets))
	for name := range kindPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
