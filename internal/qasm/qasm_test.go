package qasm

import (
	"errors"
	"math"
	"math/cmplx"
	"strings"
	"testing"

	"github.com/san-kum/qlab/internal/circuits"
	"github.com/san-kum/qlab/internal/quantum"
)

func TestEmitBell(t *testing.T) {
	out, err := Emit(circuits.Bell())
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	for _, want := range []string{
		"OPENQASM 2.0;",
		`include "qelib1.inc";`,
		"qreg q[2];",
		"creg c[2];",
		"h q[1];",
		"cx q[1],q[0];",
		"barrier q[0],q[1];",
		"measure q[0] -> c[0];",
		"measure q[1] -> c[1];",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "gate ecr") {
		t.Errorf("expected no ecr definition without ecr gates")
	}
}

func TestEmitRejects(t *testing.T) {
	tests := []struct {
		name    string
		circuit *quantum.Circuit
		err     error
	}{
		{"unbound", quantum.NewCircuit(1, 0).RY(quantum.Param(0), 0), quantum.ErrUnboundParameter},
		{"cmodmul", quantum.NewCircuit(3, 0).CModMul(0, 1, 3, []int{1, 2}), ErrUnsupported},
		{"wide mcz", quantum.NewCircuit(3, 0).MCZ(0, 1, 2), ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Emit(tt.circuit); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	c := quantum.NewCircuit(3, 3).
		H(0).SX(1).ECR(0, 1).RZ(quantum.Fixed(0.25), 2).
		U(quantum.Fixed(0.1), quantum.Fixed(-0.2), quantum.Fixed(0.3), 1).
		CX(2, 0).Swap(1, 2).Tdg(0).Reset(2).MCZ(0, 1)
	c.Barrier(0, 1, 2)
	for q := 0; q < 3; q++ {
		c.Measure(q, q)
	}

	text, err := Emit(c)
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	parsed, err := Parse(text)
	if err != nil {
		t.Fatalf("parse failed: %v\n%s", err, text)
	}
	if parsed.NumQubits != 3 || parsed.NumClbits != 3 {
		t.Fatalf("expected 3x3 registers, got %dx%d", parsed.NumQubits, parsed.NumClbits)
	}

	a, err := quantum.Simulate(c.RemoveFinalMeasurements())
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	b, err := quantum.Simulate(parsed.RemoveFinalMeasurements())
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	for i := range a.Amplitudes {
		if cmplx.Abs(a.Amplitudes[i]-b.Amplitudes[i]) > 1e-9 {
			t.Errorf("amplitude %d: expected %v, got %v", i, a.Amplitudes[i], b.Amplitudes[i])
		}
	}
	if got := parsed.Measurements(); got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("expected identity measurement map, got %v", got)
	}
}

func TestParseQelibSpellings(t *testing.T) {
	src := `OPENQASM 2.0;
include "qelib1.inc";
// two registers flatten in declaration order
qreg a[1];
qreg b[2];
creg m[3];
gate mygate x { h x; }
U(pi/2, 0, pi) a[0];
u2(0, pi) b[0];
u1(-pi/4) b[1];
CX a[0], b[1];
h b;
measure a -> m[0];
measure b[0] -> m[1];
measure b[1] -> m[2];
`
	c, err := Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.NumQubits != 3 || c.NumClbits != 3 {
		t.Fatalf("expected 3 qubits and 3 clbits, got %d and %d", c.NumQubits, c.NumClbits)
	}
	counts := c.CountOps()
	if counts["u"] != 2 || counts["p"] != 1 || counts["cx"] != 1 || counts["h"] != 2 || counts["measure"] != 3 {
		t.Errorf("unexpected op counts %v", counts)
	}
	if c.Ops[3].Qubits[0] != 0 || c.Ops[3].Qubits[1] != 2 {
		t.Errorf("expected cx on flattened qubits (0, 2), got %v", c.Ops[3].Qubits)
	}
	if v := c.Ops[2].Params[0].Offset; math.Abs(v+math.Pi/4) > 1e-12 {
		t.Errorf("expected -pi/4, got %g", v)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		err  error
	}{
		{"unknown gate", "qreg q[1];\nfoo q[0];", quantum.ErrUnknownGate},
		{"range", "qreg q[1];\nh q[3];", quantum.ErrQubitRange},
		{"missing semicolon", "qreg q[1];\nh q[0]", ErrSyntax},
		{"unknown register", "qreg q[1];\nh r[0];", ErrSyntax},
		{"classical control", "qreg q[1];\ncreg c[1];\nif(c==1) x q[0];", ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.src); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestEval(t *testing.T) {
	tests := []struct {
		expr     string
		expected float64
	}{
		{"pi", math.Pi},
		{"-pi/2", -math.Pi / 2},
		{"3*pi/4", 3 * math.Pi / 4},
		{"1.5e-3", 1.5e-3},
		{"2^3", 8},
		{"-(1+2)*2", -6},
		{"cos(0)", 1},
		{"sqrt(4) + .5", 2.5},
	}
	for _, tt := range tests {
		got, err := Eval(tt.expr)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.expr, err)
			continue
		}
		if math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("%s: expected %g, got %g", tt.expr, tt.expected, got)
		}
	}
	if _, err := Eval("pi pi"); !errors.Is(err, ErrSyntax) {
		t.Errorf("expected ErrSyntax, got %v", err)
	}
}
