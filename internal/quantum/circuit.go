package quantum

import (
	"fmt"
	"math/big"
	"strings"
)

// Op is a single gate, measurement or directive placed on a circuit.
type Op struct {
	Name   string
	Qubits []int
	Params []Angle
	Clbits []int
	// Data carries integer arguments: multiplier and modulus for cmodmul.
	Data []int
}

func (o Op) String() string {
	var sb strings.Builder
	sb.WriteString(o.Name)
	if len(o.Params) > 0 {
		parts := make([]string, len(o.Params))
		for i, p := range o.Params {
			parts[i] = p.String()
		}
		sb.WriteString("(" + strings.Join(parts, ",") + ")")
	}
	for i, q := range o.Qubits {
		if i == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "q[%d]", q)
	}
	for _, c := range o.Clbits {
		fmt.Fprintf(&sb, " -> c[%d]", c)
	}
	return sb.String()
}

// Circuit holds an ordered list of operations over NumQubits qubits and
// NumClbits classical bits.
type Circuit struct {
	Name      string
	NumQubits int
	NumClbits int
	Ops       []Op
	// Parameters is the declared length of the parameter vector. It keeps
	// Bind's arity when rewriting drops the ops that used the last slots.
	Parameters int
}

func NewCircuit(qubits, clbits int) *Circuit {
	return &Circuit{NumQubits: qubits, NumClbits: clbits, Ops: make([]Op, 0)}
}

// Append adds an arbitrary operation. Validation happens in Validate.
func (c *Circuit) Append(name string, qubits []int, params ...Angle) *Circuit {
	c.Ops = append(c.Ops, Op{Name: name, Qubits: append([]int(nil), qubits...), Params: params})
	return c
}

func (c *Circuit) ID(q int) *Circuit   { return c.Append("id", []int{q}) }
func (c *Circuit) X(q int) *Circuit    { return c.Append("x", []int{q}) }
func (c *Circuit) Y(q int) *Circuit    { return c.Append("y", []int{q}) }
func (c *Circuit) Z(q int) *Circuit    { return c.Append("z", []int{q}) }
func (c *Circuit) H(q int) *Circuit    { return c.Append("h", []int{q}) }
func (c *Circuit) S(q int) *Circuit    { return c.Append("s", []int{q}) }
func (c *Circuit) Sdg(q int) *Circuit  { return c.Append("sdg", []int{q}) }
func (c *Circuit) T(q int) *Circuit    { return c.Append("t", []int{q}) }
func (c *Circuit) Tdg(q int) *Circuit  { return c.Append("tdg", []int{q}) }
func (c *Circuit) SX(q int) *Circuit   { return c.Append("sx", []int{q}) }
func (c *Circuit) SXdg(q int) *Circuit { return c.Append("sxdg", []int{q}) }

func (c *Circuit) RX(theta Angle, q int) *Circuit { return c.Append("rx", []int{q}, theta) }
func (c *Circuit) RY(theta Angle, q int) *Circuit { return c.Append("ry", []int{q}, theta) }
func (c *Circuit) RZ(theta Angle, q int) *Circuit { return c.Append("rz", []int{q}, theta) }
func (c *Circuit) P(theta Angle, q int) *Circuit  { return c.Append("p", []int{q}, theta) }

func (c *Circuit) U(theta, phi, lambda Angle, q int) *Circuit {
	return c.Append("u", []int{q}, theta, phi, lambda)
}

func (c *Circuit) CX(control, target int) *Circuit { return c.Append("cx", []int{control, target}) }
func (c *Circuit) CZ(a, b int) *Circuit            { return c.Append("cz", []int{a, b}) }
func (c *Circuit) Swap(a, b int) *Circuit          { return c.Append("swap", []int{a, b}) }
func (c *Circuit) ECR(a, b int) *Circuit           { return c.Append("ecr", []int{a, b}) }

// MCZ flips the phase of the basis states where every listed qubit is one.
func (c *Circuit) MCZ(qubits ...int) *Circuit { return c.Append("mcz", qubits) }

// CModMul multiplies the work register by a modulo n when control is one.
// Work qubits are listed least significant first.
func (c *Circuit) CModMul(control, a, n int, work []int) *Circuit {
	qubits := append([]int{control}, work...)
	c.Ops = append(c.Ops, Op{Name: "cmodmul", Qubits: qubits, Data: []int{a, n}})
	return c
}

// GPhase applies the global phase e^(i*theta).
func (c *Circuit) GPhase(theta Angle) *Circuit { return c.Append("gphase", nil, theta) }

func (c *Circuit) Barrier(qubits ...int) *Circuit { return c.Append("barrier", qubits) }
func (c *Circuit) Reset(q int) *Circuit           { return c.Append("reset", []int{q}) }

func (c *Circuit) Measure(q, clbit int) *Circuit {
	c.Ops = append(c.Ops, Op{Name: "measure", Qubits: []int{q}, Clbits: []int{clbit}})
	return c
}

// MeasureAll adds a classical bit per qubit, a barrier and a measurement
// of every qubit into its own bit.
func (c *Circuit) MeasureAll() *Circuit {
	base := c.NumClbits
	c.NumClbits += c.NumQubits
	all := make([]int, c.NumQubits)
	for i := range all {
		all[i] = i
	}
	c.Barrier(all...)
	for q := 0; q < c.NumQubits; q++ {
		c.Measure(q, base+q)
	}
	return c
}

// Validate checks gate names, operand counts and index ranges.
func (c *Circuit) Validate() error {
	if c.NumQubits < 0 || c.NumClbits < 0 {
		return fmt.Errorf("%w: negative register size", ErrQubitRange)
	}
	for i, op := range c.Ops {
		if err := c.validateOp(op); err != nil {
			return &GateError{Index: i, Gate: op.Name, Err: err}
		}
	}
	return nil
}

func (c *Circuit) validateOp(op Op) error {
	def, ok := gateTable[op.Name]
	if !ok {
		return ErrUnknownGate
	}
	if def.qubits >= 0 && len(op.Qubits) != def.qubits {
		return fmt.Errorf("%w: want %d qubits, got %d", ErrArity, def.qubits, len(op.Qubits))
	}
	if len(op.Params) != def.params {
		return fmt.Errorf("%w: want %d params, got %d", ErrArity, def.params, len(op.Params))
	}
	seen := make(map[int]bool, len(op.Qubits))
	for _, q := range op.Qubits {
		if q < 0 || q >= c.NumQubits {
			return fmt.Errorf("%w: qubit %d", ErrQubitRange, q)
		}
		if seen[q] && op.Name != "barrier" {
			return fmt.Errorf("%w: qubit %d repeated", ErrArity, q)
		}
		seen[q] = true
	}
	switch op.Name {
	case "measure":
		if len(op.Clbits) != 1 || op.Clbits[0] < 0 || op.Clbits[0] >= c.NumClbits {
			return fmt.Errorf("%w: clbit %v", ErrQubitRange, op.Clbits)
		}
	case "mcz":
		if len(op.Qubits) == 0 {
			return fmt.Errorf("%w: mcz needs at least one qubit", ErrArity)
		}
	case "cmodmul":
		if len(op.Qubits) < 2 || len(op.Data) != 2 {
			return fmt.Errorf("%w: cmodmul needs control, work register, multiplier and modulus", ErrArity)
		}
		a, n := op.Data[0], op.Data[1]
		if n < 2 || n > 1<<(len(op.Qubits)-1) {
			return fmt.Errorf("%w: modulus %d does not fit %d work qubits", ErrArity, n, len(op.Qubits)-1)
		}
		if gcd(a, n) != 1 {
			return fmt.Errorf("%w: multiplier %d not coprime to %d", ErrArity, a, n)
		}
	}
	return nil
}

// NumParameters returns the declared parameter count or one past the
// highest parameter index in use, whichever is larger.
func (c *Circuit) NumParameters() int {
	n := c.Parameters
	for _, op := range c.Ops {
		for _, p := range op.Params {
			if !p.IsFixed() && p.Param+1 > n {
				n = p.Param + 1
			}
		}
	}
	return n
}

// Bind returns a copy with every parameter replaced by its value.
func (c *Circuit) Bind(values []float64) (*Circuit, error) {
	if n := c.NumParameters(); len(values) != n {
		return nil, fmt.Errorf("%w: circuit has %d parameters, got %d values", ErrParameterCount, n, len(values))
	}
	out := c.Copy()
	out.Parameters = 0
	for i := range out.Ops {
		for j, p := range out.Ops[i].Params {
			v, err := p.Eval(values)
			if err != nil {
				return nil, err
			}
			out.Ops[i].Params[j] = Fixed(v)
		}
	}
	return out, nil
}

// Copy returns a deep copy.
func (c *Circuit) Copy() *Circuit {
	out := &Circuit{Name: c.Name, NumQubits: c.NumQubits, NumClbits: c.NumClbits, Parameters: c.Parameters, Ops: make([]Op, len(c.Ops))}
	for i, op := range c.Ops {
		out.Ops[i] = Op{
			Name:   op.Name,
			Qubits: append([]int(nil), op.Qubits...),
			Params: append([]Angle(nil), op.Params...),
			Clbits: append([]int(nil), op.Clbits...),
			Data:   append([]int(nil), op.Data...),
		}
	}
	return out
}

// Compose appends other's operations, mapping its qubit i to qubits[i].
// A nil mapping is the identity.
func (c *Circuit) Compose(other *Circuit, qubits []int) (*Circuit, error) {
	if qubits == nil {
		qubits = make([]int, other.NumQubits)
		for i := range qubits {
			qubits[i] = i
		}
	}
	if len(qubits) != other.NumQubits {
		return nil, fmt.Errorf("%w: mapping has %d qubits, circuit has %d", ErrArity, len(qubits), other.NumQubits)
	}
	for _, q := range qubits {
		if q < 0 || q >= c.NumQubits {
			return nil, fmt.Errorf("%w: qubit %d", ErrQubitRange, q)
		}
	}
	if other.NumClbits > c.NumClbits {
		c.NumClbits = other.NumClbits
	}
	if other.Parameters > c.Parameters {
		c.Parameters = other.Parameters
	}
	for _, op := range other.Copy().Ops {
		for i, q := range op.Qubits {
			op.Qubits[i] = qubits[q]
		}
		c.Ops = append(c.Ops, op)
	}
	return c, nil
}

// Inverse returns the adjoint circuit.
func (c *Circuit) Inverse() (*Circuit, error) {
	out := NewCircuit(c.NumQubits, c.NumClbits)
	out.Name = c.Name + "_dg"
	out.Parameters = c.Parameters
	src := c.Copy()
	for i := len(src.Ops) - 1; i >= 0; i-- {
		op := src.Ops[i]
		switch op.Name {
		case "measure", "reset":
			return nil, &GateError{Index: i, Gate: op.Name, Err: ErrNotInvertible}
		case "rx", "ry", "rz", "p", "gphase":
			op.Params[0] = op.Params[0].Neg()
		case "u":
			theta, phi, lambda := op.Params[0], op.Params[1], op.Params[2]
			op.Params = []Angle{theta.Neg(), lambda.Neg(), phi.Neg()}
		case "cmodmul":
			inv, ok := modInverse(op.Data[0], op.Data[1])
			if !ok {
				return nil, &GateError{Index: i, Gate: op.Name, Err: ErrNotInvertible}
			}
			op.Data[0] = inv
		default:
			if name, ok := inverseName[op.Name]; ok {
				op.Name = name
			}
		}
		out.Ops = append(out.Ops, op)
	}
	return out, nil
}

// CountOps returns how many times each gate name appears.
func (c *Circuit) CountOps() map[string]int {
	counts := make(map[string]int)
	for _, op := range c.Ops {
		counts[op.Name]++
	}
	return counts
}

// Depth is the length of the critical path, ignoring barriers.
func (c *Circuit) Depth() int {
	level := make([]int, c.NumQubits)
	clevel := make([]int, c.NumClbits)
	depth := 0
	for _, op := range c.Ops {
		if op.Name == "barrier" || op.Name == "gphase" {
			continue
		}
		d := 0
		for _, q := range op.Qubits {
			if q < len(level) && level[q] > d {
				d = level[q]
			}
		}
		for _, cb := range op.Clbits {
			if cb < len(clevel) && clevel[cb] > d {
				d = clevel[cb]
			}
		}
		d++
		for _, q := range op.Qubits {
			if q < len(level) {
				level[q] = d
			}
		}
		for _, cb := range op.Clbits {
			if cb < len(clevel) {
				clevel[cb] = d
			}
		}
		if d > depth {
			depth = d
		}
	}
	return depth
}

// Measurements returns the qubit measured into each clbit, -1 if none.
func (c *Circuit) Measurements() []int {
	m := make([]int, c.NumClbits)
	for i := range m {
		m[i] = -1
	}
	for _, op := range c.Ops {
		if op.Name == "measure" && len(op.Clbits) == 1 && op.Clbits[0] < len(m) {
			m[op.Clbits[0]] = op.Qubits[0]
		}
	}
	return m
}

// RemoveFinalMeasurements strips measure and barrier ops and classical bits.
func (c *Circuit) RemoveFinalMeasurements() *Circuit {
	out := c.Copy()
	out.NumClbits = 0
	ops := out.Ops[:0]
	for _, op := range out.Ops {
		if op.Name == "measure" || op.Name == "barrier" {
			continue
		}
		ops = append(ops, op)
	}
	out.Ops = ops
	return out
}

func (c *Circuit) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "circuit %q: %d qubits, %d clbits, depth %d\n", c.Name, c.NumQubits, c.NumClbits, c.Depth())
	for _, op := range c.Ops {
		sb.WriteString("  " + op.String() + "\n")
	}
	return sb.String()
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func modInverse(a, n int) (int, bool) {
	r := new(big.Int).ModInverse(big.NewInt(int64(a)), big.NewInt(int64(n)))
	if r == nil {
		return 0, false
	}
	return int(r.Int64()), true
}
