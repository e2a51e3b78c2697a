package qasm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/san-kum/qlab/internal/quantum"
)

var (
	registerRegex = regexp.MustCompile(`^(qreg|creg)\s+([A-Za-z_]\w*)\s*\[\s*(\d+)\s*\]$`)
	operandRegex  = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?:\[\s*(\d+)\s*\])?$`)
	gateRegex     = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?:\((.*)\))?\s+(.+)$`)
	measureRegex  = regexp.MustCompile(`^measure\s+(.+?)\s*->\s*(.+)$`)
)

type register struct {
	offset, size int
}

type parser struct {
	qregs, cregs map[string]register
	nq, nc       int
	ops          []quantum.Op
}

// Parse reads the OpenQASM 2.0 subset that Emit produces plus the common
// qelib1 spellings (U, CX, u1, u2, u3). Custom gate definitions are
// skipped; only gates this package knows can be applied.
func Parse(src string) (*quantum.Circuit, error) {
	p := &parser{qregs: map[string]register{}, cregs: map[string]register{}}
	stmts, err := statements(src)
	if err != nil {
		return nil, err
	}
	for _, st := range stmts {
		if err := p.statement(st.text); err != nil {
			return nil, fmt.Errorf("line %d: %q: %w", st.line, st.text, err)
		}
	}
	c := quantum.NewCircuit(p.nq, p.nc)
	c.Ops = p.ops
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

type stmt struct {
	line int
	text string
}

// statements splits source into ';'-terminated statements, dropping
// comments and gate bodies.
func statements(src string) ([]stmt, error) {
	var clean strings.Builder
	for _, line := range strings.Split(src, "\n") {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		clean.WriteString(line + "\n")
	}
	text := clean.String()

	var out []stmt
	line := 1
	for len(text) > 0 {
		trimmed := strings.TrimLeft(text, " \t\r\n")
		line += strings.Count(text[:len(text)-len(trimmed)], "\n")
		text = trimmed
		if text == "" {
			break
		}
		if strings.HasPrefix(text, "gate ") || strings.HasPrefix(text, "opaque ") {
			end := strings.IndexAny(text, "};")
			if strings.HasPrefix(text, "gate ") {
				end = strings.Index(text, "}")
			}
			if end < 0 {
				return nil, fmt.Errorf("%w: line %d: unterminated gate definition", ErrSyntax, line)
			}
			line += strings.Count(text[:end+1], "\n")
			text = text[end+1:]
			continue
		}
		end := strings.Index(text, ";")
		if end < 0 {
			return nil, fmt.Errorf("%w: line %d: missing ';'", ErrSyntax, line)
		}
		body := strings.Join(strings.Fields(text[:end]), " ")
		out = append(out, stmt{line: line, text: body})
		line += strings.Count(text[:end+1], "\n")
		text = text[end+1:]
	}
	return out, nil
}

func (p *parser) statement(s string) error {
	switch {
	case strings.HasPrefix(s, "OPENQASM"), strings.HasPrefix(s, "include"):
		return nil
	case strings.HasPrefix(s, "qreg"), strings.HasPrefix(s, "creg"):
		return p.register(s)
	case strings.HasPrefix(s, "measure "):
		return p.measure(s)
	case strings.HasPrefix(s, "if"):
		return fmt.Errorf("%w: classical control", ErrUnsupported)
	}
	return p.gate(s)
}

func (p *parser) register(s string) error {
	m := registerRegex.FindStringSubmatch(s)
	if m == nil {
		return ErrSyntax
	}
	size, _ := strconv.Atoi(m[3])
	if m[1] == "qreg" {
		p.qregs[m[2]] = register{offset: p.nq, size: size}
		p.nq += size
	} else {
		p.cregs[m[2]] = register{offset: p.nc, size: size}
		p.nc += size
	}
	return nil
}

// operand resolves "q[3]" to one index and "q" to the whole register.
func operand(s string, regs map[string]register) ([]int, error) {
	m := operandRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("%w: operand %q", ErrSyntax, s)
	}
	reg, ok := regs[m[1]]
	if !ok {
		return nil, fmt.Errorf("%w: unknown register %q", ErrSyntax, m[1])
	}
	if m[2] == "" {
		idx := make([]int, reg.size)
		for i := range idx {
			idx[i] = reg.offset + i
		}
		return idx, nil
	}
	i, _ := strconv.Atoi(m[2])
	if i >= reg.size {
		return nil, fmt.Errorf("%w: %s[%d]", quantum.ErrQubitRange, m[1], i)
	}
	return []int{reg.offset + i}, nil
}

func (p *parser) measure(s string) error {
	m := measureRegex.FindStringSubmatch(s)
	if m == nil {
		return ErrSyntax
	}
	qs, err := operand(m[1], p.qregs)
	if err != nil {
		return err
	}
	cs, err := operand(m[2], p.cregs)
	if err != nil {
		return err
	}
	if len(qs) != len(cs) {
		return fmt.Errorf("%w: measuring %d qubits into %d bits", ErrSyntax, len(qs), len(cs))
	}
	for i := range qs {
		p.ops = append(p.ops, quantum.Op{Name: "measure", Qubits: []int{qs[i]}, Clbits: []int{cs[i]}})
	}
	return nil
}

func (p *parser) gate(s string) error {
	m := gateRegex.FindStringSubmatch(s)
	if m == nil {
		return ErrSyntax
	}
	name, rawParams, rawArgs := m[1], m[2], m[3]

	var params []float64
	if strings.TrimSpace(rawParams) != "" {
		for _, expr := range splitTop(rawParams) {
			v, err := Eval(expr)
			if err != nil {
				return err
			}
			params = append(params, v)
		}
	}

	var args [][]int
	for _, a := range splitTop(rawArgs) {
		idx, err := operand(a, p.qregs)
		if err != nil {
			return err
		}
		args = append(args, idx)
	}

	name, params, err := canonical(name, params)
	if err != nil {
		return err
	}

	if name == "barrier" {
		var qs []int
		for _, a := range args {
			qs = append(qs, a...)
		}
		p.ops = append(p.ops, quantum.Op{Name: "barrier", Qubits: qs})
		return nil
	}

	// Register arguments broadcast; single indices repeat.
	width := 1
	for _, a := range args {
		if len(a) > 1 {
			if width > 1 && len(a) != width {
				return fmt.Errorf("%w: register sizes differ", ErrSyntax)
			}
			width = len(a)
		}
	}
	angles := make([]quantum.Angle, len(params))
	for i, v := range params {
		angles[i] = quantum.Fixed(v)
	}
	for k := 0; k < width; k++ {
		qs := make([]int, len(args))
		for i, a := range args {
			if len(a) == 1 {
				qs[i] = a[0]
			} else {
				qs[i] = a[k]
			}
		}
		p.ops = append(p.ops, quantum.Op{Name: name, Qubits: qs, Params: append([]quantum.Angle(nil), angles...)})
	}
	return nil
}

// canonical maps qelib1 spellings onto internal gate names.
func canonical(name string, params []float64) (string, []float64, error) {
	switch name {
	case "U", "u3":
		name = "u"
	case "CX":
		name = "cx"
	case "u1":
		name = "p"
	case "u2":
		if len(params) != 2 {
			return "", nil, quantum.ErrArity
		}
		return "u", []float64{math.Pi / 2, params[0], params[1]}, nil
	}
	if !quantum.IsGate(name) || name == "cmodmul" || name == "measure" {
		return "", nil, fmt.Errorf("%w: %s", quantum.ErrUnknownGate, name)
	}
	return name, params, nil
}

// splitTop splits on commas outside parentheses.
func splitTop(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}
