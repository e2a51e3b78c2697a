// Package qasm converts circuits to and from OpenQASM 2.0 text, the
// format circuits travel in when submitted to a remote runtime.
package qasm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/qlab/internal/quantum"
)

var (
	ErrUnsupported = errors.New("qasm: operation has no OpenQASM 2.0 form")
	ErrSyntax      = errors.New("qasm: syntax error")
)

// ecrDefinition spells ecr with qelib1 gates since the standard include
// does not carry it.
const ecrDefinition = "gate ecr a,b { h b; cx a,b; rz(pi/4) b; cx a,b; h b; x a; h b; cx a,b; rz(-pi/4) b; cx a,b; h b; }"

var qasmName = map[string]string{
	"u": "u3",
}

// Emit renders a bound circuit as OpenQASM 2.0. Global phase is dropped.
func Emit(c *quantum.Circuit) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	if c.NumParameters() > 0 {
		return "", quantum.ErrUnboundParameter
	}

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n")
	if c.CountOps()["ecr"] > 0 {
		sb.WriteString(ecrDefinition + "\n")
	}
	fmt.Fprintf(&sb, "qreg q[%d];\n", c.NumQubits)
	if c.NumClbits > 0 {
		fmt.Fprintf(&sb, "creg c[%d];\n", c.NumClbits)
	}

	for i, op := range c.Ops {
		line, err := emitOp(op)
		if err != nil {
			return "", &quantum.GateError{Index: i, Gate: op.Name, Err: err}
		}
		if line != "" {
			sb.WriteString(line + "\n")
		}
	}
	return sb.String(), nil
}

func emitOp(op quantum.Op) (string, error) {
	name := op.Name
	switch name {
	case "gphase":
		return "", nil
	case "measure":
		return fmt.Sprintf("measure q[%d] -> c[%d];", op.Qubits[0], op.Clbits[0]), nil
	case "mcz":
		switch len(op.Qubits) {
		case 1:
			name = "z"
		case 2:
			name = "cz"
		default:
			return "", ErrUnsupported
		}
	case "cmodmul":
		return "", ErrUnsupported
	}
	if alias, ok := qasmName[name]; ok {
		name = alias
	}

	var sb strings.Builder
	sb.WriteString(name)
	if len(op.Params) > 0 {
		parts := make([]string, len(op.Params))
		for i, p := range op.Params {
			parts[i] = formatAngle(p.Offset)
		}
		sb.WriteString("(" + strings.Join(parts, ",") + ")")
	}
	qs := make([]string, len(op.Qubits))
	for i, q := range op.Qubits {
		qs[i] = fmt.Sprintf("q[%d]", q)
	}
	if len(qs) > 0 {
		sb.WriteString(" " + strings.Join(qs, ","))
	} else if name == "barrier" {
		sb.WriteString(" q")
	}
	sb.WriteString(";")
	return sb.String(), nil
}

func formatAngle(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}
