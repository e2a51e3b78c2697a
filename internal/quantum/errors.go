package quantum

import (
	"errors"
	"fmt"
)

// Domain errors for circuit construction and simulation.
var (
	// ErrUnknownGate indicates a gate name outside the supported set.
	ErrUnknownGate = errors.New("quantum: unknown gate")

	// ErrQubitRange indicates a qubit or clbit index outside the circuit.
	ErrQubitRange = errors.New("quantum: index out of range")

	// ErrArity indicates the wrong number of qubits or parameters for a gate.
	ErrArity = errors.New("quantum: wrong number of operands for gate")

	// ErrUnboundParameter indicates a simulation request on a parameterized circuit.
	ErrUnboundParameter = errors.New("quantum: circuit has unbound parameters")

	// ErrTooManyQubits indicates the statevector would not fit in memory.
	ErrTooManyQubits = errors.New("quantum: too many qubits for statevector simulation")

	// ErrNoMeasurements indicates sampling a circuit that measures nothing.
	ErrNoMeasurements = errors.New("quantum: circuit has no measurements")

	// ErrNotInvertible indicates Inverse on a circuit with measure or reset.
	ErrNotInvertible = errors.New("quantum: circuit contains non-unitary operations")

	// ErrInvalidPauli indicates a malformed Pauli label.
	ErrInvalidPauli = errors.New("quantum: invalid pauli label")

	// ErrParameterCount indicates a binding with the wrong number of values.
	ErrParameterCount = errors.New("quantum: parameter count mismatch")
)

// MaxQubits bounds statevector simulation (2^22 amplitudes, 64 MiB).
const MaxQubits = 22

// GateError wraps an error with the position of the failing operation.
type GateError struct {
	Index int
	Gate  string
	Err   error
}

func (e *GateError) Error() string {
	return fmt.Sprintf("op %d (%s): %v", e.Index, e.Gate, e.Err)
}

func (e *GateError) Unwrap() error {
	return e.Err
}
