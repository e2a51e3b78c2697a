// Package quantum provides the circuit model and statevector simulator
// every other qlab package builds on.
//
// The package is intentionally small and shaped like the SDKs people
// already know:
//
//   - [Circuit]: ordered list of [Op] values over qubits and classical bits
//   - [Angle]: fixed or parameterized rotation angle, bound with [Circuit.Bind]
//   - [State]: little-endian statevector produced by [Simulate]
//   - [SparsePauliOp]: weighted Pauli strings for expectation values
//
// # Bit Order
//
// Qubit 0 is the least significant bit of a basis index. Bitstrings and
// Pauli labels are written with the highest qubit on the left, so the
// label "IZ" acts with Z on qubit 0 and the count key "10" means qubit 1
// (or clbit 1) read as one.
//
// # Example
//
//	c := quantum.NewCircuit(2, 0)
//	c.H(1).CX(1, 0).MeasureAll()
//	st, _ := quantum.Simulate(c)
//	counts, _ := st.Sample(c, 128, rng)
//
// # Measurements
//
// Measurements are treated as terminal: [Simulate] skips them and
// [State.Sample] reads the measured qubits from the final state.
package quantum
