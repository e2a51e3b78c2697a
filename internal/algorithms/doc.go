// Package algorithms runs the two canonical algorithms on the local
// simulator and derives the data behind their figures.
//
//   - [Grover]: amplitude amplification with a snapshot of the register
//     after every oracle and diffusion step
//   - [Factor]: Shor's factoring with classical shortcuts, order finding
//     on a backend and continued-fraction post-processing
//   - [PeriodicFunction], [QFTPeaks], [IdealPeaks], [PeakSpectrum]: the
//     periodic function and the counting-register distributions
//   - [BitsVsQubits]: storage cost of a word in bits and qubits
//
// # Period finding
//
// The counting register of the order-finding circuit peaks at multiples
// of 2^t/r. [Factor] reads the most frequent outcomes, turns each y/2^t
// into a fraction with denominator at most N and checks a^r = 1 mod N:
//
//	res, err := algorithms.Factor(ctx, 15, algorithms.ShorOptions{A: 7})
//	// res.Factors == [2]int{3, 5}, res.Period == 4
package algorithms
