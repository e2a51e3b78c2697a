package quantum

import (
	"math"
	"math/cmplx"
	"sort"
)

// Matrix2 is a single-qubit unitary in row-major order.
type Matrix2 [2][2]complex128

// Matrix4 is a two-qubit unitary. Row and column index is b0 + 2*b1 where
// b0 is the bit of the op's first qubit.
type Matrix4 [4][4]complex128

type gateDef struct {
	qubits  int // -1 for variadic
	params  int
	unitary bool
}

var gateTable = map[string]gateDef{
	"id":      {1, 0, true},
	"x":       {1, 0, true},
	"y":       {1, 0, true},
	"z":       {1, 0, true},
	"h":       {1, 0, true},
	"s":       {1, 0, true},
	"sdg":     {1, 0, true},
	"t":       {1, 0, true},
	"tdg":     {1, 0, true},
	"sx":      {1, 0, true},
	"sxdg":    {1, 0, true},
	"rx":      {1, 1, true},
	"ry":      {1, 1, true},
	"rz":      {1, 1, true},
	"p":       {1, 1, true},
	"u":       {1, 3, true},
	"cx":      {2, 0, true},
	"cz":      {2, 0, true},
	"swap":    {2, 0, true},
	"ecr":     {2, 0, true},
	"mcz":     {-1, 0, true},
	"cmodmul": {-1, 0, true},
	"gphase":  {0, 1, true},
	"measure": {1, 0, false},
	"reset":   {1, 0, false},
	"barrier": {-1, 0, true},
}

// Gates lists every supported gate name in sorted order.
func Gates() []string {
	names := make([]string, 0, len(gateTable))
	for name := range gateTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsGate reports whether name is a supported gate.
func IsGate(name string) bool {
	_, ok := gateTable[name]
	return ok
}

// GateArity returns the qubit and parameter counts of a gate; qubits is
// -1 for variadic gates.
func GateArity(name string) (qubits, params int, ok bool) {
	def, ok := gateTable[name]
	return def.qubits, def.params, ok
}

// IsSingleQubit reports whether name is a fixed one-qubit unitary.
func IsSingleQubit(name string) bool {
	def, ok := gateTable[name]
	return ok && def.unitary && def.qubits == 1
}

var invSqrt2 = complex(1/math.Sqrt2, 0)

// SingleQubitMatrix returns the unitary of a one-qubit gate for bound
// parameter values.
func SingleQubitMatrix(name string, p []float64) (Matrix2, bool) {
	switch name {
	case "id":
		return Matrix2{{1, 0}, {0, 1}}, true
	case "x":
		return Matrix2{{0, 1}, {1, 0}}, true
	case "y":
		return Matrix2{{0, -1i}, {1i, 0}}, true
	case "z":
		return Matrix2{{1, 0}, {0, -1}}, true
	case "h":
		return Matrix2{{invSqrt2, invSqrt2}, {invSqrt2, -invSqrt2}}, true
	case "s":
		return Matrix2{{1, 0}, {0, 1i}}, true
	case "sdg":
		return Matrix2{{1, 0}, {0, -1i}}, true
	case "t":
		return Matrix2{{1, 0}, {0, cmplx.Exp(complex(0, math.Pi/4))}}, true
	case "tdg":
		return Matrix2{{1, 0}, {0, cmplx.Exp(complex(0, -math.Pi/4))}}, true
	case "sx":
		return Matrix2{{0.5 + 0.5i, 0.5 - 0.5i}, {0.5 - 0.5i, 0.5 + 0.5i}}, true
	case "sxdg":
		return Matrix2{{0.5 - 0.5i, 0.5 + 0.5i}, {0.5 + 0.5i, 0.5 - 0.5i}}, true
	case "rx":
		c, s := math.Cos(p[0]/2), math.Sin(p[0]/2)
		return Matrix2{{complex(c, 0), complex(0, -s)}, {complex(0, -s), complex(c, 0)}}, true
	case "ry":
		c, s := math.Cos(p[0]/2), math.Sin(p[0]/2)
		return Matrix2{{complex(c, 0), complex(-s, 0)}, {complex(s, 0), complex(c, 0)}}, true
	case "rz":
		return Matrix2{{cmplx.Exp(complex(0, -p[0]/2)), 0}, {0, cmplx.Exp(complex(0, p[0]/2))}}, true
	case "p":
		return Matrix2{{1, 0}, {0, cmplx.Exp(complex(0, p[0]))}}, true
	case "u":
		return U3(p[0], p[1], p[2]), true
	}
	return Matrix2{}, false
}

// U3 is the generic single-qubit rotation U(theta, phi, lambda).
func U3(theta, phi, lambda float64) Matrix2 {
	c, s := math.Cos(theta/2), math.Sin(theta/2)
	return Matrix2{
		{complex(c, 0), -cmplx.Exp(complex(0, lambda)) * complex(s, 0)},
		{cmplx.Exp(complex(0, phi)) * complex(s, 0), cmplx.Exp(complex(0, phi+lambda)) * complex(c, 0)},
	}
}

// Mul returns m*o.
func (m Matrix2) Mul(o Matrix2) Matrix2 {
	var r Matrix2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j]
		}
	}
	return r
}

// ZYZ decomposes m as e^(i*gamma) * U3(theta, phi, lambda).
func (m Matrix2) ZYZ() (theta, phi, lambda float64) {
	det := m[0][0]*m[1][1] - m[0][1]*m[1][0]
	coeff := 1 / cmplx.Sqrt(det)
	v00, v10, v11 := coeff*m[0][0], coeff*m[1][0], coeff*m[1][1]

	theta = 2 * math.Atan2(cmplx.Abs(v10), cmplx.Abs(v00))
	sum := 2 * cmplx.Phase(v11)
	diff := 2 * cmplx.Phase(v10)
	phi = (sum + diff) / 2
	lambda = (sum - diff) / 2
	return theta, phi, lambda
}

// EquivalentUpToPhase reports whether m = e^(i*gamma) * o.
func (m Matrix2) EquivalentUpToPhase(o Matrix2, tol float64) bool {
	var ratio complex128
	found := false
	for i := 0; i < 2 && !found; i++ {
		for j := 0; j < 2; j++ {
			if cmplx.Abs(o[i][j]) > tol {
				ratio = m[i][j] / o[i][j]
				found = true
				break
			}
		}
	}
	if !found || math.Abs(cmplx.Abs(ratio)-1) > tol {
		return false
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if cmplx.Abs(m[i][j]-ratio*o[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// TwoQubitMatrix returns the unitary of a fixed two-qubit gate.
func TwoQubitMatrix(name string) (Matrix4, bool) {
	switch name {
	case "cx":
		// control is the first qubit
		return Matrix4{{1, 0, 0, 0}, {0, 0, 0, 1}, {0, 0, 1, 0}, {0, 1, 0, 0}}, true
	case "cz":
		return Matrix4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, -1}}, true
	case "swap":
		return Matrix4{{1, 0, 0, 0}, {0, 0, 1, 0}, {0, 1, 0, 0}, {0, 0, 0, 1}}, true
	case "ecr":
		s := invSqrt2
		return Matrix4{
			{0, s, 0, 1i * s},
			{s, 0, -1i * s, 0},
			{0, 1i * s, 0, s},
			{-1i * s, 0, s, 0},
		}, true
	}
	return Matrix4{}, false
}

// inverseName maps self-describing inverses; rotation gates negate angles.
var inverseName = map[string]string{
	"s":    "sdg",
	"sdg":  "s",
	"t":    "tdg",
	"tdg":  "t",
	"sx":   "sxdg",
	"sxdg": "sx",
}
