package transpile

import (
	"math"
	"sort"

	"github.com/san-kum/qlab/internal/quantum"
)

var selfInverse = map[string]bool{
	"x": true, "y": true, "z": true, "h": true,
	"cx": true, "cz": true, "swap": true, "ecr": true,
}

var inversePair = map[string]string{
	"sx": "sxdg", "sxdg": "sx",
	"s": "sdg", "sdg": "s",
	"t": "tdg", "tdg": "t",
}

var mergeable = map[string]bool{"rz": true, "rx": true, "ry": true, "p": true}

const maxPasses = 64

func optimize(ops []quantum.Op, target Target, level int) []quantum.Op {
	if level <= 0 {
		return ops
	}
	passes := level
	if level >= 3 {
		passes = maxPasses
	}
	for i := 0; i < passes; i++ {
		before := len(ops)
		ops = dropIdentities(ops)
		ops = mergeRotations(ops)
		ops = cancelInverses(ops)
		if level >= 2 {
			ops = fuseSingleQubitRuns(ops, target)
		}
		if level >= 3 && len(ops) == before {
			break
		}
	}
	return dropIdentities(ops)
}

func dropIdentities(in []quantum.Op) []quantum.Op {
	out := in[:0:0]
	for _, o := range in {
		if o.Name == "id" {
			continue
		}
		if mergeable[o.Name] && o.Params[0].IsFixed() && o.Params[0].IsZeroMod(2*math.Pi) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// next returns the first live op after i sharing a qubit with ops[i].
func next(ops []quantum.Op, alive []bool, i int) int {
	for j := i + 1; j < len(ops); j++ {
		if !alive[j] {
			continue
		}
		if overlaps(ops[i].Qubits, ops[j].Qubits) {
			return j
		}
	}
	return -1
}

func overlaps(a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func sameQubits(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func symmetric(name string) bool {
	return name == "cz" || name == "swap"
}

func compact(ops []quantum.Op, alive []bool) []quantum.Op {
	out := make([]quantum.Op, 0, len(ops))
	for i, o := range ops {
		if alive[i] {
			out = append(out, o)
		}
	}
	return out
}

func allAlive(n int) []bool {
	alive := make([]bool, n)
	for i := range alive {
		alive[i] = true
	}
	return alive
}

// mergeRotations folds consecutive rotations about the same axis.
func mergeRotations(ops []quantum.Op) []quantum.Op {
	alive := allAlive(len(ops))
	for i := range ops {
		if !alive[i] || !mergeable[ops[i].Name] {
			continue
		}
		for {
			j := next(ops, alive, i)
			if j < 0 || ops[j].Name != ops[i].Name || !sameQubits(ops[i].Qubits, ops[j].Qubits) {
				break
			}
			sum, ok := ops[i].Params[0].Add(ops[j].Params[0])
			if !ok {
				break
			}
			ops[i].Params = []quantum.Angle{sum}
			alive[j] = false
		}
	}
	return compact(ops, alive)
}

// cancelInverses removes adjacent gate pairs whose product is identity.
func cancelInverses(ops []quantum.Op) []quantum.Op {
	alive := allAlive(len(ops))
	for i := range ops {
		if !alive[i] {
			continue
		}
		j := next(ops, alive, i)
		if j < 0 {
			continue
		}
		a, b := ops[i], ops[j]
		same := sameQubits(a.Qubits, b.Qubits) ||
			(symmetric(a.Name) && len(b.Qubits) == 2 && a.Qubits[0] == b.Qubits[1] && a.Qubits[1] == b.Qubits[0])
		if !same {
			continue
		}
		if (selfInverse[a.Name] && a.Name == b.Name) || inversePair[a.Name] == b.Name {
			alive[i], alive[j] = false, false
		}
	}
	return compact(ops, alive)
}

// fuseSingleQubitRuns collapses runs of fixed single-qubit gates into one
// resynthesized sequence when that is shorter.
func fuseSingleQubitRuns(ops []quantum.Op, target Target) []quantum.Op {
	out := make([]quantum.Op, 0, len(ops))
	runs := make(map[int][]quantum.Op)

	flush := func(q int) {
		run := runs[q]
		delete(runs, q)
		if len(run) < 2 {
			out = append(out, run...)
			return
		}
		m := quantum.Matrix2{{1, 0}, {0, 1}}
		for _, o := range run {
			values, _ := fixedParams(o)
			g, _ := quantum.SingleQubitMatrix(o.Name, values)
			m = g.Mul(m)
		}
		seq, err := synthesizeMatrix(m, q, target)
		if err != nil || len(seq) >= len(run) {
			out = append(out, run...)
			return
		}
		out = append(out, seq...)
	}

	for _, o := range ops {
		if quantum.IsSingleQubit(o.Name) {
			if _, ok := fixedParams(o); ok {
				q := o.Qubits[0]
				runs[q] = append(runs[q], o)
				continue
			}
		}
		for _, q := range o.Qubits {
			if _, ok := runs[q]; ok {
				flush(q)
			}
		}
		if o.Name == "barrier" && len(o.Qubits) == 0 {
			for _, q := range sortedKeys(runs) {
				flush(q)
			}
		}
		out = append(out, o)
	}
	for _, q := range sortedKeys(runs) {
		flush(q)
	}
	return out
}

func sortedKeys(m map[int][]quantum.Op) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
