package algorithms

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"math/rand"
	"sort"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/san-kum/qlab/internal/backend"
	"github.com/san-kum/qlab/internal/circuits"
	"github.com/san-kum/qlab/internal/quantum"
)

type ShorOptions struct {
	// A fixes the base of the first attempt; 0 draws it at random.
	A           int
	MaxAttempts int
	// Counting overrides the 2*bitlen(N) counting qubits.
	Counting int
	Shots    int
	Seed     int64
	Backend  backend.Backend
}

func (o ShorOptions) withDefaults() ShorOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.Shots <= 0 {
		o.Shots = 8
	}
	if o.Backend == nil {
		o.Backend = backend.NewStatevector(o.Seed)
	}
	return o
}

// Method names the step that produced the factors.
type Method string

const (
	MethodEven         Method = "even"
	MethodPrimePower   Method = "prime_power"
	MethodGCD          Method = "gcd"
	MethodOrderFinding Method = "order_finding"
)

// Attempt records one base a and what order finding made of it.
type Attempt struct {
	A        int
	Measured []int
	Period   int
	Success  bool
}

type ShorResult struct {
	N        int
	Factors  [2]int
	Method   Method
	A        int
	Period   int
	Qubits   int
	Attempts []Attempt
}

// Factor finds a non-trivial factorisation of n. Classical shortcuts
// run first; otherwise the order of a random base is estimated with the
// order-finding circuit on opts.Backend.
func Factor(ctx context.Context, n int, opts ShorOptions) (*ShorResult, error) {
	if n < 4 {
		return nil, fmt.Errorf("%w: %d", ErrTooSmall, n)
	}
	res := &ShorResult{N: n}
	if n%2 == 0 {
		res.Factors, res.Method = [2]int{2, n / 2}, MethodEven
		return res, nil
	}
	if isPrime(n) {
		return nil, fmt.Errorf("%w: %d", ErrPrime, n)
	}
	if b, ok := primePowerBase(n); ok {
		res.Factors, res.Method = [2]int{b, n / b}, MethodPrimePower
		return res, nil
	}

	opts = opts.withDefaults()
	counting := opts.Counting
	if counting <= 0 {
		counting = 2 * bits.Len(uint(n))
	}
	res.Qubits = counting + bits.Len(uint(n))
	if res.Qubits > quantum.MaxQubits || res.Qubits > backend.NumQubits(opts.Backend) {
		return nil, fmt.Errorf("%w: factoring %d needs %d qubits", quantum.ErrTooManyQubits, n, res.Qubits)
	}

	logger := log.FromContext(ctx)
	rng := rand.New(rand.NewSource(opts.Seed))
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a := opts.A
		if attempt > 0 || a == 0 {
			a = 2 + rng.Intn(n-3)
		}
		if g := gcd(a, n); g > 1 {
			res.Factors, res.Method, res.A = [2]int{g, n / g}, MethodGCD, a
			sortPair(&res.Factors)
			return res, nil
		}

		att, err := findOrder(ctx, a, n, counting, opts)
		if err != nil {
			return nil, err
		}
		res.Attempts = append(res.Attempts, att)
		logger.Debug("order finding", "a", a, "measured", att.Measured, "period", att.Period)
		if att.Period == 0 || att.Period%2 == 1 {
			continue
		}
		half := modPow(a, att.Period/2, n)
		if half == n-1 {
			continue
		}
		for _, cand := range []int{gcd(half-1, n), gcd(half+1, n)} {
			if cand > 1 && cand < n {
				res.Attempts[len(res.Attempts)-1].Success = true
				res.Factors = [2]int{cand, n / cand}
				res.Method, res.A, res.Period = MethodOrderFinding, a, att.Period
				sortPair(&res.Factors)
				return res, nil
			}
		}
	}
	return res, fmt.Errorf("%w: %d after %d attempts", ErrNoFactor, n, opts.MaxAttempts)
}

func findOrder(ctx context.Context, a, n, counting int, opts ShorOptions) (Attempt, error) {
	att := Attempt{A: a}
	c, err := circuits.OrderFinding(a, n, counting)
	if err != nil {
		return att, err
	}
	counts, err := opts.Backend.Run(ctx, c, opts.Shots)
	if err != nil {
		return att, err
	}

	keys := counts.Keys()
	sort.SliceStable(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
	for _, k := range keys {
		y, err := strconv.ParseUint(k, 2, 64)
		if err != nil {
			return att, err
		}
		att.Measured = append(att.Measured, int(y))
		if y == 0 {
			continue
		}
		_, r := ContinuedFraction(int(y), 1<<counting, n)
		// the convergent may be a divisor of the order
		for m := r; m > 0 && m <= n; m += r {
			if modPow(a, m, n) == 1 {
				att.Period = m
				return att, nil
			}
		}
	}
	return att, nil
}

// ContinuedFraction returns the last convergent p/q of num/den with
// q <= limit.
func ContinuedFraction(num, den, limit int) (p, q int) {
	p0, q0, p1, q1 := 0, 1, 1, 0
	for den != 0 {
		a := num / den
		p2, q2 := a*p1+p0, a*q1+q0
		if q2 > limit {
			break
		}
		p0, q0, p1, q1 = p1, q1, p2, q2
		num, den = den, num-a*den
	}
	return p1, q1
}

// PeriodicFunction evaluates f(x) = a^x mod n for x in [0, count).
func PeriodicFunction(a, n, count int) []int {
	out := make([]int, count)
	for x := range out {
		out[x] = modPow(a, x, n)
	}
	return out
}

// Order returns the smallest r > 0 with a^r = 1 mod n, or 0 when a and
// n share a factor.
func Order(a, n int) int {
	if gcd(a, n) != 1 {
		return 0
	}
	v := a % n
	for r := 1; r <= n; r++ {
		if v == 1 {
			return r
		}
		v = v * a % n
	}
	return 0
}

// QFTPeaks simulates the order-finding circuit and returns the exact
// distribution of the counting register.
func QFTPeaks(a, n, counting int) ([]float64, error) {
	c, err := circuits.OrderFinding(a, n, counting)
	if err != nil {
		return nil, err
	}
	st, err := quantum.Simulate(c.RemoveFinalMeasurements())
	if err != nil {
		return nil, err
	}
	reg := make([]int, counting)
	for i := range reg {
		reg[i] = i
	}
	return st.Marginal(reg), nil
}

// IdealPeaks spreads probability evenly over the multiples of 2^n/r,
// the textbook picture of a noiseless period-r measurement.
func IdealPeaks(n, r int) []float64 {
	size := 1 << n
	out := make([]float64, size)
	if r < 1 {
		return out
	}
	step := size / r
	if step < 1 {
		step = 1
	}
	hits := 0
	for k := 0; k < size; k += step {
		hits++
	}
	for k := 0; k < size; k += step {
		out[k] = 1 / float64(hits)
	}
	return out
}

// PeakSpectrum is the interference pattern of r equally weighted phases
// after the QFT on n qubits, for a period r and a coprime s:
// |1/r sum_x exp(2 pi i x (k s/r - s 2^n/r) / 2^n)|^2.
func PeakSpectrum(n, r, s int) []float64 {
	size := 1 << n
	dim := float64(size)
	out := make([]float64, size)
	for k := range out {
		kk := float64(k) * float64(s) / float64(r)
		var re, im float64
		for x := 0; x < r; x++ {
			phase := 2 * math.Pi * float64(x) * (kk - float64(s)*dim/float64(r)) / dim
			re += math.Cos(phase)
			im += math.Sin(phase)
		}
		re /= float64(r)
		im /= float64(r)
		out[k] = re*re + im*im
	}
	return out
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

func modPow(base, exp, mod int) int {
	result := 1 % mod
	base %= mod
	for exp > 0 {
		if exp&1 == 1 {
			result = result * base % mod
		}
		base = base * base % mod
		exp >>= 1
	}
	return result
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// primePowerBase reports b when n = b^k for some k >= 2.
func primePowerBase(n int) (int, bool) {
	for k := bits.Len(uint(n)); k >= 2; k-- {
		b := int(math.Round(math.Pow(float64(n), 1/float64(k))))
		for _, cand := range []int{b - 1, b, b + 1} {
			if cand < 2 {
				continue
			}
			v := 1
			for i := 0; i < k && v <= n; i++ {
				v *= cand
			}
			if v == n {
				return cand, true
			}
		}
	}
	return 0, false
}

func sortPair(p *[2]int) {
	if p[0] > p[1] {
		p[0], p[1] = p[1], p[0]
	}
}
