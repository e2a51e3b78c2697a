package algorithms

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FFT is a radix-2 Cooley-Tukey transform; len(data) must be a power of
// two.
func FFT(data []float64) ([]complex128, error) {
	n := len(data)
	if n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: fft length %d is not a power of two", ErrInvalidInput, n)
	}
	return fft(data), nil
}

func fft(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}
	feven := fft(even)
	fodd := fft(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}
	return result
}

// ClassicalSpectrum is the normalised power spectrum of the indicator
// f(x) == f(0) over 2^bits samples of a^x mod n. Its peaks sit where the
// order-finding circuit's counting register peaks, which makes it a
// classical cross-check of QFTPeaks.
func ClassicalSpectrum(a, n, bits int) ([]float64, error) {
	if n < 2 || bits < 1 {
		return nil, fmt.Errorf("%w: spectrum of %d^x mod %d on %d bits", ErrInvalidInput, a, n, bits)
	}
	f := PeriodicFunction(a, n, 1<<bits)
	data := make([]float64, len(f))
	for x, v := range f {
		if v == f[0] {
			data[x] = 1
		}
	}
	coeffs, err := FFT(data)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(coeffs))
	total := 0.0
	for i, c := range coeffs {
		p := real(c)*real(c) + imag(c)*imag(c)
		out[i] = p
		total += p
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out, nil
}
