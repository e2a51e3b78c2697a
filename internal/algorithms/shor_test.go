package algorithms_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/qlab/internal/algorithms"
	"github.com/san-kum/qlab/internal/quantum"
)

var _ = Describe("Shor", func() {
	ctx := context.Background()

	It("factors 15 through order finding with a = 7", func() {
		res, err := algorithms.Factor(ctx, 15, algorithms.ShorOptions{A: 7, Seed: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Method).To(Equal(algorithms.MethodOrderFinding))
		Expect(res.Factors).To(Equal([2]int{3, 5}))
		Expect(res.Period).To(Equal(4))
		Expect(res.Qubits).To(Equal(12))
		Expect(res.Attempts).NotTo(BeEmpty())
		Expect(res.Attempts[len(res.Attempts)-1].Success).To(BeTrue())
	})

	It("always ends with a valid factorisation of 15", func() {
		for seed := int64(0); seed < 4; seed++ {
			res, err := algorithms.Factor(ctx, 15, algorithms.ShorOptions{Seed: seed})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Factors[0] * res.Factors[1]).To(Equal(15))
			Expect(res.Factors[0]).To(Equal(3))
		}
	})

	DescribeTable("classical shortcuts",
		func(n int, method algorithms.Method, factors [2]int) {
			res, err := algorithms.Factor(ctx, n, algorithms.ShorOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Method).To(Equal(method))
			Expect(res.Factors).To(Equal(factors))
		},
		Entry("even", 22, algorithms.MethodEven, [2]int{2, 11}),
		Entry("prime square", 49, algorithms.MethodPrimePower, [2]int{7, 7}),
		Entry("prime cube", 27, algorithms.MethodPrimePower, [2]int{3, 9}),
	)

	It("uses a lucky gcd", func() {
		res, err := algorithms.Factor(ctx, 21, algorithms.ShorOptions{A: 6})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Method).To(Equal(algorithms.MethodGCD))
		Expect(res.Factors).To(Equal([2]int{3, 7}))
	})

	It("rejects small numbers, primes and oversized registers", func() {
		_, err := algorithms.Factor(ctx, 3, algorithms.ShorOptions{})
		Expect(err).To(MatchError(algorithms.ErrTooSmall))

		_, err = algorithms.Factor(ctx, 13, algorithms.ShorOptions{})
		Expect(err).To(MatchError(algorithms.ErrPrime))

		_, err = algorithms.Factor(ctx, 15*17*19, algorithms.ShorOptions{})
		Expect(err).To(MatchError(quantum.ErrTooManyQubits))
	})

	It("expands fractions", func() {
		p, q := algorithms.ContinuedFraction(64, 256, 15)
		Expect([]int{p, q}).To(Equal([]int{1, 4}))
		p, q = algorithms.ContinuedFraction(427, 1024, 21)
		Expect([]int{p, q}).To(Equal([]int{5, 12}))
	})
})

var _ = Describe("period finding data", func() {
	It("evaluates 2^x mod 15", func() {
		Expect(algorithms.PeriodicFunction(2, 15, 8)).To(Equal([]int{1, 2, 4, 8, 1, 2, 4, 8}))
		Expect(algorithms.Order(2, 15)).To(Equal(4))
		Expect(algorithms.Order(7, 15)).To(Equal(4))
		Expect(algorithms.Order(3, 15)).To(Equal(0))
	})

	It("simulates peaks at multiples of 2^t/r", func() {
		peaks, err := algorithms.QFTPeaks(2, 15, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(peaks).To(HaveLen(16))
		for k, p := range peaks {
			if k%4 == 0 {
				Expect(p).To(BeNumerically("~", 0.25, 1e-9))
			} else {
				Expect(p).To(BeNumerically("~", 0, 1e-9))
			}
		}
	})

	It("agrees with the classical spectrum and the ideal picture", func() {
		classical, err := algorithms.ClassicalSpectrum(2, 15, 4)
		Expect(err).NotTo(HaveOccurred())
		ideal := algorithms.IdealPeaks(4, 4)
		for k := range ideal {
			Expect(classical[k]).To(BeNumerically("~", ideal[k], 1e-9))
		}
	})

	It("draws the r=5 interference spectrum", func() {
		spec := algorithms.PeakSpectrum(6, 5, 7)
		Expect(spec).To(HaveLen(64))
		Expect(spec[0]).To(BeNumerically("~", 0, 1e-9))
		peak := 0.0
		for _, p := range spec {
			Expect(p).To(And(BeNumerically(">=", 0), BeNumerically("<=", 1+1e-9)))
			peak = max(peak, p)
		}
		Expect(peak).To(BeNumerically(">", 0.99))
		Expect(spec[18]).To(Equal(peak))
	})

	It("rejects FFT lengths that are not powers of two", func() {
		_, err := algorithms.FFT(make([]float64, 6))
		Expect(err).To(MatchError(algorithms.ErrInvalidInput))
	})
})

var _ = Describe("BitsVsQubits", func() {
	It("tabulates the first character", func() {
		t, err := algorithms.BitsVsQubits("timjavornik")
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Chars).To(Equal(11))
		Expect(t.Bits).To(Equal(88))
		Expect(t.Qubits).To(Equal(88))
		Expect(t.Binary).To(Equal("01110100"))
		Expect(t.Rows).To(HaveLen(8))
		Expect(t.Rows[1].Ket).To(Equal("|1>"))
		Expect(t.Rows[4].Ket).To(Equal("|0>"))
		Expect(t.Rows[5].Bit).To(Equal(byte('1')))
	})

	It("rejects an empty word", func() {
		_, err := algorithms.BitsVsQubits("")
		Expect(err).To(MatchError(algorithms.ErrEmptyWord))
	})
})
