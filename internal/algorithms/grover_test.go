package algorithms_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/qlab/internal/algorithms"
	"github.com/san-kum/qlab/internal/backend"
)

var _ = Describe("Grover", func() {
	It("picks floor(pi/4 sqrt(N/M)) iterations", func() {
		Expect(algorithms.OptimalIterations(2, 1)).To(Equal(1))
		Expect(algorithms.OptimalIterations(4, 1)).To(Equal(3))
		Expect(algorithms.OptimalIterations(6, 4)).To(Equal(3))
		Expect(algorithms.OptimalIterations(3, 0)).To(Equal(0))
	})

	Context("on two qubits with |11> marked", func() {
		var res *algorithms.GroverResult

		BeforeEach(func() {
			var err error
			res, err = algorithms.Grover(2, []int{3}, 0)
			Expect(err).NotTo(HaveOccurred())
		})

		It("records the textbook stages", func() {
			Expect(res.Iterations).To(Equal(1))
			Expect(res.Stages).To(HaveLen(3))

			initial, oracle, diffusion := res.Stages[0], res.Stages[1], res.Stages[2]
			for i := range initial.Amplitudes {
				Expect(initial.Amplitudes[i]).To(BeNumerically("~", 0.5, 1e-9))
			}
			Expect(oracle.Amplitudes).To(HaveLen(4))
			Expect(oracle.Amplitudes[0]).To(BeNumerically("~", 0.5, 1e-9))
			Expect(oracle.Amplitudes[3]).To(BeNumerically("~", -0.5, 1e-9))
			Expect(oracle.Mean).To(BeNumerically("~", 0.25, 1e-9))
			Expect(diffusion.Amplitudes[3]).To(BeNumerically("~", 1, 1e-9))
			Expect(diffusion.Amplitudes[0]).To(BeNumerically("~", 0, 1e-9))
		})

		It("finds the marked state with certainty", func() {
			Expect(res.Success).To(BeNumerically("~", 1, 1e-9))
			Expect(res.Found).To(Equal(3))
		})

		It("matches inversion about the mean", func() {
			inverted := algorithms.InvertAboutMean(res.Stages[1].Amplitudes)
			for i, a := range inverted {
				Expect(a).To(BeNumerically("~", res.Stages[2].Amplitudes[i], 1e-9))
			}
			Expect(algorithms.InvertAboutMean([]float64{0.5, 0.5, 0.5, -0.5})).To(Equal([]float64{0, 0, 0, 1}))
		})

		It("builds a circuit the sampler agrees with", func() {
			counts, err := backend.NewStatevector(1).Run(context.Background(), res.Circuit, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(HaveKeyWithValue("11", 100))
		})
	})

	It("amplifies several marked states on four qubits", func() {
		res, err := algorithms.Grover(4, []int{5, 10, 5}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Marked).To(Equal([]int{5, 10}))
		Expect(res.Iterations).To(Equal(2))
		Expect(res.Success).To(BeNumerically(">", 0.9))
		Expect(res.Stages).To(HaveLen(5))
	})

	DescribeTable("rejects bad input",
		func(n int, marked []int) {
			_, err := algorithms.Grover(n, marked, 0)
			Expect(err).To(MatchError(algorithms.ErrInvalidInput))
		},
		Entry("no qubits", 0, []int{0}),
		Entry("nothing marked", 2, nil),
		Entry("marked outside register", 2, []int{4}),
		Entry("everything marked", 1, []int{0, 1}),
	)
})
