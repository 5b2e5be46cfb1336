package similarity_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/vector/similarity"
)

var _ = Describe("Cosine", func() {
	It("scores identical vectors as 1", func() {
		Expect(similarity.Cosine([]float32{1, 2, 3}, []float32{1, 2, 3})).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("scores orthogonal vectors as 0", func() {
		Expect(similarity.Cosine([]float32{1, 0}, []float32{0, 1})).To(BeNumerically("~", 0.0, 1e-9))
	})

	It("scores zero and mismatched vectors as 0", func() {
		Expect(similarity.Cosine([]float32{0, 0}, []float32{1, 1})).To(Equal(0.0))
		Expect(similarity.Cosine([]float32{1}, []float32{1, 1})).To(Equal(0.0))
	})
})

var _ = Describe("Normalize", func() {
	It("returns a unit vector", func() {
		n := similarity.Normalize([]float32{3, 4})
		Expect(n[0]).To(BeNumerically("~", 0.6, 1e-6))
		Expect(n[1]).To(BeNumerically("~", 0.8, 1e-6))
	})

	It("leaves zero vectors alone", func() {
		Expect(similarity.Normalize([]float32{0, 0})).To(Equal([]float32{0, 0}))
	})
})
