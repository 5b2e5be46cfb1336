package rag_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/rag"
)

var _ = Describe("AssembleContext", func() {
	It("numbers documents in input order", func() {
		ctx := rag.AssembleContext([]rag.SearchResult{
			{Title: "Onboarding Guide", Content: "Day one: laptop setup.", Score: 0.7},
			{Title: "Security", Content: "Enable MFA.", Score: 0.9},
		})

		Expect(ctx).To(Equal(
			"[Document 1: Onboarding Guide]\nDay one: laptop setup.\n" +
				"\n---\n\n" +
				"[Document 2: Security]\nEnable MFA.\n",
		))
	})

	It("is empty for no results", func() {
		Expect(rag.AssembleContext(nil)).To(BeEmpty())
	})
})
