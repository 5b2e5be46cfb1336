package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/cache"
)

var _ = Describe("Key", func() {
	It("ignores case and surrounding or repeated whitespace", func() {
		Expect(cache.Key("  How does   Onboarding work? ")).To(Equal(cache.Key("how does onboarding work?")))
	})

	It("differs for different questions", func() {
		Expect(cache.Key("refund policy")).NotTo(Equal(cache.Key("vacation policy")))
	})

	It("is a 32 character hex string", func() {
		Expect(cache.Key("anything")).To(MatchRegexp(`^[0-9a-f]{32}$`))
	})
})
