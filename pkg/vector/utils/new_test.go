package vectorutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/logger"
	"github.com/papercomputeco/askbase/pkg/vector/inmemory"
	"github.com/papercomputeco/askbase/pkg/vector/sqlitevec"
	vectorutils "github.com/papercomputeco/askbase/pkg/vector/utils"
)

var _ = Describe("NewVectorDriver", func() {
	ctx := context.Background()

	It("builds the in-memory driver", func() {
		d, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.ProviderMemory,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		Expect(d.Close()).To(Succeed())
	})

	It("builds the sqlite driver from a database path", func() {
		d, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.ProviderSQLite,
			Target:       ":memory:",
			Dimensions:   8,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&sqlitevec.Driver{}))
		Expect(d.Close()).To(Succeed())
	})

	It("requires a chroma URL", func() {
		_, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.ProviderChroma,
			Logger:       logger.Nop(),
		})
		Expect(err).To(MatchError(ContainSubstring("chroma URL is required")))
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: "pinecone",
			Logger:       logger.Nop(),
		})
		Expect(err).To(MatchError("unsupported vector store provider: pinecone"))
	})
})
