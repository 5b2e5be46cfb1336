package storageutils_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/logger"
	"github.com/papercomputeco/askbase/pkg/storage/inmemory"
	"github.com/papercomputeco/askbase/pkg/storage/sqlite"
	storageutils "github.com/papercomputeco/askbase/pkg/storage/utils"
)

var _ = Describe("NewStorageDriver", func() {
	It("defaults to in-memory storage", func() {
		d, err := storageutils.NewStorageDriver(context.Background(), &storageutils.NewStorageDriverOpts{
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("opens sqlite when a path is set", func() {
		d, err := storageutils.NewStorageDriver(context.Background(), &storageutils.NewStorageDriverOpts{
			SQLitePath: filepath.Join(GinkgoT().TempDir(), "askbase.db"),
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&sqlite.Driver{}))
		Expect(d.Close()).To(Succeed())
	})
})
