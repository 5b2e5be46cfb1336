package postgres_test

import (
	"context"
	"database/sql"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/storage"
	"github.com/papercomputeco/askbase/pkg/storage/postgres"
	"github.com/papercomputeco/askbase/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("ASKBASE_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("ASKBASE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = storagetest.DescribeDriver("PostgreSQL", func() storage.Driver {
	ctx := context.Background()
	dsn := connStr()
	d, err := postgres.NewDriver(ctx, dsn)
	Expect(err).NotTo(HaveOccurred())

	// Each spec starts from empty tables.
	db, err := sql.Open("pgx", dsn)
	Expect(err).NotTo(HaveOccurred())
	defer db.Close()
	_, err = db.ExecContext(ctx, "TRUNCATE feedback, queries")
	Expect(err).NotTo(HaveOccurred())
	return d
})

var _ = Describe("NewDriver", func() {
	It("fails for an unreachable server", func() {
		_, err := postgres.NewDriver(context.Background(), "postgres://askbase@127.0.0.1:1/askbase?sslmode=disable&connect_timeout=1")
		Expect(err).To(MatchError(ContainSubstring("failed to ping database")))
	})
})
