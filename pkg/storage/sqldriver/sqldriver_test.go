package sqldriver

import (
	"context"
	"database/sql"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/storage"
)

var _ = Describe("Driver", func() {
	var (
		ctx context.Context
		db  *sql.DB
		d   *Driver
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = sql.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1)
		_, err = db.ExecContext(ctx, "PRAGMA foreign_keys = ON")
		Expect(err).NotTo(HaveOccurred())

		d, err = New(ctx, entsql.OpenDB(dialect.SQLite, db))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(d.Close()).To(Succeed())
	})

	tableNames := func() []string {
		rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
		Expect(err).NotTo(HaveOccurred())
		defer rows.Close()

		var names []string
		for rows.Next() {
			var name string
			Expect(rows.Scan(&name)).To(Succeed())
			names = append(names, name)
		}
		return names
	}

	It("creates the queries and feedback tables", func() {
		Expect(tableNames()).To(ContainElements("queries", "feedback"))
	})

	It("migrates an existing database without losing rows", func() {
		Expect(d.RecordQuery(ctx, &storage.QueryRecord{
			ID: "q-1", Question: "how?", Outcome: storage.OutcomeAnswered,
		})).To(Succeed())

		Expect(d.Migrate(ctx)).To(Succeed())

		rec, err := d.GetQuery(ctx, "q-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Question).To(Equal("how?"))
		Expect(rec.SourceIDs).To(BeEmpty())
	})

	It("removes feedback together with its query", func() {
		Expect(d.RecordQuery(ctx, &storage.QueryRecord{ID: "q-1", Outcome: storage.OutcomeAnswered})).To(Succeed())
		Expect(d.SaveFeedback(ctx, &storage.Feedback{QuestionID: "q-1", Rating: 4, Helpful: true})).To(Succeed())

		_, err := db.ExecContext(ctx, "DELETE FROM queries WHERE id = ?", "q-1")
		Expect(err).NotTo(HaveOccurred())

		fb, err := d.ListFeedback(ctx, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(fb).To(BeEmpty())
	})

	It("filters usage counts with builder predicates", func() {
		old := time.Now().Add(-48 * time.Hour)
		Expect(d.RecordQuery(ctx, &storage.QueryRecord{ID: "a", Outcome: storage.OutcomeAnswered, CreatedAt: old, TotalTokens: 10})).To(Succeed())
		Expect(d.RecordQuery(ctx, &storage.QueryRecord{ID: "b", Outcome: storage.OutcomeNoResults, TotalTokens: 5})).To(Succeed())
		Expect(d.RecordQuery(ctx, &storage.QueryRecord{ID: "c", Outcome: storage.OutcomeFailed})).To(Succeed())

		stats, err := d.UsageStats(ctx, time.Now().Add(-24*time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.TotalQueries).To(Equal(3))
		Expect(stats.QueriesSince).To(Equal(2))
		Expect(stats.NoResultQueries).To(Equal(1))
		Expect(stats.FailedQueries).To(Equal(1))
		Expect(stats.TotalTokens).To(Equal(15))
	})
})
