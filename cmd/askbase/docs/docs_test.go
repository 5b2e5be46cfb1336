package docscmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/askbase/api"
	docscmder "github.com/papercomputeco/askbase/cmd/askbase/docs"
	"github.com/papercomputeco/askbase/pkg/ingest"
	"github.com/papercomputeco/askbase/pkg/llm"
)

var _ = Describe("Docs Command", func() {
	var (
		tmpDir  string
		server  *httptest.Server
		out     *bytes.Buffer
		mu      sync.Mutex
		deleted []string
	)

	newCmd := func(args ...string) *cobra.Command {
		cmd := docscmder.NewDocsCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .askbase/ config directory")
		cmd.SetOut(out)
		cmd.SetArgs(append(args, "--api-target", server.URL, "--config-dir", tmpDir))
		return cmd
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "askbase-docs-test-*")
		Expect(err).NotTo(HaveOccurred())
		out = &bytes.Buffer{}
		deleted = nil

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")

			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/v1/documents":
				_ = json.NewEncoder(w).Encode(api.ListDocumentsResponse{
					Documents: []ingest.DocumentInfo{
						{ID: "handbook-1", Title: "Employee Handbook", Category: "hr", Tags: []string{"policy", "leave"}},
						{ID: "expenses-2", Title: "Expense Policy", Category: "finance"},
					},
					Count: 2,
				})
			case r.Method == http.MethodDelete:
				id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
				if id == "missing" {
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(llm.ErrorResponse{Error: "Internal Server Error", Message: "failed to update knowledge base"})
					return
				}
				mu.Lock()
				deleted = append(deleted, id)
				mu.Unlock()
				_ = json.NewEncoder(w).Encode(api.MessageResponse{Message: "Document deleted successfully"})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
		os.RemoveAll(tmpDir)
	})

	deletedIDs := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), deleted...)
	}

	It("has list and rm subcommands", func() {
		cmd := docscmder.NewDocsCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("list", "rm"))
	})

	It("lists documents", func() {
		Expect(newCmd("list").Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("2 documents"))
		Expect(out.String()).To(ContainSubstring("Employee Handbook"))
		Expect(out.String()).To(ContainSubstring("policy, leave"))
		Expect(out.String()).To(ContainSubstring("expenses-2"))
	})

	It("removes documents", func() {
		Expect(newCmd("rm", "handbook-1", "expenses-2").Execute()).To(Succeed())
		Expect(deletedIDs()).To(Equal([]string{"handbook-1", "expenses-2"}))
	})

	It("reports documents that could not be removed", func() {
		err := newCmd("rm", "handbook-1", "missing").Execute()
		Expect(err).To(MatchError("failed to remove 1 of 2 documents"))
		Expect(deletedIDs()).To(Equal([]string{"handbook-1"}))
	})

	It("requires at least one id for rm", func() {
		Expect(newCmd("rm").Execute()).To(HaveOccurred())
	})
})
