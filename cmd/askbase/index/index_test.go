package indexcmder

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
)

var _ = Describe("Index Command", func() {
	var (
		tmpDir string
		docs   string
		fake   *fakeAPI
		out    *bytes.Buffer
	)

	newCmd := func(args ...string) *cobra.Command {
		cmd := NewIndexCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .askbase/ config directory")
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--api-target", fake.server.URL, "--config-dir", tmpDir))
		return cmd
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "askbase-index-cmd-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(tmpDir) })
		docs = filepath.Join(tmpDir, "docs")

		fake = newFakeAPI()
		DeferCleanup(fake.Close)
		out = &bytes.Buffer{}
	})

	It("has the expected flags", func() {
		cmd := NewIndexCmd()
		for _, name := range []string{"include", "exclude", "category", "tags", "author", "watch", "api-target"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().Lookup("include").DefValue).To(Equal(DefaultInclude))
	})

	It("requires at least one path", func() {
		cmd := NewIndexCmd()
		cmd.SetArgs([]string{})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		Expect(cmd.Execute()).To(HaveOccurred())
	})

	It("indexes a directory with metadata", func() {
		writeFile(docs, "handbook.md", "Employees get 20 vacation days.")
		writeFile(docs, "benefits/health.txt", "Health insurance starts on day one.")

		cmd := newCmd(docs, "--category", "hr", "--tags", "policy,benefits", "--author", "people-ops")
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Indexed 2 of 2 files"))
		uploads := fake.uploaded()
		Expect(uploads).To(HaveLen(2))
		for _, u := range uploads {
			Expect(u.Category).To(Equal("hr"))
			Expect(u.Tags).To(Equal([]string{"policy", "benefits"}))
			Expect(u.Author).To(Equal("people-ops"))
		}
	})

	It("honors excludes", func() {
		writeFile(docs, "handbook.md", "Employees get 20 vacation days.")
		writeFile(docs, "drafts/remote.md", "Remote work policy draft.")

		Expect(newCmd(docs, "--exclude", "drafts/**").Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Indexed 1 of 1 files"))
	})

	It("reports nothing to index for an empty directory", func() {
		Expect(os.MkdirAll(docs, 0o755)).To(Succeed())

		Expect(newCmd(docs).Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No files to index"))
		Expect(fake.operations()).To(BeEmpty())
	})

	It("fails when some files are rejected", func() {
		writeFile(docs, "handbook.md", "Employees get 20 vacation days.")
		writeFile(docs, "stub.md", "todo")

		err := newCmd(docs).Execute()
		Expect(err).To(MatchError("failed to index 1 of 2 files"))
		Expect(out.String()).To(ContainSubstring("Indexed 1 of 2 files"))
	})

	It("fails for patterns that match nothing", func() {
		err := newCmd(filepath.Join(tmpDir, "*.pdf")).Execute()
		Expect(err).To(MatchError(ContainSubstring("no files match")))
	})
})

var _ = Describe("watchDirs", func() {
	It("combines directory arguments with file parents", func() {
		root, err := os.MkdirTemp("", "askbase-index-dirs-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(root) })

		a := writeFile(root, "a/one.md", "first document")
		b := writeFile(root, "b/two.md", "second document")

		dirs := watchDirs([]string{root, a}, []string{a, b})
		Expect(dirs).To(Equal([]string{root, filepath.Join(root, "a"), filepath.Join(root, "b")}))
	})
})
