package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/git"
)

var _ = Describe("SourceNamer", func() {
	var (
		ctx  context.Context
		root string
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		root, err = os.MkdirTemp("", "askbase-git-*")
		Expect(err).NotTo(HaveOccurred())
		root, err = filepath.EvalSymlinks(root)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(root) })
	})

	It("leaves paths outside a repository unchanged", func() {
		path := filepath.Join(root, "notes.md")
		Expect(git.Root(ctx, root)).To(BeEmpty())
		Expect(git.NewSourceNamer().Name(ctx, path)).To(Equal(path))
	})

	It("names files relative to their repository", func() {
		if _, err := exec.LookPath("git"); err != nil {
			Skip("git is not installed")
		}

		repo := filepath.Join(root, "handbook")
		Expect(os.MkdirAll(filepath.Join(repo, "policies"), 0o755)).To(Succeed())
		gitInit := exec.Command("git", "init", "-q")
		gitInit.Dir = repo
		Expect(gitInit.Run()).To(Succeed())

		Expect(git.Root(ctx, filepath.Join(repo, "policies"))).To(Equal(repo))

		namer := git.NewSourceNamer()
		path := filepath.Join(repo, "policies", "leave.md")
		Expect(namer.Name(ctx, path)).To(Equal("handbook/policies/leave.md"))
		Expect(namer.Name(ctx, filepath.Join(repo, "policies", "travel.md"))).To(Equal("handbook/policies/travel.md"))
	})
})
