package initcmder_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/askbase/cmd/askbase/init"
	"github.com/papercomputeco/askbase/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "askbase-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("creates a .askbase directory with a default config.toml", func() {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".askbase"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.API.Listen).To(Equal(":8081"))
		Expect(cfg.Completion.Provider).To(Equal("ollama"))
		Expect(cfg.RAG.TopK).To(Equal(uint(5)))
	})

	It("does not overwrite existing contents when already initialized", func() {
		dir := filepath.Join(tmpDir, ".askbase")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())

		testFile := filepath.Join(dir, "last_answer.json")
		Expect(os.WriteFile(testFile, []byte(`{"question_id":"abc"}`), 0o644)).To(Succeed())

		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		data, err := os.ReadFile(testFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"question_id":"abc"}`))

		_, err = os.Stat(filepath.Join(dir, "config.toml"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	Describe("--preset with provider presets", func() {
		It("creates config.toml with the openai preset", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "openai"})
			Expect(cmd.Execute()).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Completion.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		})

		It("creates config.toml with the groq preset", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "groq"})
			Expect(cmd.Execute()).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Completion.Target).To(Equal("https://api.groq.com/openai/v1"))
			Expect(cfg.RAG.Retriever).To(Equal("keyword"))
		})

		It("rejects unknown preset names without creating a directory", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "invalid-provider"})
			err := cmd.Execute()
			Expect(err).To(MatchError(ContainSubstring("unknown preset")))

			_, err = os.Stat(filepath.Join(tmpDir, ".askbase"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("overwrites an existing config.toml", func() {
			cmd1 := initcmder.NewInitCmd()
			cmd1.SetArgs([]string{"--preset", "openai"})
			Expect(cmd1.Execute()).To(Succeed())

			cmd2 := initcmder.NewInitCmd()
			cmd2.SetArgs([]string{"--preset", "ollama"})
			Expect(cmd2.Execute()).To(Succeed())

			Expect(loadConfig(tmpDir).Completion.Provider).To(Equal("ollama"))
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes a remote config.toml", func() {
			remoteCfg := `version = 0

[completion]
provider = "anthropic"
model = "claude-sonnet-4-5"

[rag]
top_k = 8
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", server.URL})
			Expect(cmd.Execute()).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Completion.Provider).To(Equal("anthropic"))
			Expect(cfg.RAG.TopK).To(Equal(uint(8)))
		})

		It("returns an error for non-200 responses", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", server.URL})
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("HTTP 404")))
		})

		It("returns an error for invalid TOML", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", server.URL})
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("parsing")))
		})

		It("returns an error for an unreachable URL", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "http://127.0.0.1:1"})
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("fetching remote config")))
		})
	})
})

// loadConfig reads and parses config.toml from the .askbase directory
// within baseDir.
func loadConfig(baseDir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(baseDir, ".askbase", "config.toml"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	ExpectWithOffset(1, toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}
