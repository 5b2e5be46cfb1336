package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/cache/memory"
	"github.com/papercomputeco/askbase/pkg/rag"
	"github.com/papercomputeco/askbase/pkg/vector"
)

var _ = Describe("Admin routes", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv(nil)
	})

	It("answers ping", func() {
		status, body := env.do(http.MethodGet, "/ping", nil)
		Expect(status).To(Equal(fiber.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("GET /health", func() {
		It("reports healthy dependencies", func() {
			status, body := env.do(http.MethodGet, "/health", nil)
			Expect(status).To(Equal(fiber.StatusOK))

			resp := decode[HealthResponse](body)
			Expect(resp.Status).To(Equal(statusHealthy))
			Expect(resp.Services["vectorStore"].Status).To(Equal(statusOperational))
			Expect(resp.Services["completion"].Status).To(Equal(statusOperational))
			Expect(*env.completer.LastRequest().MaxTokens).To(Equal(5))
		})

		It("degrades when the vector store is unreachable", func() {
			env.driver.PingErr = vector.ErrConnection

			status, body := env.do(http.MethodGet, "/health", nil)
			Expect(status).To(Equal(fiber.StatusServiceUnavailable))

			resp := decode[HealthResponse](body)
			Expect(resp.Status).To(Equal(statusDegraded))
			Expect(resp.Services["vectorStore"].Status).To(Equal(statusDown))
		})

		It("degrades when the completion provider fails", func() {
			env.completer.Err = errors.New("unauthorized")

			status, body := env.do(http.MethodGet, "/health", nil)
			Expect(status).To(Equal(fiber.StatusServiceUnavailable))
			Expect(decode[HealthResponse](body).Services["completion"].Status).To(Equal(statusDown))
		})
	})

	Describe("GET /v1/admin/stats", func() {
		It("summarizes queries, feedback and documents", func() {
			env.driver.Results = []vector.SearchResult{vacationHit(0.8)}
			env.do(http.MethodPost, "/v1/query", QueryRequest{Question: "How many vacation days?"})
			env.driver.Results = nil
			env.do(http.MethodPost, "/v1/query", QueryRequest{Question: "Where is the gym?"})

			status, body := env.do(http.MethodGet, "/v1/admin/stats", nil)
			Expect(status).To(Equal(fiber.StatusOK))

			resp := decode[StatsResponse](body)
			Expect(resp.Queries.Total).To(Equal(2))
			Expect(resp.Queries.Last24Hours).To(Equal(2))
			Expect(resp.Queries.NoResults).To(Equal(1))
			Expect(resp.Queries.SuccessRate).To(Equal(1.0))
			Expect(resp.Feedback.RatingDistribution).To(HaveLen(5))
			Expect(resp.System.GoVersion).NotTo(BeEmpty())
		})
	})

	It("serves the sanitized configuration", func() {
		env = newTestEnv(func(c *Config, _ *testEnv) {
			c.Settings = map[string]string{"rag.top_k": "5", "completion.api_key": "********"}
		})

		status, body := env.do(http.MethodGet, "/v1/admin/config", nil)
		Expect(status).To(Equal(fiber.StatusOK))

		resp := decode[map[string]any](body)
		Expect(resp["settings"]).To(HaveKeyWithValue("rag.top_k", "5"))
		Expect(resp["settings"]).To(HaveKeyWithValue("completion.api_key", "********"))
	})

	It("clears the answer cache", func() {
		answers := memory.New(10, time.Minute)
		env = newTestEnv(func(c *Config, _ *testEnv) {
			c.Cache = answers
		})
		Expect(answers.Set(context.Background(), "How many vacation days?", &rag.QueryResult{Answer: "cached"})).To(Succeed())
		Expect(answers.Len()).To(Equal(1))

		status, _ := env.do(http.MethodPost, "/v1/admin/clear-cache", nil)
		Expect(status).To(Equal(fiber.StatusOK))
		Expect(answers.Len()).To(BeZero())
	})

	Describe("analytics", func() {
		It("counts queries in the requested period", func() {
			env.do(http.MethodPost, "/v1/query", QueryRequest{Question: "Anything new?"})

			status, body := env.do(http.MethodGet, "/v1/analytics/usage?days=7", nil)
			Expect(status).To(Equal(fiber.StatusOK))

			resp := decode[UsageAnalyticsResponse](body)
			Expect(resp.QueriesInPeriod).To(Equal(1))
			Expect(resp.AllTime.Total).To(Equal(1))
		})

		It("rejects invalid periods", func() {
			status, _ := env.do(http.MethodGet, "/v1/analytics/usage?days=0", nil)
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})

		It("summarizes feedback", func() {
			status, body := env.do(http.MethodGet, "/v1/analytics/feedback", nil)
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(string(body)).To(ContainSubstring(`"totalFeedback":0`))
		})
	})
})

var _ = Describe("MCP endpoint", func() {
	listTools := func(env *testEnv) string {
		req, err := http.NewRequest(http.MethodPost, "/mcp",
			strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")

		resp, err := env.server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return string(body)
	}

	It("lists the ask and search tools", func() {
		body := listTools(newTestEnv(nil))
		Expect(body).To(ContainSubstring(`"name":"ask"`))
		Expect(body).To(ContainSubstring(`"name":"search"`))
	})

	It("lists no tools when MCP is disabled", func() {
		body := listTools(newTestEnv(func(c *Config, _ *testEnv) {
			c.DisableMCP = true
		}))
		Expect(body).To(ContainSubstring(`"result"`))
		Expect(body).NotTo(ContainSubstring(`"name":"ask"`))
		Expect(body).NotTo(ContainSubstring(`"name":"search"`))
	})
})
