package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/llm"
	"github.com/papercomputeco/askbase/pkg/llm/provider"
	"github.com/papercomputeco/askbase/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/askbase/pkg/logger"
)

var _ = Describe("Anthropic Client", func() {
	var (
		server   *httptest.Server
		received map[string]any
		headers  http.Header
		status   int
		reply    string
		client   provider.Completer
	)

	BeforeEach(func() {
		received = nil
		status = http.StatusOK
		reply = `{
			"id": "msg_123",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Reset it from the login page [Document 1]."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 120, "output_tokens": 14}
		}`

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			headers = r.Header.Clone()
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))

		var err error
		client, err = anthropic.NewClient(anthropic.Config{BaseURL: server.URL, APIKey: "sk-ant-test"}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("returns 'anthropic' as its name", func() {
		Expect(client.Name()).To(Equal("anthropic"))
	})

	It("requires an API key", func() {
		_, err := anthropic.NewClient(anthropic.Config{}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("sends the system prompt as a top-level field with auth headers", func() {
		maxTokens := 1500
		temp := 0.3
		req := &llm.ChatRequest{
			Model: "claude-sonnet-4-5",
			Messages: []llm.Message{
				llm.NewTextMessage("system", "Answer from the documents."),
				llm.NewTextMessage("user", "How do I reset my password?"),
			},
			MaxTokens:   &maxTokens,
			Temperature: &temp,
		}

		resp, err := client.Complete(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())

		Expect(headers.Get("x-api-key")).To(Equal("sk-ant-test"))
		Expect(headers.Get("anthropic-version")).To(Equal(anthropic.APIVersion))
		Expect(received["system"]).To(Equal("Answer from the documents."))
		Expect(received["max_tokens"]).To(BeNumerically("==", 1500))
		Expect(received["temperature"]).To(BeNumerically("~", 0.3, 0.001))
		Expect(received["messages"]).To(HaveLen(1))

		Expect(resp.Message.GetText()).To(Equal("Reset it from the login page [Document 1]."))
		Expect(resp.StopReason).To(Equal("end_turn"))
		Expect(resp.Usage.TotalTokens).To(Equal(134))
	})

	It("wraps API errors with ErrCompletion", func() {
		status = http.StatusUnauthorized
		reply = `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`

		_, err := client.Complete(context.Background(), &llm.ChatRequest{
			Model:    "claude-sonnet-4-5",
			Messages: []llm.Message{llm.NewTextMessage("user", "hi")},
		})
		Expect(err).To(MatchError(llm.ErrCompletion))
		Expect(err.Error()).To(ContainSubstring("invalid x-api-key"))
	})

	Describe("ParseResponse", func() {
		It("skips non-text blocks", func() {
			resp, err := anthropic.ParseResponse([]byte(`{
				"role": "assistant",
				"content": [{"type": "thinking"}, {"type": "text", "text": "ok"}],
				"stop_reason": "end_turn"
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Message.Content).To(HaveLen(1))
			Expect(resp.Message.GetText()).To(Equal("ok"))
			Expect(resp.Usage).To(BeNil())
		})

		It("returns error for invalid JSON", func() {
			_, err := anthropic.ParseResponse([]byte(`not json`))
			Expect(err).To(HaveOccurred())
		})
	})
})
