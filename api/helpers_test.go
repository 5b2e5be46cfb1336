package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/eventstream"
	"github.com/papercomputeco/askbase/pkg/ingest"
	"github.com/papercomputeco/askbase/pkg/logger"
	"github.com/papercomputeco/askbase/pkg/rag"
	"github.com/papercomputeco/askbase/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/askbase/pkg/utils/test"
	"github.com/papercomputeco/askbase/pkg/vector"
)

// recordingPublisher keeps published events in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.QueryAnsweredEvent
}

func (p *recordingPublisher) PublishQuery(_ context.Context, event *eventstream.QueryAnsweredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []*eventstream.QueryAnsweredEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.QueryAnsweredEvent(nil), p.events...)
}

// testEnv is a server wired to mocks.
type testEnv struct {
	server    *Server
	embedder  *testutils.MockEmbedder
	driver    *testutils.MockVectorDriver
	completer *testutils.MockCompleter
	storer    *inmemory.Driver
	publisher *recordingPublisher
	ingest    *ingest.Service
}

// newTestEnv builds a server; mutate lets a test adjust the config first.
func newTestEnv(mutate func(*Config, *testEnv)) *testEnv {
	env := &testEnv{
		embedder:  testutils.NewMockEmbedder(),
		driver:    testutils.NewMockVectorDriver(),
		completer: testutils.NewMockCompleter("According to Document 1, employees get 25 vacation days."),
		storer:    inmemory.NewDriver(),
		publisher: &recordingPublisher{},
	}

	retriever := rag.NewVectorRetriever(rag.VectorRetrieverConfig{
		Embedder: env.embedder,
		Driver:   env.driver,
		Logger:   logger.Nop(),
	})
	generator := rag.NewGenerator(rag.GeneratorConfig{
		Completer: env.completer,
		Model:     "test-model",
		Logger:    logger.Nop(),
	})
	env.ingest = ingest.NewService(ingest.Config{
		Embedder: env.embedder,
		Driver:   env.driver,
		Logger:   logger.Nop(),
	})

	config := Config{
		ListenAddr:   ":0",
		Pipeline:     rag.NewPipeline(retriever, generator),
		Retriever:    retriever,
		Completer:    env.completer,
		Model:        "test-model",
		VectorDriver: env.driver,
		Ingest:       env.ingest,
		Publisher:    env.publisher,
		EventSource:  eventstream.EventSource{Service: "askbase", Retriever: "vector", Provider: "mock"},
	}
	if mutate != nil {
		mutate(&config, env)
	}

	var err error
	env.server, err = NewServer(config, env.storer, logger.Nop())
	Expect(err).NotTo(HaveOccurred())

	return env
}

func vacationHit(score float64) vector.SearchResult {
	return vector.SearchResult{
		Document: vector.Document{
			ID:       "vacation-policy",
			Title:    "Vacation Policy",
			Content:  "Full-time employees receive 25 days of paid vacation per year.",
			Metadata: map[string]any{"category": "hr"},
		},
		Score: score,
	}
}

// do sends a JSON request through the fiber app and returns the status and body.
func (e *testEnv) do(method, path string, body any) (int, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, path, reader)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.server.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, respBody
}

func decode[T any](body []byte) T {
	var v T
	Expect(json.Unmarshal(body, &v)).To(Succeed())
	return v
}
