package api

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/chat"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/config"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/intent"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/nl2sql"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/plot"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/storage"
)

type keywordClassifier struct{}

func (keywordClassifier) Classify(_ context.Context, message string, _ *conversation.History) intent.Label {
	if message == "thanks" {
		return intent.LabelCasualInteraction
	}
	return intent.LabelSQLRequest
}

type fixedSQLGenerator struct{ raw string }

func (g fixedSQLGenerator) GenerateSQL(context.Context, nl2sql.Request) string { return g.raw }

type fixedEngine struct{ result query.Result }

func (e fixedEngine) Execute(context.Context, query.Request) (query.Result, error) {
	return e.result, nil
}

type echoSummarizer struct{}

func (echoSummarizer) Summarize(_ context.Context, result *query.Result, _, _ string, _ *conversation.History) string {
	if result.Empty() {
		return "No data."
	}
	return "There are 42 delinquent customers."
}

type politeResponder struct{}

func (politeResponder) Respond(context.Context, string, *conversation.History) string {
	return "You're welcome!"
}

type fixedPlotGenerator struct{ code plot.Code }

func (g fixedPlotGenerator) Generate(context.Context, query.Result, string) (plot.Code, error) {
	return g.code, nil
}

type pngRunner struct{}

func (pngRunner) Run(context.Context, plot.ValidatedCode, []byte) (plot.Image, error) {
	return plot.Image{Data: []byte("\x89PNG\r\n"), ContentType: "image/png"}, nil
}

type staticBootstrap struct {
	sc  chat.SessionContext
	err error
}

func (b staticBootstrap) Load(context.Context) (chat.SessionContext, error) {
	return b.sc, b.err
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: opts.ContentType}, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: "image/png"}, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func newTestDependencies(plotCode plot.Code) (Dependencies, *memoryStore) {
	store := newMemoryStore()
	orchestrator := chat.NewOrchestrator(chat.Dependencies{
		Classifier: keywordClassifier{},
		Generator:  fixedSQLGenerator{raw: "```sql\nSELECT state, COUNT(*) AS total FROM clients GROUP BY state\n```"},
		Engine: fixedEngine{result: query.Result{
			Columns: []string{"state", "total"},
			Rows:    [][]any{{"SP", int64(30)}, {"RJ", int64(12)}},
		}},
		Summarizer: echoSummarizer{},
		Casual:     politeResponder{},
		RowLimit:   100,
		Plot: chat.PlotDependencies{
			Generator: fixedPlotGenerator{code: plotCode},
			Sanitizer: plot.DefaultSanitizer(),
			Runner:    pngRunner{},
			Artifacts: store,
		},
	})
	return Dependencies{
		Sessions:     chat.NewRegistry(),
		Bootstrap:    staticBootstrap{sc: chat.SessionContext{Schema: "Table clients: state (TEXT)\n"}},
		Conversation: orchestrator,
		Artifacts:    store,
	}, store
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
