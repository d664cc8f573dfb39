package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/conversation"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/intent"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/nl2sql"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/plot"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/storage"
)

type fakeClassifier struct {
	label      intent.Label
	calls      int
	historyLen int
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, history *conversation.History) intent.Label {
	f.calls++
	f.historyLen = history.Len()
	return f.label
}

type fakeGenerator struct {
	raw  string
	reqs []nl2sql.Request
}

func (f *fakeGenerator) GenerateSQL(_ context.Context, req nl2sql.Request) string {
	f.reqs = append(f.reqs, req)
	return f.raw
}

type fakeEngine struct {
	result query.Result
	err    error
	reqs   []query.Request
}

func (f *fakeEngine) Execute(_ context.Context, req query.Request) (query.Result, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return query.Result{}, f.err
	}
	return f.result, nil
}

type summaryCall struct {
	result   *query.Result
	question string
	sql      string
}

type fakeSummarizer struct {
	reply string
	calls []summaryCall
}

func (f *fakeSummarizer) Summarize(_ context.Context, result *query.Result, question, sql string, _ *conversation.History) string {
	f.calls = append(f.calls, summaryCall{result: result, question: question, sql: sql})
	return f.reply
}

type fakeCasual struct {
	reply string
	calls int
}

func (f *fakeCasual) Respond(context.Context, string, *conversation.History) string {
	f.calls++
	return f.reply
}

type fakePlotGenerator struct {
	code   plot.Code
	err    error
	frames []query.Result
}

func (f *fakePlotGenerator) Generate(_ context.Context, frame query.Result, _ string) (plot.Code, error) {
	f.frames = append(f.frames, frame)
	return f.code, f.err
}

type fakeRunner struct {
	image plot.Image
	err   error
	codes []string
}

func (f *fakeRunner) Run(_ context.Context, code plot.ValidatedCode, frame []byte) (plot.Image, error) {
	if len(frame) == 0 {
		return plot.Image{}, errors.New("empty frame")
	}
	f.codes = append(f.codes, code.String())
	return f.image, f.err
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = opts.ContentType
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
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: m.types[key]}, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}
