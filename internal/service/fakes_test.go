package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/hia_server/internal/llm"
)

// fakeObjectStore 内存对象存储
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (s *fakeObjectStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	s.types[key] = contentType
	return nil
}

func (s *fakeObjectStore) SignedURL(_ context.Context, key string, expire time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return "", errors.New("no such object")
	}
	return fmt.Sprintf("https://objects.test/%s?expires=%d", key, int(expire.Seconds())), nil
}

func (s *fakeObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeObjectStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// buildReportPDF 生成每页一行文字的 PDF
func buildReportPDF(t *testing.T, pages int, line string) []byte {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.Cell(40, 10, line)
	}

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

// scriptedProvider 按模型名返回预设内容，未登记的模型返回错误
type scriptedProvider struct {
	mu       sync.Mutex
	contents map[string]string
	errs     map[string]error
	requests []llm.CompletionRequest
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		contents: make(map[string]string),
		errs:     make(map[string]error),
	}
}

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)

	if err, ok := p.errs[req.Model]; ok {
		return "", err
	}
	if content, ok := p.contents[req.Model]; ok {
		return content, nil
	}
	return "", errors.New("request timeout")
}

func (p *scriptedProvider) calls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.CompletionRequest(nil), p.requests...)
}

func newTestDispatcher(t *testing.T, providers map[string]llm.Provider, candidates []llm.Candidate) *llm.Dispatcher {
	t.Helper()

	d, err := llm.NewDispatcher(llm.NewStaticPool(providers), candidates,
		llm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		llm.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)
	require.NoError(t, err)
	return d
}
