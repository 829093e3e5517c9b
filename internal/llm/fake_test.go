package llm

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

type reply struct {
	content string
	err     error
	panic   interface{}
}

// fakeProvider 按模型名返回预设结果并记录调用
type fakeProvider struct {
	mu      sync.Mutex
	replies map[string]reply
	calls   []CompletionRequest
}

func newFakeProvider(replies map[string]reply) *fakeProvider {
	return &fakeProvider{replies: replies}
}

func (f *fakeProvider) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	r, ok := f.replies[req.Model]
	f.mu.Unlock()

	if !ok {
		r = reply{err: io.ErrUnexpectedEOF}
	}
	if r.panic != nil {
		panic(r.panic)
	}
	return r.content, r.err
}

func (f *fakeProvider) models() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Model
	}
	return out
}

type recordingSleeper struct {
	pauses []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.pauses = append(r.pauses, d)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}
