package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// MaxRetries 首次调用之外的最大重试次数
	MaxRetries = 3

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	DefaultBackoff     = 2 * time.Second

	ErrTextExhausted = "All models failed after multiple retries"
	ErrTextCancelled = "analysis cancelled"
)

type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeSuccess
)

// Result 一次调度的结果，调用方只会拿到这一种形态
type Result struct {
	Outcome   Outcome
	Content   string
	ModelUsed string
	Error     string
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

func success(content string, c Candidate) Result {
	return Result{Outcome: OutcomeSuccess, Content: content, ModelUsed: c.String()}
}

func failure(msg string) Result {
	return Result{Outcome: OutcomeFailure, Error: msg}
}

// Sleeper 可被 ctx 打断的等待
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Dispatcher struct {
	pool        *Pool
	candidates  []Candidate
	temperature float32
	maxTokens   int
	backoff     time.Duration
	sleep       Sleeper
	logger      *slog.Logger
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sleep = s
		}
	}
}

func WithBackoff(backoff time.Duration) Option {
	return func(d *Dispatcher) {
		if backoff > 0 {
			d.backoff = backoff
		}
	}
}

// WithSampling 温度 0 表示确定性输出，负数保持默认；maxTokens 非正时保持默认
func WithSampling(temperature float32, maxTokens int) Option {
	return func(d *Dispatcher) {
		if temperature >= 0 {
			d.temperature = temperature
		}
		if maxTokens > 0 {
			d.maxTokens = maxTokens
		}
	}
}

func NewDispatcher(pool *Pool, candidates []Candidate, opts ...Option) (*Dispatcher, error) {
	if pool == nil {
		return nil, errors.New("llm: nil provider pool")
	}
	if len(candidates) == 0 {
		return nil, errors.New("llm: no model candidates")
	}

	d := &Dispatcher{
		pool:        pool,
		candidates:  append([]Candidate(nil), candidates...),
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		backoff:     DefaultBackoff,
		sleep:       sleepContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Candidates 返回候选列表副本
func (d *Dispatcher) Candidates() []Candidate {
	return append([]Candidate(nil), d.candidates...)
}

// Available 候选模型的服务商是否有可用客户端
func (d *Dispatcher) Available(c Candidate) bool {
	return d.pool.Has(c.Provider)
}

// Dispatch 依次尝试候选模型，最多调用 MaxRetries+1 次。
// 下标超过列表长度后固定使用最后一个候选。错误不会以 error 或 panic 形式返回。
func (d *Dispatcher) Dispatch(ctx context.Context, payload interface{}, instructions string) Result {
	user := stringify(payload)

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if ctx.Err() != nil {
			d.logger.Warn("dispatch cancelled", "attempt", attempt, "error", ctx.Err())
			return failure(ErrTextCancelled)
		}

		c := d.candidates[min(attempt, len(d.candidates)-1)]

		provider, ok := d.pool.Get(c.Provider)
		if !ok {
			d.logger.Error("no client available for provider", "provider", c.Provider, "model", c.Model, "attempt", attempt)
			continue
		}

		d.logger.Info("attempting generation", "provider", c.Provider, "model", c.Model, "attempt", attempt)

		content, err := d.call(ctx, provider, CompletionRequest{
			Model:       c.Model,
			System:      instructions,
			User:        user,
			Temperature: d.temperature,
			MaxTokens:   d.maxTokens,
		})
		if err == nil {
			return success(content, c)
		}

		kind := KindOf(err)
		d.logger.Warn("model failed", "provider", c.Provider, "model", c.Model, "attempt", attempt, "kind", kind.String(), "error", err)

		if kind == KindRateLimited {
			if err := d.sleep(ctx, d.backoff); err != nil {
				d.logger.Warn("backoff interrupted", "error", err)
			}
		}
	}

	return failure(ErrTextExhausted)
}

// call 单次调用，服务商 panic 转为错误
func (d *Dispatcher) call(ctx context.Context, p Provider, req CompletionRequest) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = ""
			err = &ProviderError{Provider: "panic", Kind: KindTransient, Err: fmt.Errorf("provider panic: %v", r)}
		}
	}()
	return p.Complete(ctx, req)
}

func stringify(payload interface{}) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}
	return string(b)
}
