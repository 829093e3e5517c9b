// Package llm 调用大模型并在候选模型之间按优先级回退。
package llm

import (
	"context"

	"github.com/qs3c/hia_server/config"
)

// CompletionRequest 一次对话补全请求
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Provider 一个模型服务商的客户端
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Candidate 候选模型，列表顺序即优先级
type Candidate struct {
	Provider string
	Model    string
}

func (c Candidate) String() string {
	return c.Provider + "/" + c.Model
}

// DefaultCandidates 未配置模型时使用的回退序列
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Provider: "groq", Model: "meta-llama/llama-4-maverick-17b-128e-instruct"},
		{Provider: "groq", Model: "llama-3.3-70b-versatile"},
		{Provider: "groq", Model: "llama-3.1-8b-instant"},
		{Provider: "groq", Model: "llama3-70b-8192"},
	}
}

// CandidatesFromConfig 按配置顺序生成候选列表，未配置时使用默认序列
func CandidatesFromConfig(models []config.ModelConfig) []Candidate {
	if len(models) == 0 {
		return DefaultCandidates()
	}
	out := make([]Candidate, 0, len(models))
	for _, m := range models {
		out = append(out, Candidate{Provider: m.Provider, Model: m.Name})
	}
	return out
}
