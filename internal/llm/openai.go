package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/qs3c/hia_server/config"
)

var ErrMissingAPIKey = errors.New("missing api key")

// OpenAIProvider 兼容 OpenAI 接口的服务商，例如 Groq
type OpenAIProvider struct {
	name   string
	client *openai.Client
}

func NewOpenAIProvider(cfg config.ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		name:   cfg.Name,
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", p.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: p.name, Kind: KindTransient, Err: errors.New("empty completion")}
	}

	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) wrap(err error) error {
	status := 0
	message := err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		message = fmt.Sprintf("%s %v", apiErr.Message, apiErr.Code)
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	return &ProviderError{
		Provider:   p.name,
		StatusCode: status,
		Kind:       Classify(status, message),
		Err:        err,
	}
}
