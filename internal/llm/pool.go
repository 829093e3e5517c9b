package llm

import (
	"log/slog"
	"sort"

	"github.com/qs3c/hia_server/config"
)

// Pool 按服务商名称索引的客户端，构建后只读
type Pool struct {
	providers map[string]Provider
}

// NewPool 根据配置初始化客户端，初始化失败的服务商记录日志后跳过
func NewPool(cfgs []config.ProviderConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}

	providers := make(map[string]Provider, len(cfgs))
	for _, c := range cfgs {
		if c.Name == "" {
			logger.Error("llm provider without name skipped")
			continue
		}
		p, err := NewOpenAIProvider(c)
		if err != nil {
			logger.Error("failed to initialize llm client", "provider", c.Name, "error", err)
			continue
		}
		providers[c.Name] = p
		logger.Info("llm client ready", "provider", c.Name)
	}

	return &Pool{providers: providers}
}

// NewStaticPool 使用现成的客户端
func NewStaticPool(providers map[string]Provider) *Pool {
	m := make(map[string]Provider, len(providers))
	for k, v := range providers {
		m[k] = v
	}
	return &Pool{providers: m}
}

func (p *Pool) Get(name string) (Provider, bool) {
	pr, ok := p.providers[name]
	return pr, ok
}

func (p *Pool) Has(name string) bool {
	_, ok := p.providers[name]
	return ok
}

func (p *Pool) Names() []string {
	names := make([]string, 0, len(p.providers))
	for k := range p.providers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
