package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindRateLimited
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// ProviderError 服务商调用失败
type ProviderError struct {
	Provider   string
	StatusCode int
	Kind       ErrorKind
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Classify 按状态码和错误信息归类，0 表示没有状态码
func Classify(statusCode int, message string) ErrorKind {
	if statusCode == http.StatusTooManyRequests {
		return KindRateLimited
	}

	msg := strings.ToLower(message)
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") {
		return KindRateLimited
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return KindFatal
	}
	return KindTransient
}

// KindOf 取出错误类别，未包装的错误按文本归类
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return Classify(0, err.Error())
}
