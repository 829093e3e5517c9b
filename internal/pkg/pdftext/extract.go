// Package pdftext 校验上传的体检报告并提取纯文本。
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// 错误信息前缀固定，上层据此识别提取失败
var (
	ErrTooLarge      = errors.New("File size exceeds the limit")
	ErrInvalidType   = errors.New("Invalid file type, only PDF is supported")
	ErrInvalidPDF    = errors.New("Error validating PDF")
	ErrTooManyPages  = errors.New("The uploaded file has too many pages")
	ErrNoText        = errors.New("The uploaded file contains no extractable text")
	failurePrefixes  = []string{"File size exceeds", "Invalid file type", "Error validating", "The uploaded file"}
	pdfMagic         = []byte("%PDF-")
	defaultMaxBytes  = int64(20 * 1024 * 1024)
	defaultMaxPages  = 50
	defaultAllowExts = []string{".pdf"}
)

type Limits struct {
	MaxBytes          int64
	MaxPages          int
	AllowedExtensions []string
}

func (l Limits) withDefaults() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = defaultMaxBytes
	}
	if l.MaxPages <= 0 {
		l.MaxPages = defaultMaxPages
	}
	if len(l.AllowedExtensions) == 0 {
		l.AllowedExtensions = defaultAllowExts
	}
	return l
}

type Document struct {
	Pages int
	Text  string
}

// Extract 校验大小、类型与页数后提取文本
func Extract(fileName string, data []byte, limits Limits) (*Document, error) {
	limits = limits.withDefaults()

	if int64(len(data)) > limits.MaxBytes {
		return nil, fmt.Errorf("%w (%.1fMB > %dMB)", ErrTooLarge,
			float64(len(data))/(1024*1024), limits.MaxBytes/(1024*1024))
	}
	if !allowedExt(fileName, limits.AllowedExtensions) || !bytes.HasPrefix(data, pdfMagic) {
		return nil, ErrInvalidType
	}

	return parse(data, limits.MaxPages)
}

func parse(data []byte, maxPages int) (doc *Document, err error) {
	// 解析库遇到损坏文件可能 panic
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	pages := r.NumPage()
	if pages == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	if pages > maxPages {
		return nil, fmt.Errorf("%w (%d > %d)", ErrTooManyPages, pages, maxPages)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, ErrNoText
	}
	return &Document{Pages: pages, Text: text}, nil
}

func allowedExt(fileName string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// IsFailureText 文本看起来是提取错误信息而不是报告内容
func IsFailureText(s string) bool {
	for _, p := range failurePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(s), "error")
}
