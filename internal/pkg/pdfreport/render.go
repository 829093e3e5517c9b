// Package pdfreport 将分析报告 markdown 导出为 PDF。
package pdfreport

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

const (
	utf8Family = "report"
	coreFamily = "Helvetica"
	marginMM   = 20
)

type style struct {
	size    float64
	leading float64
	before  float64
	after   float64
	bold    bool
}

var styles = map[BlockKind]style{
	BlockHeading:    {size: 16, leading: 20, before: 8, after: 4, bold: true},
	BlockSubheading: {size: 14, leading: 18, before: 6, after: 2},
	BlockBullet:     {size: 10, leading: 16},
	BlockParagraph:  {size: 10, leading: 16},
}

// ErrFontRequired 内置 Helvetica 只支持 cp1252，中文等字符需要配置 UTF-8 字体
var ErrFontRequired = errors.New("pdf: text needs a UTF-8 font, set pdf.font_path")

// Renderer 渲染 PDF，fontPath 指向支持中文的 TTF 字体，为空时使用内置 Helvetica
type Renderer struct {
	fontPath string
}

func NewRenderer(fontPath string) *Renderer {
	return &Renderer{fontPath: fontPath}
}

// Render 去掉免责声明、清理字符后排版输出
func (r *Renderer) Render(markdown string) ([]byte, error) {
	blocks := Layout(Sanitize(RemoveDisclaimer(markdown)))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)

	family := coreFamily
	translate := func(s string) string { return s }
	if r.fontPath != "" {
		if _, err := os.Stat(r.fontPath); err != nil {
			return nil, fmt.Errorf("pdf font: %w", err)
		}
		pdf.AddUTF8Font(utf8Family, "", r.fontPath)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("pdf font: %w", err)
		}
		family = utf8Family
	} else {
		if r := firstUnencodable(blocks); r != 0 {
			return nil, fmt.Errorf("%w (%q)", ErrFontRequired, r)
		}
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.AddPage()

	for _, b := range blocks {
		if b.Kind == BlockSpacer {
			pdf.Ln(pdf.PointConvert(b.Height))
			continue
		}

		st := styles[b.Kind]
		fontStyle := ""
		if st.bold && family == coreFamily {
			fontStyle = "B"
		}
		pdf.SetFont(family, fontStyle, st.size)

		if st.before > 0 {
			pdf.Ln(pdf.PointConvert(st.before))
		}
		pdf.MultiCell(0, pdf.PointConvert(st.leading), translate(b.Text), "", "L", false)
		if st.after > 0 {
			pdf.Ln(pdf.PointConvert(st.after))
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// firstUnencodable 返回第一个 cp1252 无法表示的字符，没有则返回 0
func firstUnencodable(blocks []Block) rune {
	for _, b := range blocks {
		for _, r := range b.Text {
			if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
				return r
			}
		}
	}
	return 0
}
