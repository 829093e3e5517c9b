package pdfreport

import (
	"strings"
)

// DisclaimerMarker 报告末尾免责声明的标题
const DisclaimerMarker = "### ⚠️ 免责声明"

// 按顺序逐项替换
var replacements = [][2]string{
	{"🧍", ""},
	{"🩸", ""},
	{"🚽", ""},
	{"🖥️", ""},
	{"❤️", ""},
	{"⚠️", ""},
	{"◆", ""},
	{"■", ""},
	{"●", ""},
	{"○", ""},
	{"•", ""},
	{"▪", ""},
	{"◦", ""},
	{"▶", ""},
	{"►", ""},
	{"▸", ""},
	{"▹", ""},
	{"◾", ""},
	{"◼", ""},
	{"★", ""},
	{"☆", ""},
	{"**", ""},
	{"²", "2"},
	{"³", "3"},
	{"⁴", "4"},
	{"⁵", "5"},
	{"⁶", "6"},
	{"⁷", "7"},
	{"⁸", "8"},
	{"⁹", "9"},
	{"µ", "u"},
}

// RemoveDisclaimer 去掉从免责声明标题开始的全部内容
func RemoveDisclaimer(markdown string) string {
	idx := strings.Index(markdown, DisclaimerMarker)
	if idx < 0 {
		return markdown
	}
	return strings.TrimRight(markdown[:idx], " \t\r\n\v\f") + "\n"
}

// Sanitize 移除模板中的图标和字体不支持的字符
func Sanitize(text string) string {
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r[0], r[1])
	}

	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return -1
		}
		return r
	}, text)
}
