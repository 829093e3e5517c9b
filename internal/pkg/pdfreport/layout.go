package pdfreport

import (
	"strings"
)

type BlockKind int

const (
	BlockSpacer BlockKind = iota
	BlockHeading
	BlockSubheading
	BlockBullet
	BlockParagraph
)

// Block 排版后的一个段落，Spacer 的高度单位为 pt
type Block struct {
	Kind   BlockKind
	Text   string
	Height float64
}

const (
	blankLineSpace = 8
	paragraphSpace = 4
)

// Layout 把清理后的 markdown 逐行转换为段落
func Layout(text string) []Block {
	var blocks []Block

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			blocks = append(blocks, Block{Kind: BlockSpacer, Height: blankLineSpace})

		case strings.HasPrefix(line, "### "):
			blocks = append(blocks, Block{Kind: BlockHeading, Text: strings.TrimSpace(line[4:])})

		case strings.HasPrefix(line, "#### "):
			blocks = append(blocks, Block{Kind: BlockSubheading, Text: strings.TrimSpace(line[5:])})

		case strings.HasPrefix(line, "- "):
			blocks = append(blocks, Block{Kind: BlockBullet, Text: "• " + strings.TrimSpace(line[2:])})

		case strings.Contains(line, "|"):
			if cells := tableCells(line); cells != nil {
				blocks = append(blocks, Block{Kind: BlockParagraph, Text: strings.Join(cells, "  ")})
			}

		default:
			blocks = append(blocks,
				Block{Kind: BlockParagraph, Text: strings.TrimRight(raw, "\r")},
				Block{Kind: BlockSpacer, Height: paragraphSpace},
			)
		}
	}

	return blocks
}

// tableCells 返回表格行的非空单元格，分隔行返回 nil
func tableCells(line string) []string {
	var cells []string
	separator := true
	for _, p := range strings.Split(line, "|") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cells = append(cells, p)
		if p != "---" && p != ":---" {
			separator = false
		}
	}
	if len(cells) == 0 || separator {
		return nil
	}
	return cells
}
