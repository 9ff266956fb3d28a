package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock represents a parsed code block from markdown content.
type CodeBlock struct {
	// Hint is the raw source of the last line of the paragraph immediately
	// preceding the code block. Backticks and whitespace are kept as written.
	Hint string
	// Lang is the language identifier of the code block (e.g., "go", "ts").
	Lang string
	// Content is the raw text inside the code block.
	Content string
	// Line is the 1-based line of the hint, or 0 when there is none.
	Line int
}

// ExtractCodeBlocks uses a markdown AST to find all fenced code blocks
// and the paragraph line right before each, which is treated as a hint.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fencedCodeBlock, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		if fencedCodeBlock.Info != nil {
			info := string(fencedCodeBlock.Info.Segment.Value(source))
			if fields := strings.Fields(info); len(fields) > 0 {
				block.Lang = fields[0]
			}
		}

		var content bytes.Buffer
		lines := fencedCodeBlock.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		if prev := fencedCodeBlock.PreviousSibling(); prev != nil {
			if p, ok := prev.(*ast.Paragraph); ok && p.Lines().Len() > 0 {
				last := p.Lines().At(p.Lines().Len() - 1)
				block.Hint = strings.TrimRight(string(last.Value(source)), "\r\n")
				block.Line = bytes.Count(source[:last.Start], []byte("\n")) + 1
			}
		}

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return blocks, nil
}
