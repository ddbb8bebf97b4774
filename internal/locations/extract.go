// Package locations pulls listing addresses out of generated answers.
package locations

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	addressLine = regexp.MustCompile(`(?i)address:\s*(.+)`)
	markdown    = goldmark.New()
)

// ExtractAddresses returns the values of "Address:" lines in answer, in order and without repeats.
// The answer is read as Markdown so emphasis around the label does not hide it.
func ExtractAddresses(answer string) []string {
	addresses := []string{}
	seen := make(map[string]bool)

	for _, line := range strings.Split(plainText(answer), "\n") {
		m := addressLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		addr := strings.TrimSpace(m[1])
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		addresses = append(addresses, addr)
	}
	return addresses
}

// plainText renders the Markdown text content with one line per source line and block.
func plainText(source string) string {
	content := []byte(source)
	doc := markdown.Parser().Parse(text.NewReader(content))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(content))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
