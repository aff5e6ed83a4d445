// Package render turns the model's markdown reply into HTML for the result card.
//
// Five elements get fixed presentational classes: level-3 headings,
// paragraphs, list items, inline code and code blocks. Everything else is
// goldmark's default output. Raw HTML in the reply is dropped (goldmark's
// default), since the text comes from a remote model.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Classes applied to the overridden elements.
const (
	ClassHeading    = "md-h3"
	ClassParagraph  = "md-p"
	ClassListItem   = "md-li"
	ClassInlineCode = "md-code"
	ClassCodeBlock  = "md-pre"
)

// Markdown renders markdown to HTML.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown builds a renderer with GitHub-flavoured extensions
// (tables, strikethrough, autolinks, task lists) and the class overrides.
func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithASTTransformers(util.Prioritized(classTransformer{}, 100)),
			),
			goldmark.WithRendererOptions(
				// Lower number wins; the default HTML renderer sits at 1000.
				renderer.WithNodeRenderers(util.Prioritized(codeBlockRenderer{}, 100)),
			),
		),
	}
}

// Render converts src to HTML that is safe to place in a template.
func (m *Markdown) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render: converting markdown: %w", err)
	}
	// goldmark escapes text and drops raw HTML, so the output can be trusted.
	return template.HTML(buf.String()), nil
}

// classTransformer tags the overridden nodes with their class attribute.
// goldmark's HTML renderer writes attributes for headings, paragraphs,
// list items and code spans; code blocks are handled by codeBlockRenderer.
type classTransformer struct{}

func (classTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 3 {
				node.SetAttributeString("class", []byte(ClassHeading))
			}
		case *ast.Paragraph:
			node.SetAttributeString("class", []byte(ClassParagraph))
		case *ast.ListItem:
			node.SetAttributeString("class", []byte(ClassListItem))
		case *ast.CodeSpan:
			node.SetAttributeString("class", []byte(ClassInlineCode))
		}
		return ast.WalkContinue, nil
	})
}

// codeBlockRenderer replaces the default fenced/indented code block output
// so the <pre> carries ClassCodeBlock.
type codeBlockRenderer struct{}

func (r codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindCodeBlock, r.renderCodeBlock)
}

func (r codeBlockRenderer) renderCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkContinue, nil
	}

	_, _ = w.WriteString(`<pre class="` + ClassCodeBlock + `"><code`)
	if fenced, ok := node.(*ast.FencedCodeBlock); ok {
		if lang := fenced.Language(source); lang != nil {
			_, _ = w.WriteString(` class="language-`)
			html.DefaultWriter.Write(w, lang)
			_ = w.WriteByte('"')
		}
	}
	_ = w.WriteByte('>')

	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		html.DefaultWriter.RawWrite(w, line.Value(source))
	}
	return ast.WalkContinue, nil
}
