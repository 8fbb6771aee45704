// Package markdown annotates markdown documents for ingestion: each H1/H2
// section gets its header hierarchy prepended, so line-based chunks carry
// their section context into embedding and retrieval.
package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is a contiguous slice of a markdown document under one H1/H2
// heading.
type Section struct {
	// HeaderPath is the heading hierarchy, e.g. "# Install > ## Steps".
	HeaderPath string
	// Content is the section's raw markdown, heading line included.
	Content string
}

// Annotator splits markdown at H1/H2 boundaries while preserving the header
// hierarchy of each section.
type Annotator struct {
	parser goldmark.Markdown
}

// NewAnnotator creates an annotator with a goldmark parser configured for
// heading extraction.
func NewAnnotator() *Annotator {
	return &Annotator{
		parser: goldmark.New(
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// Annotate returns source rewritten so every H1/H2 section is preceded by
// its header path. Documents without headings pass through unchanged.
func (a *Annotator) Annotate(source []byte) (string, error) {
	sections, err := a.Sections(source)
	if err != nil {
		return "", err
	}
	if len(sections) == 1 && sections[0].HeaderPath == "" {
		return sections[0].Content, nil
	}
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = s.HeaderPath + "\n\n" + s.Content
	}
	return strings.Join(parts, "\n\n"), nil
}

// Sections splits source at H1 and H2 boundaries. A document with no
// headings is returned as a single section with an empty header path.
func (a *Annotator) Sections(source []byte) ([]Section, error) {
	doc := a.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	if len(tree.Items) == 0 {
		return []Section{{Content: string(source)}}, nil
	}

	var sections []Section
	a.collect(doc, source, tree.Items, nil, &sections)
	return sections, nil
}

// collect walks the TOC, slicing the source between heading boundaries.
func (a *Annotator) collect(doc ast.Node, source []byte, items toc.Items, ancestors []string, sections *[]Section) {
	for i, item := range items {
		path := append(ancestors, string(item.Title))

		heading := headingByID(doc, string(item.ID))
		if heading == nil {
			continue
		}

		start := heading.Lines().At(0)
		var end text.Segment
		if i+1 < len(items) {
			if next := headingByID(doc, string(items[i+1].ID)); next != nil {
				end = next.Lines().At(0)
			}
		} else {
			end = nextBoundary(doc, heading, heading.(*ast.Heading).Level)
		}

		*sections = append(*sections, Section{
			HeaderPath: joinHeaderPath(path),
			Content:    slice(source, start, end),
		})

		if len(item.Items) > 0 {
			a.collect(doc, source, item.Items, path, sections)
		}
	}
}

// joinHeaderPath renders ["Install", "Steps"] as "# Install > ## Steps".
func joinHeaderPath(path []string) string {
	parts := make([]string, len(path))
	for i, title := range path {
		parts[i] = strings.Repeat("#", i+1) + " " + title
	}
	return strings.Join(parts, " > ")
}

// headingByID locates the heading node carrying the auto-generated id.
func headingByID(root ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if attr, ok := n.AttributeString("id"); ok {
			if b, ok := attr.([]byte); ok && string(b) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// nextBoundary finds the first heading after current at the same or a higher
// level. A zero segment means the section runs to end of document.
func nextBoundary(root ast.Node, current ast.Node, level int) text.Segment {
	var boundary ast.Node
	passed := false
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if !passed {
			if n == current {
				passed = true
			}
			return ast.WalkContinue, nil
		}
		if n.(*ast.Heading).Level <= level {
			boundary = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if boundary == nil {
		return text.Segment{}
	}
	return boundary.Lines().At(0)
}

// slice extracts the source text between two heading line segments. Heading
// segments cover the heading text only, so both boundaries rewind to the
// start of their source line to keep the "## " marks with their section.
func slice(source []byte, start, end text.Segment) string {
	from := lineStart(source, start.Start)
	if end.Start == 0 && end.Stop == 0 {
		return strings.TrimSpace(string(source[from:]))
	}
	return strings.TrimSpace(string(source[from:lineStart(source, end.Start)]))
}

// lineStart returns the offset of the first byte of the line containing pos.
func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}
