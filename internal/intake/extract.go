// Package intake turns files into captured seeds: format-specific text
// extraction plus a watched inbox directory.
package intake

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/lazypower/seedsoil/internal/transcript"
)

// ErrUnsupportedFormat is returned for files no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ExtractFunc returns the plain text of a file's contents.
type ExtractFunc func(data []byte) (string, error)

type rule struct {
	pattern string
	extract ExtractFunc
}

// Registry picks an extractor by file pattern. Patterns use doublestar
// syntax and are matched against slash-separated paths.
type Registry struct {
	rules []rule
	allow []string
}

// NewRegistry returns a registry with the built-in extractors. When allow is
// non-empty, only paths matching one of those patterns are accepted.
func NewRegistry(allow []string) (*Registry, error) {
	for _, p := range allow {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid intake pattern %q", p)
		}
	}
	r := &Registry{allow: allow}
	r.Register("**/*.txt", PlainText)
	r.Register("**/*.{md,markdown}", MarkdownText)
	r.Register("**/*.jsonl", transcript.Text)
	return r, nil
}

// Register adds an extractor. Earlier registrations win.
func (r *Registry) Register(pattern string, fn ExtractFunc) {
	r.rules = append(r.rules, rule{pattern: pattern, extract: fn})
}

func matches(pattern, path string) bool {
	ok, err := doublestar.Match(strings.ToLower(pattern), strings.ToLower(filepath.ToSlash(path)))
	return err == nil && ok
}

// Accepts reports whether path passes the allow list and has an extractor.
func (r *Registry) Accepts(path string) bool {
	if len(r.allow) > 0 {
		allowed := false
		for _, p := range r.allow {
			if matches(p, path) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return r.lookup(path) != nil
}

func (r *Registry) lookup(path string) ExtractFunc {
	for _, rl := range r.rules {
		if matches(rl.pattern, path) {
			return rl.extract
		}
	}
	return nil
}

// Extract returns the text of data, using the extractor registered for path.
func (r *Registry) Extract(path string, data []byte) (string, error) {
	if !r.Accepts(path) {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}
	out, err := r.lookup(path)(data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// PlainText decodes UTF-8 text, dropping a byte order mark and normalizing
// line endings.
func PlainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("not valid UTF-8 text")
	}
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.TrimSpace(s), nil
}

// MarkdownText renders markdown to plain text: markup is dropped, block
// boundaries become blank lines and code blocks are kept verbatim.
func MarkdownText(data []byte) (string, error) {
	src, err := PlainText(data)
	if err != nil {
		return "", err
	}
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var b strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(source))
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
				return ast.WalkSkipChildren, nil
			}
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			b.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("walk markdown: %w", err)
	}
	return collapseBlankLines(b.String()), nil
}

// collapseBlankLines trims trailing spaces and keeps at most one blank line in a row.
func collapseBlankLines(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
