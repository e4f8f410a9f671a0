// internal/document/document.go
package document

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/valpere/FBScrapexter/internal/errors"
)

// Document is a parsed markup tree together with the markup it came from.
type Document struct {
	root *goquery.Document
	raw  string
}

// Node is a position in a Document. The zero Node is empty and every query on it
// returns nothing.
type Node struct {
	sel *goquery.Selection
}

// Parse builds a Document from markup. HTML comment markers are removed first so
// that content the site ships inside comments becomes part of the tree, and control
// characters a strict parser would choke on are dropped.
func Parse(markup string) (*Document, error) {
	cleaned := Clean(markup)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
	if err != nil {
		return nil, errors.Wrap(fmt.Errorf("failed to parse HTML: %w", err), errors.KindMalformedDocument, "document.Parse")
	}
	if doc.Selection == nil || len(doc.Nodes) == 0 {
		return nil, errors.New(errors.KindMalformedDocument, "document has no root node")
	}
	return &Document{root: doc, raw: cleaned}, nil
}

// MustParse is Parse for fixtures; it panics on error.
func MustParse(markup string) *Document {
	doc, err := Parse(markup)
	if err != nil {
		panic(err)
	}
	return doc
}

// Fragment parses markup and returns the first element of its body, which is how
// post elements are rebuilt from serialized HTML.
func Fragment(markup string) (Node, error) {
	doc, err := Parse(markup)
	if err != nil {
		return Node{}, err
	}
	body := doc.root.Find("body").Children().First()
	if body.Length() == 0 {
		return doc.Root(), nil
	}
	return Node{sel: body}, nil
}

// Clean strips comment markers and invalid control characters.
func Clean(markup string) string {
	markup = strings.ReplaceAll(markup, "<!--", "")
	markup = strings.ReplaceAll(markup, "-->", "")
	if !utf8.ValidString(markup) {
		markup = strings.ToValidUTF8(markup, "")
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, markup)
}

// Raw returns the cleaned markup the document was built from.
func (d *Document) Raw() string {
	return d.raw
}

// Root returns the document node.
func (d *Document) Root() Node {
	return Node{sel: d.root.Selection}
}

// Find runs a CSS selector over the whole document.
func (d *Document) Find(selector string) []Node {
	return d.Root().Find(selector)
}

// First returns the first match of selector, or an empty Node.
func (d *Document) First(selector string) Node {
	return d.Root().First(selector)
}

// HTML returns the serialized document.
func (d *Document) HTML() string {
	return d.Root().HTML()
}

// Text returns the visible text of the document.
func (d *Document) Text() string {
	return d.Root().Text()
}

// Title returns the trimmed <title> text.
func (d *Document) Title() (string, bool) {
	t := d.First("title")
	if !t.Exists() {
		return "", false
	}
	return strings.TrimSpace(t.Text()), true
}

// Exists reports whether the node points at an element.
func (n Node) Exists() bool {
	return n.sel != nil && n.sel.Length() > 0
}

// Find returns all descendants matching selector.
func (n Node) Find(selector string) []Node {
	if !n.Exists() {
		return nil
	}
	found := n.sel.Find(selector)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, Node{sel: s})
	})
	return nodes
}

// First returns the first descendant matching selector.
func (n Node) First(selector string) Node {
	if !n.Exists() {
		return Node{}
	}
	found := n.sel.Find(selector).First()
	if found.Length() == 0 {
		return Node{}
	}
	return Node{sel: found}
}

// FirstContaining returns the first match of selector whose text contains substr.
func (n Node) FirstContaining(selector, substr string) Node {
	for _, c := range n.Find(selector) {
		if strings.Contains(c.Text(), substr) {
			return c
		}
	}
	return Node{}
}

// Attr returns the attribute value; ok is false when it is absent.
func (n Node) Attr(name string) (string, bool) {
	if !n.Exists() {
		return "", false
	}
	return n.sel.Attr(name)
}

// AttrOr returns the attribute value or def.
func (n Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// Classes returns the class list of the node.
func (n Node) Classes() []string {
	return strings.Fields(n.AttrOr("class", ""))
}

// Tag returns the element name, or "" for the empty node.
func (n Node) Tag() string {
	if !n.Exists() {
		return ""
	}
	return goquery.NodeName(n.sel)
}

// Text returns the visible text of the node. Block level children are separated
// by newlines so multi-line cards can be split the way a browser renders them.
func (n Node) Text() string {
	if !n.Exists() {
		return ""
	}
	var b strings.Builder
	for _, node := range n.sel.Nodes {
		renderText(&b, node)
	}
	return collapseLines(b.String())
}

// FlatText returns the concatenated text of all descendants without separators.
func (n Node) FlatText() string {
	if !n.Exists() {
		return ""
	}
	return strings.TrimSpace(n.sel.Text())
}

// HTML returns the node's own serialized markup, including its tag.
func (n Node) HTML() string {
	if !n.Exists() {
		return ""
	}
	var buf bytes.Buffer
	for _, node := range n.sel.Nodes {
		if node.Type == html.DocumentNode {
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				_ = html.Render(&buf, c)
			}
			continue
		}
		_ = html.Render(&buf, node)
	}
	return buf.String()
}

// InnerHTML returns the markup of the node's children.
func (n Node) InnerHTML() string {
	if !n.Exists() {
		return ""
	}
	s, err := n.sel.Html()
	if err != nil {
		return ""
	}
	return s
}

// Parent returns the parent element.
func (n Node) Parent() Node {
	if !n.Exists() {
		return Node{}
	}
	p := n.sel.Parent()
	if p.Length() == 0 {
		return Node{}
	}
	return Node{sel: p}
}

// Children returns the element children of the node.
func (n Node) Children() []Node {
	if !n.Exists() {
		return nil
	}
	var out []Node
	n.sel.Children().Each(func(_ int, s *goquery.Selection) {
		out = append(out, Node{sel: s})
	})
	return out
}

// Is reports whether the node matches selector.
func (n Node) Is(selector string) bool {
	return n.Exists() && n.sel.Is(selector)
}

// Selection exposes the underlying goquery selection for callers that need it.
func (n Node) Selection() *goquery.Selection {
	return n.sel
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "ul": true, "title": true,
}

func renderText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	case html.CommentNode:
		return
	}
	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
