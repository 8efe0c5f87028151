// Package domtext parses an HTML document into a mutable tree and exposes
// its text-bearing nodes as a flat, ordered, addressable list.
//
// The extracted nodes keep live references into the parsed tree, so text
// written back through the owning Tree survives re-serialization while the
// surrounding markup structure stays untouched. A Tree and its nodes are
// owned by a single run; they are not safe for concurrent mutation.
package domtext

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TextNode is one addressable text-bearing node of a parsed document.
type TextNode struct {
	// ID is the node's position in traversal order, stable for the life
	// of the Tree. It is the correlation key between extraction and
	// later application.
	ID int `json:"id"`
	// Tag is the lowercased element name of the nearest ancestor element.
	Tag string `json:"tag"`
	// Text is the trimmed text captured at extraction time. The live
	// value is authoritative; read it with Live.
	Text string `json:"text"`

	node *html.Node
}

// Live returns the node's current text content, which may differ from the
// extraction-time snapshot once edits have been written back.
func (n *TextNode) Live() string { return n.node.Data }

// Tree owns a parsed document and its extracted text nodes.
type Tree struct {
	root  *html.Node
	nodes []*TextNode
}

// Parse reads an HTML document and extracts its text-bearing nodes.
func Parse(r io.Reader) (*Tree, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	t := &Tree{root: root}
	t.extract()
	return t, nil
}

// ParseString parses an HTML document from a string.
func ParseString(s string) (*Tree, error) {
	return Parse(strings.NewReader(s))
}

// Nodes returns the extracted text nodes in traversal order.
func (t *Tree) Nodes() []*TextNode { return t.nodes }

// SetText writes s back to the live text node. One write per node per run
// is the expected discipline; the applicator folds all changes for a node
// into a single call.
func (t *Tree) SetText(n *TextNode, s string) {
	n.node.Data = s
}

// Render serializes the (possibly mutated) document back to a string.
func (t *Tree) Render() (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, t.root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return sb.String(), nil
}

// VisibleText returns the concatenated trimmed text of all extracted
// nodes with no separators. Text split across inline elements
// ("bea<b>uty</b>") reads contiguously here, which is what boundary
// detection relies on.
func (t *Tree) VisibleText() string {
	var sb strings.Builder
	for _, n := range t.nodes {
		sb.WriteString(strings.TrimSpace(n.Live()))
	}
	return sb.String()
}

// extract walks the body (document root when no body exists) pre-order,
// pruning non-content subtrees, and assigns sequential IDs.
func (t *Tree) extract() {
	start := findBody(t.root)
	if start == nil {
		start = t.root
	}

	var walk func(n *html.Node, tag string)
	walk = func(n *html.Node, tag string) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head, atom.Noscript:
				return
			}
			tag = strings.ToLower(n.Data)
		}
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			t.nodes = append(t.nodes, &TextNode{
				ID:   len(t.nodes),
				Tag:  tag,
				Text: strings.TrimSpace(n.Data),
				node: n,
			})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, tag)
		}
	}
	walk(start, nodeTag(start))
}

func nodeTag(n *html.Node) string {
	if n.Type == html.ElementNode {
		return strings.ToLower(n.Data)
	}
	return ""
}

// findBody returns the <body> element from a parsed document.
func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return body
}
