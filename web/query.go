package web

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrTableNotFound is returned by ExtractTable when no matching table exists.
var ErrTableNotFound = errors.New("web: table not found")

// Parse parses an HTML document.
func Parse(doc string) (*html.Node, error) {
	n, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("web: parse html: %w", err)
	}
	return n, nil
}

// FindByID returns the first element with the given id attribute, or nil.
func FindByID(n *html.Node, id string) *html.Node {
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && attr(d, "id") == id {
			return d
		}
	}
	return nil
}

// FindAll returns every element with the given tag name in document order.
func FindAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && d.Data == tag {
			out = append(out, d)
		}
	}
	return out
}

// Text returns the text content of n with runs of whitespace collapsed.
// Script and style contents are skipped.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// Title returns the document title, or "".
func Title(doc *html.Node) string {
	if titles := FindAll(doc, "title"); len(titles) > 0 {
		return Text(titles[0])
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
