package text

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var tagRegex = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// StripMarkup returns the visible text of an HTML fragment. Block-level
// elements and <br> become line breaks. Text without tags is only unescaped.
func StripMarkup(s string) string {
	if !tagRegex.MatchString(s) {
		if strings.Contains(s, "&") {
			return html.UnescapeString(s)
		}
		return s
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return tagRegex.ReplaceAllString(s, " ")
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.Br:
				b.WriteString("\n")
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			b.WriteString("\n")
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String())
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Blockquote, atom.H1, atom.H2, atom.H3, atom.H4, atom.Tr:
		return true
	}
	return false
}
