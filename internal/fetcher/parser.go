package fetcher

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/knowledgemesh/internal/urlnorm"
)

// parser extracts visible text and outbound links from HTML content.
//
// Design decision: golang.org/x/net/html rather than regex or a heavier
// DOM library because:
//  1. It correctly handles the malformed HTML common on the web
//  2. A single tokenizer-level walk is enough for text plus anchors
//  3. Standard library extension, well-maintained
type parser struct {
	// baseURL is the URL of the page being parsed, used for resolving
	// relative hrefs.
	baseURL *url.URL
}

// parseResult holds everything one parsing pass extracted.
type parseResult struct {
	// title is the page title from the <title> tag.
	title string

	// text is the visible text with script/style/noscript stripped and
	// whitespace collapsed to single spaces.
	text string

	// links are normalized outbound URLs in first-seen order, deduplicated.
	// Invalid or non-HTTP(S) hrefs are dropped silently.
	links []string
}

// newParser creates a parser for content served from baseURL.
func newParser(baseURL string) (*parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &parser{baseURL: u}, nil
}

// skippedElements are elements whose text content is never visible.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// parse walks the document once, collecting title, visible text, and
// anchor targets.
func (p *parser) parse(content io.Reader) (*parseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &parseResult{links: make([]string, 0)}
	seen := make(map[string]bool)
	var chunks []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			switch n.Data {
			case "title":
				if result.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					result.title = strings.TrimSpace(n.FirstChild.Data)
				}
				// The title is not body text; do not descend.
				return
			case "a":
				if href := getAttr(n, "href"); href != "" {
					if link := p.resolveLink(href); link != "" && !seen[link] {
						seen[link] = true
						result.links = append(result.links, link)
					}
				}
			}
		case html.TextNode:
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	result.text = strings.Join(strings.Fields(strings.Join(chunks, " ")), " ")
	return result, nil
}

// resolveLink resolves an href against the base URL and normalizes it.
// Returns an empty string for anything that is not a fetchable HTTP(S)
// URL; callers drop those silently.
func (p *parser) resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	normalized, err := urlnorm.Normalize(resolved.String())
	if err != nil {
		return ""
	}
	return normalized
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
