package watcher

import (
	"bytes"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

type PageMeta struct {
	Title    string
	ImageURL string
}

// ExtractPageMeta pulls display metadata out of a fetched page: the document
// title (used to backfill a generic site name) and a preview image.
func ExtractPageMeta(rawHTML string) PageMeta {
	doc, err := htmlquery.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return PageMeta{}
	}

	return PageMeta{
		Title:    selectText(doc, "/html/head/title"),
		ImageURL: extractImageURL(doc),
	}
}

func extractImageURL(n *html.Node) string {
	if url := metaContent(n, "//meta[@property = 'og:image']"); url != "" {
		return url
	}
	if url := metaContent(n, "//meta[@name = 'twitter:image']"); url != "" {
		return url
	}
	return ""
}

func metaContent(n *html.Node, xpath string) string {
	elem := htmlquery.FindOne(n, xpath)
	if elem != nil {
		for _, attr := range elem.Attr {
			if attr.Key == "content" {
				return attr.Val
			}
		}
	}
	return ""
}

func selectText(n *html.Node, xpath string) string {
	node := htmlquery.FindOne(n, xpath)
	if node == nil {
		return ""
	}
	buf := new(bytes.Buffer)
	dig(node, buf)
	return compactWhitespace(buf.String())
}

func dig(n *html.Node, buf *bytes.Buffer) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dig(c, buf)
	}
}
