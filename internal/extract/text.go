package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// skipText holds elements whose text is never page content.
var skipText = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
}

// blockTags end the running text segment. Text in any other element runs on
// into its neighbours, so "Dév<b>eloppeur</b>" reads as one word.
var blockTags = map[string]struct{}{
	"address": {}, "article": {}, "aside": {}, "blockquote": {}, "br": {},
	"dd": {}, "div": {}, "dl": {}, "dt": {}, "fieldset": {}, "figcaption": {},
	"figure": {}, "footer": {}, "form": {}, "h1": {}, "h2": {}, "h3": {},
	"h4": {}, "h5": {}, "h6": {}, "header": {}, "hr": {}, "li": {}, "main": {},
	"nav": {}, "ol": {}, "p": {}, "pre": {}, "section": {}, "table": {},
	"td": {}, "th": {}, "tr": {}, "ul": {},
}

// textSegments returns the text under the selection in document order, split
// at block element boundaries. Whitespace inside a segment, source newlines
// included, collapses to one space the way a browser renders it. Empty
// segments are dropped.
func textSegments(s *goquery.Selection) []string {
	var segments []string
	var current strings.Builder
	flush := func() {
		if text := strings.Join(strings.Fields(current.String()), " "); text != "" {
			segments = append(segments, text)
		}
		current.Reset()
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			current.WriteString(n.Data)
			return
		case html.ElementNode:
			if _, skip := skipText[n.Data]; skip {
				return
			}
			if _, block := blockTags[n.Data]; block {
				flush()
				defer flush()
			}
		case html.CommentNode:
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
		flush()
	}
	return segments
}

// joinedText joins the text segments under s with sep.
func joinedText(s *goquery.Selection, sep string) string {
	return strings.Join(textSegments(s), sep)
}

// blockText keeps one text segment per line and never more than one blank line
// in a row.
func blockText(s *goquery.Selection) string {
	return blankLines.ReplaceAllString(joinedText(s, "\n"), "\n\n")
}

// ResolveURL makes href absolute against base.
func ResolveURL(base string, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
