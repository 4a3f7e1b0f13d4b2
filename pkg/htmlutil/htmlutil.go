// Package htmlutil holds small text extraction helpers over goquery
// selections.
package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText returns the concatenated text of every text node under node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// OwnText returns the trimmed text of the direct text children of the
// selection, ignoring any nested markup.
func OwnText(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				buffer.WriteString(child.Data)
			}
		}
	}
	return strings.TrimSpace(buffer.String())
}

// Text is sel.Text() with surrounding whitespace removed.
func Text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

// InnerHTML is the trimmed html of the first node in sel, empty if sel is
// empty.
func InnerHTML(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	out, err := sel.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// NormalizeText strips non printable characters and collapses runs of
// whitespace into a single space.
func NormalizeText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// IDFromLink returns the last integer path segment of a link, so both
// "/problem/4821" and "/account/17/edit" resolve to their id. Query strings
// and fragments are ignored.
func IDFromLink(link string) (int, bool) {
	path := link
	parsed, err := url.Parse(link)
	if err == nil {
		path = parsed.Path
	}

	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		id, err := strconv.Atoi(segments[i])
		if err == nil {
			return id, true
		}
	}
	return 0, false
}

// LeadingInt parses the integer at the start of s ("12 cases" -> 12).
func LeadingInt(s string) (int, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return n, true
}

// LeadingFloat parses the number at the start of s ("87.5 / 100" -> 87.5).
func LeadingFloat(s string) (float64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
