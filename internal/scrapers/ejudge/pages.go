package ejudge

import (
	"strings"

	"ejudge-client/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// IsLoginPage reports whether doc contains the login form container.
func IsLoginPage(doc *goquery.Document) bool {
	return doc.Find("#login-box").Length() > 0
}

// LoginToken is the anti-forgery token of the login form, empty if missing.
func LoginToken(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("input[name=_token]").First().AttrOr("value", ""))
}

// LoginMessage is the html of the first alert inside the login box, which
// is where the judge explains why the last attempt failed.
func LoginMessage(doc *goquery.Document) string {
	return htmlutil.InnerHTML(doc.Find("#login-box .alert").First())
}

// PageHeader is the own text of the page title ("Course", "Problem", ...).
func PageHeader(doc *goquery.Document) string {
	return htmlutil.OwnText(doc.Find(".content-header > h1"))
}

// AlertMessage returns the alert box of a page as a JudgeError, nil when
// the page has none.
func AlertMessage(doc *goquery.Document) *JudgeError {
	box := doc.Find("body > .alert")
	if box.Length() == 0 {
		return nil
	}
	return &JudgeError{
		Header:  htmlutil.Text(box.Find("strong")),
		Content: htmlutil.Text(box.Find("p")),
	}
}

// pageError explains why doc is not the page titled `expected`: the judge's
// own alert when there is one, a structural error otherwise.
func pageError(doc *goquery.Document, expected string) error {
	if alert := AlertMessage(doc); alert != nil {
		return alert
	}
	return unexpectedPage("expected page %q, got %q", expected, PageHeader(doc))
}

func expectPage(doc *goquery.Document, expected string) error {
	if PageHeader(doc) != expected {
		return pageError(doc, expected)
	}
	return nil
}
