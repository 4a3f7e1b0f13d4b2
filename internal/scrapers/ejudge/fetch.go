package ejudge

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_client_fetch    = "client.fetch"
	report_client_redirect = "client.redirect"
	report_client_parse    = "client.parse"
)

type multipartFile struct {
	field    string
	filename string
	content  []byte
}

type request struct {
	method string
	// path and query relative to the origin.
	path      string
	form      url.Values
	multipart map[string]string
	file      *multipartFile
}

func get(path string) request {
	return request{method: http.MethodGet, path: path}
}

func (c *Client) urlOf(path string) string {
	u, err := c.base.Parse(path)
	if err != nil {
		return path
	}
	return u.String()
}

// do performs exactly one request. Statuses 200-302 are successful, the
// session cookies are replaced whenever the response carries Set-Cookie.
func (c *Client) do(ctx context.Context, req request) (*resty.Response, error) {
	r := c.http.R().SetContext(ctx)
	if cookie := c.cookies.header(); cookie != "" {
		r.SetHeader("Cookie", cookie)
	}
	if req.form != nil {
		r.SetFormDataFromValues(req.form)
	}
	if req.multipart != nil || req.file != nil {
		r.SetMultipartFormData(req.multipart)
		if req.file != nil {
			r.SetFileReader(req.file.field, req.file.filename, bytes.NewReader(req.file.content))
		}
	}

	method := req.method
	if method == "" {
		method = http.MethodGet
	}
	res, err := r.Execute(method, req.path)
	if err != nil {
		return nil, &FetchError{URL: c.urlOf(req.path), Err: err}
	}

	setCookies := res.Header().Values("Set-Cookie")
	if len(setCookies) > 0 {
		c.sessions.SessionChanged(c.cookies.replace(setCookies))
	}

	status := res.StatusCode()
	if status < 200 || status > 302 {
		return nil, &FetchError{URL: c.urlOf(req.path), Status: status}
	}
	return res, nil
}

func isRedirect(status int) bool {
	return status == http.StatusFound || status == http.StatusMovedPermanently
}

// fetch performs req and follows redirects, every hop is a plain GET of the
// path and query of the Location header.
func (c *Client) fetch(ctx context.Context, req request) (*resty.Response, error) {
	for hops := 0; ; hops++ {
		res, err := c.do(ctx, req)
		if err != nil {
			c.tel.ReportBroken(report_client_fetch, err, req.method, req.path)
			return nil, err
		}
		if !isRedirect(res.StatusCode()) {
			return res, nil
		}

		if hops >= c.maxRedirects {
			err := fmt.Errorf("%w: more than %d hops from %s", ErrTooManyRedirects, c.maxRedirects, req.path)
			c.tel.ReportBroken(report_client_redirect, err)
			return nil, err
		}

		location := res.Header().Get("Location")
		if location == "" {
			err := unexpectedPage("redirect from %s without location", req.path)
			c.tel.ReportBroken(report_client_redirect, err)
			return nil, err
		}
		next, err := c.base.Parse(location)
		if err != nil {
			err = unexpectedPage("redirect from %s to invalid location %q: %s", req.path, location, err.Error())
			c.tel.ReportBroken(report_client_redirect, err)
			return nil, err
		}

		c.tel.ReportDebug("redirecting", req.path, next.RequestURI())
		req = get(next.RequestURI())
	}
}

// fetchDocument is fetch followed by parsing the final body.
func (c *Client) fetchDocument(ctx context.Context, req request) (*goquery.Document, error) {
	res, err := c.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		err = fmt.Errorf("parse %s: %w", req.path, err)
		c.tel.ReportBroken(report_client_parse, err)
		return nil, err
	}
	return doc, nil
}

// fetchAuthenticated is fetchDocument, except that a login page is answered
// by logging in with `next` set to the requested path. The document the
// login resolves to is returned instead of fetching req again.
func (c *Client) fetchAuthenticated(ctx context.Context, req request) (*goquery.Document, error) {
	doc, err := c.fetchDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	if !IsLoginPage(doc) {
		return doc, nil
	}
	c.tel.ReportDebug("session expired, logging in", req.path)
	return c.login(ctx, doc, req.path)
}
