// Package ejudge is a client for the e-judge web site: it keeps a session
// alive through the site's token based login, follows the redirect based
// re-authentication transparently and scrapes the server rendered pages
// into typed values.
package ejudge

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ejudge-client/internal/components/assert"
	"ejudge-client/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://ejudge.it.kmitl.ac.th"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

const (
	pathLogin      = "/auth/login"
	pathLoggedIn   = "/auth/loggedin"
	pathLogout     = "/auth/logout"
	pathAccount    = "/account"
	pathCourse     = "/course"
	pathProblem    = "/problem"
	pathUserOnline = "/useronline"
)

type ClientOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// requests per second, 0 disables rate limiting.
	RateLimit        float64
	CloudflareBypass bool

	// 0 means DefaultMaxRedirects.
	MaxRedirects int
	// 0 means unbounded.
	MaxLoginAttempts int
	// 0 means DefaultMaxPages.
	MaxPages int

	// maps a file extension (with the dot) to its line comment prefix.
	CommentStyles map[string]string

	// the judge prints dates without a zone, they are read in Location.
	Location *time.Location
	// session cookies from a previous run.
	Cookies []string

	Credentials CredentialProvider
	Sessions    SessionSink
	Observer    LoginObserver

	// receives a dump of every http exchange when set.
	Dump telemetry.InstrumentOutput
}

const (
	DefaultMaxRedirects     = 10
	DefaultMaxLoginAttempts = 5
	DefaultMaxPages         = 100
)

// DefaultCommentStyles returns a fresh copy of the built in comment styles.
func DefaultCommentStyles() map[string]string {
	return map[string]string{
		".py": "# ",
		".c":  "// ",
	}
}

// DefaultClientOptions are the options used by the CLI before its config
// is applied.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		BaseURL:          DefaultBaseURL,
		UserAgent:        defaultUserAgent,
		Timeout:          30 * time.Second,
		RateLimit:        2,
		MaxRedirects:     DefaultMaxRedirects,
		MaxLoginAttempts: DefaultMaxLoginAttempts,
		MaxPages:         DefaultMaxPages,
		CommentStyles:    DefaultCommentStyles(),
	}
}

// Client talks to a single judge origin. It is safe for concurrent use,
// concurrent calls only share the session cookies and the credential slot.
type Client struct {
	base    *url.URL
	http    *resty.Client
	cookies *cookieSet
	slot    *credentialSlot

	credentials CredentialProvider
	sessions    SessionSink
	observer    LoginObserver

	location         *time.Location
	maxRedirects     int
	maxLoginAttempts int
	maxPages         int
	commentStyles    map[string]string

	tel telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")
	assert.NonNegative(opts.MaxRedirects, "MaxRedirects")
	assert.NonNegative(opts.MaxLoginAttempts, "MaxLoginAttempts")
	assert.NonNegative(opts.MaxPages, "MaxPages")

	tel = telemetry.NewScopedAPI("ejudge", tel)

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ejudge: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ejudge: base url %q is not absolute", opts.BaseURL)
	}

	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.CommentStyles == nil {
		opts.CommentStyles = DefaultCommentStyles()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Credentials == nil {
		opts.Credentials = noCredentials{}
	}
	if opts.Sessions == nil {
		opts.Sessions = nopSessionSink{}
	}
	if opts.Observer == nil {
		opts.Observer = nopLoginObserver{}
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(base.String())
	// cookieSet owns the session cookies.
	httpClient.SetCookieJar(nil)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Client{
		base:    base,
		http:    httpClient,
		cookies: newCookieSet(opts.Cookies),
		slot:    &credentialSlot{},

		credentials: opts.Credentials,
		sessions:    opts.Sessions,
		observer:    opts.Observer,

		location:         opts.Location,
		maxRedirects:     opts.MaxRedirects,
		maxLoginAttempts: opts.MaxLoginAttempts,
		maxPages:         opts.MaxPages,
		commentStyles:    opts.CommentStyles,

		tel: tel,
	}, nil
}

// BaseURL is the origin the client talks to.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Cookies returns the current session cookie set.
func (c *Client) Cookies() []string {
	return c.cookies.snapshot()
}

// ResolveURL resolves a link found on a judge page against the origin.
func (c *Client) ResolveURL(link string) string {
	u, err := c.base.Parse(link)
	if err != nil {
		return link
	}
	return u.String()
}
