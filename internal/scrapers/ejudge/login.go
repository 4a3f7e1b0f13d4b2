package ejudge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_login_token       = "login.token"
	report_login_credentials = "login.credentials"
	report_login_submit      = "login.submit"
)

// credentialSlot makes sure at most one credential request is pending, a
// new request cancels the previous one.
type credentialSlot struct {
	mutex  sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
}

func (s *credentialSlot) acquire(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)

	s.mutex.Lock()
	if s.cancel != nil {
		s.cancel(ErrLoginSuperseded)
	}
	s.seq++
	seq := s.seq
	s.cancel = cancel
	s.mutex.Unlock()

	release := func() {
		s.mutex.Lock()
		if s.seq == seq {
			s.cancel = nil
		}
		s.mutex.Unlock()
		cancel(nil)
	}
	return ctx, release
}

type credentialResult struct {
	creds Credentials
	err   error
}

func (c *Client) requestCredentials(ctx context.Context, message string) (Credentials, error) {
	ctx, release := c.slot.acquire(ctx)
	defer release()

	result := make(chan credentialResult, 1)
	go func() {
		creds, err := c.credentials.Credentials(ctx, message)
		result <- credentialResult{creds: creds, err: err}
	}()

	select {
	case r := <-result:
		if ctx.Err() != nil {
			return Credentials{}, fmt.Errorf("%w: %w", ErrLoginCanceled, context.Cause(ctx))
		}
		if r.err != nil {
			if errors.Is(r.err, ErrLoginCanceled) {
				return Credentials{}, r.err
			}
			return Credentials{}, fmt.Errorf("%w: %w", ErrLoginCanceled, r.err)
		}
		return r.creds, nil
	case <-ctx.Done():
		return Credentials{}, fmt.Errorf("%w: %w", ErrLoginCanceled, context.Cause(ctx))
	}
}

func loginPath(next string) string {
	return pathLoggedIn + "?" + url.Values{"next": {next}}.Encode()
}

func rememberValue(remember bool) string {
	if remember {
		return "true"
	}
	return "false"
}

// login drives the login form found in doc until the judge serves something
// other than a login page, which is returned. The judge redirects to `next`
// after a successful login.
func (c *Client) login(ctx context.Context, doc *goquery.Document, next string) (*goquery.Document, error) {
	message := ""
	for attempt := 1; ; attempt++ {
		if c.maxLoginAttempts > 0 && attempt > c.maxLoginAttempts {
			err := fmt.Errorf("%w: rejected %d times", ErrTooManyLoginAttempts, c.maxLoginAttempts)
			c.tel.ReportWarning(report_login_submit, err)
			return nil, err
		}

		token := LoginToken(doc)
		if token == "" {
			err := fmt.Errorf("login: %w", unexpectedPage("cannot get a web token"))
			c.tel.ReportBroken(report_login_token, err)
			return nil, err
		}

		creds, err := c.requestCredentials(ctx, message)
		if err != nil {
			c.tel.ReportWarning(report_login_credentials, err)
			return nil, fmt.Errorf("login: %w", err)
		}

		doc, err = c.fetchDocument(ctx, request{
			method: http.MethodPost,
			path:   loginPath(next),
			form: url.Values{
				"username": {creds.Username},
				"password": {creds.Password},
				"_token":   {token},
				"remember": {rememberValue(creds.Remember)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("login: authentication failed: %w", err)
		}

		if !IsLoginPage(doc) {
			c.tel.ReportDebug("login succeeded", attempt)
			c.observer.LoginSucceeded()
			return doc, nil
		}

		message = LoginMessage(doc)
		c.tel.ReportWarning(report_login_submit, "login rejected", attempt, message)
	}
}

// AttemptLogin requests the course list, logging in if needed, and reports
// whether that worked.
func (c *Client) AttemptLogin(ctx context.Context) bool {
	_, err := c.fetchAuthenticated(ctx, get(pathCourse))
	return err == nil
}

// Logout ends the session, reporting whether the judge answered with the
// login page.
func (c *Client) Logout(ctx context.Context) (bool, error) {
	doc, err := c.fetchDocument(ctx, get(pathLogout))
	if err != nil {
		return false, fmt.Errorf("logout: %w", err)
	}
	return IsLoginPage(doc), nil
}

// Login opens the login page and logs in if the judge serves the form,
// an existing session is left alone.
func (c *Client) Login(ctx context.Context) error {
	doc, err := c.fetchDocument(ctx, get(pathLogin))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !IsLoginPage(doc) {
		return nil
	}
	_, err = c.login(ctx, doc, pathCourse)
	return err
}
