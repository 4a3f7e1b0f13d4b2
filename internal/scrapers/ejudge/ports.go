package ejudge

import "context"

type Credentials struct {
	Username string
	Password string
	Remember bool
}

// CredentialProvider is asked for credentials whenever the judge serves a
// login page. `message` is empty on the first attempt and holds the judge's
// error message (as html) on retries. Implementations must return once ctx
// is done, a newer login cancels the context of an older pending request.
type CredentialProvider interface {
	Credentials(ctx context.Context, message string) (Credentials, error)
}

type CredentialProviderFunc func(ctx context.Context, message string) (Credentials, error)

func (f CredentialProviderFunc) Credentials(ctx context.Context, message string) (Credentials, error) {
	return f(ctx, message)
}

// SessionSink is notified with the full cookie set (raw Set-Cookie values)
// every time the judge replaces it, so it can be persisted.
type SessionSink interface {
	SessionChanged(cookies []string)
}

type SessionSinkFunc func(cookies []string)

func (f SessionSinkFunc) SessionChanged(cookies []string) {
	f(cookies)
}

// LoginObserver is notified after a successful re-authentication.
type LoginObserver interface {
	LoginSucceeded()
}

type LoginObserverFunc func()

func (f LoginObserverFunc) LoginSucceeded() {
	f()
}

type nopSessionSink struct{}

func (nopSessionSink) SessionChanged([]string) {}

type nopLoginObserver struct{}

func (nopLoginObserver) LoginSucceeded() {}

type noCredentials struct{}

func (noCredentials) Credentials(context.Context, string) (Credentials, error) {
	return Credentials{}, ErrLoginCanceled
}
