package ejudge

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed matches every *FetchError.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrUnexpectedPage means an element a scraper depends on is missing,
	// which usually means the judge changed its markup.
	ErrUnexpectedPage = errors.New("unexpected page structure")
	// ErrLoginCanceled is returned when the credential request was canceled,
	// superseded or rejected by the provider.
	ErrLoginCanceled = errors.New("login canceled")
	// ErrLoginSuperseded is the cancel cause of a credential request replaced
	// by a newer one. It is always wrapped together with ErrLoginCanceled.
	ErrLoginSuperseded      = errors.New("superseded by a newer login")
	ErrTooManyRedirects     = errors.New("too many redirects")
	ErrTooManyLoginAttempts = errors.New("too many login attempts")
	ErrTooManyPages         = errors.New("too many pages")
	// ErrNoCommentStyle is returned by Submit when banner lines were given
	// for a file extension that has no line comment syntax configured.
	ErrNoCommentStyle = errors.New("no comment style for file extension")
)

// FetchError is a transport failure: a network error or a status outside
// of 200-302.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed for %s: %s", e.URL, e.Err.Error())
	}
	return fmt.Sprintf("fetch failed for %s: status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

// JudgeError is an error reported by the judge itself through the alert box
// of a page, for example when the user is not enrolled in a course.
type JudgeError struct {
	Header  string
	Content string
}

func (e *JudgeError) Error() string {
	return e.Header + " : " + e.Content
}

func unexpectedPage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedPage, fmt.Sprintf(format, args...))
}
