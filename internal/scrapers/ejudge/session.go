package ejudge

import (
	"net/http"
	"strings"
	"sync"
)

// cookieSet holds the session cookies as the raw Set-Cookie values the judge
// last sent. Concurrent responses are last-writer-wins.
type cookieSet struct {
	mutex sync.Mutex
	raw   []string
}

func newCookieSet(raw []string) *cookieSet {
	return &cookieSet{raw: append([]string(nil), raw...)}
}

// header renders the Cookie request header, only name=value pairs are sent.
func (s *cookieSet) header() string {
	s.mutex.Lock()
	raw := s.raw
	s.mutex.Unlock()

	if len(raw) == 0 {
		return ""
	}
	res := http.Response{Header: http.Header{"Set-Cookie": raw}}
	pairs := make([]string, 0, len(raw))
	for _, cookie := range res.Cookies() {
		pairs = append(pairs, cookie.Name+"="+cookie.Value)
	}
	return strings.Join(pairs, "; ")
}

// replace swaps the whole set, returning the new snapshot.
func (s *cookieSet) replace(raw []string) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.raw = append([]string(nil), raw...)
	return append([]string(nil), s.raw...)
}

func (s *cookieSet) snapshot() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.raw...)
}
