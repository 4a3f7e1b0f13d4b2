package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"ejudge-client/internal/scrapers/ejudge"

	"golang.org/x/term"
)

// promptProvider hands out the configured credentials once, then asks on
// the terminal. Every rejection message from the judge is printed before
// prompting.
type promptProvider struct {
	username string
	password string
	remember bool

	in  *os.File
	out io.Writer
	// read and interactive default to the terminal.
	read        func() (ejudge.Credentials, error)
	interactive func() bool

	mutex          sync.Mutex
	usedConfigured bool
	// pending is the read still in flight, stdin is only ever read by one
	// goroutine at a time.
	pending chan promptResult
}

type promptResult struct {
	creds ejudge.Credentials
	err   error
}

func newPromptProvider(config Config) *promptProvider {
	p := &promptProvider{
		username: config.Username,
		password: config.Password,
		remember: config.remember(),
		in:       os.Stdin,
		out:      os.Stderr,
	}
	p.read = p.prompt
	p.interactive = func() bool {
		return term.IsTerminal(int(p.in.Fd()))
	}
	return p
}

// startRead returns the in flight read, starting one when there is none.
// A read abandoned by a cancelled caller answers the next caller.
func (p *promptProvider) startRead() chan promptResult {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.pending != nil {
		return p.pending
	}
	pending := make(chan promptResult, 1)
	p.pending = pending
	go func() {
		creds, err := p.read()
		pending <- promptResult{creds: creds, err: err}
	}()
	return pending
}

func (p *promptProvider) configured() (ejudge.Credentials, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.usedConfigured || p.username == "" || p.password == "" {
		return ejudge.Credentials{}, false
	}
	p.usedConfigured = true
	return ejudge.Credentials{Username: p.username, Password: p.password, Remember: p.remember}, true
}

func (p *promptProvider) Credentials(ctx context.Context, message string) (ejudge.Credentials, error) {
	if message == "" {
		creds, ok := p.configured()
		if ok {
			return creds, nil
		}
	} else {
		fmt.Fprintf(p.out, "login rejected: %s\n", renderMessage(message))
	}

	if !p.interactive() {
		return ejudge.Credentials{}, fmt.Errorf("cannot prompt for credentials: stdin is not a terminal")
	}

	pending := p.startRead()
	select {
	case r := <-pending:
		p.mutex.Lock()
		if p.pending == pending {
			p.pending = nil
		}
		p.mutex.Unlock()
		return r.creds, r.err
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return ejudge.Credentials{}, context.Cause(ctx)
	}
}

func (p *promptProvider) prompt() (ejudge.Credentials, error) {
	reader := bufio.NewReader(p.in)

	if p.username != "" {
		fmt.Fprintf(p.out, "username [%s]: ", p.username)
	} else {
		fmt.Fprint(p.out, "username: ")
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return ejudge.Credentials{}, fmt.Errorf("read username: %w", err)
	}
	username := strings.TrimSpace(line)
	if username == "" {
		username = p.username
	}

	fmt.Fprint(p.out, "password: ")
	password, err := term.ReadPassword(int(p.in.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return ejudge.Credentials{}, fmt.Errorf("read password: %w", err)
	}

	return ejudge.Credentials{
		Username: username,
		Password: string(password),
		Remember: p.remember,
	}, nil
}

func renderMessage(message string) string {
	rendered, err := converter.ConvertString(message)
	if err != nil {
		return message
	}
	return strings.TrimSpace(rendered)
}
