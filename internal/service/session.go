package service

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"exchange-analytics-dashboard/internal/logger"
	"exchange-analytics-dashboard/internal/model"
)

// AuthChecker asks the backend whether the forwarded session is signed in.
type AuthChecker interface {
	AuthStatus(ctx context.Context) (model.AuthStatus, error)
}

// GuardState is the progress of a session check.
type GuardState string

const (
	GuardLoading GuardState = "loading"
	GuardGranted GuardState = "granted"
	GuardDenied  GuardState = "denied"
)

// SessionGuard gates protected views on the backend session.
type SessionGuard struct {
	checker AuthChecker
	log     *logger.Logger
}

func NewSessionGuard(checker AuthChecker, log *logger.Logger) *SessionGuard {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionGuard{checker: checker, log: log}
}

// Check starts probing the session for a visit to destination. The
// returned check reports GuardLoading until the probe settles.
func (g *SessionGuard) Check(ctx context.Context, destination string) *SessionCheck {
	c := &SessionCheck{
		destination: destination,
		state:       GuardLoading,
		done:        make(chan struct{}),
	}
	go c.run(ctx, g)
	return c
}

// SettledCheck returns a check that has already finished in state.
func SettledCheck(destination string, state GuardState) *SessionCheck {
	c := &SessionCheck{destination: destination, state: state, done: make(chan struct{})}
	close(c.done)
	return c
}

// SessionCheck is one in-progress or settled session probe.
type SessionCheck struct {
	destination string
	done        chan struct{}

	mu    sync.Mutex
	state GuardState
}

func (c *SessionCheck) run(ctx context.Context, g *SessionGuard) {
	state := GuardDenied
	status, err := g.checker.AuthStatus(ctx)
	switch {
	case err != nil:
		g.log.Warn(ctx, "session check failed", err)
	case status.LoggedIn:
		state = GuardGranted
	}

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	close(c.done)
}

// State returns the current state without waiting.
func (c *SessionCheck) State() GuardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the probe has settled.
func (c *SessionCheck) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the probe settles or ctx ends, and returns the state
// at that point.
func (c *SessionCheck) Wait(ctx context.Context) GuardState {
	select {
	case <-c.done:
	case <-ctx.Done():
	}
	return c.State()
}

// Destination is the path the visit was headed to.
func (c *SessionCheck) Destination() string {
	return c.destination
}

// LoginURL is the dashboard login route that returns to the destination
// after sign-in.
func (c *SessionCheck) LoginURL() string {
	return LoginPath(c.destination)
}

// LoginPath builds /login?next=<destination> with the destination
// percent-encoded, spaces as %20.
func LoginPath(destination string) string {
	if destination == "" {
		destination = "/"
	}
	return "/login?next=" + strings.ReplaceAll(url.QueryEscape(destination), "+", "%20")
}
