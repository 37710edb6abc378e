// Package session carries the authenticated user context for one login.
//
// Every synchronizer receives a Session at construction instead of reading
// process-wide auth state. Lifecycle is initialized (on login), active, then
// torn down (on logout); a torn-down session refuses to mint credentials.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const (
	// StateInitialized means the session was constructed but not activated.
	StateInitialized = "initialized"
	// StateActive means the session may be used for authenticated calls.
	StateActive = "active"
	// StateTornDown means the session was ended by logout.
	StateTornDown = "torn_down"
)

var (
	// ErrNotActive indicates use of a session outside its active window.
	ErrNotActive = errors.New("session: not active")
	// ErrExpired indicates the bearer token's exp claim has passed.
	ErrExpired = errors.New("session: token expired")
)

// Options overrides values otherwise decoded from the token claims.
type Options struct {
	UserID   string
	UserName string
}

// Session is the per-login auth context handed to each synchronizer.
type Session struct {
	mu        sync.RWMutex
	token     string
	userID    string
	userName  string
	expiresAt time.Time
	state     string
	now       func() time.Time
}

// New builds a session from a bearer token. User identity is taken from the
// token's sub/name claims when present; explicit options win. The token is
// not signature-verified here: the server is the token authority and the
// client only needs the claims.
func New(token string, opts Options) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("session: token is required")
	}

	s := &Session{
		token:    token,
		userID:   strings.TrimSpace(opts.UserID),
		userName: strings.TrimSpace(opts.UserName),
		state:    StateInitialized,
		now:      time.Now,
	}

	parser := gojwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, gojwt.MapClaims{})
	if err == nil {
		claims, ok := parsed.Claims.(gojwt.MapClaims)
		if ok {
			if s.userID == "" {
				if sub, err := claims.GetSubject(); err == nil {
					s.userID = sub
				}
			}
			if s.userName == "" {
				if name, ok := claims["name"].(string); ok {
					s.userName = name
				}
			}
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				s.expiresAt = exp.Time
			}
		}
	}

	if s.userID == "" {
		return nil, errors.New("session: user id missing from both options and token claims")
	}

	return s, nil
}

// Activate moves an initialized session into the active state.
func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateInitialized:
		s.state = StateActive
		return nil
	case StateActive:
		return nil
	default:
		return fmt.Errorf("session: cannot activate from state %q", s.state)
	}
}

// Teardown ends the session. Calling it more than once is a no-op.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.state = StateTornDown
	s.token = ""
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Session) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// UserID returns the authenticated user's id.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// UserName returns the authenticated user's display name, if known.
func (s *Session) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName
}

// Token returns the raw bearer token while the session is active.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateActive {
		return "", ErrNotActive
	}
	if !s.expiresAt.IsZero() && s.now().After(s.expiresAt) {
		return "", ErrExpired
	}
	return s.token, nil
}

// Authorization returns the Authorization header value for REST calls.
func (s *Session) Authorization() (string, error) {
	token, err := s.Token()
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}
