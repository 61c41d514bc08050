package executor

import (
	"context"
	"errors"
	"sync"
)

// StaticCredentials holds a fixed token with no refresh capability. Used
// when the configured feed authenticates with a long-lived API key; a 401
// then surfaces as AuthRefreshFailed and requires operator action.
type StaticCredentials struct {
	mu    sync.RWMutex
	token string
}

// NewStaticCredentials creates a provider around a fixed token
func NewStaticCredentials(token string) *StaticCredentials {
	return &StaticCredentials{token: token}
}

func (s *StaticCredentials) CurrentToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *StaticCredentials) Refresh(ctx context.Context) (string, error) {
	return "", errors.New("static credentials cannot be refreshed, re-login required")
}

// SetToken replaces the token, e.g. after an external re-login
func (s *StaticCredentials) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}
