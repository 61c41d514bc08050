package executor

import (
	"errors"
	"fmt"
)

// Kind classifies request failures per the retry policy
type Kind int

const (
	// KindTimeout means the per-attempt deadline elapsed; retryable
	KindTimeout Kind = iota
	// KindNetwork means the request never reached the server; retryable
	KindNetwork
	// KindServer means a 5xx response; retryable
	KindServer
	// KindUnauthorized means a 401 that survived the single refresh attempt
	KindUnauthorized
	// KindRateLimited means the local limiter denied the request, or the
	// server returned 429 without the Retry429 opt-in
	KindRateLimited
	// KindClient means a terminal 4xx other than 401/429
	KindClient
	// KindAuthRefresh means the credential refresh itself failed
	KindAuthRefresh
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network_unavailable"
	case KindServer:
		return "server_error"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindClient:
		return "client_error"
	case KindAuthRefresh:
		return "auth_refresh_failed"
	default:
		return "unknown"
	}
}

// RequestError is the single error type surfaced by the executor
type RequestError struct {
	Kind     Kind
	Status   int
	Attempts int
	Err      error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed (%s, status=%d, attempts=%d): %v", e.Kind, e.Status, e.Attempts, e.Err)
	}
	return fmt.Sprintf("request failed (%s, status=%d, attempts=%d)", e.Kind, e.Status, e.Attempts)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may be retried locally
func (e *RequestError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork, KindServer:
		return true
	default:
		return false
	}
}

// KindOf extracts the failure kind from an error chain
func KindOf(err error) (Kind, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}
