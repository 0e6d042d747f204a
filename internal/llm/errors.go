package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrModelUnavailable is returned by the router when every configured
// provider has been exhausted.
var ErrModelUnavailable = errors.New("all model providers exhausted")

// ErrorClass groups provider failures by how the router should react.
type ErrorClass string

const (
	ClassTimeout   ErrorClass = "timeout"
	ClassTransport ErrorClass = "transport"
	ClassRateLimit ErrorClass = "rate_limit"
	ClassProvider  ErrorClass = "provider" // request rejected; another provider will not help
)

// ProviderError is the normalized failure of one provider call. Message never
// carries the raw provider payload, only a short classification-grade string.
type ProviderError struct {
	Provider string
	Class    ErrorClass
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s (%s)", e.Provider, e.Message, e.Class)
}

// Retryable reports whether the router should try the next provider.
func (e *ProviderError) Retryable() bool {
	switch e.Class {
	case ClassTimeout, ClassTransport, ClassRateLimit:
		return true
	}
	return false
}

// classify normalizes an arbitrary provider error. SDK-specific mappings
// (HTTP status codes, googleapi errors) happen in the providers before
// falling back here.
func classify(provider string, err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Provider: provider, Class: ClassTimeout, Message: "request timed out"}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderError{Provider: provider, Class: ClassTimeout, Message: "request canceled"}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &ProviderError{Provider: provider, Class: ClassTimeout, Message: "network timeout"}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"),
		strings.Contains(msg, "quota"), strings.Contains(msg, "overloaded"):
		return &ProviderError{Provider: provider, Class: ClassRateLimit, Message: "rate limited"}
	case strings.Contains(msg, "connection"), strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return &ProviderError{Provider: provider, Class: ClassTransport, Message: "transport failure"}
	}
	return &ProviderError{Provider: provider, Class: ClassProvider, Message: "request rejected by provider"}
}
