package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/infraquery/infraquery/internal/config"
)

// Router selects among providers and falls back on retryable failures.
// Per call it walks: idle → calling(provider) → success, or retry with the
// next provider on a timeout/transport/rate-limit class error, or exhausted
// (ErrModelUnavailable) when no provider is left. A provider-class rejection
// fails fast: another provider will not fix a bad request.
type Router struct {
	fast     []Provider
	advanced []Provider
}

// NewRouter builds a router from the providers preferred in fast mode and
// those preferred in advanced mode. Either list may be empty as long as the
// other is not.
func NewRouter(fast, advanced []Provider) (*Router, error) {
	if len(fast)+len(advanced) == 0 {
		return nil, fmt.Errorf("at least one model provider is required")
	}
	return &Router{fast: fast, advanced: advanced}, nil
}

// Complete runs one completion, honoring the caller's speed preference for
// provider ordering. Returns the raw model text and the name of the provider
// that served it.
func (r *Router) Complete(ctx context.Context, speed config.ModelSpeed, req Request) (string, string, error) {
	var lastErr error

	for _, p := range r.order(speed) {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		text, err := p.Complete(ctx, req)
		if err == nil {
			log.Debug().Str("provider", p.Name()).Str("task", string(req.Task)).Msg("model call succeeded")
			return text, p.Name(), nil
		}

		var perr *ProviderError
		if errors.As(err, &perr) && perr.Retryable() {
			log.Warn().Str("provider", p.Name()).Str("task", string(req.Task)).
				Str("class", string(perr.Class)).Msg("provider failed, trying next")
			lastErr = perr
			continue
		}
		// Context cancellation surfaces as-is so the caller can tell an
		// abandoned request from a provider rejection.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", "", err
		}
		return "", "", err
	}

	if lastErr != nil {
		return "", "", fmt.Errorf("%w: %v", ErrModelUnavailable, lastErr)
	}
	return "", "", ErrModelUnavailable
}

func (r *Router) order(speed config.ModelSpeed) []Provider {
	if speed == config.SpeedAdvanced {
		return append(append([]Provider(nil), r.advanced...), r.fast...)
	}
	return append(append([]Provider(nil), r.fast...), r.advanced...)
}
