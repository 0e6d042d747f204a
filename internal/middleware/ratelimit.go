package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/infraquery/infraquery/internal/models"
)

const rateWindow = time.Minute

// limiter tracks request timestamps per caller over a sliding window. Every
// /ask request fans out to model providers, so the ceiling is enforced
// before any handler work starts.
type limiter struct {
	mu      sync.Mutex
	limit   int
	callers map[string][]time.Time
}

func newLimiter(limit int) *limiter {
	l := &limiter{limit: limit, callers: make(map[string][]time.Time)}
	go l.sweep()
	return l
}

// sweep drops callers that have been idle for a full window so the map does
// not grow with every key and IP ever seen.
func (l *limiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-rateWindow)
		l.mu.Lock()
		for key, stamps := range l.callers {
			if len(stamps) == 0 || stamps[len(stamps)-1].Before(cutoff) {
				delete(l.callers, key)
			}
		}
		l.mu.Unlock()
	}
}

func (l *limiter) take(key string) (remaining int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-rateWindow)
	live := l.callers[key][:0]
	for _, t := range l.callers[key] {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}
	if len(live) >= l.limit {
		l.callers[key] = live
		return 0, false
	}
	live = append(live, time.Now())
	l.callers[key] = live
	return l.limit - len(live), true
}

// clientKey identifies the caller: the API key when one is presented,
// otherwise the remote address.
func clientKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.RemoteAddr
}

// RateLimit bounds requests per caller per minute.
func RateLimit(limitPerMinute int) func(http.Handler) http.Handler {
	l := newLimiter(limitPerMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, ok := l.take(clientKey(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limitPerMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !ok {
				log.Warn().Str("path", r.URL.Path).Msg("rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
				models.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
