package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"sync"
	"time"

	"earnify/auth"
	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/infrastructure/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// PayoutSecretHeader carries the payout processor's shared secret
const PayoutSecretHeader = "X-Payout-Secret"

type principalKey struct{}

// PrincipalFrom returns the verified caller stored by the auth middleware
func PrincipalFrom(ctx context.Context) (*entities.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*entities.Principal)
	return p, ok
}

func withPrincipal(ctx context.Context, p *entities.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// requireInitData verifies the Telegram init-data header and stores the principal
func requireInitData(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := verifier.VerifyPrincipal(r.Header.Get(auth.InitDataHeader))
			if err != nil {
				log.WithFields(log.Fields{
					"path":  r.URL.Path,
					"error": err,
				}).Debug("Rejected init data")
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
		})
	}
}

// requireAdmin must run after requireInitData
func requireAdmin(isAdmin func(int64) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok || !isAdmin(principal.ID) {
				writeError(w, r, apperrors.Auth(apperrors.CodeAdminRequired, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireSharedSecret guards machine-to-machine endpoints with a header secret
func requireSharedSecret(header, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, r, apperrors.Auth(apperrors.CodeServerMisconfigured, "payout secret not configured"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(header)), []byte(secret)) != 1 {
				writeError(w, r, apperrors.Forbidden("invalid payout secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// principalLimiter keeps one token bucket per principal
type principalLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*limiterEntry
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newPrincipalLimiter(perMinute int) *principalLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &principalLimiter{
		limiters: make(map[int64]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
	}
}

func (l *principalLimiter) allow(principalID int64) bool {
	l.mu.Lock()
	entry, ok := l.limiters[principalID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[principalID] = entry
	}
	entry.lastSeen = l.now()
	l.mu.Unlock()
	return entry.limiter.Allow()
}

// idleAfter is how long a bucket takes to refill completely. An evicted
// bucket idle that long is indistinguishable from a fresh one.
func (l *principalLimiter) idleAfter() time.Duration {
	return time.Duration(float64(l.burst) / float64(l.limit) * float64(time.Second))
}

// sweep drops buckets that have been idle long enough to be full again
func (l *principalLimiter) sweep() int {
	cutoff := l.now().Add(-l.idleAfter())

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for id, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, id)
			removed++
		}
	}
	return removed
}

func (l *principalLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// runSweeper sweeps every interval until ctx is done
func (l *principalLimiter) runSweeper(ctx context.Context, interval time.Duration) {
	if l == nil {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.sweep(); removed > 0 {
				log.WithFields(log.Fields{
					"removed":   removed,
					"remaining": l.size(),
				}).Debug("Evicted idle rate limiters")
			}
		}
	}
}

// Handler rejects callers over their budget with 429. A nil limiter lets everything through.
func (l *principalLimiter) Handler(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if ok && !l.allow(principal.ID) {
			log.WithFields(log.Fields{
				"userId": principal.ID,
				"path":   r.URL.Path,
			}).Warn("Rate limit exceeded")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:   "RateLimited",
				Message: "too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument records request counts and latency under the matched route pattern
func instrument(metrics *observability.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := metrics.Begin()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			done(r.Method, route, status)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     strconv.Itoa(ww.Status()),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  middleware.GetReqID(r.Context()),
		}).Debug("Handled request")
	})
}
