package httpserver

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/athenaeum/author-request-service/internal/domain"
	"github.com/athenaeum/author-request-service/internal/review"
)

type contextKey string

const ctxKeyActor contextKey = "actor"

// AuthConfig holds the token verification settings for the auth middleware.
type AuthConfig struct {
	// Secret is the HMAC key shared with the identity service.
	Secret string
	// Issuer, when set, must match the token's iss claim.
	Issuer string
}

// authMiddleware verifies the Bearer token and stores the acting user in the
// request context. Tokens carry the user ID in sub and the role in a custom
// role claim.
func authMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			actor, err := actorFromToken(parts[1], cfg)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyActor, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// actorFromToken parses and validates a signed token and extracts the actor.
func actorFromToken(tokenString string, cfg AuthConfig) (review.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return review.Actor{}, err
	}
	if !token.Valid {
		return review.Actor{}, jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return review.Actor{}, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return review.Actor{}, fmt.Errorf("token missing subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return review.Actor{}, fmt.Errorf("token subject is not a user ID")
	}

	roleClaim, _ := claims["role"].(string)
	role := domain.Role(roleClaim)
	if !domain.IsValidRole(role) {
		return review.Actor{}, fmt.Errorf("token carries unknown role %q", roleClaim)
	}

	return review.Actor{ID: userID, Role: role}, nil
}

// actorFromContext extracts the authenticated actor from the request context.
func actorFromContext(ctx context.Context) (review.Actor, bool) {
	actor, ok := ctx.Value(ctxKeyActor).(review.Actor)
	return actor, ok
}

// contextWithActor is used by tests to inject an actor without a token.
func contextWithActor(ctx context.Context, actor review.Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// correlationIDMiddleware ensures every request has a correlation ID.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = middleware.GetReqID(r.Context())
		}
		if correlationID == "" {
			buf := make([]byte, 8)
			if _, err := rand.Read(buf); err != nil {
				correlationID = fmt.Sprintf("%x", time.Now().UnixNano())
			} else {
				correlationID = fmt.Sprintf("%x", buf)
			}
		}

		w.Header().Set("X-Correlation-ID", correlationID)
		next.ServeHTTP(w, r)
	})
}

// jsonContentTypeMiddleware sets Content-Type: application/json for all responses.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// clientLimiter tracks one token bucket per client. Clients are keyed by the
// authenticated user when present, falling back to the remote IP.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdleTTL = 10 * time.Minute

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// allow reports whether the client identified by key may proceed, and prunes
// buckets that have been idle past the TTL.
func (c *clientLimiter) allow(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.limiters[key] = entry
	}
	entry.lastSeen = now

	if len(c.limiters) > 1000 {
		for k, e := range c.limiters {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(c.limiters, k)
			}
		}
	}

	return entry.limiter.Allow()
}

// rateLimitMiddleware enforces a per-client request rate on the routes it wraps.
func rateLimitMiddleware(limiter *clientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !limiter.allow(key) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller for rate limiting purposes.
func clientKey(r *http.Request) string {
	if actor, ok := actorFromContext(r.Context()); ok {
		return "user:" + actor.ID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
