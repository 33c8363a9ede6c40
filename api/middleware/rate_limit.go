package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/vistore-backend/api/responses"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

// rateLimitBodyLimit caps how much of a request body is buffered to find the
// email a rule keys on.
const rateLimitBodyLimit = 64 << 10

type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitRule counts requests by one dimension of the request.
type RateLimitRule struct {
	dimension string
	limit     int
	needsBody bool
	key       func(r *http.Request, body []byte) string
}

// PerIP counts requests by client address. Resolving proxy headers is left to
// chi's RealIP middleware.
func PerIP(limit int) RateLimitRule {
	return RateLimitRule{dimension: "ip", limit: limit, key: func(r *http.Request, _ []byte) string {
		return clientIP(r)
	}}
}

// PerEmail counts requests by the hashed "email" field of a JSON body.
func PerEmail(limit int) RateLimitRule {
	return RateLimitRule{dimension: "email", limit: limit, needsBody: true, key: func(_ *http.Request, body []byte) string {
		email := strings.ToLower(strings.TrimSpace(emailField(body)))
		if email == "" {
			return ""
		}
		sum := sha256.Sum256([]byte(email))
		return hex.EncodeToString(sum[:])
	}}
}

// RateLimitPolicy is a named set of rules sharing one fixed window.
type RateLimitPolicy struct {
	name   string
	window time.Duration
	rules  []RateLimitRule
}

// NewRateLimitPolicy drops rules with a non-positive limit.
func NewRateLimitPolicy(name string, window time.Duration, rules ...RateLimitRule) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "default"
	}
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.limit > 0 {
			active = append(active, rule)
		}
	}
	return RateLimitPolicy{name: name, window: window, rules: active}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.rules) > 0
}

func (p RateLimitPolicy) needsBody() bool {
	for _, rule := range p.rules {
		if rule.needsBody {
			return true
		}
	}
	return false
}

func (p RateLimitPolicy) scope(rule RateLimitRule, value string) string {
	return p.name + ":" + rule.dimension + ":" + value
}

// RateLimit rejects requests with 429 once any rule of the policy is over its
// limit for the current window. A missing limiter turns the middleware off.
func RateLimit(policy RateLimitPolicy, limiter fixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.needsBody() && r.Body != nil {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, rateLimitBodyLimit))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
			}

			for _, rule := range policy.rules {
				value := rule.key(r, body)
				if value == "" {
					continue
				}
				allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope(rule, value), int64(rule.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					rejectRateLimited(ctx, logg, w, policy, rule, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, rule RateLimitRule, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    policy.name,
			"dimension": rule.dimension,
			"attempts":  count,
			"limit":     rule.limit,
		}), "request rate limited")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Round(time.Second)/time.Second)))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func emailField(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return payload.Email
}
