package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/util/tracing"
	"github.com/bwise1/barrier_reports/util/values"
	"github.com/golang-jwt/jwt"
	"github.com/lucsky/cuid"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RoleAdmin is the role claim required on destructive routes.
const RoleAdmin = "admin"

var (
	errTokenExpired = errors.New("token expired")
	errInvalidToken = errors.New("invalid token")
)

// RequestTracing handles the request tracing context. Callers that do not
// identify themselves are traced as anonymous.
func RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestSource := r.Header.Get(values.HeaderRequestSource)
		if requestSource == "" {
			requestSource = values.DefaultRequestSource
		}

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}
		w.Header().Set(values.HeaderRequestID, requestID)

		tracingContext := tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
		}

		ctx = context.WithValue(ctx, values.ContextTracingKey, tracingContext)
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

// RequireAdmin guards destructive routes with an HMAC signed bearer token
// carrying role "admin". It is a no-op when no admin secret is configured.
func (api *API) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.Config.AdminJWTSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		authorization := strings.Split(r.Header.Get("Authorization"), " ")
		if len(authorization) != 2 || authorization[0] != "Bearer" {
			writeErrorResponse(w, errors.New(values.NotAuthorised), values.NotAuthorised, "not-authorized")
			return
		}

		subject, err := api.verifyAdminToken(authorization[1])
		if err != nil {
			if errors.Is(err, errTokenExpired) {
				writeErrorResponse(w, err, values.TokenExpired, "token-expired")
				return
			}
			writeErrorResponse(w, err, values.NotAuthorised, "invalid-token")
			return
		}

		tc := tracing.FromContext(r.Context())
		logger.Log.WithField("request_id", tc.RequestID).WithField("admin", subject).Debug("admin request")
		next.ServeHTTP(w, r)
	})
}

func (api *API) verifyAdminToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(api.Config.AdminJWTSecret), nil
	})

	if ve, ok := err.(*jwt.ValidationError); ok {
		if ve.Errors&jwt.ValidationErrorExpired != 0 {
			return "", errTokenExpired
		}
	}
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidToken
	}
	if role, _ := claims["role"].(string); role != RoleAdmin {
		return "", errors.New("admin role required")
	}
	subject, _ := claims["sub"].(string)
	return subject, nil
}

// RateLimit limits requests per client address. The rate uses the limiter
// formatted notation, e.g. "20-M" for twenty per minute.
func RateLimit(formatted string, trustProxy bool) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("rate limit %q: %w", formatted, err)
	}
	instance := limiter.New(memory.NewStore(), rate)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lctx, err := instance.Get(r.Context(), clientIP(r, trustProxy))
			if err != nil {
				writeErrorResponse(w, err, values.Error, "rate limiter unavailable")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				writeErrorResponse(w, errors.New("rate limit exceeded"), values.TooManyRequests, "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// clientIP keys the limiter on the peer address. X-Forwarded-For is only read
// when a proxy in front of the service is trusted, and then only its last
// hop, which the proxy appended itself.
func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		hops := strings.Split(fwd, ",")
		if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
			return last
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
