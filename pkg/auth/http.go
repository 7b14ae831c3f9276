package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
)

const (
	// HeaderAuthorization is the header (and gRPC metadata key, lowercased)
	// carrying the bearer token.
	HeaderAuthorization = "Authorization"

	// BearerScheme is the only accepted authorization scheme.
	BearerScheme = "Bearer"

	// DefaultUnauthorizedMessage is the generic message in 401 bodies.
	DefaultUnauthorizedMessage = "Unauthorized"
)

// ParseAuthorizationHeader extracts the token from an
// "Authorization: Bearer <token>" value.
//
// Error codes returned:
//   - [sserr.CodeMissingAuthorization]: header is empty
//   - [sserr.CodeInvalidAuthorization]: not exactly two space-separated
//     parts, or a scheme other than "Bearer"
func ParseAuthorizationHeader(header string) (string, error) {
	if header == "" {
		return "", sserr.New(sserr.CodeMissingAuthorization, "auth: missing authorization header")
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", sserr.New(sserr.CodeInvalidAuthorization, "auth: authorization header has a wrong format")
	}
	if parts[0] != BearerScheme {
		return "", sserr.New(sserr.CodeInvalidAuthorization, "auth: authorization header has a wrong scheme")
	}
	return parts[1], nil
}

type middlewareOptions struct {
	logger  *slog.Logger
	message string
}

// MiddlewareOption configures [HTTPMiddleware] and the gRPC interceptors.
type MiddlewareOption func(*middlewareOptions)

// WithMiddlewareLogger sets the logger rejections are reported to.
func WithMiddlewareLogger(logger *slog.Logger) MiddlewareOption {
	return func(o *middlewareOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithUnauthorizedMessage replaces [DefaultUnauthorizedMessage].
func WithUnauthorizedMessage(message string) MiddlewareOption {
	return func(o *middlewareOptions) {
		if message != "" {
			o.message = message
		}
	}
}

func buildMiddlewareOptions(opts []MiddlewareOption) middlewareOptions {
	o := middlewareOptions{logger: slog.Default(), message: DefaultUnauthorizedMessage}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// unauthorizedBody is the JSON document written with every 401.
type unauthorizedBody struct {
	Errors []unauthorizedError `json:"errors"`
}

type unauthorizedError struct {
	Message       string `json:"message"`
	OriginalError string `json:"originalError"`
}

// HTTPMiddleware returns an HTTP middleware that authenticates every
// request with validator.
//
// The middleware performs the following steps:
//  1. Parses the "Authorization: Bearer <token>" header
//  2. Validates the token against authorizedSubjects
//  3. Stores the claims in the request context ([ClaimsFromContext])
//  4. Passes the request to the next handler
//
// Any failure ends the request with 401 Unauthorized and the body
//
//	{"errors":[{"message":"Unauthorized","originalError":"<error>"}]}
//
// and is logged at WARN.
//
// Example:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/api/data", handleData)
//	handler := auth.HTTPMiddleware(validator, []string{"checkout"})(mux)
//	http.ListenAndServe(":8080", handler)
func HTTPMiddleware(validator TokenValidator, authorizedSubjects []string, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := buildMiddlewareOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := ParseAuthorizationHeader(r.Header.Get(HeaderAuthorization))
			if err == nil {
				var claims jwt.MapClaims
				claims, err = validator.Validate(ctx, token, authorizedSubjects)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(ContextWithClaims(ctx, claims)))
					return
				}
			}

			attrs := []any{"url", r.URL.String(), "error", err}
			if traceID, ok := TraceIDFromContext(ctx); ok {
				attrs = append(attrs, "trace_id", traceID)
			}
			o.logger.WarnContext(ctx, "auth: request rejected", attrs...)

			writeUnauthorized(w, o.message, err)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(unauthorizedBody{
		Errors: []unauthorizedError{{Message: message, OriginalError: err.Error()}},
	})
}
