package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/trace"
)

// contextKey is an unexported type used for context keys in this package.
type contextKey int

const claimsKey contextKey = iota

// ContextWithClaims returns a new context carrying validated claims. The
// HTTP middleware and gRPC interceptors call it after a successful
// validation.
func ContextWithClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by [ContextWithClaims].
//
// Example:
//
//	claims, ok := auth.ClaimsFromContext(r.Context())
//	if !ok {
//	    return
//	}
//	caller, _ := claims.GetIssuer()
func ClaimsFromContext(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(jwt.MapClaims)
	return claims, ok
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from the context
// as a hex string, or returns false if no trace is active. Rejections are
// logged with it so they can be joined to the request trace.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.HasTraceID() {
		return "", false
	}
	return spanCtx.TraceID().String(), true
}
