package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor returns a gRPC unary server interceptor that
// authenticates each call from its "authorization" metadata, using the
// same bearer parsing and validation as [HTTPMiddleware]. On success the
// claims are available through [ClaimsFromContext]; any failure returns
// codes.Unauthenticated carrying the error text.
func UnaryServerInterceptor(validator TokenValidator, authorizedSubjects []string, opts ...MiddlewareOption) grpc.UnaryServerInterceptor {
	o := buildMiddlewareOptions(opts)
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		var method string
		if info != nil {
			method = info.FullMethod
		}
		ctx, err := authenticateGRPC(ctx, validator, authorizedSubjects, method, o)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming form of
// [UnaryServerInterceptor]. The stream's context carries the claims.
func StreamServerInterceptor(validator TokenValidator, authorizedSubjects []string, opts ...MiddlewareOption) grpc.StreamServerInterceptor {
	o := buildMiddlewareOptions(opts)
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		var method string
		if info != nil {
			method = info.FullMethod
		}
		ctx, err := authenticateGRPC(ss.Context(), validator, authorizedSubjects, method, o)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

func authenticateGRPC(ctx context.Context, validator TokenValidator, authorizedSubjects []string, method string, o middlewareOptions) (context.Context, error) {
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(strings.ToLower(HeaderAuthorization)); len(values) > 0 {
			header = values[0]
		}
	}

	token, err := ParseAuthorizationHeader(header)
	if err == nil {
		claims, verr := validator.Validate(ctx, token, authorizedSubjects)
		if verr == nil {
			return ContextWithClaims(ctx, claims), nil
		}
		err = verr
	}

	o.logger.WarnContext(ctx, "auth: call rejected", "method", method, "error", err)
	return ctx, status.Error(codes.Unauthenticated, err.Error())
}

// wrappedServerStream overrides Context so handlers see the claims.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the authenticated context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
