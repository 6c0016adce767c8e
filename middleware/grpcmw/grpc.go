// Package grpcmw provides gRPC interceptors for the token gate.
//
// The interceptors run the same pipeline as ginmw.Gate: the token in the
// "authorization" metadata is authenticated via the client, then the
// configured policy is evaluated. Every failure is reported as
// codes.Unauthenticated with one fixed message.
package grpcmw

import (
	"context"
	"errors"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/metrics"
	"github.com/chimerakang/tokengate-go/token"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthOption configures auth interceptor behavior.
type AuthOption func(*authConfig)

type authConfig struct {
	excludedMethods map[string]bool
	metrics         *metrics.Metrics
}

// WithExcludedMethods sets gRPC methods that skip the gate.
// Methods should be fully qualified (e.g. "/grpc.health.v1.Health/Check").
func WithExcludedMethods(methods ...string) AuthOption {
	return func(cfg *authConfig) {
		for _, m := range methods {
			cfg.excludedMethods[m] = true
		}
	}
}

// WithMetrics records rejections and policy decisions.
func WithMetrics(m *metrics.Metrics) AuthOption {
	return func(cfg *authConfig) { cfg.metrics = m }
}

func newConfig(opts []AuthOption) *authConfig {
	cfg := &authConfig{excludedMethods: make(map[string]bool)}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// UnaryAuth returns a gRPC unary server interceptor that authenticates and
// authorizes each call. On success the principal is stored in the context
// (tokengate.PrincipalFromContext).
func UnaryAuth(client *tokengate.Client, opts ...AuthOption) grpc.UnaryServerInterceptor {
	cfg := newConfig(opts)

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if cfg.excludedMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		ctx, err := gate(ctx, client, cfg)
		if err != nil {
			return nil, err
		}

		return handler(ctx, req)
	}
}

// StreamAuth returns a gRPC stream server interceptor with the same checks as UnaryAuth.
func StreamAuth(client *tokengate.Client, opts ...AuthOption) grpc.StreamServerInterceptor {
	cfg := newConfig(opts)

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if cfg.excludedMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		ctx, err := gate(ss.Context(), client, cfg)
		if err != nil {
			return err
		}

		wrapped := &wrappedStream{ServerStream: ss, ctx: ctx}
		return handler(srv, wrapped)
	}
}

// --- internal helpers ---

var errUnauthenticated = status.Error(codes.Unauthenticated, "unauthenticated")

func gate(ctx context.Context, client *tokengate.Client, cfg *authConfig) (context.Context, error) {
	start := time.Now()
	logger := client.Logger()

	p, err := client.Authenticate(ctx, authorizationFromMD(ctx))
	if err != nil {
		if !errors.Is(err, tokengate.ErrUnauthenticated) {
			logger.ErrorContext(ctx, "authenticate", "error", err)
			return ctx, status.Error(codes.Internal, "internal error")
		}
		reason := "missing"
		if !errors.Is(err, tokengate.ErrNoCredentials) {
			reason = token.Reason(err)
		}
		cfg.metrics.RecordTokenRejected(reason)
		return ctx, errUnauthenticated
	}

	d := client.Authorize(ctx, p)
	cfg.metrics.RecordPolicyDecision(d.Allowed, d.Reason, time.Since(start).Seconds())
	if !d.Allowed {
		logger.DebugContext(ctx, "policy denied", "customer_id", p.CustomerID, "reason", d.Reason)
		return ctx, errUnauthenticated
	}

	return tokengate.WithPrincipal(ctx, p), nil
}

func authorizationFromMD(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// wrappedStream wraps grpc.ServerStream to override Context().
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
