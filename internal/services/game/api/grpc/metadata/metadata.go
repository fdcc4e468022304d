// Package metadata names the gRPC headers the game service reads and writes
// and correlates each call with a request ID.
package metadata

import (
	"context"
	"strings"

	"github.com/louisbranch/storydeck/internal/platform/id"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	// RequestIDHeader correlates one call across logs, spans and responses.
	RequestIDHeader = "x-storydeck-request-id"
	// InvocationIDHeader carries the MCP tool invocation a call belongs to.
	InvocationIDHeader = "x-storydeck-invocation-id"
	// UserIDHeader carries the durable account identity of the caller.
	UserIDHeader = "x-storydeck-user-id"
	// PlayerTokenHeader carries the signed ephemeral player identity.
	// Join responses set it so clients can persist the token.
	PlayerTokenHeader = "x-storydeck-player-token"
	// LocaleHeader selects the language of rejection messages.
	LocaleHeader = "accept-language"
)

// Correlation identifies the call being served.
type Correlation struct {
	RequestID    string
	InvocationID string
}

type correlationKey struct{}

// WithCorrelation stores c in ctx.
func WithCorrelation(ctx context.Context, c Correlation) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationKey{}, c)
}

// CorrelationFromContext returns the correlation stored by the interceptors.
func CorrelationFromContext(ctx context.Context) Correlation {
	if ctx == nil {
		return Correlation{}
	}
	c, _ := ctx.Value(correlationKey{}).(Correlation)
	return c
}

// RequestIDFromContext returns the request ID of the call being served.
func RequestIDFromContext(ctx context.Context) string {
	return CorrelationFromContext(ctx).RequestID
}

// UserIDFromContext returns the caller's account ID header.
func UserIDFromContext(ctx context.Context) string {
	return incoming(ctx, UserIDHeader)
}

// PlayerTokenFromContext returns the caller's player token header.
func PlayerTokenFromContext(ctx context.Context) string {
	return incoming(ctx, PlayerTokenHeader)
}

// LocaleFromContext returns the caller's preferred locale.
func LocaleFromContext(ctx context.Context) string {
	return incoming(ctx, LocaleHeader)
}

// UnaryServerInterceptor gives every unary call a request ID, echoes the
// correlation in the response headers and tags the active span.
func UnaryServerInterceptor(newID func() (string, error)) grpc.UnaryServerInterceptor {
	newID = orDefaultID(newID)
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, c, err := correlate(ctx, newID)
		if err != nil {
			return nil, err
		}
		if err := grpc.SetHeader(ctx, c.headers()); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming counterpart of UnaryServerInterceptor.
func StreamServerInterceptor(newID func() (string, error)) grpc.StreamServerInterceptor {
	newID = orDefaultID(newID)
	return func(srv any, stream grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, c, err := correlate(stream.Context(), newID)
		if err != nil {
			return err
		}
		if err := stream.SetHeader(c.headers()); err != nil {
			return status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(srv, &correlatedStream{ServerStream: stream, ctx: ctx})
	}
}

type correlatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *correlatedStream) Context() context.Context { return s.ctx }

func orDefaultID(newID func() (string, error)) func() (string, error) {
	if newID == nil {
		return id.NewID
	}
	return newID
}

// correlate reads the correlation headers, minting a request ID when the
// caller sent none.
func correlate(ctx context.Context, newID func() (string, error)) (context.Context, Correlation, error) {
	c := Correlation{
		RequestID:    incoming(ctx, RequestIDHeader),
		InvocationID: incoming(ctx, InvocationIDHeader),
	}
	if c.RequestID == "" {
		requestID, err := newID()
		if err != nil {
			return nil, Correlation{}, status.Errorf(codes.Internal, "generate request id: %v", err)
		}
		c.RequestID = requestID
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String("storydeck.request_id", c.RequestID))
		if c.InvocationID != "" {
			span.SetAttributes(attribute.String("storydeck.invocation_id", c.InvocationID))
		}
	}
	return WithCorrelation(ctx, c), c, nil
}

func (c Correlation) headers() metadata.MD {
	md := metadata.Pairs(RequestIDHeader, c.RequestID)
	if c.InvocationID != "" {
		md.Set(InvocationIDHeader, c.InvocationID)
	}
	return md
}

// incoming returns the first printable ASCII value of key. Control bytes
// are never accepted as identifiers.
func incoming(ctx context.Context, key string) string {
	if ctx == nil {
		return ""
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, value := range md.Get(key) {
		if value != "" && strings.IndexFunc(value, notPrintable) < 0 {
			return value
		}
	}
	return ""
}

func notPrintable(r rune) bool {
	return r < 0x20 || r > 0x7e
}
