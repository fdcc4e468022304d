package metadata

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestCorrelationRoundTrip(t *testing.T) {
	if got := CorrelationFromContext(nil); got != (Correlation{}) {
		t.Fatalf("expected empty correlation, got %+v", got)
	}
	ctx := WithCorrelation(nil, Correlation{RequestID: "req-1", InvocationID: "inv-1"})
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := CorrelationFromContext(ctx).InvocationID; got != "inv-1" {
		t.Fatalf("expected inv-1, got %q", got)
	}
}

func TestCallerHeaders(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		UserIDHeader, "ada",
		PlayerTokenHeader, "token-1",
		LocaleHeader, "pt-BR",
	))
	if got := UserIDFromContext(ctx); got != "ada" {
		t.Fatalf("expected user ada, got %q", got)
	}
	if got := PlayerTokenFromContext(ctx); got != "token-1" {
		t.Fatalf("expected token-1, got %q", got)
	}
	if got := LocaleFromContext(ctx); got != "pt-BR" {
		t.Fatalf("expected pt-BR, got %q", got)
	}
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected no user without metadata, got %q", got)
	}
}

func TestIncomingSkipsControlBytes(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.MD{
		UserIDHeader: {"ada\n", "", "bea"},
	})
	if got := UserIDFromContext(ctx); got != "bea" {
		t.Fatalf("expected first printable value, got %q", got)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.MD{
		UserIDHeader: {string([]byte{0x7f})},
	})
	if got := UserIDFromContext(ctx); got != "" {
		t.Fatalf("expected DEL to be rejected, got %q", got)
	}
}

func TestCorrelateKeepsCallerIDs(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		RequestIDHeader, "req-1",
		InvocationIDHeader, "inv-1",
	))
	ctx, c, err := correlate(ctx, func() (string, error) { return "minted", nil })
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if c != (Correlation{RequestID: "req-1", InvocationID: "inv-1"}) {
		t.Fatalf("unexpected correlation %+v", c)
	}
	if RequestIDFromContext(ctx) != "req-1" {
		t.Fatal("expected correlation stored in context")
	}
}

func TestCorrelateMintsRequestID(t *testing.T) {
	_, c, err := correlate(context.Background(), func() (string, error) { return "minted", nil })
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if c.RequestID != "minted" || c.InvocationID != "" {
		t.Fatalf("unexpected correlation %+v", c)
	}

	if _, _, err := correlate(context.Background(), func() (string, error) { return "", errors.New("no entropy") }); err == nil {
		t.Fatal("expected generator failure")
	}
}

func TestCorrelationHeaders(t *testing.T) {
	md := Correlation{RequestID: "req-1"}.headers()
	if got := md.Get(RequestIDHeader); len(got) != 1 || got[0] != "req-1" {
		t.Fatalf("unexpected request header %v", got)
	}
	if got := md.Get(InvocationIDHeader); len(got) != 0 {
		t.Fatalf("expected no invocation header, got %v", got)
	}
	md = Correlation{RequestID: "req-1", InvocationID: "inv-1"}.headers()
	if got := md.Get(InvocationIDHeader); len(got) != 1 || got[0] != "inv-1" {
		t.Fatalf("unexpected invocation header %v", got)
	}
}

type headerStream struct {
	grpc.ServerStream
	ctx    context.Context
	header metadata.MD
}

func (s *headerStream) Context() context.Context { return s.ctx }

func (s *headerStream) SetHeader(md metadata.MD) error {
	s.header = metadata.Join(s.header, md)
	return nil
}

func TestStreamServerInterceptorCorrelates(t *testing.T) {
	stream := &headerStream{ctx: context.Background()}
	interceptor := StreamServerInterceptor(func() (string, error) { return "minted", nil })

	var seen string
	err := interceptor(nil, stream, &grpc.StreamServerInfo{}, func(_ any, s grpc.ServerStream) error {
		seen = RequestIDFromContext(s.Context())
		return nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if seen != "minted" {
		t.Fatalf("expected handler to see minted id, got %q", seen)
	}
	if got := stream.header.Get(RequestIDHeader); len(got) != 1 || got[0] != "minted" {
		t.Fatalf("expected request id header, got %v", stream.header)
	}
}
