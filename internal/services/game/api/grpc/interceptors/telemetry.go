package interceptors

import (
	"context"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/louisbranch/storydeck/internal/services/game/api/grpc/game"
	grpcmeta "github.com/louisbranch/storydeck/internal/services/game/api/grpc/metadata"
)

// CallLogInterceptor logs one line per unary gRPC call handled by the game
// service.
func CallLogInterceptor(logf func(format string, args ...any)) grpc.UnaryServerInterceptor {
	if logf == nil {
		logf = log.Printf
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		resp, err := handler(ctx, req)

		traceID := ""
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			traceID = sc.TraceID().String()
		}
		logf("grpc %s kind=%s code=%s session=%s request_id=%s trace_id=%s duration=%s",
			info.FullMethod,
			classifyMethodKind(info.FullMethod),
			status.Code(err).String(),
			sessionIDFromRequest(req),
			grpcmeta.RequestIDFromContext(ctx),
			traceID,
			time.Since(started).Round(time.Microsecond),
		)
		return resp, err
	}
}

func sessionIDFromRequest(req any) string {
	msg, ok := req.(*structpb.Struct)
	if !ok || msg == nil {
		return ""
	}
	value, ok := msg.GetFields()["session_id"]
	if !ok {
		return ""
	}
	return strings.TrimSpace(value.GetStringValue())
}

func classifyMethodKind(fullMethod string) string {
	if game.IsReadMethod(fullMethod) {
		return "read"
	}
	return "write"
}
