package interceptors

import (
	"context"

	"google.golang.org/grpc"

	grpcmeta "github.com/louisbranch/storydeck/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/storydeck/internal/services/game/identity"
)

// CredentialsInterceptor copies the caller's account ID and player token
// from incoming metadata into the context for the identity provider.
func CredentialsInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(withCredentials(ctx), req)
	}
}

func withCredentials(ctx context.Context) context.Context {
	return identity.WithCredentials(ctx, identity.Credentials{
		UserID:      grpcmeta.UserIDFromContext(ctx),
		PlayerToken: grpcmeta.PlayerTokenFromContext(ctx),
	})
}
