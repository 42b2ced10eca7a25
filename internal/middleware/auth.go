package middleware

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"clinic-booking/internal/auth"
)

// methods callable without an access token
var open = map[string]bool{
	"/clinic.v1.ClinicService/Register": true,
	"/clinic.v1.ClinicService/Login":    true,
}

// Auth resolves the caller of every non-open method from an
// "authorization: Bearer <access token>" header.
func Auth(secret string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if open[info.FullMethod] {
			return next(ctx, req)
		}
		raw := bearer(ctx)
		if raw == "" {
			return nil, status.Error(codes.Unauthenticated, "login required")
		}
		claims, err := auth.ParseAccess(raw, secret)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return next(WithIdentity(ctx, Identity{AccountID: claims.AccountID(), Role: claims.Role}), req)
	}
}

func bearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		scheme, tok, found := strings.Cut(strings.TrimSpace(v), " ")
		if found && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return ""
}
