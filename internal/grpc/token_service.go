package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/service"
)

const TokenServiceName = "sessionkeeper.v1.TokenService"

// TokenServiceServer lets internal services introspect access tokens issued here.
type TokenServiceServer interface {
	Introspect(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

type tokenServiceServer struct {
	authService service.AuthService
	logger      *slog.Logger
}

// NewTokenServiceServer creates a new TokenService server instance.
func NewTokenServiceServer(authService service.AuthService, logger *slog.Logger) TokenServiceServer {
	return &tokenServiceServer{
		authService: authService,
		logger:      logger,
	}
}

// Introspect reports whether the access token is active. Inactive tokens are
// a normal answer, not an RPC error.
func (s *tokenServiceServer) Introspect(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	claims, err := s.authService.ValidateAccessToken(ctx, req.GetValue())
	if err != nil {
		reason := "invalid"
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			reason = "expired"
		case errors.Is(err, service.ErrTokenRevoked):
			reason = "revoked"
		}
		s.logger.Debug("🔎 [TokenService] Inactive token", "reason", reason)
		return structpb.NewStruct(map[string]interface{}{
			"active": false,
			"reason": reason,
		})
	}

	s.logger.Debug("🔎 [TokenService] Active token", "sub", claims.Subject)
	return structpb.NewStruct(map[string]interface{}{
		"active":      true,
		"sub":         claims.Subject,
		"email":       claims.Email,
		"role":        claims.Role,
		"jti":         claims.JTI,
		"tokenFamily": claims.TokenFamily,
		"exp":         claims.ExpiresAt.Unix(),
	})
}

func introspectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenServiceServer).Introspect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + TokenServiceName + "/Introspect",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TokenServiceServer).Introspect(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// TokenServiceDesc describes the service using well-known message types so no
// generated code is needed on either side.
var TokenServiceDesc = grpc.ServiceDesc{
	ServiceName: TokenServiceName,
	HandlerType: (*TokenServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Introspect",
			Handler:    introspectHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sessionkeeper/v1/token_service.proto",
}

// RegisterTokenServiceServer registers srv on s.
func RegisterTokenServiceServer(s grpc.ServiceRegistrar, srv TokenServiceServer) {
	s.RegisterService(&TokenServiceDesc, srv)
}

// Introspect calls TokenService/Introspect on conn.
func Introspect(ctx context.Context, conn grpc.ClientConnInterface, accessToken string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := conn.Invoke(ctx, "/"+TokenServiceName+"/Introspect", wrapperspb.String(accessToken), out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoggingInterceptor logs every unary call with its outcome.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("⚠️ [gRPC] Call failed",
				"method", info.FullMethod,
				"code", status.Code(err).String(),
				"error", err,
			)
			return resp, err
		}
		logger.Debug("📡 [gRPC] Call served", "method", info.FullMethod)
		return resp, nil
	}
}

// NewServer builds the gRPC server with the token and health services registered.
func NewServer(authService service.AuthService, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(LoggingInterceptor(logger)))
	server := grpc.NewServer(opts...)

	RegisterTokenServiceServer(server, NewTokenServiceServer(authService, logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(TokenServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server
}
