package grpc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/service"
	internalgrpc "github.com/EgehanKilicarslan/sessionkeeper/internal/grpc"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/testutil"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/token"
)

func dial(t *testing.T, authService service.AuthService) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	server := internalgrpc.NewServer(authService, testutil.TestLogger())
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestIntrospect_ActiveToken(t *testing.T) {
	stack := testutil.NewStack(t, nil, nil)
	stack.CreateUser(t, "alice@example.com", models.RoleAdmin)

	_, pair, err := stack.Auth.Login(context.Background(), service.LoginInput{
		Email:    "alice@example.com",
		Password: testutil.TestPassword,
	})
	require.NoError(t, err)

	conn := dial(t, stack.Auth)
	resp, err := internalgrpc.Introspect(context.Background(), conn, pair.AccessToken)
	require.NoError(t, err)

	fields := resp.AsMap()
	assert.Equal(t, true, fields["active"])
	assert.Equal(t, "alice@example.com", fields["email"])
	assert.Equal(t, models.RoleAdmin, fields["role"])
	assert.Equal(t, pair.TokenFamily, fields["tokenFamily"])
	assert.NotEmpty(t, fields["jti"])
	assert.NotEqual(t, pair.JTI, fields["jti"], "access token carries its own identifier")
}

func TestIntrospect_InactiveTokens(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{"invalid", service.ErrInvalidToken, "invalid"},
		{"expired", service.ErrTokenExpired, "expired"},
		{"revoked", service.ErrTokenRevoked, "revoked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(testutil.MockAuthService)
			svc.On("ValidateAccessToken", mock.Anything, "some-token").Return(nil, tt.err)

			resp, err := internalgrpc.Introspect(context.Background(), dial(t, svc), "some-token")
			require.NoError(t, err)

			fields := resp.AsMap()
			assert.Equal(t, false, fields["active"])
			assert.Equal(t, tt.wantReason, fields["reason"])
			assert.NotContains(t, fields, "sub")
		})
	}
}

func TestIntrospect_ExpiryField(t *testing.T) {
	exp := time.Date(2026, time.January, 15, 12, 15, 0, 0, time.UTC)
	svc := new(testutil.MockAuthService)
	svc.On("ValidateAccessToken", mock.Anything, "t").Return(&token.Claims{Subject: "3", ExpiresAt: exp}, nil)

	resp, err := internalgrpc.Introspect(context.Background(), dial(t, svc), "t")
	require.NoError(t, err)

	assert.Equal(t, "3", resp.AsMap()["sub"])
	assert.EqualValues(t, exp.Unix(), resp.AsMap()["exp"])
}

func TestIntrospect_EmptyToken(t *testing.T) {
	svc := new(testutil.MockAuthService)

	_, err := internalgrpc.Introspect(context.Background(), dial(t, svc), "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	svc.AssertNotCalled(t, "ValidateAccessToken", mock.Anything, mock.Anything)
}

func TestHealthCheck(t *testing.T) {
	conn := dial(t, new(testutil.MockAuthService))
	client := healthpb.NewHealthClient(conn)

	for _, name := range []string{"", internalgrpc.TokenServiceName} {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: name})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	}
}
