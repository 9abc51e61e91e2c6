package grpcapi

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Portico/internal/portico/service"
)

type Dependencies struct {
	Logger  zerolog.Logger
	Sweeper service.SweepRunner

	// AdminToken is required as "authorization: Bearer <token>" metadata on
	// admin calls.  Empty disables the check.
	AdminToken string
}

type adminServer struct {
	sweeper service.SweepRunner
}

// Sweep runs one expiration pass.  A pass with per-user failures still
// returns the report; its "ok" field is false.
func (a *adminServer) Sweep(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	report, err := a.sweeper.Sweep(ctx)
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	out, err := structpb.NewStruct(report.Map())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// NewServer builds a gRPC server with the admin and health services
// registered.
func NewServer(d Dependencies) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		logUnary(d.Logger),
		authUnary(d.AdminToken),
	))

	RegisterAdminServer(s, &adminServer{sweeper: d.Sweeper})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(AdminServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	return s
}

func logUnary(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		ev := logger.Info()
		if err != nil {
			ev = logger.Warn().Err(err)
		}
		ev.Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("elapsed", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}

func authUnary(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if token == "" || !strings.HasPrefix(info.FullMethod, "/"+AdminServiceName+"/") {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		for _, v := range md.Get("authorization") {
			got, ok := strings.CutPrefix(v, "Bearer ")
			if ok && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1 {
				return handler(ctx, req)
			}
		}
		return nil, status.Error(codes.Unauthenticated, "missing or invalid admin token")
	}
}
