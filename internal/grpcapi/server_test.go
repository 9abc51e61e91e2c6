package grpcapi_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/BrandonDHaskell/Portico/internal/grpcapi"
	"github.com/BrandonDHaskell/Portico/internal/portico/service"
	"github.com/BrandonDHaskell/Portico/internal/portico/store"
	"github.com/BrandonDHaskell/Portico/internal/portico/store/memory"
	"github.com/BrandonDHaskell/Portico/internal/portico/types"
)

// dial starts a server on an in-memory listener and returns a connected
// client.
func dial(t *testing.T, d grpcapi.Dependencies) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpcapi.NewServer(d)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func TestSweep_OverGRPC(t *testing.T) {
	st := memory.New()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, _ = st.AddCheckIn(context.Background(), "u1", store.CheckIn{Property: "1", TimeMs: now.Add(-3 * time.Hour).UnixMilli()})
	_, _ = st.AddCheckIn(context.Background(), "u1", store.CheckIn{Property: "1", TimeMs: now.UnixMilli()})

	sweeper := service.NewSweeper(st, service.SweepConfig{Now: func() time.Time { return now }})
	conn := dial(t, grpcapi.Dependencies{Logger: zerolog.Nop(), Sweeper: sweeper, AdminToken: "tok"})
	client := grpcapi.NewAdminClient(conn)

	out, err := client.Sweep(withToken(context.Background(), "tok"))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	f := out.GetFields()
	if !f["ok"].GetBoolValue() || f["deleted"].GetNumberValue() != 1 || f["retained"].GetNumberValue() != 1 {
		t.Errorf("unexpected report: %v", out)
	}
	if n, _ := st.ActiveCheckIns(context.Background(), "u1"); n != 1 {
		t.Errorf("active check-ins = %d", n)
	}
}

func TestSweep_RequiresToken(t *testing.T) {
	conn := dial(t, grpcapi.Dependencies{
		Logger:     zerolog.Nop(),
		Sweeper:    service.NewSweeper(memory.New(), service.SweepConfig{}),
		AdminToken: "tok",
	})
	client := grpcapi.NewAdminClient(conn)

	for _, ctx := range []context.Context{context.Background(), withToken(context.Background(), "wrong")} {
		_, err := client.Sweep(ctx)
		if status.Code(err) != codes.Unauthenticated {
			t.Errorf("expected Unauthenticated, got %v", err)
		}
	}
}

type brokenSweeper struct{}

func (brokenSweeper) Sweep(context.Context) (types.SweepReport, error) {
	return types.SweepReport{}, errors.New("store down")
}

func TestSweep_StoreFailureIsUnavailable(t *testing.T) {
	conn := dial(t, grpcapi.Dependencies{Logger: zerolog.Nop(), Sweeper: brokenSweeper{}})

	_, err := grpcapi.NewAdminClient(conn).Sweep(context.Background())
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	conn := dial(t, grpcapi.Dependencies{Logger: zerolog.Nop(), Sweeper: brokenSweeper{}, AdminToken: "tok"})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{
		Service: grpcapi.AdminServiceName,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %s", resp.GetStatus())
	}
}
