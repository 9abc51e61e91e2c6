// portico-sweep runs one expiration sweep and exits 0 on success, 1 on any
// failure.  It is meant to be driven by cron or another external scheduler.
//
// By default it opens the configured record store directly.  With --http or
// --grpc it asks a running portico-server to sweep instead.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Portico/internal/bootstrap"
	"github.com/BrandonDHaskell/Portico/internal/config"
	"github.com/BrandonDHaskell/Portico/internal/events"
	"github.com/BrandonDHaskell/Portico/internal/grpcapi"
	"github.com/BrandonDHaskell/Portico/internal/logging"
	"github.com/BrandonDHaskell/Portico/internal/portico/service"
)

var (
	errSweepFailed   = errors.New("sweep reported failures")
	errMemoryBackend = errors.New("the memory store lives inside portico-server; use --http or --grpc to sweep it")
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var (
		httpURL  string
		grpcAddr string
		token    string
		timeout  time.Duration
	)

	flagSet := pflag.NewFlagSet("portico-sweep", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&httpURL, "http", "", "base URL of a running server, e.g. http://localhost:8080")
	flagSet.StringVar(&grpcAddr, "grpc", "", "gRPC address of a running server, e.g. localhost:9090")
	flagSet.StringVar(&token, "token", "", "admin token (default $PORTICO_ADMIN_TOKEN)")
	flagSet.DurationVar(&timeout, "timeout", 5*time.Minute, "give up after this long")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}
	if httpURL != "" && grpcAddr != "" {
		fmt.Fprintln(stderr, "error: --http and --grpc are mutually exclusive")
		return 1
	}

	cfg := config.Load()
	if token == "" {
		token = cfg.AdminToken
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var (
		out []byte
		err error
	)
	switch {
	case httpURL != "":
		out, err = sweepHTTP(ctx, httpURL, token)
	case grpcAddr != "":
		out, err = sweepGRPC(ctx, grpcAddr, token)
	default:
		out, err = sweepLocal(ctx, cfg, stderr)
	}

	if len(out) > 0 {
		fmt.Fprintln(stdout, string(out))
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func sweepLocal(ctx context.Context, cfg config.Config, stderr io.Writer) ([]byte, error) {
	if cfg.StoreBackend == "memory" {
		return nil, errMemoryBackend
	}
	logger := logging.NewWithWriter(stderr, cfg.LogLevel)

	backend, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	pub, err := bootstrap.OpenPublisher(cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("event publishing disabled")
		pub = events.Nop{}
	}
	defer pub.Close()

	sweeper := service.NewSweeper(backend.Store, service.SweepConfig{
		GraceWindow: cfg.GraceWindow,
		Concurrency: cfg.SweepConcurrency,
		Logger:      &logger,
		Publisher:   pub,
	})

	report, err := sweeper.Sweep(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if !report.OK() {
		return out, errSweepFailed
	}
	return out, nil
}

func sweepHTTP(ctx context.Context, baseURL, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/v1/admin/sweep", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-protobuf")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.Header.Get("Content-Type") != "application/x-protobuf" {
		return body, fmt.Errorf("server returned %s", resp.Status)
	}

	var report structpb.Struct
	if err := proto.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return reportResult(&report)
}

func sweepGRPC(ctx context.Context, addr, token string) ([]byte, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	report, err := grpcapi.NewAdminClient(conn).Sweep(ctx)
	if err != nil {
		return nil, err
	}
	return reportResult(report)
}

func reportResult(report *structpb.Struct) ([]byte, error) {
	out, err := protojson.Marshal(report)
	if err != nil {
		return nil, err
	}
	if !report.GetFields()["ok"].GetBoolValue() {
		return out, errSweepFailed
	}
	return out, nil
}
