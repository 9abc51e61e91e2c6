package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BrandonDHaskell/Portico/internal/bootstrap"
	"github.com/BrandonDHaskell/Portico/internal/config"
	"github.com/BrandonDHaskell/Portico/internal/events"
	"github.com/BrandonDHaskell/Portico/internal/grpcapi"
	"github.com/BrandonDHaskell/Portico/internal/httpapi"
	"github.com/BrandonDHaskell/Portico/internal/logging"
	"github.com/BrandonDHaskell/Portico/internal/observability"
	"github.com/BrandonDHaskell/Portico/internal/portico/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing setup failed")
	}

	// Stores
	backend, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open record store")
	}

	pub, err := bootstrap.OpenPublisher(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("event publishing disabled")
		pub = events.Nop{}
	}

	// Services
	dir := service.NewDirectory(backend.Store)
	accessSvc := service.NewAccessService(dir, backend.Store, service.AccessConfig{
		GraceWindow: cfg.GraceWindow,
		Logger:      &logger,
		Publisher:   pub,
	})
	adminSvc := service.NewAdminService(dir, backend.Store, service.AdminConfig{
		GraceWindow: cfg.GraceWindow,
		Logger:      &logger,
	})
	sweeper := service.NewSweeper(backend.Store, service.SweepConfig{
		GraceWindow: cfg.GraceWindow,
		Concurrency: cfg.SweepConcurrency,
		Logger:      &logger,
		Publisher:   pub,
	})

	scheduler := service.NewSweepScheduler(sweeper, cfg.SweepInterval, logger)
	scheduler.Start(ctx)

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:          logger,
		Addr:            cfg.HTTPAddr,
		AccessService:   accessSvc,
		AdminService:    adminSvc,
		Sweeper:         sweeper,
		AdminToken:      cfg.AdminToken,
		TwilioAuthToken: cfg.TwilioAuthToken,
		PublicURL:       cfg.PublicURL,
		TrustProxy:      cfg.TrustProxy,
		RateRPS:         cfg.RateRPS,
		RateBurst:       cfg.RateBurst,
		Ready:           backend.Ready,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.Env).Msg("http listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// gRPC
	var grpcSrv interface{ GracefulStop() }
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("grpc listen")
		}
		gs := grpcapi.NewServer(grpcapi.Dependencies{
			Logger:     logger,
			Sweeper:    sweeper,
			AdminToken: cfg.AdminToken,
		})
		grpcSrv = gs
		go func() {
			logger.Info().Str("addr", cfg.GRPCAddr).Msg("grpc listening")
			if err := gs.Serve(lis); err != nil {
				logger.Error().Err(err).Msg("grpc server error")
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	scheduler.Stop()

	// Let in-flight call log writes land before the store goes away.
	accessSvc.Wait()

	if err := pub.Close(); err != nil {
		logger.Warn().Err(err).Msg("close publisher")
	}
	if err := backend.Close(); err != nil {
		logger.Warn().Err(err).Msg("close record store")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("flush traces")
	}
}
