package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/cryptofolio-backend/internal/adapter/grpc"
	"github.com/simaogato/cryptofolio-backend/internal/metrics"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC server, the metrics server and the background jobs",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			log.Error().Err(err).Msg("failed to close backends")
		}
	}()

	// 1. gRPC server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(cfg.Server.APIToken)),
	)
	grpcadapter.RegisterPortfolioServiceServer(grpcServer, grpcadapter.NewServer(a.portfolios, a.intake, a.quoteCache))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.GRPCAddr, err)
	}

	go func() {
		log.Info().Str("addr", cfg.Server.GRPCAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC server stopped unexpectedly")
			cancel()
		}
	}()

	// 2. Metrics and health endpoints
	metricsServer := metrics.NewServer(cfg.Server.MetricsAddr, a.metrics, a.checks)
	go func() {
		log.Info().Str("addr", cfg.Server.MetricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped unexpectedly")
			cancel()
		}
	}()

	// 3. Background jobs
	var jobs sync.WaitGroup
	startJob(ctx, &jobs, "price_refresh", cfg.Schedules.PriceRefresh, a.quoteCache.RunRefresher)
	startJob(ctx, &jobs, "coin_sync", cfg.Schedules.CoinSync, a.coinSyncer.Run)
	startJob(ctx, &jobs, "snapshot", cfg.Schedules.Snapshot, a.recorder.Run)
	startJob(ctx, &jobs, "exchange_sync", cfg.Schedules.ExchangeSync, a.exchangeSyncer.Run)

	waitForShutdown(ctx)
	healthServer.Shutdown()
	cancel()

	stopGRPC(grpcServer)

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop metrics server")
	}

	jobs.Wait()
	log.Info().Msg("background jobs stopped")
	return nil
}

// startJob runs fn in the background unless interval is zero
func startJob(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, fn func(context.Context, time.Duration)) {
	if interval <= 0 {
		log.Info().Str("job", name).Msg("job disabled")
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("job", name).Dur("interval", interval).Msg("job started")
		fn(ctx, interval)
	}()
}

// waitForShutdown blocks until SIGTERM, SIGINT or ctx is canceled
func waitForShutdown(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	case <-ctx.Done():
		log.Warn().Msg("shutting down after a server failure")
	}
}

// stopGRPC drains in-flight calls, forcing the stop after shutdownTimeout
func stopGRPC(s *grpclib.Server) {
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		s.Stop()
	}
	log.Info().Msg("gRPC server stopped")
}
