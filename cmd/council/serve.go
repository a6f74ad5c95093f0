package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/council/internal/clock"
	"github.com/rpggio/council/internal/config"
	"github.com/rpggio/council/internal/domain/access"
	"github.com/rpggio/council/internal/domain/activity"
	"github.com/rpggio/council/internal/domain/member"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/domain/voting"
	"github.com/rpggio/council/internal/event"
	"github.com/rpggio/council/internal/mcp"
	"github.com/rpggio/council/internal/sqlite"
	"github.com/rpggio/council/internal/transport"
	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio or HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serveRun(cmd.Context(), cfg)
		},
	}
}

func serveRun(ctx context.Context, cfg config.Config) error {
	logger, closer := commonRun(cfg)
	defer closer.Close()

	authority, err := cfg.Authority()
	if err != nil {
		return err
	}
	fixedIdentity, err := cfg.FixedIdentity()
	if err != nil {
		return err
	}

	db, err := openDB(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	bus := event.NewEventBus(reg, logger)
	defer bus.Stop()

	clk := clock.System()
	memberRepo := sqlite.NewMemberRepository(db)
	topicRepo := sqlite.NewTopicRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	apiKeys := sqlite.NewAPIKeyRepository(db)
	guard := access.NewGuard(authority, memberRepo)

	activitySvc := activity.NewService(activityRepo, guard, clk, logger)
	activity.NewRecorder(activitySvc, logger).Attach(bus)

	services := mcp.Services{
		Members: member.NewService(member.Config{
			Members: memberRepo, Tx: db, Guard: guard, Clock: clk, Events: bus, Logger: logger,
		}),
		Topics: topic.NewService(topic.Config{
			Topics: topicRepo, Tx: db, Guard: guard, Clock: clk, Events: bus, Logger: logger,
		}),
		Voting: voting.NewService(voting.Config{
			Topics:       topicRepo,
			Sessions:     sqlite.NewSessionRepository(db),
			Tx:           db,
			Guard:        guard,
			Clock:        clk,
			Events:       bus,
			PromRegistry: reg,
			Logger:       logger,
		}),
		Activity: activitySvc,
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      services,
		Resolver:      apiKeys,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		FixedIdentity: fixedIdentity,
		Clock:         clk,
		Logger:        logger,
	})

	logger.Info("governance authority", "address", authority.Hex())
	if cfg.Transport.Mode == "stdio" {
		return runStdioMode(ctx, logger, mcpServer, fixedIdentity.Hex())
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	var authMW func(http.Handler) http.Handler
	if cfg.Auth.Enabled {
		authMW = transport.AuthMiddleware(apiKeys)
	} else {
		logger.Warn("bearer auth disabled; every HTTP request acts as the fixed identity", "identity", fixedIdentity.Hex())
	}
	return runHTTPMode(logger, cfg.Server, transport.NewServer(newMCPHandler(mcpServer), metricsHandler, authMW))
}

func newMCPHandler(mcpServer *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server, caller string) error {
	logger.Info("starting stdio transport", "caller", caller)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		return err
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(logger *slog.Logger, cfg config.ServerConfig, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return waitForShutdown(logger, httpServer, cfg.ShutdownTimeout, errCh)
}

func waitForShutdown(logger *slog.Logger, server *http.Server, timeout time.Duration, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
