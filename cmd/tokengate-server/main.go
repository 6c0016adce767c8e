// Command tokengate-server serves POST /token and GET /token/check over HTTP,
// optionally a gated gRPC listener, backed by the SQLite reference store.
//
// Usage:
//
//	tokengate-server [--env-file .env]
//	tokengate-server --install      create or reactivate the API role and exit
//	tokengate-server --uninstall    deactivate the API role and exit
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/api"
	"github.com/chimerakang/tokengate-go/audit"
	"github.com/chimerakang/tokengate-go/gate"
	"github.com/chimerakang/tokengate-go/i18n"
	"github.com/chimerakang/tokengate-go/metrics"
	"github.com/chimerakang/tokengate-go/middleware/ginmw"
	"github.com/chimerakang/tokengate-go/middleware/grpcmw"
	"github.com/chimerakang/tokengate-go/session"
	"github.com/chimerakang/tokengate-go/store"
	"github.com/chimerakang/tokengate-go/user"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("tokengate-server", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	install := flags.Bool("install", false, "create or reactivate the API role, then exit")
	uninstall := flags.Bool("uninstall", false, "deactivate the API role, then exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *install && *uninstall {
		return errors.New("--install and --uninstall are mutually exclusive")
	}

	cfg, err := loadConfig(*envFile)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	hostStore := store.New(db,
		store.WithLockout(store.Lockout{MaxAttempts: cfg.LockoutAttempts, Window: cfg.LockoutWindow}),
		store.WithDefaultSettings(tokengate.SettingsFromConfig(cfg.Token)),
	)

	role := cfg.Token.APIRole
	if role == "" {
		role = tokengate.DefaultAPIRole
	}
	switch {
	case *install:
		if err := hostStore.EnsureAPIRole(ctx, role); err != nil {
			return err
		}
		logger.Info("api role installed", "role", role)
		return nil
	case *uninstall:
		if err := hostStore.DeactivateAPIRole(ctx, role); err != nil {
			return err
		}
		logger.Info("api role deactivated", "role", role)
		return nil
	}

	reg := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}

	client, err := newClient(ctx, cfg, logger, hostStore)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("close client", "error", err)
		}
	}()

	return serve(ctx, cfg, logger, client, m, reg)
}

// newClient wires every collaborator into a tokengate client.
func newClient(ctx context.Context, cfg serverConfig, logger *slog.Logger, hostStore *store.Store) (*tokengate.Client, error) {
	ring, err := cfg.keyRing()
	if err != nil {
		return nil, err
	}

	messages, err := i18n.New()
	if err != nil {
		return nil, err
	}
	if cfg.MessagesFile != "" {
		if err := messages.LoadFile(cfg.MessagesFile); err != nil {
			return nil, err
		}
	}

	activity := audit.New(cfg.AuditBuffer,
		audit.WithHandler(hostStore.ActivityHandler(logger)),
		audit.WithSlogHandler(logger),
	)

	opts := []tokengate.Option{
		tokengate.WithLogger(logger),
		tokengate.WithCredentialValidator(hostStore),
		tokengate.WithIdentityStore(user.New(hostStore)),
		tokengate.WithSettings(hostStore),
		tokengate.WithActivityLogger(activity),
		tokengate.WithLocalizer(messages),
	}

	if cfg.RedisAddr != "" {
		backend, err := session.NewRedis(ctx, session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
		if err != nil {
			_ = activity.Close()
			return nil, err
		}
		opts = append(opts, tokengate.WithSessionBridge(session.New(backend)))
	}

	client, err := gate.New(cfg.Token, ring, opts...)
	if err != nil {
		_ = activity.Close()
		return nil, err
	}
	logger.Info("policy loaded", "requirements", client.Config().Requirements)
	return client, nil
}

func newRouter(client *tokengate.Client, m *metrics.Metrics, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), ginmw.RequestID())
	r.NoRoute(ginmw.NotFound)

	if m != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", func(c *gin.Context) {
		ginmw.Respond(c, tokengate.Success("ok", nil))
	})

	api.Register(r, api.New(client, api.WithMetrics(m)), ginmw.WithMetrics(m))
	return r
}

func newGRPCServer(client *tokengate.Client, m *metrics.Metrics) *grpc.Server {
	excluded := grpcmw.WithExcludedMethods(healthpb.Health_Check_FullMethodName, healthpb.Health_Watch_FullMethodName)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcmw.UnaryAuth(client, excluded, grpcmw.WithMetrics(m))),
		grpc.ChainStreamInterceptor(grpcmw.StreamAuth(client, excluded, grpcmw.WithMetrics(m))),
	)
	healthpb.RegisterHealthServer(srv, health.NewServer())
	return srv
}

// serve runs the HTTP and gRPC listeners until ctx is cancelled or one of
// them fails, then shuts both down.
func serve(ctx context.Context, cfg serverConfig, logger *slog.Logger, client *tokengate.Client, m *metrics.Metrics, reg *prometheus.Registry) error {
	var lis net.Listener
	if cfg.GRPCAddr != "" {
		var err error
		if lis, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(client, m, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if lis != nil {
		grpcServer := newGRPCServer(client, m)
		g.Go(func() error {
			logger.Info("grpc listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}

	err := g.Wait()
	logger.Info("shutdown complete")
	return err
}
