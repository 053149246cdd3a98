package chatd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/showcase-dev/showcase/internal/config"
	"github.com/showcase-dev/showcase/internal/db"
)

const (
	shutdownTimeout = 5 * time.Second
	pruneInterval   = time.Hour
	pruneBatch      = 1000
)

// grpcLimit keeps health probes cheap without letting one peer flood them.
var grpcLimit = RateLimitConfig{Requests: 600, Window: time.Minute}

// Daemon runs the HTTP chat API and the gRPC health service.
type Daemon struct {
	cfg    config.ServerConfig
	logger zerolog.Logger

	database   *db.DB
	usage      *db.UsageRepository
	server     *Server
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
}

// New constructs a daemon with the provided configuration.
func New(cfg *config.Config, logger zerolog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	sc := cfg.Server
	if sc.Host == "" {
		sc.Host = "127.0.0.1"
	}

	var (
		database *db.DB
		err      error
	)
	if sc.DatabasePath != "" {
		database, err = db.Open(sc.DatabasePath)
	} else {
		database, err = db.OpenInMemory()
	}
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(context.Background()); err != nil {
		_ = database.Close()
		return nil, err
	}

	kb, err := DefaultKnowledgeBase()
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	usage := db.NewUsageRepository(database)
	limiter := NewRateLimiter(
		WithLimit(RateLimitConfig{Requests: sc.RateLimit, Window: sc.RateWindow}),
		WithEnabled(sc.RateLimitEnabled),
	)
	server, err := NewServer(kb, limiter,
		WithEventStore(db.NewEventRepository(database)),
		WithUsageReporter(usage),
		WithMaxQuestionLength(sc.MaxQuestionLength),
		WithServerLogger(logger),
	)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	grpcLimiter := NewRateLimiter(WithLimit(grpcLimit))
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcLimiter.UnaryServerInterceptor()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &Daemon{
		cfg:      sc,
		logger:   logger,
		database: database,
		usage:    usage,
		server:   server,
		httpServer: &http.Server{
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcServer: grpcServer,
		health:     healthServer,
	}, nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	defer d.database.Close()

	httpAddr := d.addr(d.cfg.Port)
	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", httpAddr, err)
	}

	var grpcListener net.Listener
	if d.cfg.GRPCPort > 0 {
		grpcAddr := d.addr(d.cfg.GRPCPort)
		grpcListener, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			_ = httpListener.Close()
			return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
		}
	}

	d.logger.Info().
		Str("http", httpListener.Addr().String()).
		Int("grpc_port", d.cfg.GRPCPort).
		Bool("rate_limit_enabled", d.cfg.RateLimitEnabled).
		Int("rate_limit", d.cfg.RateLimit).
		Dur("rate_window", d.cfg.RateWindow).
		Msg("chat server starting")

	d.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := d.httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	if grpcListener != nil {
		g.Go(func() error {
			if err := d.grpcServer.Serve(grpcListener); err != nil {
				return fmt.Errorf("gRPC server error: %w", err)
			}
			return nil
		})
	}
	if d.cfg.EventRetention > 0 {
		g.Go(func() error {
			d.pruneLoop(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		d.logger.Info().Msg("chat server shutting down...")
		d.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := d.httpServer.Shutdown(shutdownCtx)
		d.grpcServer.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	d.logger.Info().Msg("chat server shutdown complete")
	return nil
}

func (d *Daemon) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		d.prune(ctx, time.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// prune deletes events older than the retention window in batches.
func (d *Daemon) prune(ctx context.Context, now time.Time) int64 {
	before := now.Add(-d.cfg.EventRetention)
	var total int64
	for ctx.Err() == nil {
		n, err := d.usage.DeleteOlderThan(ctx, before, pruneBatch)
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Warn().Err(err).Msg("failed to prune events")
			}
			break
		}
		total += n
		if n < pruneBatch {
			break
		}
	}
	if total > 0 {
		d.logger.Info().Int64("deleted", total).Time("before", before).Msg("pruned old events")
	}
	return total
}

func (d *Daemon) addr(port int) string {
	return net.JoinHostPort(d.cfg.Host, strconv.Itoa(port))
}

// Server returns the HTTP API implementation.
func (d *Daemon) Server() *Server {
	return d.server
}
