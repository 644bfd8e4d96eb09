package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/LeventeLantos/freesms-notify/internal/api"
	"github.com/LeventeLantos/freesms-notify/internal/cache"
	"github.com/LeventeLantos/freesms-notify/internal/client"
	"github.com/LeventeLantos/freesms-notify/internal/config"
	"github.com/LeventeLantos/freesms-notify/internal/events"
	"github.com/LeventeLantos/freesms-notify/internal/flow"
	"github.com/LeventeLantos/freesms-notify/internal/integration"
	"github.com/LeventeLantos/freesms-notify/internal/logging"
	"github.com/LeventeLantos/freesms-notify/internal/metrics"
	"github.com/LeventeLantos/freesms-notify/internal/repo"
	"github.com/LeventeLantos/freesms-notify/internal/scheduler"
)

const (
	shutdownTimeout  = 10 * time.Second
	finalSyncTimeout = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the notification HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAll()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	ln, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Address, err)
	}
	return run(ctx, cfg, ln)
}

// run serves on ln until ctx is done. It owns ln.
func run(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	defer ln.Close()

	logger := logging.Init(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	logger.Info("freesms starting",
		"addr", cfg.Server.Address,
		"postgres", cfg.Database.PostgresURL != "",
		"redis", cfg.Redis.Enabled,
		"sync_interval", cfg.Sync.Interval,
	)

	accounts, closeRepo, err := openRepo(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeRepo()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hub := events.NewHub()
	smsClient := client.NewFreeClient(cfg.FreeSMS.APIURL, cfg.FreeSMS.Timeout)

	opts := integration.Options{
		Client:      smsClient,
		Repo:        accounts,
		Hub:         hub,
		Metrics:     m,
		TestMessage: cfg.FreeSMS.TestMessage,
		Logger:      logger,
	}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		opts.Cache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
	}

	mgr := integration.NewManager(opts)
	if err := mgr.LoadAll(ctx); err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	var verifier flow.Verifier
	if cfg.FreeSMS.VerifyOnCreate {
		verifier = smsClient
	}
	entryFlow := flow.New(accounts, verifier, cfg.FreeSMS.VerifyMessage).WithLogger(logger)

	sync, err := scheduler.New("status-sync", cfg.Sync.Interval, func(ctx context.Context) error {
		_, err := mgr.SyncStatuses(ctx)
		return err
	}, logger)
	if err != nil {
		return err
	}
	if cfg.Redis.Enabled {
		sync.Start()
	}
	defer sync.Stop()

	h := api.NewHandler(api.Deps{
		Manager: mgr,
		Flow:    entryFlow,
		Sync:    sync,
		Hub:     hub,
		Metrics: m,
		Logger:  logger,
	})

	// Shutdown leaves running handlers alone. Cancelling the base context
	// ends open event streams.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Handler:           api.Router(h, reg),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}

	syncCtx, cancelSync := context.WithTimeout(context.Background(), finalSyncTimeout)
	defer cancelSync()
	if n, err := mgr.SyncStatuses(syncCtx); err != nil {
		logger.Warn("final status sync incomplete", "written", n, "error", err)
	}
	return nil
}

func openRepo(ctx context.Context, cfg config.DatabaseConfig) (repo.AccountRepository, func(), error) {
	if cfg.PostgresURL == "" {
		slog.Info("no POSTGRES_URL set, accounts are kept in memory")
		return repo.NewMemoryAccountRepo(), func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.PostgresURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := repo.NewPostgresAccountRepo(db)
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return r, func() { _ = db.Close() }, nil
}
