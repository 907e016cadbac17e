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

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/corpbank/corpbank/cmd/corpbank/cli"
	"github.com/corpbank/corpbank/internal/app"
	"github.com/corpbank/corpbank/internal/auth"
	"github.com/corpbank/corpbank/internal/observability"
	"github.com/corpbank/corpbank/internal/platform/cache"
	"github.com/corpbank/corpbank/internal/platform/db"
	"github.com/corpbank/corpbank/internal/registry"
	"github.com/corpbank/corpbank/internal/registry/shared"
	internalShared "github.com/corpbank/corpbank/internal/shared"
	"github.com/corpbank/corpbank/jobs"
)

const usage = `usage: corpbank [command] [flags]

commands:
  serve          run the HTTP API (default)
  migrate        apply pending database migrations
  createuser     --email <email> --password <password> [--token]
  issuetoken     --user <id> [--json]
  purge-tokens   delete expired API tokens
  jobs           trigger <task> | stats`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	command, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		command, args = os.Args[1], os.Args[2:]
	}

	switch command {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = withPool(ctx, cfg, func(pool *pgxpool.Pool) error {
			applied, err := db.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			logger.Info("migrations applied", slog.Any("versions", applied))
			return nil
		})
	case "createuser", "issuetoken", "purge-tokens":
		code := 0
		err = withPool(ctx, cfg, func(pool *pgxpool.Pool) error {
			redisClient := optionalRedis(ctx, cfg, logger)
			if redisClient != nil {
				defer redisClient.Close()
			}
			accounts := cli.NewAccountsCLI(newAuthService(cfg, logger, pool, redisClient), nil, nil)
			switch command {
			case "createuser":
				code = accounts.CreateUser(ctx, args)
			case "issuetoken":
				code = accounts.IssueToken(ctx, args)
			default:
				code = accounts.PurgeTokens(ctx, args)
			}
			return nil
		})
		if err == nil && code != 0 {
			os.Exit(code)
		}
	case "jobs":
		err = runJobs(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(command+" failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", slog.Any("versions", applied))
		}
	}

	redisClient := optionalRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	authService := newAuthService(cfg, logger, pool, redisClient)
	validator := shared.NewValidator(cfg.PhoneDefaultRegion)
	auditLogger := internalShared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthService:     authService,
		AuthHandler:     auth.NewHandler(logger, authService),
		RegistryHandler: registry.NewHandler(logger, pool, validator, auditLogger),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Idempotency:     internalShared.NewIdempotencyStore(pool, logger),
		DB:              pool,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newAuthService(cfg *app.Config, logger *slog.Logger, pool *pgxpool.Pool, redisClient *redis.Client) *auth.Service {
	var store *cache.Store
	if redisClient != nil {
		store = cache.NewStore(redisClient, "corpbank_token")
	}
	return auth.NewService(auth.NewRepository(pool), store, auth.Options{
		TokenTTL: cfg.TokenTTL,
		CacheTTL: cfg.TokenCacheTTL,
		Logger:   logger,
	})
}

// optionalRedis connects to redis, returning nil when it is unreachable so token
// lookups fall back to postgres.
func optionalRedis(ctx context.Context, cfg *app.Config, logger *slog.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, token cache disabled", slog.Any("error", err))
		return nil
	}
	return client
}

func withPool(ctx context.Context, cfg *app.Config, fn func(*pgxpool.Pool) error) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer jobsCLI.Close()

	if len(args) == 0 {
		return errors.New("jobs: expected trigger <task> or stats")
	}
	switch args[0] {
	case "trigger":
		name := jobs.TaskPurgeExpiredTokens
		if len(args) > 1 {
			name = args[1]
		}
		info, err := jobsCLI.Trigger(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		return fmt.Errorf("jobs: unknown subcommand %q", args[0])
	}
	return nil
}
