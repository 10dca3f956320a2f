package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/domain"
	fileloader "quizmaster-service/internal/infra/file"
	"quizmaster-service/internal/infra/memory"
	pgloader "quizmaster-service/internal/infra/postgres"
	redisinfra "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/logger"
	transport "quizmaster-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quizmaster server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// Redis is optional; every adapter has an in-memory twin, so a dead
	// instance downgrades the deployment instead of blocking startup.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unreachable, using in-memory stores",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err))
			_ = client.Close()
		} else {
			redisClient = client
			defer redisClient.Close()
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(memory.BuiltinQuizzes())
	if cfg.Quiz.Dir != "" {
		loader = fileloader.NewQuizLoader(cfg.Quiz.Dir)
	}
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.CacheTTL, 5*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, config.Duration(cfg.Redis.CacheTTL, 10*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}

	fallback := domain.QuizSettings{
		QuestionCount: cfg.Defaults.QuestionCount,
		RandomOrder:   cfg.Defaults.RandomOrder,
		TimerSeconds:  cfg.Defaults.TimerSeconds,
	}
	var settings app.SettingsStore
	if redisClient != nil {
		settings = redisinfra.NewSettingsStore(redisClient, fallback)
	} else {
		settings = memory.NewSettingsStore(fallback)
	}

	hub := transport.NewHub(log)
	service := app.NewQuizService(store, quizRepo, settings, hub, log, app.Config{
		TickInterval:   cfg.TickInterval(),
		QuestionDelay:  config.Duration(cfg.Engine.QuestionDelay, 3*time.Second),
		FinishedMaxAge: config.Duration(cfg.Engine.FinishedMaxAge, time.Hour),
	})
	go service.RunJanitor(ctx, config.Duration(cfg.Engine.CleanupInterval, time.Hour))

	wsHandler := transport.NewWSHandler(service, hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quizmaster service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
