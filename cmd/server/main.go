package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ddtft/internal/auth"
	"ddtft/internal/cache/noop"
	rediscache "ddtft/internal/cache/redis"
	"ddtft/internal/config"
	"ddtft/internal/handler"
	"ddtft/internal/observability"
	"ddtft/internal/pipeline"
	"ddtft/internal/port"
	"ddtft/internal/repository/postgres"
	"ddtft/internal/router"
	"ddtft/internal/service"
	s3storage "ddtft/internal/storage/s3"
	pdfsource "ddtft/internal/textsource/pdf"
	"ddtft/internal/validator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ddtft-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      os.Stdout,
		ServiceName: "ddtft-server",
	})
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	checks := map[string]handler.Pinger{"database": db}

	// Initialize cache
	var cache port.ResultCache = noop.NewResultCache()
	if cfg.Redis.Addr != "" {
		client, err := rediscache.NewClient(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = client.Close() }()
		cache = rediscache.NewResultCacheFromClient(client, cfg.Redis.Prefix, cfg.Redis.TTL)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
	} else {
		log.Info().Msg("redis not configured, result cache disabled")
	}

	// Initialize storage
	var storage port.ObjectStorage
	if cfg.S3.Bucket != "" {
		storage, err = s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	} else {
		log.Info().Msg("s3 bucket not configured, sources will not be archived")
	}

	// Initialize engine
	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	engineOpts.Logger = log
	engine := pipeline.New(engineOpts)
	validation := validator.NewEngine(
		validator.NewDefaultRegistry(validator.RuleOptions{ToleranceRatio: decimal.NewFromFloat(cfg.Extraction.ToleranceRatio)}),
		log,
	)

	maxUpload := cfg.Server.MaxUploadMB << 20
	extractionSvc := service.NewExtractionService(service.ExtractionDeps{
		Engine:     engine,
		Validator:  validation,
		Repo:       postgres.NewExtractionRepo(db),
		Storage:    storage,
		Cache:      cache,
		TextSource: pdfsource.NewSource(pdfsource.DefaultOptions(), log),
		Logger:     log,
	}, service.ExtractionServiceConfig{
		Bucket:         cfg.S3.Bucket,
		PresignExpiry:  cfg.S3.PresignExpiry,
		Timeout:        cfg.Extraction.Timeout,
		MaxSourceBytes: maxUpload,
		SheetName:      cfg.Export.SheetName,
	})

	// Initialize handlers
	extractionH := handler.NewExtractionHandler(extractionSvc, maxUpload, log)
	healthH := handler.NewHealthHandler(checks)

	var tokens auth.TokenValidator
	if cfg.JWT.Disabled {
		log.Warn().Msg("authentication disabled")
	} else {
		tokens = auth.NewJWT(&cfg.JWT)
	}

	r := router.Setup(router.Options{
		Validator:   tokens,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log,
		Swagger:     cfg.Server.Environment != "production",
	}, extractionH, healthH)

	return serve(ctx, log, &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	})
}

func serve(ctx context.Context, log zerolog.Logger, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
