package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"crm-system/internal/repositories"
	"crm-system/internal/routes"
	"crm-system/pkg/config"
	"crm-system/pkg/database/postgresql"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/eventbus"
	"crm-system/pkg/filestorage"
	applogger "crm-system/pkg/logger"
	"crm-system/pkg/metrics"
	"crm-system/pkg/middleware"
	"crm-system/pkg/service"
	"crm-system/pkg/utils"
	"crm-system/pkg/validation"
	"crm-system/pkg/websocket"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("could not connect to PostgreSQL", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Postgres.MigrateOnStart {
		if err := postgresql.Migrate(ctx, dbConn); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		// Team rosters and lockouts degrade to direct database reads.
		logger.Warn("Redis is unreachable, continuing without cache", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	storage, err := filestorage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("could not initialise file storage", zap.Error(err))
	}

	bus := eventbus.New(logger)
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	appMetrics := metrics.New()
	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "internal server error", err, nil)
				_ = utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))
	e.Use(middleware.InjectLogger(logger))
	e.Use(middleware.RequestLogger(logger, appMetrics))

	if cfg.Storage.Driver != "s3" {
		absPath, err := filepath.Abs(cfg.Storage.UploadDir)
		if err != nil {
			logger.Fatal("could not resolve upload directory", zap.Error(err))
		}
		e.Static("/uploads", absPath)
	}

	routes.InitRouter(e, routes.Deps{
		DB:      dbConn,
		Cache:   repositories.NewRedisCacheRepository(redisClient),
		Storage: storage,
		Bus:     bus,
		Hub:     hub,
		Metrics: appMetrics,
		JWT:     jwtSvc,
		Config:  cfg,
		Logger:  logger,
	})

	go func() {
		logger.Info("server started", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	// Let in-flight audit and board listeners finish before the pool closes.
	bus.Wait()
}
