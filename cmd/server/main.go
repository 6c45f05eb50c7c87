package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mini-iam/backend/internal/cache"
	"mini-iam/backend/internal/config"
	"mini-iam/backend/internal/db"
	healthhandler "mini-iam/backend/internal/health/handler"
	identityhandler "mini-iam/backend/internal/identity/handler"
	identityrepo "mini-iam/backend/internal/identity/repository"
	identityservice "mini-iam/backend/internal/identity/service"
	"mini-iam/backend/internal/logger"
	"mini-iam/backend/internal/revocation"
	"mini-iam/backend/internal/security"
	"mini-iam/backend/internal/server"
	sessionrepo "mini-iam/backend/internal/session/repository"
	"mini-iam/backend/internal/telemetry"
	otelsetup "mini-iam/backend/internal/telemetry/otel"
	userhandler "mini-iam/backend/internal/user/handler"
	userrepo "mini-iam/backend/internal/user/repository"
	userservice "mini-iam/backend/internal/user/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet.
		zap.NewExample().Fatal("config", zap.Error(err))
	}

	log := logger.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatal("telemetry", zap.Error(err))
	}
	providers.SetGlobal()
	events := otelsetup.NewEventEmitter(providers.LoggerProvider)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer conn.Close()

	redisCache, err := cache.NewRedisCache(cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer redisCache.Close()

	// A missing key is not fatal: the service starts and token issuance reports a configuration error.
	signingKey, err := security.LoadSigningKey(cfg.JWTKey)
	if err != nil {
		if !errors.Is(err, security.ErrMissingSigningKey) {
			log.Fatal("jwt key", zap.Error(err))
		}
		log.Warn("JWT_KEY is not set; login and refresh will fail until it is configured")
	}
	tokens := security.NewTokenProvider(signingKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenExpiry())
	hasher := security.NewHasher(cfg.BcryptCost)

	authSvc := identityservice.NewAuthService(
		identityrepo.NewPostgresRepository(conn),
		sessionrepo.NewPostgresRepository(conn),
		revocation.New(redisCache, revocation.DefaultTTL),
		hasher,
		tokens,
		cfg.SessionIdleTimeout(),
		log,
		identityservice.WithEventEmitter(events),
	)
	userSvc := userservice.NewUserService(userrepo.NewPostgresRepository(conn), hasher, log)
	checker := healthhandler.NewChecker(map[string]healthhandler.Pinger{
		"postgres": conn,
		"redis":    redisCache,
	}, log)

	router := server.NewRouter(server.Deps{
		Auth:          identityhandler.NewAuthHandler(authSvc, log),
		Authenticator: authSvc,
		Users:         userhandler.NewUserHandler(userSvc, log),
		Health:        checker,
		Logger:        log,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	grpcSrv, healthSrv := server.NewGRPCServer(log)
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatal("listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
		}
		go server.WatchReadiness(ctx, checker, healthSrv, 10*time.Second)
		go func() {
			log.Info("gRPC health server listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server failed", zap.Error(err))
	}

	healthSrv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	// Let in-flight async event emits finish before the exporters close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("telemetry shutdown", zap.Error(err))
	}
	log.Info("stopped")
}
