package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/dailypen/internal/config"
	"github.com/xxxsen/dailypen/internal/db"
	"github.com/xxxsen/dailypen/internal/handler"
	"github.com/xxxsen/dailypen/internal/middleware"
	"github.com/xxxsen/dailypen/internal/pkg/jwt"
	"github.com/xxxsen/dailypen/internal/pkg/otpcode"
	"github.com/xxxsen/dailypen/internal/repo"
	"github.com/xxxsen/dailypen/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "dailypen",
		Short: "dailypen auth server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run dailypen server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (service.CredentialStore, func(), error) {
	switch cfg.Type {
	case "mongo":
		client, database, err := db.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo: %w", err)
		}
		closer := func() { _ = client.Disconnect(context.Background()) }
		if err := db.EnsureMongoIndexes(ctx, database); err != nil {
			closer()
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return repo.NewMongoUserRepo(database), closer, nil
	case "memory":
		logutil.GetLogger(ctx).Warn("using in-memory credential store, accounts are lost on restart")
		return repo.NewMemoryUserRepo(), func() {}, nil
	default:
		sqlDB, err := db.Open(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		if err := db.ApplyMigrations(sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		return repo.NewUserRepo(sqlDB), func() { _ = sqlDB.Close() }, nil
	}
}

func newLimiter(cfg config.RateLimitConfig) (middleware.Limiter, func()) {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	switch cfg.Backend {
	case "off":
		return nil, func() {}
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return middleware.NewRedisLimiter(client, cfg.Redis.Prefix, window, cfg.MaxRequests), func() { _ = client.Close() }
	default:
		return middleware.NewMemoryLimiter(window, cfg.MaxRequests, cfg.MaxKeys), func() {}
	}
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database.Type),
		zap.String("mail", cfg.Mail.Type),
		zap.String("rate_limit", cfg.RateLimit.Backend),
	)

	users, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter, closeLimiter := newLimiter(cfg.RateLimit)
	defer closeLimiter()

	jwtSecret := []byte(cfg.JWTSecret)
	var digestKey []byte
	if cfg.OTP.DigestKey != "" {
		digestKey = []byte(cfg.OTP.DigestKey)
	}
	authService := service.NewAuthService(
		users,
		service.NewEmailSender(cfg.Mail),
		jwt.NewIssuer(jwtSecret, time.Hour*time.Duration(cfg.JWTTTLHours)),
		service.AuthOptions{
			OTPTTL:        time.Duration(cfg.OTP.TTLSeconds) * time.Second,
			AllowRegister: !cfg.DisableRegister,
			Digester:      otpcode.NewDigester(digestKey),
		},
	)

	userService := service.NewUserService(users)

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Users:     handler.NewUserHandler(userService),
		Admin:     handler.NewAdminHandler(userService),
		Roles:     userService,
		Limiter:   limiter,
		JWTSecret: jwtSecret,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
