package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/config"
	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/domain/repository"
	"github.com/yourusername/dealership-api/internal/handler"
	"github.com/yourusername/dealership-api/internal/middleware"
	"github.com/yourusername/dealership-api/internal/pkg/logger"
	"github.com/yourusername/dealership-api/internal/repository/memory"
	pgRepo "github.com/yourusername/dealership-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/dealership-api/internal/repository/redis"
	"github.com/yourusername/dealership-api/internal/service"
	ws "github.com/yourusername/dealership-api/internal/websocket"
	"github.com/yourusername/dealership-api/pkg/auth"
	"github.com/yourusername/dealership-api/pkg/database"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		// The logger is configured from cfg, so fall back to a bare one.
		zap.NewExample().Fatal("failed to load config", zap.String("path", configPath), zap.Error(err))
	}

	log := logger.Init(cfg.Environment, cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()
	log.Info("configuration loaded", zap.String("path", configPath), zap.String("environment", cfg.Environment))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !cfg.IsProduction() && cfg.Log.Level == "debug")
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath, logger.Named("migrate")); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled() {
		redisClient, err = database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("connected to redis", zap.String("mode", cfg.Redis.Mode))
	}

	rateStore := newRateLimitStore(ctx, cfg, redisClient, log)
	lockStore := newLockStore(cfg, redisClient, log)

	userRepo := pgRepo.NewUserRepo(db)
	codeRepo := pgRepo.NewOneTimeCodeRepo(db)
	vehicleRepo := pgRepo.NewVehicleRepo(db)

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		log.Fatal("failed to initialize JWT service", zap.Error(err))
	}

	var emailSender service.EmailSender = &service.NoopEmailSender{Logger: logger.Named("email")}
	if cfg.Email.ResendAPIKey != "" {
		resendSender, err := service.NewResendEmailSender(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.DashboardURL)
		if err != nil {
			log.Fatal("failed to initialize email sender", zap.Error(err))
		}
		emailSender = resendSender
	} else {
		log.Warn("RESEND_API_KEY not set, welcome emails are logged only")
	}

	smsSender := service.NewGatewaySMSSender(cfg.SMS.APIURL, cfg.SMS.APIKey, cfg.SMS.Sender, cfg.SMS.DryRun, cfg.SMS.Timeout, logger.Get())

	hub := ws.NewHub(logger.Get())
	go hub.Run(ctx)

	limiter := service.NewRateLimiter(rateStore, logger.Get())
	lockService := service.NewLockService(lockStore, hub, cfg.Locks.DefaultTTL, cfg.Locks.MaxTTL, logger.Get())
	otpService := service.NewOTPService(codeRepo, userRepo, smsSender, jwtService, cfg.OTP.TTL, cfg.JWT.VerificationTTL, logger.Get())
	authService := service.NewAuthService(userRepo, otpService, jwtService, logger.Get())
	userService := service.NewUserService(userRepo, emailSender, logger.Get())
	vehicleService := service.NewVehicleService(vehicleRepo, lockService, logger.Get())

	otpHandler := handler.NewOTPHandler(otpService, limiter, logger.Get())
	authHandler := handler.NewAuthHandler(authService, otpService, limiter, logger.Get())
	userHandler := handler.NewUserHandler(userService, logger.Get())
	vehicleHandler := handler.NewVehicleHandler(vehicleService, logger.Get())
	lockHandler := handler.NewLockHandler(lockService, userService, vehicleService, logger.Get())
	wsHandler := handler.NewWSHandler(hub, jwtService, lockService, cfg.CORS.AllowOrigins, logger.Get())

	authMiddleware := middleware.NewAuthMiddleware(jwtService, userRepo)
	rateLimit := middleware.NewRateLimitMiddleware(limiter)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger.Named("http")))

	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Warn("failed to set trusted proxies", zap.Error(err))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handler.LockTokenHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(rateLimit.LimitByIP(service.APIPolicy()))
	{
		otp := api.Group("/otp")
		{
			otp.POST("/send", otpHandler.SendOTP)
			otp.POST("/verify", otpHandler.VerifyOTP)
		}

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", rateLimit.LimitByIP(service.LoginPolicy()), authHandler.Login)
			authGroup.POST("/password/forgot", authHandler.ForgotPassword)
			authGroup.POST("/password/verify", authHandler.VerifyResetOTP)
			authGroup.POST("/password/reset", authHandler.ResetPassword)
		}

		authed := api.Group("")
		authed.Use(authMiddleware.RequireAuth())
		{
			authed.GET("/users/me", userHandler.Me)

			admin := authed.Group("/users")
			admin.Use(authMiddleware.RequireRole(entity.RoleAdmin))
			{
				admin.GET("", userHandler.List)
				admin.POST("", userHandler.Create)
				admin.PATCH("/:id", middleware.ExtractUintParam("id", handler.ParamUserID), userHandler.Update)
			}

			authed.GET("/locks", lockHandler.List)

			vehicles := authed.Group("/vehicles")
			{
				vehicles.GET("", vehicleHandler.List)
				vehicles.GET("/export", authMiddleware.RequireRole(entity.RoleAdmin, entity.RoleManager), vehicleHandler.Export)
				vehicles.POST("", authMiddleware.RequireRole(entity.RoleAdmin, entity.RoleManager), vehicleHandler.Create)

				byID := vehicles.Group("/:id")
				byID.Use(middleware.ExtractUintParam("id", handler.ParamVehicleID))
				{
					byID.GET("", vehicleHandler.Get)
					byID.PATCH("", vehicleHandler.Update)
					byID.POST("/reserve", vehicleHandler.Reserve)
					byID.POST("/unreserve", vehicleHandler.Unreserve)
					byID.GET("/sale", vehicleHandler.GetSale)
					byID.POST("/sold", authMiddleware.RequireRole(entity.RoleAdmin, entity.RoleManager), vehicleHandler.MarkSold)

					byID.POST("/lock", lockHandler.Acquire)
					byID.PUT("/lock", lockHandler.Heartbeat)
					byID.DELETE("/lock", lockHandler.Release)
				}
			}
		}
	}

	router.GET("/ws/locks", wsHandler.HandleLocks)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	// Stops the sweeper and the hub.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server exited")
}

func newRateLimitStore(ctx context.Context, cfg *config.Config, client redis.UniversalClient, log *zap.Logger) repository.RateLimitStore {
	if cfg.RateLimit.Backend == "redis" {
		if client == nil {
			log.Fatal("rate_limit.backend=redis requires redis settings")
		}
		store, err := redisRepo.NewRateLimitStore(client)
		if err != nil {
			log.Fatal("failed to initialize redis rate limit store", zap.Error(err))
		}
		log.Info("rate limit backend: redis")
		return store
	}

	store := memory.NewRateLimitStore()
	go store.RunSweeper(ctx, cfg.RateLimit.SweepInterval)
	log.Info("rate limit backend: memory", zap.Duration("sweep_interval", cfg.RateLimit.SweepInterval))
	return store
}

func newLockStore(cfg *config.Config, client redis.UniversalClient, log *zap.Logger) repository.LockStore {
	if cfg.Locks.Backend == "redis" {
		if client == nil {
			log.Fatal("locks.backend=redis requires redis settings")
		}
		store, err := redisRepo.NewLockStore(client)
		if err != nil {
			log.Fatal("failed to initialize redis lock store", zap.Error(err))
		}
		log.Info("lock backend: redis")
		return store
	}
	log.Info("lock backend: memory")
	return memory.NewLockStore()
}
