package app

import (
	"context"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hearthapp/server/internal/module/auth"
	"github.com/hearthapp/server/internal/module/payment"
	"github.com/hearthapp/server/internal/shared/cache"
	"github.com/hearthapp/server/internal/shared/clock"
	"github.com/hearthapp/server/internal/shared/config"
	"github.com/hearthapp/server/internal/shared/database"
	"github.com/hearthapp/server/internal/shared/logger"
	"github.com/hearthapp/server/internal/shared/metrics"
	"github.com/hearthapp/server/internal/shared/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LoadConfig loads the application configuration.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}

// App wires the application together.
type App struct {
	config    *config.Config
	logger    *logger.Logger
	zapLogger *zap.Logger
	db        *gorm.DB
	redis     redis.UniversalClient
	metrics   *metrics.Metrics
	router    *gin.Engine
	sweeper   *payment.Sweeper
}

// New creates a fully wired application.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		metrics:   metrics.New("hearth"),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	// Redis is optional; warnings are re-sent each sweep pass without it.
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, warning dedupe disabled", logger.Err(err))
		} else {
			app.redis = redisClient
		}
	}

	app.router = app.setupRouter()

	if err := app.initPaymentModule(); err != nil {
		return nil, fmt.Errorf("init payment module: %w", err)
	}

	return app, nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics(a.metrics))
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// initPaymentModule wires the payment module and starts the timeout sweeper.
func (a *App) initPaymentModule() error {
	if err := a.db.AutoMigrate(&payment.Payment{}); err != nil {
		return fmt.Errorf("migrate payments: %w", err)
	}

	clk := clock.System()
	repo := payment.NewRepository(a.db)
	manager := payment.NewStatusManager(clk)

	// Push/email delivery is deployment-specific; the breaker shields the
	// service from whatever backend gets plugged in.
	notifier := payment.NewBreakerNotifier(payment.NopNotifier{})

	service := payment.NewService(repo, manager, notifier, a.metrics, clk, a.zapLogger, a.config.Payment.TxRetryAttempts)

	jwtManager := auth.NewJWTManager(&auth.JWTConfig{
		Secret:            a.config.Auth.JWTSecret,
		AccessTokenExpiry: a.config.Auth.AccessTokenExpiry,
		Issuer:            a.config.Auth.Issuer,
	})

	api := a.router.Group("/api/v1")
	api.Use(middleware.Auth(jwtManager))
	payment.NewHandler(service).RegisterProtectedRoutes(api)

	a.sweeper = payment.NewSweeper(service, repo, notifier, a.redis, a.metrics, clk, a.zapLogger, &payment.SweeperConfig{
		Interval:         a.config.Payment.SweepInterval,
		WarningWindow:    a.config.Payment.WarningWindow,
		WarningDedupeTTL: a.config.Payment.WarningDedupeTTL,
	})
	a.sweeper.Start(context.Background())

	return nil
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop shuts down background components and connections.
func (a *App) Stop() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.redis != nil {
		if err := cache.Close(a.redis); err != nil {
			a.logger.Warn("close redis", logger.Err(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("close database", logger.Err(err))
		}
	}
	_ = a.zapLogger.Sync()
}
