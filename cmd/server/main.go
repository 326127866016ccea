package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sddhantjaiii/calling-agent-backend/cmd/bootstrap"
	handlers "github.com/sddhantjaiii/calling-agent-backend/internal/handler"
	"github.com/sddhantjaiii/calling-agent-backend/internal/task"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/cache"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/config"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/logger"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/middleware"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/provider"
)

type CallingAgentApp struct {
	db       *gorm.DB
	handlers *handlers.Handlers
}

func NewCallingAgentApp(db *gorm.DB) *CallingAgentApp {
	return &CallingAgentApp{
		db:       db,
		handlers: handlers.NewHandlers(db),
	}
}

func (app *CallingAgentApp) RegisterRoutes(r *gin.Engine) {
	app.handlers.Register(r)
}

func main() {
	// 1. Parse Command Line Parameters
	mode := flag.String("mode", "", "running environment (development, test, production)")
	initSQL := flag.String("init-sql", "", "path to database init .sql script (optional)")
	flag.Parse()

	// 2. Set Environment Variables
	if *mode != "" {
		os.Setenv("APP_ENV", *mode)
	}

	// 3. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}

	// 4. Load Log Configuration
	err := logger.Init(&config.GlobalConfig.Log, config.GlobalConfig.Mode)
	if err != nil {
		panic(err)
	}

	// 5. Load Data Source
	db, err := bootstrap.SetupDatabase(os.Stdout, &bootstrap.Options{
		InitSQLPath: *initSQL,
		AutoMigrate: true,
		SeedNonProd: os.Getenv("APP_ENV") != "production",
	})
	if err != nil {
		logger.Error("database setup failed", zap.Error(err))
		return
	}

	// 6. Load Base Configs
	var addr = config.GlobalConfig.Addr
	if addr == "" {
		addr = ":7080"
	}

	logger.Info("checked config -- addr: ", zap.String("addr", addr))
	logger.Info("checked config -- db-driver: ",
		zap.String("db-driver", config.GlobalConfig.DBDriver),
		zap.String("dsn", config.GlobalConfig.DSN))
	logger.Info("checked config -- mode: ", zap.String("mode", config.GlobalConfig.Mode))

	// 7. Load Global Cache
	if err := cache.InitGlobalCache(config.GlobalConfig.Cache); err != nil {
		logger.Error("failed to initialize cache", zap.Error(err))
		logger.Info("falling back to default local cache")
	}
	defer cache.CloseGlobalCache()

	// 8. New App
	app := NewCallingAgentApp(db)

	// 9. Start Timed Tasks
	go task.StartDeliveryLogCleaner(db)
	task.StartRollupReconciler(db)
	if config.GlobalConfig.ProviderAPIKey != "" {
		providerClient := provider.NewClient(provider.Config{
			BaseURL: config.GlobalConfig.ProviderBaseURL,
			APIKey:  config.GlobalConfig.ProviderAPIKey,
			Timeout: config.GlobalConfig.ProviderTimeout,
		})
		task.StartAgentConfigSync(db, providerClient)
	}

	// 10. Initialize Gin Routing
	if config.GlobalConfig.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Disable automatic redirects to avoid CORS issues caused by 307 redirects
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	// 11. Use Middleware
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.LoggerMiddleware(logger.Lg))

	// 12. Register Routes
	app.RegisterRoutes(r)

	// 13. Start HTTP Server
	httpServer := &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("HTTP server run failed", zap.Error(err))
	}
}
