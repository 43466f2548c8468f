package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"questor_backend/internal/config"
	"questor_backend/internal/controller"
	"questor_backend/internal/repository"
	"questor_backend/internal/service"
	"questor_backend/internal/telegram"
	"questor_backend/internal/util"
	"questor_backend/pkg/database"
	"questor_backend/pkg/logger"
	"questor_backend/pkg/monitoring"
	"questor_backend/pkg/security"
	"questor_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	user        *repository.UserRepository
	scenario    *repository.ScenarioRepository
	attempt     *repository.AttemptRepository
	achievement *repository.AchievementRepository
	telegram    *repository.TelegramRepository
}

type services struct {
	auth        *service.AuthService
	scenario    *service.ScenarioService
	attempt     *service.AttemptService
	achievement *service.AchievementService
	telegram    *service.TelegramService
	storage     *service.StorageService
}

type controllers struct {
	auth        *controller.AuthController
	scenario    *controller.ScenarioController
	attempt     *controller.AttemptController
	achievement *controller.AchievementController
	admin       *controller.AdminController
	telegram    *controller.TelegramController
	health      *controller.HealthController
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		scenario:    repository.NewScenarioRepository(db),
		attempt:     repository.NewAttemptRepository(db),
		achievement: repository.NewAchievementRepository(db),
		telegram:    repository.NewTelegramRepository(db),
	}
}

func initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}
	clock := util.SystemClock{}

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	s.storage = storage

	s.auth = service.NewAuthService(repos.user, cfg, clock)
	s.scenario = service.NewScenarioService(repos.scenario, repos.achievement)
	s.achievement = service.NewAchievementService(repos.achievement, repos.attempt, rdb, clock)

	// 完成事件静态直连成就引擎
	s.attempt = service.NewAttemptService(repos.attempt, repos.scenario, s.achievement, clock)

	bot := telegram.NewClient(cfg.Telegram.BotToken)
	s.telegram = service.NewTelegramService(repos.telegram, repos.user, repos.attempt, repos.achievement, bot, clock)

	return s, nil
}

func initControllers(s *services, cfg *config.Config, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		scenario:    controller.NewScenarioController(s.scenario),
		attempt:     controller.NewAttemptController(s.attempt),
		achievement: controller.NewAchievementController(s.achievement),
		admin:       controller.NewAdminController(s.scenario, s.storage),
		telegram:    controller.NewTelegramController(s.telegram, cfg),
		health:      controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg.Server.Mode)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := initRepositories(db)
	services, err := initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	controllers := initControllers(services, cfg, db)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("questor-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" || cfg.Storage.Type == "" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
