package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"alcyxob/fitness-coach/internal/api"
	"alcyxob/fitness-coach/internal/assistant"
	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/llm"
	"alcyxob/fitness-coach/internal/lock"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/observability"
	"alcyxob/fitness-coach/internal/prompts"
	"alcyxob/fitness-coach/internal/repository/memory"
	"alcyxob/fitness-coach/internal/repository/mongo"
	"alcyxob/fitness-coach/internal/scheduler"
	"alcyxob/fitness-coach/internal/service"
	"alcyxob/fitness-coach/internal/storage"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title Fitness Coach API
// @version 1.0
// @description AI fitness coach: onboarding chats, weekly training plans and workout journaling.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		// The logger is configured from cfg, so fall back to a production one.
		bootLog, _ := logger.New("production")
		bootLog.Fatal("Could not load config", "error", err)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Starting Fitness Coach server", "version", version, "address", cfg.Server.Address)

	rootCtx := context.Background()
	shutdownOtel := observability.InitOTel(rootCtx, log, cfg.Otel, version)

	// --- Repositories ---
	repos, dbClient := initRepositories(rootCtx, cfg.Database, log)

	// --- Initialize Storage ---
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		fileStorage, err = storage.NewS3Storage(rootCtx, cfg.S3, log)
		if err != nil {
			log.Fatal("Failed to initialize S3 storage", "error", err)
		}
	} else {
		log.Info("S3 bucket not configured, voice notes will not be archived")
	}

	// --- Generation Lock ---
	var (
		locker      lock.Locker
		redisClient *redis.Client
	)
	if cfg.Redis.URL != "" {
		locker, redisClient, err = lock.NewRedisLocker(rootCtx, cfg.Redis.URL, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
	} else {
		log.Warn("Redis not configured, plan generation is only serialized within this process")
		locker = lock.NewLocalLocker()
	}

	// --- Assistants ---
	client, err := llm.NewOpenAIClient(cfg.LLM, log)
	if err != nil {
		log.Fatal("Failed to initialize LLM client", "error", err)
	}
	store := prompts.NewStore(cfg.Prompts.Dir)
	onboarding := assistant.NewOnboarding(client, store, log)
	workoutLog := assistant.NewWorkoutLog(client, store, log)

	// --- Initialize Services ---
	planService := service.NewPlanService(repos, service.PlanAssistants{
		Planner:    assistant.NewPlanner(client, store, log),
		Onboarding: onboarding,
		Journal:    assistant.NewWorkoutJournal(client, store, nil, log),
		Log:        workoutLog,
	}, locker, log, service.WithLockTTL(cfg.Redis.LockTTL))

	router := &assistant.Router{
		Onboard: onboarding,
		Guide:   assistant.NewWorkoutGuide(client, store, planService, log),
		Journal: assistant.NewWorkoutJournal(client, store, planService, log),
		Log:     workoutLog,
		Chat:    assistant.NewGeneral(client, store, log),
	}

	services := api.Services{
		Auth:    service.NewAuthService(repos.Users, cfg.JWT.Secret, cfg.JWT.Expiration, log),
		Profile: service.NewProfileService(repos, fileStorage, log),
		Plans:   planService,
		Chat:    service.NewChatService(repos, router, log),
		Audio:   service.NewAudioService(repos.Uploads, fileStorage, assistant.NewTranscriber(client, store, log), cfg.Audio.MaxSizeMB, log),
	}

	// --- Scheduler ---
	var jobs *scheduler.Manager
	if cfg.Scheduler.Enabled {
		jobs = scheduler.NewManager(cfg.Scheduler, planService, repos.Plans, log)
		if err := jobs.Start(); err != nil {
			log.Fatal("Failed to start scheduler", "error", err)
		}
	}

	// --- Initialize Gin Engine ---
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery(), otelgin.Middleware(cfg.Otel.ServiceName))
	engine.MaxMultipartMemory = cfg.Audio.MaxSizeMB << 20

	if err := api.SetupRoutes(engine, services, log); err != nil {
		log.Fatal("Failed to set up routes", "error", err)
	}

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ListenAndServe failed", "error", err)
		}
	}()
	log.Info("Server listening", "address", cfg.Server.Address)

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if jobs != nil {
		jobs.Stop()
	}
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}
	if dbClient != nil {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Error("Failed to disconnect MongoDB", "error", err)
		}
	}
	if err := shutdownOtel(ctxShutdown); err != nil {
		log.Error("Failed to flush traces", "error", err)
	}
	log.Info("Server exiting.")
}

// initRepositories connects to MongoDB, or builds in-process stores for the memory driver.
// The returned client is nil for the memory driver.
func initRepositories(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (service.Repositories, *mongodriver.Client) {
	if cfg.Driver == "memory" {
		log.Warn("Using in-memory repositories, data is lost on restart")
		return service.Repositories{
			Users:   memory.NewUserProfileRepository(),
			Details: memory.NewUserDetailsRepository(),
			Plans:   memory.NewTrainingPlanRepository(),
			Weeks:   memory.NewWeeklyPlanRepository(),
			Chats:   memory.NewChatHistoryRepository(),
			Uploads: memory.NewAudioUploadRepository(),
		}, nil
	}

	dbClient, err := mongo.ConnectDB(ctx, cfg.URI)
	if err != nil {
		log.Fatal("Could not connect to MongoDB", "error", err)
	}
	appDB := dbClient.Database(cfg.Name)
	log.Info("Database connection established", "database", cfg.Name)

	indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	mongo.EnsureIndexes(indexCtx, appDB, log)

	return service.Repositories{
		Users:   mongo.NewMongoUserProfileRepository(appDB),
		Details: mongo.NewMongoUserDetailsRepository(appDB),
		Plans:   mongo.NewMongoTrainingPlanRepository(appDB),
		Weeks:   mongo.NewMongoWeeklyPlanRepository(appDB),
		Chats:   mongo.NewMongoChatHistoryRepository(appDB),
		Uploads: mongo.NewMongoAudioUploadRepository(appDB),
	}, dbClient
}
