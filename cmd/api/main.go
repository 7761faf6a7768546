package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyplan-api/internal/config"
	"github.com/noah-isme/studyplan-api/internal/database"
	"github.com/noah-isme/studyplan-api/internal/handler"
	"github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
	"github.com/noah-isme/studyplan-api/internal/router"
	"github.com/noah-isme/studyplan-api/internal/service"
	"github.com/noah-isme/studyplan-api/pkg/ai"
	"github.com/noah-isme/studyplan-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelConnect()

	db, err := database.ConnectPostgres(connectCtx, cfg.DatabaseURL, database.PostgresOptions{
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Debug:           cfg.AppEnv == "development",
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(connectCtx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, caching and shared dedupe disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, notification events will not be published there")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	var dispatcher mailer.Dispatcher = mailer.NewLogDispatcher(logger)
	if cfg.SendGridKey != "" && cfg.MailFromAddr != "" {
		dispatcher = mailer.NewSendGridDispatcher(mailer.SendGridConfig{
			APIKey:      cfg.SendGridKey,
			FromAddress: cfg.MailFromAddr,
			FromName:    cfg.MailFromName,
		}, logger)
	} else {
		logger.Warn().Msg("sendgrid not configured, emails are written to the log")
	}

	var suggester ai.ScheduleSuggester
	var quizGenerator ai.QuizGenerator
	if cfg.OpenAIAPIKey != "" {
		openAI, err := ai.NewOpenAISuggester(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.AIModel,
			BaseURL: cfg.AIBaseURL,
			Logger:  logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("schedule suggestions and quiz generation disabled")
		} else {
			suggester = openAI
			quizGenerator = openAI
		}
	}

	userRepo := repository.NewUserRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	historyRepo := repository.NewNotificationLogRepository(db)
	supportRepo := repository.NewSupportRepository(db)

	var deduper service.NotificationDeduper
	if redisClient != nil {
		deduper = service.NewRedisDeduper(redisClient, logger)
	}

	tracker := service.NewCompletionTracker(userRepo, slotRepo, redisClient, cfg.ScheduleCache, cfg.NotificationLocation, logger)
	scheduleService := service.NewScheduleService(userRepo, slotRepo, subjectRepo, suggester, tracker, redisClient, validate, logger)
	quizService := service.NewQuizService(userRepo, quizRepo, quizGenerator, validate, logger)
	userService := service.NewUserService(userRepo, tracker, validate, logger)
	policy := service.NewAccessPolicy(userRepo)
	issuer := func(userID uint, role models.Role, expiresAt time.Time) (string, error) {
		return middleware.IssueToken(cfg.JWTSecret, userID, role, jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    cfg.AppName,
		})
	}
	authService := service.NewAuthService(userRepo, issuer, cfg.JWTTTL, validate, logger)
	supportService := service.NewSupportService(supportRepo, userRepo, redisClient, service.NewMailSupportDelivery(dispatcher, cfg.SupportInbox, logger), validate, logger)
	engine := service.NewNotificationEngine(userRepo, slotRepo, quizRepo, dispatcher, validate, logger, service.NotificationEngineOptions{
		Deduper:   deduper,
		Publisher: service.NewBrokerPublisher(redisClient, natsConn, cfg.NotificationChannel),
		History:   historyRepo,
		Location:  cfg.NotificationLocation,
		DedupeTTL: cfg.DedupeTTL,
	})

	var scheduler *service.NotificationScheduler
	var entries handler.CheckScheduleLister
	if cfg.NotificationsEnabled {
		scheduler, err = service.NewNotificationScheduler(engine, service.NotificationCadence{
			SessionEndingEvery: cfg.SessionEndingEvery,
			QuizScoresEvery:    cfg.QuizScoresEvery,
			UnfinishedWorkAt:   cfg.UnfinishedWorkAt,
			Location:           cfg.NotificationLocation,
			RunTimeout:         cfg.CheckRunTimeout,
		}, logger)
		if err != nil {
			log.Fatalf("failed to configure notification scheduler: %v", err)
		}
		entries = scheduler
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, cfg.LoginRateLimit, logger),
		ScheduleHandler:     handler.NewScheduleHandler(scheduleService, tracker, policy, logger),
		QuizHandler:         handler.NewQuizHandler(quizService, policy, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		NotificationHandler: handler.NewNotificationHandler(engine, entries, logger, cfg.CheckRunTimeout),
		HistoryHandler:      handler.NewNotificationHistoryHandler(service.NewNotificationHistoryService(historyRepo, logger), policy, logger),
		SupportHandler:      handler.NewSupportHandler(supportService, logger, cfg.SupportOpenLimit),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	if scheduler != nil {
		scheduler.Start()
	}

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, scheduler)
}

func waitForShutdown(app *fiber.App, scheduler *service.NotificationScheduler) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	if scheduler != nil {
		if err := scheduler.Stop(ctx); err != nil {
			log.Printf("notification scheduler did not stop cleanly: %v", err)
		}
	}

	log.Println("server stopped")
}
