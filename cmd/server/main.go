package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Oniqq60/study_space/internal/cfg"
	"github.com/Oniqq60/study_space/internal/file"
	"github.com/Oniqq60/study_space/internal/logger"
	"github.com/Oniqq60/study_space/internal/mail"
	"github.com/Oniqq60/study_space/internal/middleware"
	"github.com/Oniqq60/study_space/internal/quiz"
	"github.com/Oniqq60/study_space/internal/rabbitmq"
	"github.com/Oniqq60/study_space/internal/routers"
	"github.com/Oniqq60/study_space/internal/subject"
	"github.com/Oniqq60/study_space/internal/summarize"
	"github.com/Oniqq60/study_space/internal/user"
)

func main() {
	config := cfg.LoadConfig()
	if len(config.JWTSecret) < 32 {
		log.Fatalf("JWT_SECRET must be at least 32 characters long for security")
	}

	logg, err := logger.New(config.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logg.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(config.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect mongo: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logg.Errorf("mongo disconnect error: %v", err)
		}
	}()
	db := mongoClient.Database(config.MongoDatabase)

	storage, err := file.NewMinioStorage(
		config.MinioEndpoint,
		config.MinioAccessKey,
		config.MinioSecretKey,
		config.MinioUseSSL,
		config.MinioBucket,
	)
	if err != nil {
		log.Fatalf("failed to init minio: %v", err)
	}

	var redisClient *redis.Client
	if config.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
	}

	broker, err := rabbitmq.Connect(config.RabbitURL, config.RabbitRetries, config.RabbitRetryDelay, logg)
	if err != nil {
		log.Fatalf("failed to connect rabbitmq: %v", err)
	}
	defer broker.Close()
	if err := broker.SetupTopology(); err != nil {
		log.Fatalf("failed to declare topology: %v", err)
	}

	gemini, err := summarize.NewClient(context.Background(), config.GeminiAPIKey, logg)
	if err != nil {
		log.Fatalf("failed to init gemini client: %v", err)
	}
	defer gemini.Close()

	tokens := user.NewTokenManager([]byte(config.JWTSecret), time.Duration(config.JWTTTLSeconds)*time.Second, redisClient)

	userRepo := user.NewMongoRepository(db)
	subjectRepo := subject.NewMongoRepository(db)
	fileRepo := file.NewRepository(db.Collection("files"))
	quizRepo := quiz.NewMongoRepository(db)

	userSvc := user.NewService(userRepo, tokens, broker, config.ServiceName, logg)
	subjectSvc := subject.NewService(subjectRepo, fileRepo, logg)
	fileSvc := file.NewService(fileRepo, subjectRepo, storage, broker, config.ServiceName, logg)

	fetcher := file.NewFetcher(file.Extractor{}, config.DownloadTimeout)
	quizSvc := quiz.NewService(quizRepo, fileSvc, fileRepo, fetcher, gemini, config.SummarizeTimeout, logg)

	userHandler := user.NewHandler(userSvc, tokens, time.Duration(config.JWTTTLSeconds)*time.Second)
	subjectHandler := subject.NewHandler(subjectSvc, tokens)
	fileHandler := file.NewHandler(fileSvc, tokens, quizSvc, config.MaxFileSizeBytes, logg)
	quizHandler := quiz.NewHandler(quizSvc, tokens)
	translateHandler := summarize.NewHandler(gemini, tokens, config.SummarizeTimeout, logg)

	// Почтовые консьюмеры живут в этом же процессе.
	sender, err := mail.NewSender(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPass, config.MailFrom, config.PublicBaseURL)
	if err != nil {
		log.Fatalf("failed to init mail sender: %v", err)
	}
	if err := mail.NewConsumer(sender, logg).Register(broker); err != nil {
		log.Fatalf("failed to register mail consumers: %v", err)
	}

	rateLimiter := middleware.NewRateLimiter(120, time.Minute)
	router, err := routers.New(routers.Dependencies{
		Users:     userHandler.Routes(),
		Subjects:  subjectHandler.Routes(),
		Files:     fileHandler.Routes(),
		Quizzes:   quizHandler.Routes(),
		Translate: translateHandler.Routes(),
		Middleware: []func(http.Handler) http.Handler{
			middleware.NewRequestLogger(logg),
			middleware.NewSecurityHeaders(),
			middleware.NewCORS(middleware.CORSOptions{
				AllowedOrigins:   config.CORSAllowedOrigins,
				AllowCredentials: true,
			}),
			rateLimiter.Middleware,
		},
	})
	if err != nil {
		log.Fatalf("failed to build router: %v", err)
	}

	httpServer := &http.Server{
		Addr:    ":" + config.HTTPPort,
		Handler: router.Handler(),
	}

	go func() {
		logg.Infof("HTTP server listening on :%s", config.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logg.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Errorf("http shutdown error: %v", err)
	}
}
