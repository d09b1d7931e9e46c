package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Oniqq60/study_space/internal/cfg"
	"github.com/Oniqq60/study_space/internal/file"
	"github.com/Oniqq60/study_space/internal/logger"
	"github.com/Oniqq60/study_space/internal/rabbitmq"
	"github.com/Oniqq60/study_space/internal/summarize"
)

// Воркер обработки файлов: скачивание, извлечение текста, конспект.
// Масштабируется запуском дополнительных копий процесса.
func main() {
	config := cfg.LoadConfig()

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

	fileRepo := file.NewRepository(mongoClient.Database(config.MongoDatabase).Collection("files"))
	fetcher := file.NewFetcher(file.Extractor{}, config.DownloadTimeout)

	consumer := file.NewConsumer(fileRepo, fetcher, gemini, config.SummarizeTimeout, logg)
	if err := consumer.Register(broker); err != nil {
		log.Fatalf("failed to register file consumer: %v", err)
	}

	logg.Info("file processing worker started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logg.Info("shutdown signal received")
}
