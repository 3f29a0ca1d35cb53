package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/config"
	"github.com/Eldan-star/ResearchCollab/internal/infrastructure/dynamo"
	"github.com/Eldan-star/ResearchCollab/internal/infrastructure/google"
	jwtinfra "github.com/Eldan-star/ResearchCollab/internal/infrastructure/jwt"
	s3infra "github.com/Eldan-star/ResearchCollab/internal/infrastructure/s3"
	"github.com/Eldan-star/ResearchCollab/internal/infrastructure/smtp"
	"github.com/Eldan-star/ResearchCollab/internal/infrastructure/sns"
	"github.com/Eldan-star/ResearchCollab/internal/realtime"
	transporthttp "github.com/Eldan-star/ResearchCollab/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS push fan-out (optional — disabled without a topic ARN).
	var pushPublisher sns.PushPublisher
	if cfg.PushTopicARN != "" {
		if pub, err := sns.NewPublisher(cfg); err == nil {
			pushPublisher = pub
		} else {
			log.Printf("WARN: SNS push publisher not available: %v", err)
		}
	}

	// Google sign-in (optional — disabled without a client ID).
	var googleVerifier *google.Verifier
	if cfg.GoogleClientID != "" {
		googleVerifier = google.NewVerifier(cfg.GoogleClientID)
	}

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		ProfileRepo:      dynamo.NewProfileRepo(dynamoClient, cfg.DynamoTables.Profiles),
		SessionRepo:      dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		ProjectRepo:      dynamo.NewProjectRepo(dynamoClient, cfg.DynamoTables.Projects),
		ApplicationRepo:  dynamo.NewApplicationRepo(dynamoClient, cfg.DynamoTables.Applications),
		MilestoneRepo:    dynamo.NewMilestoneRepo(dynamoClient, cfg.DynamoTables.Milestones),
		MessageRepo:      dynamo.NewMessageRepo(dynamoClient, cfg.DynamoTables.Messages),
		FileRepo:         dynamo.NewFileRepo(dynamoClient, cfg.DynamoTables.Files),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications),
		S3Store:          s3Store,
		Mailer:           mailer,
		PushPublisher:    pushPublisher,
		JWTProvider:      jwtProvider,
		GoogleVerifier:   googleVerifier,
		Broker:           realtime.NewBroker(),
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
