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

	"github.com/joho/godotenv"
	"github.com/subfinder/api/internal/application/auth"
	"github.com/subfinder/api/internal/config"
	"github.com/subfinder/api/internal/infrastructure/dynamo"
	jwtinfra "github.com/subfinder/api/internal/infrastructure/jwt"
	"github.com/subfinder/api/internal/infrastructure/smtp"
	transporthttp "github.com/subfinder/api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	tokenProvider := jwtinfra.NewProvider(cfg.JWTKey, cfg.SessionExpiry)

	mailer := smtp.NewMailer(cfg)
	dispatcher := smtp.NewDispatcher(mailer, 4, 64)
	defer dispatcher.Close()

	resetTokenRepo := dynamo.NewResetTokenRepo(dynamoClient, cfg.DynamoTables.ResetTokens)

	deps := &transporthttp.Deps{
		UserRepo:      dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		ResetTokens:   auth.NewResetTokenManager(resetTokenRepo, cfg.BcryptCost, cfg.ResetTokenExpiry),
		SubredditRepo: dynamo.NewSubredditRepo(dynamoClient, cfg.DynamoTables.Subreddits),
		Mail:          dispatcher,
		TokenProvider: tokenProvider,
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
