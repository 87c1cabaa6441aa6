package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloodlink/internal/compat"
	"bloodlink/internal/db"
	"bloodlink/internal/matching"
	"bloodlink/internal/metrics"
	"bloodlink/internal/notify"
	"bloodlink/internal/server"
	"bloodlink/internal/storage"
	"bloodlink/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger := newLogger(config)

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)
	images := storage.NewProfileImages(s3.NewFromConfig(awsConfig), config.S3Bucket, config.S3PublicBaseURL)
	if !images.Configured() {
		logger.Warn("S3_BUCKET not set, donor photo uploads are disabled")
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	donorRepo := store.NewDonorRepository(pool)
	requestRepo := store.NewRequestRepository(pool)

	emailSender := notify.NewSMTPSenderFromConfig(config)
	if !emailSender.Configured() {
		logger.Warn("SMTP host or credentials not set, email notifications are disabled")
	}

	pushSender, err := notify.NewFCMSender(ctx, notify.FirebaseConfig{
		ProjectID:   config.FirebaseProjectID,
		ClientEmail: config.FirebaseClientEmail,
		PrivateKey:  config.FirebasePrivateKey,
	})
	if err != nil {
		logger.WithError(err).Error("failed to initialize firebase, push notifications are disabled")
		pushSender = &notify.FCMSender{}
	} else if !pushSender.Configured() {
		logger.Warn("firebase credentials not set, push notifications are disabled")
	}

	m := metrics.New()

	matcher := matching.NewMatcher(logger, donorRepo, compat.Standard(), config.DefaultDistanceLimitKm)
	dispatcher := notify.NewDispatcher(logger, emailSender, pushSender, config.BaseURL, config.EmailConcurrency)
	orchestrator := matching.NewOrchestrator(logger, matcher, dispatcher, m)

	jwkCache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(ctx, jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
	}

	srv, err := server.New(
		config,
		logger,
		requestRepo,
		donorRepo,
		orchestrator,
		images,
		cognitoClient,
		server.NewJWKSVerifier(jwkCache, jwksURL, config.CognitoRoleClaim),
		m,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
