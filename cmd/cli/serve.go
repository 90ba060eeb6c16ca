package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/auth"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/config"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/controllers"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/crypto"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/hubspot"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/salesintel"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/server"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/tokens"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the OAuth bridge HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			return runServe(debug)
		},
	}

	return cmd
}

func runServe(debug bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	encryption, err := crypto.NewService(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create encryption service")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	tokenStore := tokens.NewStore(redisClient, encryption)

	hubspotClient := hubspot.NewClient(
		cfg.HubSpotClientID,
		cfg.HubSpotClientSecret,
		cfg.HubSpotRedirectURI,
		cfg.HubSpotScopes,
	)

	salesIntelClient := salesintel.NewClient(
		salesintel.WithBaseURL(cfg.SalesIntelAPIURL),
		salesintel.WithAPIKey(cfg.SalesIntelAPIKey),
	)

	urlSigner := auth.NewURLSigner(cfg.JWTSecret)

	authController := controllers.NewAuthController(controllers.AuthControllerDependencies{
		Config:        cfg,
		TokenStore:    tokenStore,
		HubSpotClient: hubspotClient,
	})

	reportsController := controllers.NewReportsController(controllers.ReportsControllerDependencies{
		TokenStore:       tokenStore,
		SalesIntelClient: salesIntelClient,
		URLSigner:        urlSigner,
	})

	app := server.NewHTTPServer(server.HTTPServerDependencies{
		Config:            cfg,
		AuthController:    authController,
		ReportsController: reportsController,
	})

	log.Info().
		Str("address", cfg.HTTPAddress).
		Str("redirect_uri", cfg.HubSpotRedirectURI).
		Msg("Starting OAuth bridge service")

	if err := app.Listen(cfg.HTTPAddress, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	}); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}

	log.Info().Msg("OAuth bridge service stopped")
	return nil
}
