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

	"github.com/rs/zerolog/log"

	"github.com/uma-arai/sbcntr-rendezvous/internal/api"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/config"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/database"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/logging"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/utils"
	"github.com/uma-arai/sbcntr-rendezvous/internal/repository"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/agent"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/interest"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/recommend"
)

const (
	serviceVersion  = "1.0.0"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.EnableTracing {
		if err := utils.ConfigureTracing(serviceVersion); err != nil {
			log.Fatal().Err(err).Msg("Failed to configure default X-Ray settings")
		}
	}

	db, err := database.NewDB(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create database connection")
	}
	defer db.Close()

	repoDb := repository.NewDB(db.DB)
	userRepo := repository.NewUserRepository(repoDb)
	venueRepo := repository.NewVenueRepository(repoDb)
	interestRepo := repository.NewInterestRepository(repoDb)
	reservationRepo := repository.NewReservationRepository(repoDb)
	notificationRepo := repository.NewNotificationRepository(repoDb)

	reservationAgent := agent.NewAgent(reservationRepo, interestRepo)

	server := api.NewServer(api.Deps{
		Users:         userRepo,
		Venues:        venueRepo,
		Interests:     interest.NewService(interestRepo, reservationAgent, cfg.Agent.ReservationHour),
		Recommender:   recommend.NewComposer(userRepo, venueRepo, interestRepo, cfg.Recommend.CompanionLimit),
		Reservations:  reservationAgent,
		Bookings:      reservationRepo,
		Notifications: notificationRepo,
	}, api.Options{
		RateLimitPerMinute: cfg.API.RateLimitPerMinute,
		RateLimitBurst:     cfg.API.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.API.Port).Msg("Application starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Application shutting down")
	case err := <-errChan:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP server gracefully")
	}
}
