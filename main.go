// File: commonroom/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commonroom/config"
	"commonroom/cron"
	"commonroom/database"
	"commonroom/database/repository/bookingindex"
	"commonroom/handlers"
	"commonroom/middleware"
	"commonroom/routes"
	"commonroom/services/booking"
	"commonroom/services/calendar"
	"commonroom/services/cancellation"
	"commonroom/services/ledger"
	"commonroom/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"google.golang.org/api/option"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()
	utils.InitHoldCache()

	location, err := time.LoadLocation(config.AppConfig.Timezone)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid timezone %q: %v", config.AppConfig.Timezone, err)
	}

	catalog, err := config.LoadRoomCatalog()
	if err != nil {
		logger.Sugar().Fatalf("main: failed to load room catalog: %v", err)
	}

	ctx := context.Background()
	var calOpts []option.ClientOption
	if config.AppConfig.GoogleCredentialsFile != "" {
		calOpts = append(calOpts, option.WithCredentialsFile(config.AppConfig.GoogleCredentialsFile))
	}
	calendarService, err := calendar.NewGoogleCalendarService(ctx, calOpts...)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize calendar service: %v", err)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.Default())

	// repositories.
	indexRepo := bookingindex.NewMongoBookingIndexRepo()

	// services.
	ledgerService := ledger.NewMongoLedger()
	compensationClient := cron.NewCompensationClient()
	defer compensationClient.Close()

	availabilityService := &booking.DefaultAvailabilityService{
		Calendar: calendarService,
	}
	paymentSettlement := &booking.DefaultPaymentSettlement{
		Ledger:  ledgerService,
		Network: config.AppConfig.LedgerNetwork,
		Logger:  logger,
	}
	committer := &booking.DefaultReservationCommitter{
		Calendar:     calendarService,
		Availability: availabilityService,
		Index:        indexRepo,
		Logger:       logger,
	}
	flowService := &booking.DefaultFlowService{
		Sessions: &booking.RedisSessionStore{
			Client: utils.GetSessionCacheClient(),
			TTL:    time.Duration(config.AppConfig.SessionTTLMinutes) * time.Minute,
		},
		Availability: availabilityService,
		Payments:     paymentSettlement,
		Committer:    committer,
		Holds: &booking.RedisHoldManager{
			Client: utils.GetHoldCacheClient(),
			TTL:    time.Duration(config.AppConfig.HoldTTLSeconds) * time.Second,
		},
		Catalog:     catalog,
		Compensator: compensationClient,
		Location:    location,
		Logger:      logger,
	}
	cancellationService := &cancellation.DefaultCancellationService{
		Catalog:  catalog,
		Calendar: calendarService,
		Ledger:   ledgerService,
		Index:    indexRepo,
		Pending:  &cancellation.RedisPendingStore{Client: utils.GetSessionCacheClient()},
		Network:  config.AppConfig.LedgerNetwork,
		Logger:   logger,
	}

	cron.InitCompensationWorker(ledgerService)

	bookingHandler := handlers.NewBookingHandler(flowService)
	cancellationHandler := handlers.NewCancellationHandler(cancellationService)
	roomsHandler := handlers.NewRoomsHandler(catalog, availabilityService, location)
	routes.RegisterRoutes(router, bookingHandler, cancellationHandler, roomsHandler)

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("main: listening on :%s", config.AppConfig.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM. In-flight conversations are only
	// as durable as their Redis TTL; money-moving paths settle before exit.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("main: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: forced shutdown: %v", err)
	}
}
