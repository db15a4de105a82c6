// File: concierge/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concierge/config"
	"concierge/handlers"
	"concierge/middleware"
	"concierge/routes"
	"concierge/services/agent"
	"concierge/services/gateway"
	"concierge/services/schedule"
	"concierge/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	utils.InitConversationCache()
	cacheClient := utils.GetConversationCacheClient()
	utils.StartHealthMonitor(cacheClient)

	loc, err := time.LoadLocation(config.AppConfig.BookingTimezone)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid booking timezone %q: %v", config.AppConfig.BookingTimezone, err)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// services.
	bookingGateway := gateway.NewClient(config.AppConfig.BookingAPIURL, 15*time.Second)
	resolver := schedule.NewResolver(loc)
	checker := &schedule.DefaultAvailabilityChecker{
		Gateway: bookingGateway,
		Loc:     loc,
	}
	confirmation := &schedule.DefaultConfirmationFlow{}

	toolset := &agent.Toolset{
		Gateway:      bookingGateway,
		Checker:      checker,
		Resolver:     resolver,
		Confirmation: confirmation,
		Username:     config.AppConfig.BookingUsername,
		Password:     config.AppConfig.BookingPassword,
		Loc:          loc,
		Now:          func() time.Time { return time.Now().In(loc) },
	}

	capability := agent.NewLLMClient(
		config.AppConfig.LLMBaseURL,
		config.AppConfig.LLMAPIKey,
		config.AppConfig.LLMModel,
		config.AppConfig.LLMTimeout,
	)
	store := agent.NewRedisConversationStore(cacheClient, config.AppConfig.ConversationTTL)

	orchestrator := &agent.Orchestrator{
		Capability:   capability,
		Tools:        toolset,
		Store:        store,
		Decision:     &schedule.DefaultDecisionEngine{},
		Confirmation: confirmation,
		MaxSteps:     config.AppConfig.AgentMaxSteps,
	}

	agentHandler := &handlers.AgentHandler{
		Orchestrator: orchestrator,
		Store:        store,
	}

	// Register routes with the assembled handlers.
	routes.RegisterRoutes(router, agentHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
