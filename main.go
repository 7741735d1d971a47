package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"educonnect/config"
	"educonnect/database"
	profileRepo "educonnect/database/repository/profile"
	"educonnect/handlers"
	"educonnect/middleware"
	"educonnect/routes"
	"educonnect/services/identity"
	"educonnect/services/navigation"
	"educonnect/services/session"
	"educonnect/services/workflow"
	"educonnect/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()
	cfg := config.AppConfig
	if err := cfg.Validate(); err != nil {
		logger.Fatal("main: invalid configuration", zap.Error(err))
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	utils.FirebaseInit()
	defer utils.FirebaseClose()
	utils.InitSessionCache()

	// Profile store.
	var profiles profileRepo.ProfileRepository
	if config.UsesMongo() {
		if err := database.InitDB(); err != nil {
			logger.Fatal("main: failed to initialize MongoDB", zap.Error(err))
		}
		profiles = profileRepo.NewMongoProfileRepo(database.MongoClient, cfg.MongoDatabase, cfg.ProfileCollection, logger)
	} else {
		profiles = profileRepo.NewFirestoreProfileRepo(utils.FirestoreClient, cfg.ProfileCollection)
	}

	// Identity service.
	toolkit, err := identity.NewToolkit(context.Background(), cfg.FirebaseAPIKey)
	if err != nil {
		logger.Fatal("main: failed to initialize identity toolkit", zap.Error(err))
	}
	var verifier identity.ProviderTokenVerifier
	if cfg.GoogleClientID != "" {
		verifier = identity.NewGoogleTokenVerifier(cfg.GoogleClientID)
	}
	identityClient := identity.NewFirebaseClient(toolkit, utils.AuthClient, verifier, cfg.ProviderRequestURI, logger)
	refresher, err := identity.NewSecureTokenRefresher(cfg.FirebaseAPIKey)
	if err != nil {
		logger.Fatal("main: failed to initialize token refresher", zap.Error(err))
	}
	identityClient.Refresher = refresher

	// Sessions.
	sessionStore, err := session.NewRedisStore(utils.GetSessionCacheClient(), []byte(cfg.JWTSecret))
	if err != nil {
		logger.Fatal("main: failed to create session store", zap.Error(err))
	}
	sessions := session.NewManager(sessionStore, session.Options{
		Secret:               []byte(cfg.JWTSecret),
		TTL:                  cfg.SessionTTL,
		RememberMeTTL:        cfg.RememberMeTTL,
		ProfileCompletionTTL: utils.ProfileCompletionTTL,
	})

	// Workflow controller; navigation is performed by the client.
	controller := workflow.NewController(identityClient, profiles, sessions, navigation.ClientScheduler{}, logger)
	controller.LoginDelay = cfg.LoginRedirectDelay
	controller.RegisterDelay = cfg.RegisterRedirectDelay

	handlerBundle := handlers.NewHandlerBundle(controller, sessions, profiles)
	handlerBundle.HealthChecks["sessions"] = sessions.Ping

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	utils.StartHealthMonitor(monitorCtx, cfg.HealthCheckInterval, handlerBundle.HealthChecks)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting server", zap.String("addr", srv.Addr), zap.String("profileStore", cfg.ProfileStore))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("main: server failed to start", zap.Error(err))
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	database.CloseDB(ctx)
	if err := utils.GetSessionCacheClient().Close(); err != nil {
		logger.Warn("main: failed to close redis", zap.Error(err))
	}

	logger.Info("main: server stopped gracefully")
}
