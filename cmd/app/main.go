package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"time"

	"funplanet-backend/internal/api"
	"funplanet-backend/internal/chain"
	"funplanet-backend/internal/gateway"
	"funplanet-backend/internal/middleware"
	"funplanet-backend/internal/repository"
	"funplanet-backend/internal/service"
	"funplanet-backend/internal/storage"
	"funplanet-backend/pkg/auth"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const defaultGasFloorWei = "5000000000000000" // 0.005 BNB

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	chainClient, err := chain.New(cfg.Chain)
	if err != nil {
		zapLogger.Fatal("Failed to initialize chain client", zap.Error(err))
	}

	r2, err := storage.NewR2(context.Background(), cfg.Storage)
	if err != nil {
		zapLogger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	gatewayClient := gateway.New(cfg.Gateway)

	gasFloor := cfg.Rewards.GasFloorWei
	if gasFloor == "" {
		gasFloor = defaultGasFloorWei
	}
	gasFloorWei, ok := new(big.Int).SetString(gasFloor, 10)
	if !ok {
		zapLogger.Fatal("Invalid gas floor", zap.String("gasFloorWei", gasFloor))
	}

	dailyLimit := cfg.Rewards.DailyLimit
	if dailyLimit == 0 {
		dailyLimit = 100_000
	}

	tokenTTL := cfg.Auth.TokenTTL
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	bearerAuth := auth.NewBearerAuth(cfg.Auth.JWTSecret, tokenTTL)
	notifier := service.NewNotifier()

	userService := service.NewUserService(repo, bearerAuth)
	claimService := service.NewClaimService(repo, chainClient, notifier, dailyLimit, gasFloorWei)
	donationService := service.NewDonationService(repo, chainClient, cfg.Rewards.TreasuryAddress, gasFloorWei, cfg.Rewards.DonationDelay)
	gameService := service.NewGameService(repo, r2)
	gatewayService := service.NewGatewayService(gatewayClient)

	reconciler := service.NewReconciler(repo, chainClient, notifier, cfg.Rewards.ReconcileEvery, cfg.Rewards.IntentStaleAfter)
	if err := reconciler.Start(); err != nil {
		zapLogger.Fatal("Failed to start reconciler", zap.Error(err))
	}
	defer reconciler.Stop()

	authz := middleware.NewAuthorization(userService)

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, userService, bearerAuth, authz)
	api.NewClaimRoutes(a, claimService, bearerAuth)
	api.NewDonationRoutes(a, donationService, bearerAuth, authz)
	api.NewGameRoutes(a, gameService, bearerAuth)
	api.NewAIRoutes(a, gatewayService, bearerAuth)
	api.NewWSRoutes(a, notifier, bearerAuth)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
