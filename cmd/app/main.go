package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/orinaya/animochi-backend/internal/api"
	"github.com/orinaya/animochi-backend/internal/catalog"
	"github.com/orinaya/animochi-backend/internal/middleware"
	"github.com/orinaya/animochi-backend/internal/repository"
	"github.com/orinaya/animochi-backend/internal/service"
	"github.com/orinaya/animochi-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

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

	if err := repo.RunMigrations(context.Background(), cfg.MigrationsDir); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	rng := catalog.NewRand(time.Now().UnixNano())
	questCatalog := catalog.Default()

	questService := service.NewQuestLifecycleService(repo, questCatalog, rng)
	walletService := service.NewWalletLedgerService(repo)
	claimService := service.NewRewardClaimService(repo)

	gate := middleware.NewOperatorGate(cfg.OperatorSecret)
	hub := api.NewHub()

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
	api.NewQuestRoutes(a, questService, claimService, hub, gate)
	api.NewWalletRoutes(a, walletService, gate)
	api.NewWSRoutes(a, hub)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
