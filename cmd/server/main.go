package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"valve-backend/internal/auth"
	"valve-backend/internal/cache"
	"valve-backend/internal/config"
	"valve-backend/internal/database"
	"valve-backend/internal/db"
	"valve-backend/internal/handlers"
	"valve-backend/internal/health"
	h "valve-backend/internal/http"
	"valve-backend/internal/middleware"
	"valve-backend/internal/monitoring"
	"valve-backend/internal/repositories"
	"valve-backend/internal/services"
	"valve-backend/migrations"
)

func main() {
	cfg := config.Load()

	pool := db.Connect(cfg)
	defer pool.Close()

	// Run database migrations from the embedded set
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	migrator := database.NewMigratorWithFS(pool, migrations.FS, ".")
	if err := migrator.RunMigrations(ctx); err != nil {
		cancel()
		log.Fatalf("Migration failed: %v", err)
	}
	cancel()

	// Redis is optional: without it login just skips the credential cache
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Not available, auth caching disabled: %v", err)
	} else {
		log.Println("[Redis] Connected, auth caching enabled")
	}

	jwtManager := auth.NewJWTManager(cfg)

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	reportRepo := repositories.NewReportRepository(pool)
	legacyRepo := repositories.NewLegacyReportRepository(pool)
	masterDataRepo := repositories.NewMasterDataRepository(pool)

	// Services
	userService := services.NewUserService(userRepo, jwtManager)
	totpService := services.NewTOTPService(userRepo, jwtManager)
	reportService := services.NewReportService(reportRepo, legacyRepo, masterDataRepo)
	masterDataService := services.NewMasterDataService(masterDataRepo)

	if archive := services.NewArchiveService(cfg); archive != nil {
		reportService.SetArchiver(archive)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, totpService)
	userHandler := handlers.NewUserHandler(userService)
	totpHandler := handlers.NewTOTPHandler(totpService, userService)
	reportHandler := handlers.NewReportHandler(reportService)
	masterDataHandler := handlers.NewMasterDataHandler(masterDataService)
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(pool))

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)

	router := h.NewRouter(
		authHandler,
		userHandler,
		totpHandler,
		reportHandler,
		masterDataHandler,
		healthHandler,
		authMiddleware,
	)

	// Monitoring side server on its own port
	monServer := monitoring.NewServer(pool, cfg.Monitoring.Port)
	go func() {
		if err := monServer.Start(); err != nil {
			log.Printf("[Monitoring] Server stopped: %v", err)
		}
	}()

	handler := middleware.NewCORS(cfg)(
		middleware.PanicRecovery(
			middleware.MetricsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
