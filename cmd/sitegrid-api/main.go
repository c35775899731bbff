package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkrstic/sitegrid-api/internal/config"
	"github.com/dkrstic/sitegrid-api/internal/database"
	"github.com/dkrstic/sitegrid-api/internal/handlers"
	authmw "github.com/dkrstic/sitegrid-api/internal/middleware"
	"github.com/dkrstic/sitegrid-api/internal/permissions"
	"github.com/dkrstic/sitegrid-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db)
	tenantService := services.NewTenantService(db)
	pageService := services.NewPageService(db)
	webhookService := services.NewWebhookService(db)
	deliveryService := services.NewDeliveryService(db, cfg.Webhook.Timeout)
	apiKeyService := services.NewAPIKeyService(db, cfg.APIKeyEnvTag())
	usageService := services.NewUsageService(db)

	dispatcher := services.NewDispatcher(webhookService, deliveryService,
		cfg.Webhook.Workers, cfg.Webhook.QueueSize, cfg.Webhook.MaxRetries)

	authHandler := handlers.NewAuthHandler(cfg, userService, tokenService, jwtService)
	tenantHandler := handlers.NewTenantHandler(tenantService, dispatcher)
	pageHandler := handlers.NewPageHandler(pageService, dispatcher)
	webhookHandler := handlers.NewWebhookHandler(webhookService, deliveryService)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyService, usageService)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	if !cfg.IsProduction() {
		auth.Post("/dev-login", authHandler.DevLogin)
	}
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	// Dashboard surface: session tokens only.
	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/auth/logout-all", authHandler.LogoutAll)

	protected.Get("/tenant", tenantHandler.Get)
	protected.Patch("/tenant", tenantHandler.Update)

	protected.Get("/webhooks", webhookHandler.List)
	protected.Post("/webhooks", webhookHandler.Create)
	protected.Get("/webhooks/:webhookId", webhookHandler.Get)
	protected.Patch("/webhooks/:webhookId", webhookHandler.Update)
	protected.Delete("/webhooks/:webhookId", webhookHandler.Delete)
	protected.Post("/webhooks/:webhookId/test", webhookHandler.Test)
	protected.Get("/webhooks/:webhookId/deliveries", webhookHandler.ListDeliveries)

	protected.Get("/apikeys", apiKeyHandler.List)
	protected.Post("/apikeys", apiKeyHandler.Create)
	protected.Post("/apikeys/:keyId/revoke", apiKeyHandler.Revoke)
	protected.Post("/apikeys/:keyId/rotate", apiKeyHandler.Rotate)
	protected.Delete("/apikeys/:keyId", apiKeyHandler.Delete)
	protected.Get("/apikeys/:keyId/usage", apiKeyHandler.Usage)
	protected.Get("/apikeys/:keyId/stats", apiKeyHandler.Stats)

	// Programmatic surface: API keys (scoped) or a session, resource
	// declared per group at registration time.
	pages := api.Group("/pages")
	pages.Use(authmw.APIKeyOrSession(apiKeyService, usageService, jwtService, permissions.ResourcePages))
	pages.Get("", pageHandler.List)
	pages.Post("", pageHandler.Create)
	pages.Get("/:pageId", pageHandler.Get)
	pages.Patch("/:pageId", pageHandler.Update)
	pages.Delete("/:pageId", pageHandler.Delete)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			if n, err := tokenService.CleanupExpired(context.Background()); err != nil {
				log.Printf("session cleanup failed: %v", err)
			} else if n > 0 {
				log.Printf("session cleanup: removed %d expired refresh tokens", n)
			}
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Server starting on %s", addr)
		if err := app.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		log.Printf("Webhook dispatcher drain incomplete: %v", err)
	}
}
