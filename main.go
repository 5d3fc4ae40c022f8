package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"worktime/config"
	"worktime/database"
	"worktime/handlers"
	"worktime/middleware"
	"worktime/models"
	"worktime/reconcile"
)

func main() {
	cfg := config.Load()

	middleware.SetJWTSecret(cfg.JWTSecret)

	if err := database.Init(cfg.DatabaseURL); err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	store := database.NewWorktimeStore(database.GetDB())
	reconciler := reconcile.NewReconciler(store, store, store, store,
		cfg.ReconcileTaskTimeout, cfg.StatusLockExpiry)

	authHandler := handlers.NewAuthHandler(cfg, reconciler)
	worktimeHandler := handlers.NewWorktimeHandler(cfg, store)
	reconcileHandler := handlers.NewReconcileHandler(reconciler)

	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	// Public routes
	router.Post("/login", authHandler.Login)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)

		r.Get("/logout", authHandler.Logout)
		r.Post("/change-password", authHandler.ChangePassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePasswordChange)

			r.Get("/worktime", worktimeHandler.MonthView)
			r.Post("/worktime/record", worktimeHandler.RecordEntry)
			r.Get("/timeoff", worktimeHandler.TimeOffView)
			r.Post("/reconcile", reconcileHandler.Trigger)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleHR))
				r.Post("/worktime/review", worktimeHandler.ReviewEntry)
				r.Get("/export/csv", worktimeHandler.ExportCSV)
			})
		})
	})

	slog.Info("server starting", "port", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, router); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
