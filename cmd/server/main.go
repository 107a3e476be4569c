package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"gearshed-backend/pkg/config"
	"gearshed-backend/pkg/database"
	"gearshed-backend/pkg/handlers"
	"gearshed-backend/pkg/middleware"
	"gearshed-backend/pkg/services"
	"gearshed-backend/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	store, err := database.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}

	router := newRouter(cfg, store)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s (%s)", cfg.Port, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("closing database: %v", err)
	}
}

func newRouter(cfg *config.Config, store database.Store) *chi.Mux {
	jwtService := utils.NewJWTService(cfg.JWTSecret)

	authz := services.NewAuthorizationService(store)
	orgService := services.NewOrganizationService(store)
	inventoryService := services.NewInventoryService(store)
	transformationService := services.NewTransformationService(store)
	reservationService := services.NewReservationService(store)

	authHandler := handlers.NewAuthHandler(store, jwtService)
	orgHandler := handlers.NewOrgHandler(orgService, authz)
	itemHandler := handlers.NewItemHandler(inventoryService, authz)
	categoryHandler := handlers.NewCategoryHandler(inventoryService, authz)
	transformationHandler := handlers.NewTransformationHandler(transformationService, authz)
	reservationHandler := handlers.NewReservationHandler(reservationService, authz)

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(cfg))
	router.Use(middleware.Recovery(cfg))
	router.Use(middleware.CORS(cfg))
	router.Use(chimiddleware.Timeout(30 * time.Second))
	router.Use(chimiddleware.Compress(5))
	router.Use(middleware.MaxBodySize(1 << 20))
	if cfg.IsDevelopment() {
		router.Use(chimiddleware.Heartbeat("/ping"))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable,
				"UNHEALTHY", "database unreachable", "")
			return
		}
		utils.WriteSuccessResponse(w, map[string]string{"status": "ok"})
	})

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.With(middleware.RateLimitByIP(cfg.LoginRatePerMinute)).Post("/register", authHandler.Register)
			r.With(middleware.RateLimitByIP(cfg.LoginRatePerMinute)).Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(middleware.Auth(jwtService)).Get("/me", authHandler.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwtService))
			r.Use(middleware.ContentTypeJSON)

			r.Route("/orgs", func(r chi.Router) {
				r.Post("/", orgHandler.Create)
				r.Get("/", orgHandler.List)

				r.Route("/{orgID}", func(r chi.Router) {
					r.Get("/", orgHandler.Get)

					r.Route("/members", func(r chi.Router) {
						r.Post("/", orgHandler.AddMember)
						r.Get("/", orgHandler.ListMembers)
						r.Put("/{userID}", orgHandler.UpdateMemberRole)
					})

					r.Route("/categories", func(r chi.Router) {
						r.Post("/", categoryHandler.Create)
						r.Get("/", categoryHandler.List)
						r.Put("/{categoryID}", categoryHandler.Update)
						r.Delete("/{categoryID}", categoryHandler.Delete)
					})

					r.Route("/items", func(r chi.Router) {
						r.Post("/", itemHandler.Create)
						r.Get("/", itemHandler.List)

						r.Route("/{itemID}", func(r chi.Router) {
							r.Get("/", itemHandler.Get)
							r.Put("/", itemHandler.Update)
							r.Delete("/", itemHandler.Delete)

							r.Route("/components", func(r chi.Router) {
								r.Post("/", itemHandler.AddComponent)
								r.Get("/", itemHandler.ListComponents)
								r.Delete("/{componentID}", itemHandler.RemoveComponent)
							})
						})
					})

					r.Route("/transformations", func(r chi.Router) {
						r.Post("/subdivide", transformationHandler.Subdivide)
						r.Post("/donate", transformationHandler.Donate)
						r.Post("/deteriorate", transformationHandler.Deteriorate)
						r.Post("/disassemble", transformationHandler.Disassemble)
						r.Get("/", transformationHandler.List)
						r.Get("/{transformationID}", transformationHandler.Get)
					})

					r.Route("/reservations", func(r chi.Router) {
						r.Post("/", reservationHandler.Create)
						r.Get("/", reservationHandler.List)

						r.Route("/{reservationID}", func(r chi.Router) {
							r.Get("/", reservationHandler.Get)
							r.Post("/deliver", reservationHandler.Deliver)
							r.Post("/extend", reservationHandler.Extend)
							r.Post("/return", reservationHandler.Return)
							r.Post("/cancel", reservationHandler.Cancel)
						})
					})
				})
			})
		})
	})

	return router
}
