package handlers

import (
	"net/http"

	"wastecollect-backend/internal/middleware"
	"wastecollect-backend/internal/models"
	"wastecollect-backend/internal/services"
	"wastecollect-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDeps carries everything the HTTP layer is wired to
type RouterDeps struct {
	Routes    *services.RouteService
	Analytics *services.AnalyticsService
	Users     UserStore
	Bins      BinStore
	Hub       *websocket.Hub // nil disables /ws
	JWTSecret string
}

// NewRouter builds the chi router with every API endpoint
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Post("/api/auth/login", Login(deps.Users, deps.JWTSecret))

	// WebSocket authenticates itself via ?token=
	if deps.Hub != nil {
		r.Get("/ws", websocket.HandleWebSocket(deps.Hub, deps.JWTSecret))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(deps.JWTSecret))

		r.Get("/bins", GetBins(deps.Bins))
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleResident)).Post("/bins", CreateBin(deps.Bins))
		r.Post("/users/fcm-token", RegisterFCMToken(deps.Users))

		// Collector endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleCollector))

			r.Get("/routes/my-routes", GetMyRoutes(deps.Routes))
			r.Put("/routes/{id}/start", StartRoute(deps.Routes))
			r.Put("/routes/{id}/bins/{binId}/collect", CollectBin(deps.Routes))
			r.Put("/routes/{id}/bins/{binId}/skip", SkipBin(deps.Routes))
			r.Put("/routes/{id}/complete", CompleteRoute(deps.Routes))
		})

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Post("/routes", CreateRoute(deps.Routes))
			r.Get("/routes", ListRoutes(deps.Routes))
			r.Get("/routes/{id}", GetRoute(deps.Routes))
			r.Put("/routes/{id}", UpdateRoute(deps.Routes))
			r.Put("/routes/{id}/assign", AssignRoute(deps.Routes))
			r.Put("/routes/{id}/cancel", CancelRoute(deps.Routes))
			r.Delete("/routes/{id}", DeleteRoute(deps.Routes))

			r.Get("/analytics/summary", GetAnalyticsSummary(deps.Analytics))
			r.Post("/users", CreateUser(deps.Users))
		})
	})

	return r
}
