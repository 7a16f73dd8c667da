package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/diewo77/garage-invoices/auth"
	"github.com/diewo77/garage-invoices/httpx"
	"github.com/diewo77/garage-invoices/internal/config"
	"github.com/diewo77/garage-invoices/internal/db"
	"github.com/diewo77/garage-invoices/internal/handlers"
	"github.com/diewo77/garage-invoices/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	router *chi.Mux
	db     *gorm.DB
	cfg    *config.Config
	log    *slog.Logger

	clients  *handlers.ClientHandler
	vehicles *handlers.VehicleHandler
	invoices *handlers.InvoiceHandler
	users    *handlers.AuthHandler

	// shared by the /auth routes under both mounts
	authLimit func(http.Handler) http.Handler
}

// NewApp creates a new application with all routes configured.
func NewApp(conn *gorm.DB, cfg *config.Config, log *slog.Logger) *App {
	a := &App{
		router:    chi.NewRouter(),
		db:        conn,
		cfg:       cfg,
		log:       log,
		clients:   handlers.NewClientHandler(services.NewClientService(conn), log),
		vehicles:  handlers.NewVehicleHandler(services.NewVehicleService(conn), log),
		invoices:  handlers.NewInvoiceHandler(services.NewInvoiceService(conn), log),
		users:     handlers.NewAuthHandler(services.NewAuthService(conn), log),
		authLimit: httprate.LimitByIP(cfg.Server.AuthRateLimit, time.Minute),
	}
	a.setupRoutes()
	return a
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	headers := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		IsDevelopment:      a.cfg.App.Dev,
	})

	r := a.router
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		withLogging(a.log),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   a.cfg.Server.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		headers.Handler,
		auth.Middleware,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.Get("/healthz", a.healthz)

	// The UI calls /api/...; the bare paths stay for older clients.
	r.Route("/api", a.apiRoutes)
	a.apiRoutes(r)
}

func (a *App) apiRoutes(r chi.Router) {
	r.Get("/", a.banner)

	r.Route("/auth", func(r chi.Router) {
		r.Use(a.authLimit)
		r.Post("/login", a.users.Login)
		r.Post("/register", a.users.Register)
		r.Post("/logout", a.users.Logout)
		r.Get("/me", a.users.Me)
	})

	r.Group(func(r chi.Router) {
		if a.cfg.Auth.RequireAuth {
			r.Use(auth.RequireAuth)
		}

		r.Route("/clients", func(r chi.Router) {
			r.Post("/", a.clients.Create)
			r.Get("/", a.clients.List)
			r.Get("/{id}", a.clients.Get)
			r.Put("/{id}", a.clients.Update)
			r.Delete("/{id}", a.clients.Delete)
			r.Get("/{id}/vehicles", a.clients.Vehicles)
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Post("/", a.vehicles.Create)
			r.Get("/{id}", a.vehicles.Get)
			r.Put("/{id}", a.vehicles.Update)
			r.Delete("/{id}", a.vehicles.Delete)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", a.invoices.Create)
			r.Get("/", a.invoices.List)
			r.Get("/search/{q}", a.invoices.Search)
			r.Get("/{id}", a.invoices.Get)
			r.Get("/{id}/items", a.invoices.Items)
			r.Put("/{id}", a.invoices.Update)
			r.Delete("/{id}", a.invoices.Delete)
			r.Post("/{id}/cancel", a.invoices.Cancel)
		})
	})
}

func (a *App) banner(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "API OK"})
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(r.Context(), a.db); err != nil {
		a.log.Warn("health check failed", slog.Any("error", err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withLogging logs one line per request with its status and duration.
func withLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.LogAttrs(r.Context(), level, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
