package internal

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/sirupsen/logrus"

	"it-inventory-api/internal/auth"
	"it-inventory-api/internal/config"
	"it-inventory-api/internal/handlers"
	"it-inventory-api/internal/inventory"
	"it-inventory-api/internal/logger"
)

// Pinger reports whether the database answers
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Router     *chi.Mux
	Service    *inventory.Service
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Log        logrus.FieldLogger

	db      Pinger
	cfg     *config.Config
	imports *handlers.ImportsHandler
}

// NewServer wires the router. metrics may be nil, in which case no
// /metrics endpoint is mounted.
func NewServer(cfg *config.Config, svc *inventory.Service, db Pinger, metrics *Metrics, log logrus.FieldLogger) (*Server, error) {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, err
	}

	s := &Server{
		Router:     chi.NewRouter(),
		Service:    svc,
		JWTManager: jwtManager,
		Metrics:    metrics,
		Log:        log,
		db:         db,
		cfg:        cfg,
		imports:    handlers.NewImportsHandler(svc, cfg.ImportMaxBytes, cfg.ImportMaxErrors, log),
	}

	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(logger.RequestLogger(log))
	s.Router.Use(middleware.Recoverer)

	if cfg.EnableMetrics && s.Metrics != nil {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	s.Router.Get("/health", s.health)
	s.Router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		// Public auth routes (no JWT required)
		r.With(s.loginLimiter()).Post("/auth/login", s.loginUser)
		r.Post("/auth/register", s.registerUser)

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(s.JWTManager, svc.CurrentUser))
			s.mountProtectedRoutes(r)
		})
	})

	return s, nil
}

// health reports ok with the database state
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "healthy", "database": "ok"}
	status := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.Log.WithError(err).Warn("health check: database ping failed")
			body["status"] = "degraded"
			body["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	handlers.WriteJSON(w, status, body)
}

// loginLimiter throttles login attempts per client IP. A limit of zero
// disables it.
func (s *Server) loginLimiter() func(http.Handler) http.Handler {
	if s.cfg.LoginRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := s.cfg.LoginRateWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		s.cfg.LoginRateLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			auth.SendErrorResponse(w, "Too many login attempts, try again later", "RATE_LIMITED", http.StatusTooManyRequests)
		}),
	)
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	read := auth.RequireCapability(auth.CapRead)
	writeAssets := auth.RequireCapability(auth.CapWriteAssets)
	writeEmployees := auth.RequireCapability(auth.CapWriteEmployees)
	importData := auth.RequireCapability(auth.CapImport)

	// Self-service routes
	r.Get("/auth/me", s.getProfile)
	r.Put("/auth/change-password", s.changePassword)

	// User management - admin only
	r.With(auth.RequireCapability(auth.CapManageUsers)).Get("/users", s.listUsers)
	r.With(auth.RequireCapability(auth.CapManageUsers)).Put("/users/{id}", s.updateUser)

	// Assets - technician/admin for write operations
	r.With(read).Get("/assets", s.listAssets)
	r.With(read).Get("/assets/{id}", s.getAsset)
	r.With(writeAssets).Post("/assets", s.createAsset)
	r.With(writeAssets).Put("/assets/{id}", s.updateAsset)
	r.With(writeAssets).Delete("/assets/{id}", s.deleteAsset)
	r.With(writeAssets).Post("/assets/{id}/assign", s.assignAsset)
	r.With(writeAssets).Post("/assets/{id}/unassign", s.unassignAsset)
	r.With(writeAssets).Post("/assets/{id}/decommission", s.decommissionAsset)
	r.With(read).Get("/assets/{id}/repairs", s.listRepairs)
	r.With(writeAssets).Post("/assets/{id}/repairs", s.logRepair)
	r.With(writeAssets).Post("/assets/{id}/mark-fixed", s.markFixed)
	r.With(read).Get("/assets/{id}/history", s.assetHistory)

	// Employees
	r.With(read).Get("/employees", s.listEmployees)
	r.With(read).Get("/employees/{id}", s.getEmployee)
	r.With(read).Get("/employees/{id}/assets", s.employeeAssets)
	r.With(writeEmployees).Post("/employees", s.createEmployee)
	r.With(writeEmployees).Put("/employees/{id}", s.updateEmployee)
	r.With(writeEmployees).Delete("/employees/{id}", s.deactivateEmployee)

	// Dashboard
	r.With(read).Get("/dashboard/stats", s.dashboardStats)
	r.With(read).Get("/dashboard/warranty-alerts", s.warrantyAlerts)
	r.With(read).Get("/dashboard/recent-repairs", s.recentRepairs)
	r.With(read).Get("/dashboard/frequent-repairs", s.frequentRepairs)

	// Import/export
	r.With(read).Get("/export/assets", s.imports.ExportAssets)
	r.With(read).Get("/export/employees", s.imports.ExportEmployees)
	r.With(read).Get("/export/asset-template", s.imports.AssetTemplate)
	r.With(importData).Post("/import/assets", s.imports.ImportAssets)
	r.With(importData).Post("/import/employees", s.imports.ImportEmployees)

	r.With(auth.RequireCapability(auth.CapTriggerSweep)).Post("/warranty-check/trigger", s.triggerWarrantyCheck)
}

// actor returns the authenticated caller
func actor(r *http.Request) inventory.Actor {
	return inventory.Actor{UserID: auth.UserIDFromContext(r.Context())}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	handlers.WriteError(w, r, s.Log, err)
}

// decode reads a JSON body, reporting failures as 400
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := handlers.DecodeJSON(w, r, dst); err != nil {
		handlers.BadRequest(w, err.Error())
		return false
	}
	return true
}

// pathID reads the {id} URL parameter
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := handlers.IDParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return 0, false
	}
	return id, true
}
