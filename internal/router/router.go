package router

import (
	"context"
	"net/http"

	"merchant-console/internal/config"
	"merchant-console/internal/gateway"
	"merchant-console/internal/handlers"
	"merchant-console/internal/metrics"
	"merchant-console/internal/middleware"
	"merchant-console/internal/models"
	"merchant-console/internal/services"
	"merchant-console/internal/session"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func SetupRouter(cfg config.Config, sessions *session.Manager, gw *gateway.Client, logger zerolog.Logger) *mux.Router {
	gw.OnUnauthorized(func(ctx context.Context) {
		sessions.EndFromContext(ctx, session.ReasonUnauthorized)
	})

	inflight := services.NewInflight()
	authService := services.NewAuthService(gw, sessions, cfg.SessionSecret, logger)
	merchantService := services.NewMerchantService(gw, inflight, logger)
	agentService := services.NewAgentService(gw, logger)
	logService := services.NewLogService(gw, logger)
	dashboardService := services.NewDashboardService(gw, logService, logger)
	exportService := services.NewExportService(gw, inflight, logger)
	settingsService := services.NewSettingsService(gw, inflight, logger)

	authHandler := handlers.NewAuthHandler(authService, sessions, cfg.CookieSecure, logger)
	merchantHandler := handlers.NewMerchantHandler(merchantService, sessions, cfg.CookieSecure, logger)
	agentHandler := handlers.NewAgentHandler(agentService, sessions, cfg.CookieSecure, logger)
	consoleHandler := handlers.NewConsoleHandler(dashboardService, logService, exportService, settingsService, sessions, cfg.CookieSecure, logger)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(metrics.Instrument)
	r.Use(middleware.PerformanceMonitoring(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(rateLimiter.Middleware())
	r.Use(middleware.RequestValidation())
	r.Use(middleware.Sessions(authService, sessions, cfg.CookieSecure, logger))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")

	anyRole := guard(session.Authenticated(), logger)
	r.Handle("/logout", anyRole(authHandler.Logout)).Methods("POST")
	r.Handle("/session/activity", anyRole(authHandler.Activity)).Methods("POST")
	r.Handle("/me", anyRole(authHandler.Me)).Methods("GET")
	r.Handle("/settings/password", anyRole(consoleHandler.ChangePassword)).Methods("PUT")

	admin := guard(session.Only(models.RoleAdmin), logger)
	r.Handle("/", admin(consoleHandler.AdminDashboard)).Methods("GET")
	r.Handle("/supervisors", admin(agentHandler.ListSupervisors)).Methods("GET")
	r.Handle("/supervisors", admin(agentHandler.CreateSupervisor)).Methods("POST")
	r.Handle("/supervisors/{id}", admin(agentHandler.GetSupervisor)).Methods("GET")
	r.Handle("/supervisors/{id}", admin(agentHandler.UpdateSupervisor)).Methods("PUT")
	r.Handle("/supervisors/{id}", admin(agentHandler.DeleteSupervisor)).Methods("DELETE")
	r.Handle("/agents", admin(agentHandler.ListAgents)).Methods("GET")
	r.Handle("/merchants", admin(merchantHandler.List)).Methods("GET")
	r.Handle("/merchants/{id}", admin(merchantHandler.Detail)).Methods("GET")
	r.Handle("/merchants/{id}/validate", admin(merchantHandler.Validate)).Methods("POST")
	r.Handle("/validation", admin(merchantHandler.PendingValidation)).Methods("GET")
	r.Handle("/logs", admin(consoleHandler.Logs)).Methods("GET")
	r.Handle("/performance/supervisors", admin(agentHandler.SupervisorPerformance)).Methods("GET")
	r.Handle("/reports/{kind}", admin(consoleHandler.Export)).Methods("GET")

	supervisor := guard(session.Only(models.RoleSupervisor), logger)
	r.Handle("/supervisor", supervisor(consoleHandler.SupervisorDashboard)).Methods("GET")
	r.Handle("/supervisor/merchants", supervisor(merchantHandler.SupervisorList)).Methods("GET")
	r.Handle("/supervisor/merchants/{id}", supervisor(merchantHandler.Detail)).Methods("GET")
	r.Handle("/supervisor/merchants/{id}/validate", supervisor(merchantHandler.SupervisorValidate)).Methods("POST")
	r.Handle("/supervisor/agents/performance", supervisor(agentHandler.AgentPerformance)).Methods("GET")

	reviewers := guard(session.OneOf(models.RoleAdmin, models.RoleSupervisor), logger)
	r.Handle("/merchants/{id}/reject", reviewers(merchantHandler.Reject)).Methods("POST")
	r.Handle("/map", reviewers(merchantHandler.Map)).Methods("GET")

	couriers := guard(session.OneOf(models.RoleAdmin, models.RoleAgent), logger)
	r.Handle("/merchants/{id}/deliver", couriers(merchantHandler.Deliver)).Methods("POST")

	return r
}

// Handler wraps the router with the CORS layer, which has to see preflight
// requests no route matches.
func Handler(r *mux.Router, cfg config.Config) http.Handler {
	return middleware.CORS(cfg.AllowedOrigins)(r)
}

func guard(q session.Requirement, logger zerolog.Logger) func(http.HandlerFunc) http.Handler {
	mw := middleware.Guard(q, logger)
	return func(h http.HandlerFunc) http.Handler {
		return mw(h)
	}
}
