package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"merchant-console/internal/gateway"
	"merchant-console/internal/services"
	"merchant-console/internal/session"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ConsoleHandler serves the read-mostly console pages: dashboards, activity
// logs, report downloads and account settings.
type ConsoleHandler struct {
	responder
	dashboard *services.DashboardService
	logs      *services.LogService
	exports   *services.ExportService
	settings  *services.SettingsService
}

func NewConsoleHandler(
	dashboard *services.DashboardService,
	logs *services.LogService,
	exports *services.ExportService,
	settings *services.SettingsService,
	sessions *session.Manager,
	secureCookie bool,
	logger zerolog.Logger,
) *ConsoleHandler {
	return &ConsoleHandler{
		responder: newResponder(sessions, secureCookie, logger),
		dashboard: dashboard,
		logs:      logs,
		exports:   exports,
		settings:  settings,
	}
}

// AdminDashboard only fails as a whole when the session is gone; every other
// error stays inside its widget.
func (h *ConsoleHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Admin(r.Context())
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement du tableau de bord.")
		return
	}
	h.ok(w, r, d)
}

func (h *ConsoleHandler) SupervisorDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Supervisor(r.Context())
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement du tableau de bord.")
		return
	}
	h.ok(w, r, d)
}

func (h *ConsoleHandler) Logs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if raw := q.Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			h.respondWithError(w, http.StatusBadRequest, "invalid_page", "Numéro de page invalide.")
			return
		}
		page = p
	}
	start, end, err := dateRange(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	logs, err := h.logs.Page(r.Context(), services.LogFilter{
		Page:      page,
		Search:    q.Get("search"),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement des journaux.")
		return
	}
	h.ok(w, r, logs)
}

func (h *ConsoleHandler) Export(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	kind := mux.Vars(r)["kind"]
	file, err := h.exports.Export(r.Context(), kind, gateway.ExportFilter{StartDate: start, EndDate: end})
	if err != nil {
		h.fail(w, r, err, "Erreur lors de l'export.")
		return
	}
	if h.gone(r) {
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", fmt.Sprint(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.log(r).Warn().Err(err).Str("file", file.Name).Msg("Failed to stream export")
	}
}

func (h *ConsoleHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req services.PasswordChange
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.settings.ChangePassword(r.Context(), req); err != nil {
		h.fail(w, r, err, "Erreur lors du changement de mot de passe.")
		return
	}
	h.ok(w, r, map[string]string{"message": "Mot de passe modifié avec succès."})
}
