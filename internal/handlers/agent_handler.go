package handlers

import (
	"net/http"

	"merchant-console/internal/models"
	"merchant-console/internal/services"
	"merchant-console/internal/session"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type AgentHandler struct {
	responder
	agentService *services.AgentService
}

func NewAgentHandler(agentService *services.AgentService, sessions *session.Manager, secureCookie bool, logger zerolog.Logger) *AgentHandler {
	return &AgentHandler{
		responder:    newResponder(sessions, secureCookie, logger),
		agentService: agentService,
	}
}

func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	list, err := h.agentService.ListAgents(r.Context())
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement des agents.")
		return
	}
	h.ok(w, r, list)
}

func (h *AgentHandler) ListSupervisors(w http.ResponseWriter, r *http.Request) {
	list, err := h.agentService.ListSupervisors(r.Context())
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement des superviseurs.")
		return
	}
	h.ok(w, r, list)
}

func (h *AgentHandler) GetSupervisor(w http.ResponseWriter, r *http.Request) {
	a, err := h.agentService.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement du superviseur.")
		return
	}
	h.ok(w, r, a)
}

func (h *AgentHandler) CreateSupervisor(w http.ResponseWriter, r *http.Request) {
	var in models.AgentInput
	if !h.decode(w, r, &in) {
		return
	}
	if in.Role == "" {
		in.Role = models.RoleSupervisor
	}

	a, err := h.agentService.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la création du superviseur.")
		return
	}
	if h.gone(r) {
		return
	}
	h.respondWithJSON(w, http.StatusCreated, a)
}

func (h *AgentHandler) UpdateSupervisor(w http.ResponseWriter, r *http.Request) {
	var in models.AgentInput
	if !h.decode(w, r, &in) {
		return
	}

	a, err := h.agentService.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la mise à jour du superviseur.")
		return
	}
	h.ok(w, r, a)
}

func (h *AgentHandler) DeleteSupervisor(w http.ResponseWriter, r *http.Request) {
	if err := h.agentService.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err, "Erreur lors de la suppression du superviseur.")
		return
	}
	h.ok(w, r, map[string]string{"message": "Superviseur supprimé."})
}

func (h *AgentHandler) SupervisorPerformance(w http.ResponseWriter, r *http.Request) {
	list, err := h.agentService.SupervisorPerformance(r.Context())
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement des performances.")
		return
	}
	h.ok(w, r, list)
}

func (h *AgentHandler) AgentPerformance(w http.ResponseWriter, r *http.Request) {
	list, err := h.agentService.AgentPerformance(r.Context())
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement des performances.")
		return
	}
	h.ok(w, r, list)
}
