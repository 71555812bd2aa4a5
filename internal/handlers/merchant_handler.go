package handlers

import (
	"net/http"

	"merchant-console/internal/merchant"
	"merchant-console/internal/models"
	"merchant-console/internal/services"
	"merchant-console/internal/session"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type MerchantHandler struct {
	responder
	merchantService *services.MerchantService
}

func NewMerchantHandler(merchantService *services.MerchantService, sessions *session.Manager, secureCookie bool, logger zerolog.Logger) *MerchantHandler {
	return &MerchantHandler{
		responder:       newResponder(sessions, secureCookie, logger),
		merchantService: merchantService,
	}
}

func merchantFilter(r *http.Request) (models.MerchantFilter, error) {
	q := r.URL.Query()
	start, end, err := dateRange(r)
	if err != nil {
		return models.MerchantFilter{}, err
	}
	status := models.MerchantStatus(q.Get("statut"))
	if status != "" && !status.Valid() {
		return models.MerchantFilter{}, &services.ValidationError{Field: "statut", Message: "Statut inconnu : " + string(status)}
	}
	return models.MerchantFilter{
		Status:    status,
		Search:    q.Get("search"),
		StartDate: start,
		EndDate:   end,
		AgentID:   q.Get("agentId"),
	}, nil
}

func (h *MerchantHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := merchantFilter(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	list, err := h.merchantService.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement des marchands.")
		return
	}
	h.ok(w, r, list)
}

func (h *MerchantHandler) SupervisorList(w http.ResponseWriter, r *http.Request) {
	f, err := merchantFilter(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	list, err := h.merchantService.SupervisorList(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement des marchands.")
		return
	}
	h.ok(w, r, list)
}

// PendingValidation is the admin validation queue.
func (h *MerchantHandler) PendingValidation(w http.ResponseWriter, r *http.Request) {
	list, err := h.merchantService.PendingAdmin(r.Context())
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement des marchands à valider.")
		return
	}
	h.ok(w, r, list)
}

func (h *MerchantHandler) Detail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.merchantService.Detail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement du marchand.")
		return
	}
	h.ok(w, r, detail)
}

func (h *MerchantHandler) Map(w http.ResponseWriter, r *http.Request) {
	points, err := h.merchantService.Map(r.Context())
	if err != nil {
		h.fail(w, r, err, "Erreur lors du chargement de la carte.")
		return
	}
	h.ok(w, r, points)
}

func (h *MerchantHandler) Validate(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, merchant.Request{Action: merchant.ActionValidate}, "Erreur lors de la validation.")
}

func (h *MerchantHandler) SupervisorValidate(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, merchant.Request{Action: merchant.ActionValidateSupervisor}, "Erreur lors de la validation.")
}

type rejectRequest struct {
	Reason string `json:"rejectionReason"`
}

func (h *MerchantHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.apply(w, r, merchant.Request{Action: merchant.ActionReject, Reason: req.Reason}, "Erreur lors du rejet.")
}

func (h *MerchantHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	var proof models.DeliveryProof
	if !h.decode(w, r, &proof) {
		return
	}
	h.apply(w, r, merchant.Request{Action: merchant.ActionDeliver, Delivery: proof}, "Erreur lors de la livraison.")
}

func (h *MerchantHandler) apply(w http.ResponseWriter, r *http.Request, req merchant.Request, fallback string) {
	res, err := h.merchantService.Apply(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.fail(w, r, err, fallback)
		return
	}
	h.ok(w, r, res)
}
