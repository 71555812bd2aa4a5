package services

import (
	"context"
	"errors"
	"fmt"

	"merchant-console/internal/gateway"
	"merchant-console/internal/merchant"
	"merchant-console/internal/models"
	"merchant-console/internal/session"

	"github.com/rs/zerolog"
)

type MerchantService struct {
	gateway  *gateway.Client
	inflight *Inflight
	logger   zerolog.Logger
}

func NewMerchantService(gw *gateway.Client, inflight *Inflight, logger zerolog.Logger) *MerchantService {
	return &MerchantService{
		gateway:  gw,
		inflight: inflight,
		logger:   logger,
	}
}

// MerchantDetail is one record together with what the viewer may do with it.
type MerchantDetail struct {
	Merchant models.Merchant   `json:"merchant"`
	Actions  []merchant.Action `json:"actions"`
}

// ApplyResult carries the state re-read from the backend after a transition.
// The transition is committed once an ApplyResult exists; a failed re-read
// only leaves RefreshError set.
type ApplyResult struct {
	Merchant     *models.Merchant  `json:"merchant"`
	Queue        []models.Merchant `json:"queue,omitempty"`
	RefreshError string            `json:"refreshError,omitempty"`
}

func (s *MerchantService) List(ctx context.Context, f models.MerchantFilter) ([]models.Merchant, error) {
	list, err := s.gateway.ListMerchants(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list merchants: %w", err)
	}
	return list, nil
}

func (s *MerchantService) SupervisorList(ctx context.Context, f models.MerchantFilter) ([]models.Merchant, error) {
	list, err := s.gateway.SupervisorMerchants(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list supervisor merchants: %w", err)
	}
	return list, nil
}

func (s *MerchantService) PendingAdmin(ctx context.Context) ([]models.Merchant, error) {
	list, err := s.gateway.PendingAdminValidation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list merchants awaiting validation: %w", err)
	}
	return list, nil
}

func (s *MerchantService) Map(ctx context.Context) ([]models.MerchantLocation, error) {
	points, err := s.gateway.Localisation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant locations: %w", err)
	}
	return points, nil
}

func (s *MerchantService) Detail(ctx context.Context, id string) (*MerchantDetail, error) {
	m, err := s.gateway.GetMerchant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch merchant: %w", err)
	}

	detail := &MerchantDetail{Merchant: *m, Actions: []merchant.Action{}}
	rec, err := merchant.Classify(*m)
	if err != nil {
		s.logger.Warn().Err(err).Str("merchant_id", id).Msg("Merchant record is inconsistent, no action offered")
		return detail, nil
	}
	if ident, ok := session.IdentityFromContext(ctx); ok {
		if actions := merchant.Offered(rec, ident.Role); actions != nil {
			detail.Actions = actions
		}
	}
	return detail, nil
}

// Apply plans req against the current record, sends it, then re-reads the
// record and the caller's work queue. Nothing is changed locally.
func (s *MerchantService) Apply(ctx context.Context, id string, req merchant.Request) (*ApplyResult, error) {
	rec, ok := session.FromContext(ctx)
	if !ok {
		return nil, gateway.ErrUnauthorized
	}
	role := rec.Identity.Role

	if req.Action == merchant.ActionReject {
		if err := merchant.CheckReason(req.Reason); err != nil {
			return nil, err
		}
	}

	var result *ApplyResult
	key := InflightKey(rec.ID, string(req.Action), id)
	err := s.inflight.Do(key, func() error {
		current, err := s.gateway.GetMerchant(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch merchant: %w", err)
		}
		state, err := merchant.Classify(*current)
		if err != nil {
			return err
		}
		t, err := merchant.Plan(state, role, req)
		if err != nil {
			return err
		}

		if err := s.gateway.Apply(ctx, t, role); err != nil {
			s.logger.Warn().Err(err).
				Str("merchant_id", id).
				Str("action", string(req.Action)).
				Msg("Merchant transition refused")
			return err
		}
		s.logger.Info().
			Str("merchant_id", id).
			Str("action", string(t.Action)).
			Str("from", string(t.From)).
			Str("to", string(t.To)).
			Msg("Merchant transition applied")

		result = s.refresh(ctx, id, role)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MerchantService) refresh(ctx context.Context, id string, role models.UserRole) *ApplyResult {
	out := &ApplyResult{}
	m, err := s.gateway.GetMerchant(ctx, id)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return s.refreshFailed(out, id, fmt.Errorf("failed to refresh merchant: %w", err))
	}
	out.Merchant = m

	switch role {
	case models.RoleAdmin:
		out.Queue, err = s.gateway.PendingAdminValidation(ctx)
	case models.RoleSupervisor:
		out.Queue, err = s.gateway.SupervisorMerchants(ctx, models.MerchantFilter{Status: models.StatusPending})
	}
	if err != nil {
		return s.refreshFailed(out, id, fmt.Errorf("failed to refresh queue: %w", err))
	}
	return out
}

func (s *MerchantService) refreshFailed(out *ApplyResult, id string, err error) *ApplyResult {
	s.logger.Warn().Err(err).Str("merchant_id", id).Msg("Transition applied but refresh failed")
	out.RefreshError = "L'action a été enregistrée mais les données n'ont pas pu être actualisées."
	return out
}
