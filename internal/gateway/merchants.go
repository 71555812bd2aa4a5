package gateway

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"merchant-console/internal/merchant"
	"merchant-console/internal/models"
)

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.do(ctx, call{
		endpoint:  "login",
		method:    http.MethodPost,
		path:      "/api/agents/login",
		body:      req,
		anonymous: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	return c.do(ctx, call{
		endpoint: "change_password",
		method:   http.MethodPut,
		path:     "/api/agents/change-password",
		body:     req,
	}, nil)
}

func merchantQuery(f models.MerchantFilter) url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("statut", string(f.Status))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.StartDate != nil {
		q.Set("startDate", f.StartDate.UTC().Format(time.RFC3339))
	}
	if f.EndDate != nil {
		q.Set("endDate", f.EndDate.UTC().Format(time.RFC3339))
	}
	if f.AgentID != "" {
		q.Set("agentId", f.AgentID)
	}
	return q
}

// sortMerchants orders newest first with ties broken by id, so two fetches of
// the same data always list identically.
func sortMerchants(list []models.Merchant) {
	slices.SortStableFunc(list, func(a, b models.Merchant) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (c *Client) ListMerchants(ctx context.Context, f models.MerchantFilter) ([]models.Merchant, error) {
	var list []models.Merchant
	if err := c.do(ctx, call{
		endpoint: "merchants_list",
		method:   http.MethodGet,
		path:     "/api/merchants/all",
		query:    merchantQuery(f),
	}, &list); err != nil {
		return nil, err
	}
	sortMerchants(list)
	return list, nil
}

func (c *Client) SupervisorMerchants(ctx context.Context, f models.MerchantFilter) ([]models.Merchant, error) {
	var list []models.Merchant
	if err := c.do(ctx, call{
		endpoint: "merchants_supervisor",
		method:   http.MethodGet,
		path:     "/api/merchants/superviseur-merchants",
		query:    merchantQuery(f),
	}, &list); err != nil {
		return nil, err
	}
	sortMerchants(list)
	return list, nil
}

func (c *Client) PendingAdminValidation(ctx context.Context) ([]models.Merchant, error) {
	var list []models.Merchant
	if err := c.do(ctx, call{
		endpoint: "merchants_pending_admin",
		method:   http.MethodGet,
		path:     "/api/merchants/pending-admin-validation",
	}, &list); err != nil {
		return nil, err
	}
	sortMerchants(list)
	return list, nil
}

func (c *Client) GetMerchant(ctx context.Context, id string) (*models.Merchant, error) {
	var m models.Merchant
	if err := c.do(ctx, call{
		endpoint: "merchant_get",
		method:   http.MethodGet,
		path:     escapedPath("/api/merchants/%s", id),
	}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var out models.DashboardStats
	if err := c.do(ctx, call{
		endpoint: "merchants_dashboard_stats",
		method:   http.MethodGet,
		path:     "/api/merchants/dashboard-stats",
	}, &out); err != nil {
		return nil, err
	}
	if out.Stats == nil {
		out.Stats = map[models.MerchantStatus]int{}
	}
	sortMerchants(out.PendingMerchants)
	return &out, nil
}

func (c *Client) Localisation(ctx context.Context) ([]models.MerchantLocation, error) {
	var out []models.MerchantLocation
	if err := c.do(ctx, call{
		endpoint: "merchants_localisation",
		method:   http.MethodGet,
		path:     "/api/merchants/localisation",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SupervisorValidate(ctx context.Context, id string) error {
	return c.do(ctx, call{
		endpoint: "merchant_supervisor_validate",
		method:   http.MethodPost,
		path:     escapedPath("/api/merchants/%s/validate", id),
	}, nil)
}

func (c *Client) SupervisorReject(ctx context.Context, id, reason string) error {
	return c.do(ctx, call{
		endpoint: "merchant_supervisor_reject",
		method:   http.MethodPost,
		path:     escapedPath("/api/merchants/%s/reject", id),
		body:     rejection{Reason: reason},
	}, nil)
}

func (c *Client) Validate(ctx context.Context, id string) error {
	return c.do(ctx, call{
		endpoint: "merchant_validate",
		method:   http.MethodPost,
		path:     escapedPath("/api/merchants/validate/%s", id),
	}, nil)
}

func (c *Client) Reject(ctx context.Context, id, reason string) error {
	return c.do(ctx, call{
		endpoint: "merchant_reject",
		method:   http.MethodPost,
		path:     escapedPath("/api/merchants/reject/%s", id),
		body:     rejection{Reason: reason},
	}, nil)
}

func (c *Client) MarkDelivered(ctx context.Context, id string, proof models.DeliveryProof) error {
	return c.do(ctx, call{
		endpoint: "merchant_deliver",
		method:   http.MethodPost,
		path:     escapedPath("/api/merchants/%s/deliver", id),
		body:     proof,
	}, nil)
}

type rejection struct {
	Reason string `json:"rejectionReason"`
}

// Apply sends a planned transition to the endpoint matching its action and
// the actor's role.
func (c *Client) Apply(ctx context.Context, t merchant.Transition, role models.UserRole) error {
	switch t.Action {
	case merchant.ActionValidateSupervisor:
		return c.SupervisorValidate(ctx, t.MerchantID)
	case merchant.ActionValidate:
		return c.Validate(ctx, t.MerchantID)
	case merchant.ActionReject:
		if role == models.RoleSupervisor {
			return c.SupervisorReject(ctx, t.MerchantID, t.Reason)
		}
		return c.Reject(ctx, t.MerchantID, t.Reason)
	case merchant.ActionDeliver:
		var proof models.DeliveryProof
		if t.Delivery != nil {
			proof = *t.Delivery
		}
		return c.MarkDelivered(ctx, t.MerchantID, proof)
	}
	return fmt.Errorf("%w: unknown action %q", merchant.ErrIllegalTransition, t.Action)
}
