package gateway

import (
	"context"
	"net/http"

	"merchant-console/internal/models"
)

func (c *Client) listAgents(ctx context.Context, endpoint, p string) ([]models.Agent, error) {
	var out []models.Agent
	if err := c.do(ctx, call{endpoint: endpoint, method: http.MethodGet, path: p}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAgents(ctx context.Context) ([]models.Agent, error) {
	return c.listAgents(ctx, "agents_list", "/api/agents/all-agents")
}

func (c *Client) ListSupervisors(ctx context.Context) ([]models.Agent, error) {
	return c.listAgents(ctx, "supervisors_list", "/api/agents/all-supervisors")
}

func (c *Client) AgentPerformance(ctx context.Context) ([]models.Agent, error) {
	return c.listAgents(ctx, "agents_performance", "/api/agents/all-performance")
}

func (c *Client) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var a models.Agent
	if err := c.do(ctx, call{
		endpoint: "agent_get",
		method:   http.MethodGet,
		path:     escapedPath("/api/agents/%s", id),
	}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) CreateAgent(ctx context.Context, in models.AgentInput) (*models.Agent, error) {
	var a models.Agent
	if err := c.do(ctx, call{
		endpoint: "agent_create",
		method:   http.MethodPost,
		path:     "/api/agents",
		body:     in,
	}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) UpdateAgent(ctx context.Context, id string, in models.AgentInput) (*models.Agent, error) {
	var a models.Agent
	if err := c.do(ctx, call{
		endpoint: "agent_update",
		method:   http.MethodPut,
		path:     escapedPath("/api/agents/%s", id),
		body:     in,
	}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, call{
		endpoint: "agent_delete",
		method:   http.MethodDelete,
		path:     escapedPath("/api/agents/%s", id),
	}, nil)
}

func (c *Client) SupervisorPerformance(ctx context.Context) ([]models.SupervisorPerformance, error) {
	var out []models.SupervisorPerformance
	if err := c.do(ctx, call{
		endpoint: "supervisors_performance",
		method:   http.MethodGet,
		path:     "/api/merchants/supervisors/performance",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
