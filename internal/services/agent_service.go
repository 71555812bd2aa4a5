package services

import (
	"context"
	"fmt"
	"strings"

	"merchant-console/internal/gateway"
	"merchant-console/internal/models"

	"github.com/rs/zerolog"
)

const minPasswordLength = 6

type AgentService struct {
	gateway *gateway.Client
	logger  zerolog.Logger
}

func NewAgentService(gw *gateway.Client, logger zerolog.Logger) *AgentService {
	return &AgentService{
		gateway: gw,
		logger:  logger,
	}
}

func (s *AgentService) ListAgents(ctx context.Context) ([]models.Agent, error) {
	list, err := s.gateway.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return list, nil
}

func (s *AgentService) ListSupervisors(ctx context.Context) ([]models.Agent, error) {
	list, err := s.gateway.ListSupervisors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list supervisors: %w", err)
	}
	return list, nil
}

func (s *AgentService) Get(ctx context.Context, id string) (*models.Agent, error) {
	a, err := s.gateway.GetAgent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent: %w", err)
	}
	return a, nil
}

func (s *AgentService) Create(ctx context.Context, in models.AgentInput) (*models.Agent, error) {
	in = normalizeAgent(in)
	if in.Matricule == "" || in.Password == "" {
		return nil, invalid("matricule", "Le matricule et le mot de passe sont obligatoires.")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("motDePasse", fmt.Sprintf("Le mot de passe doit contenir au moins %d caractères.", minPasswordLength))
	}
	if in.Role == "" {
		in.Role = models.RoleSupervisor
	}
	if !in.Role.Valid() {
		return nil, invalid("role", "Rôle invalide.")
	}

	a, err := s.gateway.CreateAgent(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	s.logger.Info().Str("matricule", in.Matricule).Str("role", string(in.Role)).Msg("Agent created")
	return a, nil
}

// Update sends only the fields set in in; empty ones, the password included,
// keep their stored values.
func (s *AgentService) Update(ctx context.Context, id string, in models.AgentInput) (*models.Agent, error) {
	in = normalizeAgent(in)
	if in.Matricule == "" {
		return nil, invalid("matricule", "Le matricule est obligatoire.")
	}
	if in.Password != "" && len(in.Password) < minPasswordLength {
		return nil, invalid("motDePasse", fmt.Sprintf("Le mot de passe doit contenir au moins %d caractères.", minPasswordLength))
	}
	if in.Role != "" && !in.Role.Valid() {
		return nil, invalid("role", "Rôle invalide.")
	}

	a, err := s.gateway.UpdateAgent(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}
	s.logger.Info().Str("agent_id", id).Msg("Agent updated")
	return a, nil
}

func (s *AgentService) Delete(ctx context.Context, id string) error {
	if err := s.gateway.DeleteAgent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	s.logger.Info().Str("agent_id", id).Msg("Agent deleted")
	return nil
}

func (s *AgentService) AgentPerformance(ctx context.Context) ([]models.Agent, error) {
	list, err := s.gateway.AgentPerformance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent performance: %w", err)
	}
	return list, nil
}

func (s *AgentService) SupervisorPerformance(ctx context.Context) ([]models.SupervisorPerformance, error) {
	list, err := s.gateway.SupervisorPerformance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load supervisor performance: %w", err)
	}
	return list, nil
}

func normalizeAgent(in models.AgentInput) models.AgentInput {
	in.Matricule = strings.TrimSpace(in.Matricule)
	in.Nom = strings.TrimSpace(in.Nom)
	in.Prenom = strings.TrimSpace(in.Prenom)
	in.Affiliation = strings.TrimSpace(in.Affiliation)
	return in
}
