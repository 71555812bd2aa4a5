package services

import (
	"testing"

	"merchant-console/internal/gateway"
	"merchant-console/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentService_CreateValidation(t *testing.T) {
	h := newHarness(t)
	svc := NewAgentService(h.gateway, zerolog.Nop())
	ctx := h.signIn(t, models.RoleAdmin)

	_, err := svc.Create(ctx, models.AgentInput{Matricule: "SU-9"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Create(ctx, models.AgentInput{Matricule: "SU-9", Password: "abc"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "motDePasse", verr.Field)

	_, err = svc.Create(ctx, models.AgentInput{Matricule: "SU-9", Password: "abcdef", Role: "chef"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Field)

	assert.Empty(t, h.backend.hits())
}

func TestAgentService_Lists(t *testing.T) {
	h := newHarness(t)
	svc := NewAgentService(h.gateway, zerolog.Nop())
	ctx := h.signIn(t, models.RoleAdmin)

	agents, err := svc.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, 2)

	supervisors, err := svc.ListSupervisors(ctx)
	require.NoError(t, err)
	assert.Len(t, supervisors, 1)

	perf, err := svc.AgentPerformance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, perf[0].Performance.Enrollments)
}

func TestAgentService_UpdateSendsOnlySetFields(t *testing.T) {
	h := newHarness(t)
	svc := NewAgentService(h.gateway, zerolog.Nop())
	ctx := h.signIn(t, models.RoleAdmin)

	a, err := svc.Update(ctx, "s1", models.AgentInput{Matricule: " SU-1 ", Password: "newpass1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", a.ID)
	assert.Equal(t, map[string]string{"matricule": "SU-1", "motDePasse": "newpass1"}, h.backend.bodies["agent:s1"])

	_, err = svc.Update(ctx, "s1", models.AgentInput{Matricule: "SU-1", Nom: "Kone"})
	require.NoError(t, err)
	body := h.backend.bodies["agent:s1"]
	assert.NotContains(t, body, "motDePasse")
	assert.NotContains(t, body, "role")
	assert.NotContains(t, body, "affiliation")
	assert.Equal(t, "Kone", body["nom"])
}

func TestAgentService_UpdateValidation(t *testing.T) {
	h := newHarness(t)
	svc := NewAgentService(h.gateway, zerolog.Nop())
	ctx := h.signIn(t, models.RoleAdmin)

	var verr *ValidationError
	_, err := svc.Update(ctx, "s1", models.AgentInput{Matricule: "  "})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "matricule", verr.Field)

	_, err = svc.Update(ctx, "s1", models.AgentInput{Matricule: "SU-1", Password: "abc"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "motDePasse", verr.Field)

	assert.Empty(t, h.backend.hits())
}

func TestAgentService_Delete(t *testing.T) {
	h := newHarness(t)
	svc := NewAgentService(h.gateway, zerolog.Nop())
	ctx := h.signIn(t, models.RoleAdmin)

	require.NoError(t, svc.Delete(ctx, "s1"))
	assert.Equal(t, []string{"DELETE /api/agents/s1"}, h.backend.hits())

	err := svc.Delete(ctx, "missing")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.Equal(t, "Agent non trouvé", gateway.UserMessage(err, "x"))
}
