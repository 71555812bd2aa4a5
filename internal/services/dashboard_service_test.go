package services

import (
	"net/http"
	"testing"

	"merchant-console/internal/gateway"
	"merchant-console/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDashboardService(h *harness) *DashboardService {
	return NewDashboardService(h.gateway, NewLogService(h.gateway, zerolog.Nop()), zerolog.Nop())
}

func TestDashboardService_Admin(t *testing.T) {
	h := newHarness(t)
	d, err := newDashboardService(h).Admin(h.signIn(t, models.RoleAdmin))
	require.NoError(t, err)

	assert.Equal(t, 1, d.Supervisors.Data)
	assert.Equal(t, 2, d.Agents.Data)
	assert.Equal(t, 2, d.Merchants.Data[models.StatusPending])
	assert.Equal(t, 1, d.Merchants.Data[models.StatusValidated])
	assert.Len(t, d.RecentActivity.Data, RecentLogSize)
}

func TestDashboardService_WidgetFailsAlone(t *testing.T) {
	h := newHarness(t)
	h.backend.failWith("/api/agents/all-agents", http.StatusInternalServerError)

	d, err := newDashboardService(h).Admin(h.signIn(t, models.RoleAdmin))
	require.NoError(t, err)

	assert.True(t, d.Agents.Failed())
	assert.Equal(t, "refusé par le serveur", d.Agents.Error)
	assert.False(t, d.Supervisors.Failed())
	assert.False(t, d.Merchants.Failed())
	assert.False(t, d.RecentActivity.Failed())
}

func TestDashboardService_Supervisor(t *testing.T) {
	h := newHarness(t)
	d, err := newDashboardService(h).Supervisor(h.signIn(t, models.RoleSupervisor))
	require.NoError(t, err)
	require.False(t, d.Stats.Failed())
	assert.Len(t, d.Pending.Data, 2)
	assert.Len(t, d.Performance.Data, 1)

	h.backend.failWith("/api/merchants/dashboard-stats", http.StatusInternalServerError)
	d, err = newDashboardService(h).Supervisor(h.signIn(t, models.RoleSupervisor))
	require.NoError(t, err)
	assert.True(t, d.Stats.Failed())
	assert.True(t, d.Pending.Failed())
	assert.False(t, d.Performance.Failed())
}

func TestDashboardService_UnauthorizedWidgetFailsDashboard(t *testing.T) {
	h := newHarness(t)
	h.backend.failWith("/api/logs", http.StatusUnauthorized)

	_, err := newDashboardService(h).Admin(h.signIn(t, models.RoleAdmin))
	assert.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.Zero(t, h.sessions.Active())
}
