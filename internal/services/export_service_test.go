package services

import (
	"testing"
	"time"

	"merchant-console/internal/gateway"
	"merchant-console/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportService_Export(t *testing.T) {
	h := newHarness(t)
	svc := NewExportService(h.gateway, h.inflight, zerolog.Nop())

	file, err := svc.Export(h.signIn(t, models.RoleAdmin), "merchants", gateway.ExportFilter{})
	require.NoError(t, err)
	assert.Regexp(t, `^export_merchants_\d{8}_\d{4}_[0-9a-f]{6}\.xlsx$`, file.Name)
	assert.Equal(t, []string{"GET /api/export/merchants"}, h.backend.hits())
}

func TestExportService_RejectsBadInput(t *testing.T) {
	h := newHarness(t)
	svc := NewExportService(h.gateway, h.inflight, zerolog.Nop())
	ctx := h.signIn(t, models.RoleAdmin)

	_, err := svc.Export(ctx, "payroll", gateway.ExportFilter{})
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	start := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err = svc.Export(ctx, "suivi", gateway.ExportFilter{StartDate: &start, EndDate: &end})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Empty(t, h.backend.hits())
}

func TestExportService_ConcurrentDownloadRefused(t *testing.T) {
	h := newHarness(t)
	svc := NewExportService(h.gateway, h.inflight, zerolog.Nop())
	ctx := h.signIn(t, models.RoleAdmin)
	id, _ := sessionRecord(ctx)

	err := h.inflight.Do(InflightKey(id, "export", "nearby"), func() error {
		_, err := svc.Export(ctx, "nearby", gateway.ExportFilter{})
		return err
	})
	assert.ErrorIs(t, err, ErrInProgress)
}
