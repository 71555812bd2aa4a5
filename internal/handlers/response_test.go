package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"merchant-console/internal/gateway"
	"merchant-console/internal/merchant"
	"merchant-console/internal/middleware"
	"merchant-console/internal/models"
	"merchant-console/internal/services"
	"merchant-console/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFail_StatusMapping(t *testing.T) {
	h := newResponder(nil, false, zerolog.Nop())

	tests := []struct {
		name    string
		err     error
		code    int
		errCode string
		message string
	}{
		{"short reason", merchant.CheckReason("court"), http.StatusBadRequest, "validation_failed", ""},
		{"form", &services.ValidationError{Field: "nom", Message: "Nom requis"}, http.StatusBadRequest, "validation_failed", "Nom requis"},
		{"in progress", services.ErrInProgress, http.StatusConflict, "in_progress", ""},
		{"role", fmt.Errorf("%w: agent", merchant.ErrActorNotAllowed), http.StatusForbidden, "forbidden", ""},
		{"transition", fmt.Errorf("%w: delivered", merchant.ErrIllegalTransition), http.StatusConflict, "invalid_transition", ""},
		{"inconsistent", fmt.Errorf("%w: x", models.ErrInconsistentRecord), http.StatusBadGateway, "inconsistent_record", ""},
		{"not found", &gateway.APIError{Endpoint: "merchant", Status: 404, Message: "Marchand non trouvé"}, http.StatusNotFound, "not_found", "Marchand non trouvé"},
		{"not a file", fmt.Errorf("%w: %w", gateway.ErrNotAFile, &gateway.APIError{Status: 200, Message: "Aucun marchand trouvé"}), http.StatusNotFound, "no_file", "Aucun marchand trouvé"},
		{"unreachable", fmt.Errorf("%w: dial", gateway.ErrUnreachable), http.StatusBadGateway, "backend_unreachable", "Impossible de se connecter au serveur. Vérifiez votre connexion."},
		{"backend 400", &gateway.APIError{Status: 400, Message: "Ce marchand a déjà été validé"}, http.StatusBadRequest, "backend_error", "Ce marchand a déjà été validé"},
		{"backend 500", &gateway.APIError{Status: 500}, http.StatusBadGateway, "backend_error", "repli"},
		{"unauthorized without session", fmt.Errorf("agents_list: %w", gateway.ErrUnauthorized), http.StatusUnauthorized, "unauthorized", "Session expirée, veuillez vous reconnecter."},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error", "repli"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.fail(w, httptest.NewRequest(http.MethodGet, "/", nil), tc.err, "repli")

			assert.Equal(t, tc.code, w.Code)
			var body middleware.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tc.errCode, body.Error)
			if tc.message != "" {
				assert.Equal(t, tc.message, body.Message)
			}
		})
	}
}

func TestFail_UnauthorizedSignsOut(t *testing.T) {
	sessions := session.NewManager(session.NewMemoryStore(), time.Minute, zerolog.Nop())
	defer sessions.Close()
	rec, err := sessions.Start(context.Background(), session.Identity{Token: "tok", Role: models.RoleAdmin})
	require.NoError(t, err)

	h := newResponder(sessions, false, zerolog.Nop())
	r := httptest.NewRequest(http.MethodPost, "/merchants/m1/validate", nil)
	r = r.WithContext(session.WithRecord(r.Context(), rec))
	w := httptest.NewRecorder()

	h.fail(w, r, &gateway.APIError{Status: http.StatusUnauthorized}, "x")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, session.LoginPath, w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
	assert.Zero(t, sessions.Active())
}

func TestResponder_ClientGoneWritesNothing(t *testing.T) {
	h := newResponder(nil, false, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	w := httptest.NewRecorder()
	h.ok(w, r, map[string]string{"a": "b"})
	assert.Zero(t, w.Body.Len())
	assert.False(t, w.Flushed)

	w = httptest.NewRecorder()
	h.fail(w, r, errors.New("boom"), "x")
	assert.Zero(t, w.Body.Len())
}

func TestParseDate(t *testing.T) {
	day, err := parseDate("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *day)

	ts, err := parseDate("2024-06-01T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())

	empty, err := parseDate("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = parseDate("01/06/2024")
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)
}
