package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"merchant-console/internal/gateway"
	"merchant-console/internal/models"
	"merchant-console/internal/session"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// fakeBackend is an in-memory stand-in for the dashboard API.
type fakeBackend struct {
	mu        sync.Mutex
	merchants map[string]models.Merchant
	requests  []string
	bodies    map[string]map[string]string
	status    map[string]int
	token     string
}

func newFakeBackend() *fakeBackend {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &fakeBackend{
		merchants: map[string]models.Merchant{
			"m1": {ID: "m1", Nom: "Boutique Awa", Status: models.StatusPending, CreatedAt: created},
			"m2": {ID: "m2", Nom: "Pharmacie Yao", Status: models.StatusPending, CreatedAt: created.Add(time.Hour)},
			"m3": {ID: "m3", Nom: "Maquis Bolo", Status: models.StatusValidated, CreatedAt: created, ValidatedAt: ptr(created.Add(2 * time.Hour))},
		},
		bodies: map[string]map[string]string{},
		status: map[string]int{},
		token:  "tok-123",
	}
}

func ptr[T any](v T) *T { return &v }

func (b *fakeBackend) hits() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// failWith makes every request to route answer code.
func (b *fakeBackend) failWith(route string, code int) {
	b.mu.Lock()
	b.status[route] = code
	b.mu.Unlock()
}

func (b *fakeBackend) handler() http.Handler {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			b.mu.Lock()
			b.requests = append(b.requests, req.Method+" "+req.URL.Path)
			code := b.status[req.URL.Path]
			b.mu.Unlock()
			if code != 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(code)
				_, _ = w.Write([]byte(`{"msg":"refusé par le serveur"}`))
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.HandleFunc("/api/agents/login", func(w http.ResponseWriter, req *http.Request) {
		var body models.LoginRequest
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Password != "secret" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Matricule ou mot de passe incorrect"})
			return
		}
		role := models.RoleAdmin
		if body.Matricule == "SU-1" {
			role = models.RoleSupervisor
		}
		writeJSON(w, http.StatusOK, models.LoginResponse{Token: b.token, Agent: models.Agent{ID: "u1", Matricule: body.Matricule, Role: role}})
	}).Methods(http.MethodPost)

	r.HandleFunc("/api/agents/change-password", func(w http.ResponseWriter, req *http.Request) {
		b.record(req, "change-password")
		writeJSON(w, http.StatusOK, map[string]string{"msg": "ok"})
	}).Methods(http.MethodPut)
	r.HandleFunc("/api/agents/all-agents", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, []models.Agent{{ID: "a1", Role: models.RoleAgent}, {ID: "a2", Role: models.RoleAgent}})
	})
	r.HandleFunc("/api/agents/all-supervisors", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, []models.Agent{{ID: "s1", Role: models.RoleSupervisor}})
	})
	r.HandleFunc("/api/agents/all-performance", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, []models.Agent{{ID: "a1", Performance: models.Performance{Enrollments: 4}}})
	})

	r.HandleFunc("/api/agents/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		b.record(req, "agent:"+id)
		writeJSON(w, http.StatusOK, models.Agent{ID: id, Matricule: "SU-1", Role: models.RoleSupervisor})
	}).Methods(http.MethodPut)
	r.HandleFunc("/api/agents/{id}", func(w http.ResponseWriter, req *http.Request) {
		if mux.Vars(req)["id"] == "missing" {
			writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Agent non trouvé"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"msg": "Agent supprimé"})
	}).Methods(http.MethodDelete)

	r.HandleFunc("/api/logs", func(w http.ResponseWriter, req *http.Request) {
		base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		logs := make([]models.LogEntry, 0, 20)
		for i := 0; i < 20; i++ {
			action := "login"
			if i%4 == 0 {
				action = "validate_merchant"
			}
			logs = append(logs, models.LogEntry{
				ID:        fmt.Sprintf("l%02d", i),
				Matricule: fmt.Sprintf("AG-%02d", i),
				Action:    action,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
		}
		writeJSON(w, http.StatusOK, logs)
	})
	r.HandleFunc("/api/export/{kind}", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write([]byte("PK\x03\x04"))
	})

	r.HandleFunc("/api/merchants/dashboard-stats", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		stats := map[models.MerchantStatus]int{}
		var pending []models.Merchant
		for _, m := range b.merchants {
			stats[m.Status]++
			if m.Status == models.StatusPending {
				pending = append(pending, m)
			}
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, models.DashboardStats{Stats: stats, PendingMerchants: pending})
	})
	r.HandleFunc("/api/merchants/pending-admin-validation", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, b.byStatus(models.StatusPending, models.StatusValidatedBySupervisor))
	})
	r.HandleFunc("/api/merchants/superviseur-merchants", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, b.byStatus(models.MerchantStatus(req.URL.Query().Get("statut"))))
	})
	r.HandleFunc("/api/merchants/reject/{id}", b.transition(models.StatusRejected)).Methods(http.MethodPost)
	r.HandleFunc("/api/merchants/validate/{id}", b.transition(models.StatusValidated)).Methods(http.MethodPost)
	r.HandleFunc("/api/merchants/{id}/reject", b.transition(models.StatusRejected)).Methods(http.MethodPost)
	r.HandleFunc("/api/merchants/{id}/validate", b.transition(models.StatusValidatedBySupervisor)).Methods(http.MethodPost)
	r.HandleFunc("/api/merchants/{id}/deliver", b.transition(models.StatusDelivered)).Methods(http.MethodPost)
	r.HandleFunc("/api/merchants/{id}", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		m, ok := b.merchants[mux.Vars(req)["id"]]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Marchand non trouvé"})
			return
		}
		writeJSON(w, http.StatusOK, m)
	}).Methods(http.MethodGet)

	return r
}

func (b *fakeBackend) record(req *http.Request, key string) {
	var body map[string]string
	_ = json.NewDecoder(req.Body).Decode(&body)
	b.mu.Lock()
	b.bodies[key] = body
	b.mu.Unlock()
}

func (b *fakeBackend) byStatus(statuses ...models.MerchantStatus) []models.Merchant {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Merchant{}
	for _, m := range b.merchants {
		for _, s := range statuses {
			if s == "" || m.Status == s {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func (b *fakeBackend) transition(to models.MerchantStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		b.record(req, id)

		b.mu.Lock()
		defer b.mu.Unlock()
		m, ok := b.merchants[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Marchand non trouvé"})
			return
		}
		now := m.CreatedAt.Add(24 * time.Hour)
		m.Status = to
		switch to {
		case models.StatusRejected:
			m.RejectionReason = b.bodies[id]["rejectionReason"]
		case models.StatusValidatedBySupervisor:
			m.ValidatedBySupervisorAt = &now
		case models.StatusValidated:
			m.ValidatedAt = &now
		case models.StatusDelivered:
			later := now.Add(time.Hour)
			m.DeliveredAt = &later
		}
		b.merchants[id] = m
		writeJSON(w, http.StatusOK, map[string]string{"msg": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	backend  *fakeBackend
	gateway  *gateway.Client
	sessions *session.Manager
	inflight *Inflight
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	sessions := session.NewManager(session.NewMemoryStore(), time.Minute, zerolog.Nop())
	t.Cleanup(sessions.Close)

	gw := gateway.NewClient(srv.URL, 2*time.Second, zerolog.Nop())
	gw.OnUnauthorized(func(ctx context.Context) {
		sessions.EndFromContext(ctx, session.ReasonUnauthorized)
	})
	return &harness{backend: backend, gateway: gw, sessions: sessions, inflight: NewInflight()}
}

// signIn starts a real session for role and returns a context carrying it.
func (h *harness) signIn(t *testing.T, role models.UserRole) context.Context {
	t.Helper()
	rec, err := h.sessions.Start(context.Background(), session.Identity{Token: h.backend.token, Role: role})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return session.WithRecord(context.Background(), rec)
}
