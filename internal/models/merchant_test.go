package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerchant_DecodesBackendPayload(t *testing.T) {
	payload := `{
		"_id": "66a1",
		"nom": "Boutique Awa",
		"statut": "validé par superviseur",
		"agentRecruteurId": {"_id": "a-9", "matricule": "AG-009"},
		"pieceIdentite": {"type": "cni", "cniRectoUrl": "https://cdn/r.jpg", "cniVersoUrl": "https://cdn/v.jpg"},
		"createdAt": "2024-05-01T10:00:00Z",
		"validatedBySupervisorAt": "2024-05-02T10:00:00Z",
		"operateurs": [{"nom": "Koné", "prenom": "Ali", "telephone": "0102030405", "numeroCni": "CI-1"}]
	}`

	var m Merchant
	require.NoError(t, json.Unmarshal([]byte(payload), &m))

	assert.Equal(t, StatusValidatedBySupervisor, m.Status)
	assert.Equal(t, AgentRef{ID: "a-9", Matricule: "AG-009"}, m.AgentRecruteur)
	require.NotNil(t, m.Piece)
	assert.Equal(t, NationalID{Kind: "cni", RectoURL: "https://cdn/r.jpg", VersoURL: "https://cdn/v.jpg"}, m.Piece.Document)
	require.Len(t, m.Operateurs, 1)
	assert.NoError(t, m.Check())
}

func TestAgentRef_AcceptsBareID(t *testing.T) {
	var m Merchant
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"1","statut":"en attente","agentRecruteurId":"a-1","pieceIdentite":{"type":"passeport","passeportUrl":"https://cdn/p.jpg"}}`), &m))

	assert.Equal(t, AgentRef{ID: "a-1"}, m.AgentRecruteur)
	assert.Equal(t, Passport{URL: "https://cdn/p.jpg"}, m.Piece.Document)

	out, err := json.Marshal(m.Piece)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"passeport","passeportUrl":"https://cdn/p.jpg"}`, string(out))
}

func TestMerchant_Check(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	before := created.Add(-time.Hour)
	after := created.Add(time.Hour)

	tests := []struct {
		name string
		m    Merchant
		ok   bool
	}{
		{"pending", Merchant{Status: StatusPending, CreatedAt: created}, true},
		{"rejected with reason", Merchant{Status: StatusRejected, RejectionReason: "dossier incomplet", CreatedAt: created}, true},
		{"rejected without reason", Merchant{Status: StatusRejected, CreatedAt: created}, false},
		{"reason on validated", Merchant{Status: StatusValidated, RejectionReason: "dossier incomplet", CreatedAt: created}, false},
		{"validatedAt on pending", Merchant{Status: StatusPending, ValidatedAt: &after, CreatedAt: created}, false},
		{"deliveredAt on validated", Merchant{Status: StatusValidated, ValidatedAt: &after, DeliveredAt: &after, CreatedAt: created}, false},
		{"validated before creation", Merchant{Status: StatusValidated, ValidatedAt: &before, CreatedAt: created}, false},
		{"unknown status", Merchant{Status: "archivé", CreatedAt: created}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.m.Check()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInconsistentRecord)
		})
	}
}
