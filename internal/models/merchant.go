package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInconsistentRecord = errors.New("inconsistent merchant record")

type MerchantStatus string

const (
	StatusPending               MerchantStatus = "en attente"
	StatusValidatedBySupervisor MerchantStatus = "validé par superviseur"
	StatusValidated             MerchantStatus = "validé"
	StatusRejected              MerchantStatus = "rejeté"
	StatusDelivered             MerchantStatus = "livré"
)

func (s MerchantStatus) Valid() bool {
	switch s {
	case StatusPending, StatusValidatedBySupervisor, StatusValidated, StatusRejected, StatusDelivered:
		return true
	}
	return false
}

type Merchant struct {
	ID                      string         `json:"_id"`
	Nom                     string         `json:"nom"`
	NomGerant               string         `json:"nomGerant,omitempty"`
	PrenomGerant            string         `json:"prenomGerant,omitempty"`
	Secteur                 string         `json:"secteur,omitempty"`
	TypeCommerce            string         `json:"typeCommerce,omitempty"`
	NIF                     string         `json:"nif,omitempty"`
	RC                      string         `json:"rc,omitempty"`
	Adresse                 string         `json:"adresse,omitempty"`
	Contact                 string         `json:"contact,omitempty"`
	Region                  string         `json:"region,omitempty"`
	Ville                   string         `json:"ville,omitempty"`
	Commune                 string         `json:"commune,omitempty"`
	Latitude                float64        `json:"latitude,omitempty"`
	Longitude               float64        `json:"longitude,omitempty"`
	PhotoEnseigneURL        string         `json:"photoEnseigneUrl,omitempty"`
	Piece                   *IdentityPiece `json:"pieceIdentite,omitempty"`
	AgentRecruteur          AgentRef       `json:"agentRecruteurId"`
	Status                  MerchantStatus `json:"statut"`
	RejectionReason         string         `json:"rejectionReason,omitempty"`
	CreatedAt               time.Time      `json:"createdAt"`
	ValidatedBySupervisorAt *time.Time     `json:"validatedBySupervisorAt,omitempty"`
	ValidatedAt             *time.Time     `json:"validatedAt,omitempty"`
	DeliveredAt             *time.Time     `json:"deliveredAt,omitempty"`
	Livreur                 *AgentRef      `json:"livreur,omitempty"`
	PhotoQRCodeURL          string         `json:"photoQrCodeUrl,omitempty"`
	PhotoTestPaiementURL    string         `json:"photoTestPaiementUrl,omitempty"`
	Operateurs              []Operator     `json:"operateurs,omitempty"`
}

type Operator struct {
	Nom       string `json:"nom"`
	Prenom    string `json:"prenom"`
	Telephone string `json:"telephone"`
	NumeroCNI string `json:"numeroCni"`
}

// AgentRef is the recruiting (or delivering) agent. The backend sends either
// the bare id or the populated {_id, matricule} object.
type AgentRef struct {
	ID        string `json:"_id,omitempty"`
	Matricule string `json:"matricule,omitempty"`
}

func (a *AgentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = AgentRef{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*a = AgentRef{ID: id}
		return nil
	}
	type plain AgentRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("agent reference: %w", err)
	}
	*a = AgentRef(p)
	return nil
}

// IdentityDocument is either a NationalID or a Passport.
type IdentityDocument interface {
	DocumentType() string
}

type NationalID struct {
	Kind     string `json:"type"`
	RectoURL string `json:"cniRectoUrl"`
	VersoURL string `json:"cniVersoUrl"`
}

func (d NationalID) DocumentType() string { return d.Kind }

type Passport struct {
	URL string `json:"passeportUrl"`
}

func (Passport) DocumentType() string { return "passeport" }

type IdentityPiece struct {
	Document IdentityDocument
}

type rawPiece struct {
	Type         string `json:"type"`
	CNIRectoURL  string `json:"cniRectoUrl,omitempty"`
	CNIVersoURL  string `json:"cniVersoUrl,omitempty"`
	PasseportURL string `json:"passeportUrl,omitempty"`
}

func (p *IdentityPiece) UnmarshalJSON(data []byte) error {
	var raw rawPiece
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("identity document: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(raw.Type)) {
	case "cni", "carte de sejour":
		p.Document = NationalID{Kind: raw.Type, RectoURL: raw.CNIRectoURL, VersoURL: raw.CNIVersoURL}
	case "passeport":
		p.Document = Passport{URL: raw.PasseportURL}
	default:
		p.Document = nil
	}
	return nil
}

func (p IdentityPiece) MarshalJSON() ([]byte, error) {
	switch d := p.Document.(type) {
	case NationalID:
		return json.Marshal(rawPiece{Type: d.Kind, CNIRectoURL: d.RectoURL, CNIVersoURL: d.VersoURL})
	case Passport:
		return json.Marshal(rawPiece{Type: "passeport", PasseportURL: d.URL})
	default:
		return []byte("null"), nil
	}
}

// Check verifies the record invariants: the rejection reason is present iff
// the status is rejected, milestone timestamps only appear once reached, and
// they never go backwards.
func (m *Merchant) Check() error {
	if !m.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInconsistentRecord, m.Status)
	}

	hasReason := strings.TrimSpace(m.RejectionReason) != ""
	if m.Status == StatusRejected && !hasReason {
		return fmt.Errorf("%w: rejected without reason", ErrInconsistentRecord)
	}
	if m.Status != StatusRejected && hasReason {
		return fmt.Errorf("%w: rejection reason on %q record", ErrInconsistentRecord, m.Status)
	}

	reachedValidation := m.Status == StatusValidated || m.Status == StatusDelivered
	if m.ValidatedAt != nil && !reachedValidation {
		return fmt.Errorf("%w: validatedAt set on %q record", ErrInconsistentRecord, m.Status)
	}
	if m.DeliveredAt != nil && m.Status != StatusDelivered {
		return fmt.Errorf("%w: deliveredAt set on %q record", ErrInconsistentRecord, m.Status)
	}
	if m.ValidatedBySupervisorAt != nil && m.Status == StatusPending {
		return fmt.Errorf("%w: supervisor validation on pending record", ErrInconsistentRecord)
	}

	prev := m.CreatedAt
	for _, ts := range []*time.Time{m.ValidatedBySupervisorAt, m.ValidatedAt, m.DeliveredAt} {
		if ts == nil {
			continue
		}
		if !prev.IsZero() && ts.Before(prev) {
			return fmt.Errorf("%w: milestone %s precedes %s", ErrInconsistentRecord, ts.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = *ts
	}
	return nil
}

type MerchantFilter struct {
	Status    MerchantStatus
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	AgentID   string
}

type DashboardStats struct {
	Stats            map[MerchantStatus]int `json:"stats"`
	PendingMerchants []Merchant             `json:"pendingMerchants"`
}

type MerchantLocation struct {
	ID        string         `json:"_id"`
	Nom       string         `json:"nom"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Status    MerchantStatus `json:"statut"`
	Ville     string         `json:"ville,omitempty"`
}

// DeliveryProof is attached when a validated merchant is marked delivered.
type DeliveryProof struct {
	QRCodePhotoURL      string `json:"photoQrCodeUrl"`
	PaymentTestPhotoURL string `json:"photoTestPaiementUrl"`
}
