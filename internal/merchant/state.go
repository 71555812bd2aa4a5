// Package merchant models the merchant record lifecycle as one variant per
// status. Each variant only carries the operations that are legal from its
// state, so callers cannot build an illegal transition.
package merchant

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"merchant-console/internal/models"
)

// MinRejectionReason is the minimum length, in characters, of a rejection reason.
const MinRejectionReason = 10

var (
	ErrReasonTooShort    = errors.New("rejection reason too short")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrActorNotAllowed   = errors.New("actor not allowed")
)

// ValidationError is a client-side refusal; it never reaches the network.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Err }

type Action string

const (
	ActionValidateSupervisor Action = "validate_supervisor"
	ActionValidate           Action = "validate"
	ActionReject             Action = "reject"
	ActionDeliver            Action = "deliver"
)

// Transition is a fully checked request to move one record to a new status.
type Transition struct {
	MerchantID string
	Action     Action
	From       models.MerchantStatus
	To         models.MerchantStatus
	Reason     string
	Delivery   *models.DeliveryProof
	actors     []models.UserRole
}

// Permits reports whether role may submit the transition.
func (t Transition) Permits(role models.UserRole) bool {
	for _, a := range t.actors {
		if a == role {
			return true
		}
	}
	return false
}

func (t Transition) Actors() []models.UserRole {
	return append([]models.UserRole(nil), t.actors...)
}

var rejectActors = []models.UserRole{models.RoleAdmin, models.RoleSupervisor}

type Record interface {
	Merchant() models.Merchant
	Status() models.MerchantStatus
}

type SupervisorValidatable interface {
	Record
	ValidateAsSupervisor() Transition
}

type FinalValidatable interface {
	Record
	ValidateFinal() Transition
}

type Rejectable interface {
	Record
	Reject(reason string) (Transition, error)
}

type Deliverable interface {
	Record
	MarkDelivered(proof models.DeliveryProof) Transition
}

type base struct{ m models.Merchant }

func (b base) Merchant() models.Merchant { return b.m }

type Pending struct{ base }

func (Pending) Status() models.MerchantStatus { return models.StatusPending }

func (p Pending) ValidateAsSupervisor() Transition {
	return Transition{
		MerchantID: p.m.ID,
		Action:     ActionValidateSupervisor,
		From:       models.StatusPending,
		To:         models.StatusValidatedBySupervisor,
		actors:     []models.UserRole{models.RoleSupervisor},
	}
}

func (p Pending) ValidateFinal() Transition { return validateFinal(p) }

func (p Pending) Reject(reason string) (Transition, error) { return reject(p, reason) }

type SupervisorValidated struct{ base }

func (SupervisorValidated) Status() models.MerchantStatus {
	return models.StatusValidatedBySupervisor
}

func (s SupervisorValidated) ValidateFinal() Transition { return validateFinal(s) }

func (s SupervisorValidated) Reject(reason string) (Transition, error) { return reject(s, reason) }

type Validated struct{ base }

func (Validated) Status() models.MerchantStatus { return models.StatusValidated }

func (v Validated) MarkDelivered(proof models.DeliveryProof) Transition {
	return Transition{
		MerchantID: v.m.ID,
		Action:     ActionDeliver,
		From:       models.StatusValidated,
		To:         models.StatusDelivered,
		Delivery:   &proof,
		actors:     []models.UserRole{models.RoleAgent, models.RoleAdmin},
	}
}

type Rejected struct{ base }

func (Rejected) Status() models.MerchantStatus { return models.StatusRejected }

func (r Rejected) Reason() string { return r.m.RejectionReason }

type Delivered struct{ base }

func (Delivered) Status() models.MerchantStatus { return models.StatusDelivered }

func validateFinal(r Record) Transition {
	return Transition{
		MerchantID: r.Merchant().ID,
		Action:     ActionValidate,
		From:       r.Status(),
		To:         models.StatusValidated,
		actors:     []models.UserRole{models.RoleAdmin},
	}
}

// CheckReason refuses a rejection reason shorter than MinRejectionReason
// characters once surrounding blanks are ignored.
func CheckReason(reason string) error {
	if utf8.RuneCountInString(strings.TrimSpace(reason)) < MinRejectionReason {
		return &ValidationError{
			Err:     ErrReasonTooShort,
			Message: fmt.Sprintf("Veuillez fournir une raison de rejet d'au moins %d caractères.", MinRejectionReason),
		}
	}
	return nil
}

func reject(r Record, reason string) (Transition, error) {
	if err := CheckReason(reason); err != nil {
		return Transition{}, err
	}
	return Transition{
		MerchantID: r.Merchant().ID,
		Action:     ActionReject,
		From:       r.Status(),
		To:         models.StatusRejected,
		Reason:     reason,
		actors:     rejectActors,
	}, nil
}

// Classify wraps m in the variant matching its status. Records that break
// the model invariants are refused.
func Classify(m models.Merchant) (Record, error) {
	if err := m.Check(); err != nil {
		return nil, err
	}
	b := base{m: m}
	switch m.Status {
	case models.StatusPending:
		return Pending{b}, nil
	case models.StatusValidatedBySupervisor:
		return SupervisorValidated{b}, nil
	case models.StatusValidated:
		return Validated{b}, nil
	case models.StatusRejected:
		return Rejected{b}, nil
	case models.StatusDelivered:
		return Delivered{b}, nil
	}
	return nil, fmt.Errorf("%w: unknown status %q", models.ErrInconsistentRecord, m.Status)
}

// Offered lists the actions a view may show for rec to an actor with role.
func Offered(rec Record, role models.UserRole) []Action {
	if rec == nil {
		return nil
	}
	var actions []Action
	if v, ok := rec.(SupervisorValidatable); ok && v.ValidateAsSupervisor().Permits(role) {
		actions = append(actions, ActionValidateSupervisor)
	}
	if v, ok := rec.(FinalValidatable); ok && v.ValidateFinal().Permits(role) {
		actions = append(actions, ActionValidate)
	}
	if _, ok := rec.(Rejectable); ok && (Transition{actors: rejectActors}).Permits(role) {
		actions = append(actions, ActionReject)
	}
	if d, ok := rec.(Deliverable); ok && d.MarkDelivered(models.DeliveryProof{}).Permits(role) {
		actions = append(actions, ActionDeliver)
	}
	return actions
}
