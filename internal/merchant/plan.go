package merchant

import (
	"fmt"

	"merchant-console/internal/models"
)

// Request is what an actor asks for; Plan turns it into a Transition.
type Request struct {
	Action   Action
	Reason   string
	Delivery models.DeliveryProof
}

// Plan checks that req is legal from rec's current state and that role may
// perform it. Nothing is sent anywhere.
func Plan(rec Record, role models.UserRole, req Request) (Transition, error) {
	if rec == nil {
		return Transition{}, fmt.Errorf("%w: no record", ErrIllegalTransition)
	}

	var t Transition
	switch req.Action {
	case ActionValidateSupervisor:
		v, ok := rec.(SupervisorValidatable)
		if !ok {
			return Transition{}, illegal(rec, req.Action)
		}
		t = v.ValidateAsSupervisor()
	case ActionValidate:
		v, ok := rec.(FinalValidatable)
		if !ok {
			return Transition{}, illegal(rec, req.Action)
		}
		t = v.ValidateFinal()
	case ActionReject:
		r, ok := rec.(Rejectable)
		if !ok {
			return Transition{}, illegal(rec, req.Action)
		}
		if !(Transition{actors: rejectActors}).Permits(role) {
			return Transition{}, notAllowed(role, req.Action)
		}
		var err error
		if t, err = r.Reject(req.Reason); err != nil {
			return Transition{}, err
		}
	case ActionDeliver:
		d, ok := rec.(Deliverable)
		if !ok {
			return Transition{}, illegal(rec, req.Action)
		}
		t = d.MarkDelivered(req.Delivery)
	default:
		return Transition{}, fmt.Errorf("%w: unknown action %q", ErrIllegalTransition, req.Action)
	}

	if !t.Permits(role) {
		return Transition{}, notAllowed(role, req.Action)
	}
	return t, nil
}

func illegal(rec Record, action Action) error {
	return fmt.Errorf("%w: cannot %s a %q merchant", ErrIllegalTransition, action, rec.Status())
}

func notAllowed(role models.UserRole, action Action) error {
	return fmt.Errorf("%w: role %q cannot %s", ErrActorNotAllowed, role, action)
}
