// Package session holds the cached console identity, the per-route guard and
// the inactivity watcher that ends idle sessions.
package session

import "merchant-console/internal/models"

// LoginPath is where every denied request is sent.
const LoginPath = "/login"

// Identity is the backend bearer token together with the role it was issued
// for. The two are stored and cleared as one value.
type Identity struct {
	Token string          `json:"token"`
	Role  models.UserRole `json:"role"`
}

func (i Identity) Empty() bool { return i.Token == "" }

// Requirement is the access rule of one route. The zero value accepts any
// signed-in identity.
type Requirement struct {
	roles []models.UserRole
}

func Authenticated() Requirement { return Requirement{} }

func Only(role models.UserRole) Requirement { return OneOf(role) }

func OneOf(roles ...models.UserRole) Requirement {
	return Requirement{roles: append([]models.UserRole(nil), roles...)}
}

func (q Requirement) Roles() []models.UserRole {
	return append([]models.UserRole(nil), q.roles...)
}

func (q Requirement) accepts(role models.UserRole) bool {
	if len(q.roles) == 0 {
		return true
	}
	for _, r := range q.roles {
		if r == role {
			return true
		}
	}
	return false
}

type Decision struct {
	Allow    bool
	Redirect string
	Reason   string
}

// Evaluate decides access from local state only. It never clears anything:
// a signed-in user denied one route stays signed in for the others.
func Evaluate(id Identity, present bool, q Requirement) Decision {
	if !present || id.Empty() {
		return Decision{Redirect: LoginPath, Reason: "no_identity"}
	}
	if !q.accepts(id.Role) {
		return Decision{Redirect: LoginPath, Reason: "role_not_accepted"}
	}
	return Decision{Allow: true}
}
