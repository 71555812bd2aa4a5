package models

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleSupervisor UserRole = "superviseur"
	RoleAgent      UserRole = "agent"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleAgent:
		return true
	}
	return false
}

type LoginRequest struct {
	Matricule string `json:"matricule"`
	Password  string `json:"motDePasse"`
}

// LoginResponse is what POST /api/agents/login returns.
type LoginResponse struct {
	Token string `json:"token"`
	Agent Agent  `json:"agent"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"ancienMotDePasse"`
	NewPassword string `json:"nouveauMotDePasse"`
}
