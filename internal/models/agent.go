package models

type Agent struct {
	ID          string      `json:"_id"`
	Matricule   string      `json:"matricule"`
	Nom         string      `json:"nom,omitempty"`
	Prenom      string      `json:"prenom,omitempty"`
	Affiliation string      `json:"affiliation,omitempty"`
	Role        UserRole    `json:"role"`
	Performance Performance `json:"performance"`
}

type Performance struct {
	Enrollments int `json:"enrolements"`
	Validations int `json:"validations"`
}

// AgentInput is the body of create/update calls. Empty fields are omitted
// so that a partial update never blanks what the backend stores, the
// password included.
type AgentInput struct {
	Matricule   string   `json:"matricule"`
	Password    string   `json:"motDePasse,omitempty"`
	Nom         string   `json:"nom,omitempty"`
	Prenom      string   `json:"prenom,omitempty"`
	Affiliation string   `json:"affiliation,omitempty"`
	Role        UserRole `json:"role,omitempty"`
}

type SupervisorPerformance struct {
	SupervisorID        string `json:"supervisorId"`
	SupervisorName      string `json:"supervisorName"`
	SupervisorMatricule string `json:"supervisorMatricule"`
	ValidationCount     int    `json:"validationCount"`
}
