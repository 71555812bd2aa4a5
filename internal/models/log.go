package models

import "time"

type LogEntry struct {
	ID        string    `json:"_id"`
	Matricule string    `json:"matricule"`
	Action    string    `json:"action"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type LogPage struct {
	Logs  []LogEntry `json:"logs"`
	Page  int        `json:"page"`
	Pages int        `json:"pages"`
	Total int        `json:"total"`
}
