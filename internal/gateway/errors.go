package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrUnreachable  = errors.New("backend unreachable")
	ErrNotAFile     = errors.New("export returned an error body instead of a file")
)

// APIError is a non-2xx answer from the backend. Message is the backend's
// own msg when it sent one.
type APIError struct {
	Endpoint string
	Status   int
	Message  string

	// anonymous marks calls made without a session, such as login. A 401
	// there refuses credentials; it says nothing about a session.
	anonymous bool
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Endpoint, e.Status)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized && !e.anonymous
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

const (
	msgSessionExpired = "Session expirée, veuillez vous reconnecter."
	msgUnreachable    = "Impossible de se connecter au serveur. Vérifiez votre connexion."
)

// UserMessage turns err into the text shown in an error banner: the backend
// message verbatim when present, otherwise fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnauthorized) {
		return msgSessionExpired
	}
	if errors.Is(err, ErrUnreachable) {
		return msgUnreachable
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
