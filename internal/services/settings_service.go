package services

import (
	"context"
	"fmt"

	"merchant-console/internal/gateway"
	"merchant-console/internal/models"
	"merchant-console/internal/session"

	"github.com/rs/zerolog"
)

type PasswordChange struct {
	Current string `json:"ancienMotDePasse"`
	New     string `json:"nouveauMotDePasse"`
	Confirm string `json:"confirmMotDePasse"`
}

type SettingsService struct {
	gateway  *gateway.Client
	inflight *Inflight
	logger   zerolog.Logger
}

func NewSettingsService(gw *gateway.Client, inflight *Inflight, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		gateway:  gw,
		inflight: inflight,
		logger:   logger,
	}
}

func (s *SettingsService) ChangePassword(ctx context.Context, req PasswordChange) error {
	if req.Current == "" || req.New == "" || req.Confirm == "" {
		return invalid("motDePasse", "Tous les champs sont obligatoires.")
	}
	if len(req.New) < minPasswordLength {
		return invalid("nouveauMotDePasse", fmt.Sprintf("Le nouveau mot de passe doit contenir au moins %d caractères.", minPasswordLength))
	}
	if req.New != req.Confirm {
		return invalid("confirmMotDePasse", "Les mots de passe ne correspondent pas.")
	}

	rec, _ := session.FromContext(ctx)
	err := s.inflight.Do(InflightKey(rec.ID, "change_password"), func() error {
		return s.gateway.ChangePassword(ctx, models.ChangePasswordRequest{
			OldPassword: req.Current,
			NewPassword: req.New,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	s.logger.Info().Msg("Password changed")
	return nil
}
