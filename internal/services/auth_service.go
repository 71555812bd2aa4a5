package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"merchant-console/internal/gateway"
	"merchant-console/internal/models"
	"merchant-console/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	DefaultSessionSecret = "default-secret-key-change-in-production"
	cookieMaxAge         = 12 * time.Hour
)

var ErrInvalidCookie = errors.New("invalid session cookie")

type AuthService struct {
	gateway   *gateway.Client
	sessions  *session.Manager
	secretKey []byte
	logger    zerolog.Logger
}

// Claims is the payload of the signed session cookie. Only the session id
// travels to the browser; the backend token stays server side.
type Claims struct {
	SessionID string          `json:"sid"`
	Role      models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type LoginResult struct {
	Cookie  string
	Role    models.UserRole
	Landing string
	Agent   models.Agent
	Session session.Record
}

func NewAuthService(gw *gateway.Client, sessions *session.Manager, secret string, logger zerolog.Logger) *AuthService {
	if secret == "" {
		secret = DefaultSessionSecret
		logger.Warn().Msg("SESSION_SECRET not set, using default key")
	}
	return &AuthService{
		gateway:   gw,
		sessions:  sessions,
		secretKey: []byte(secret),
		logger:    logger,
	}
}

// LandingFor is where a freshly signed-in user is sent.
func LandingFor(role models.UserRole) string {
	if role == models.RoleSupervisor {
		return "/supervisor"
	}
	return "/"
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error) {
	req.Matricule = strings.TrimSpace(req.Matricule)
	if req.Matricule == "" || req.Password == "" {
		return nil, invalid("matricule", "Veuillez saisir votre matricule et votre mot de passe.")
	}

	resp, err := s.gateway.Login(ctx, req)
	if err != nil {
		s.logger.Warn().Err(err).Str("matricule", req.Matricule).Msg("Login failed")
		return nil, err
	}
	if resp.Token == "" || !resp.Agent.Role.Valid() {
		s.logger.Error().Str("matricule", req.Matricule).Str("role", string(resp.Agent.Role)).Msg("Login response without usable identity")
		return nil, fmt.Errorf("login: %w", session.ErrEmptyIdentity)
	}

	rec, err := s.sessions.Start(ctx, session.Identity{Token: resp.Token, Role: resp.Agent.Role})
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	cookie, err := s.GenerateToken(rec)
	if err != nil {
		s.sessions.End(ctx, rec.ID, session.ReasonLogout)
		return nil, err
	}

	s.logger.Info().Str("matricule", req.Matricule).Str("role", string(resp.Agent.Role)).Msg("User signed in")
	return &LoginResult{
		Cookie:  cookie,
		Role:    resp.Agent.Role,
		Landing: LandingFor(resp.Agent.Role),
		Agent:   resp.Agent,
		Session: rec,
	}, nil
}

func (s *AuthService) GenerateToken(rec session.Record) (string, error) {
	now := time.Now()
	claims := &Claims{
		SessionID: rec.ID,
		Role:      rec.Identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cookieMaxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error signing session cookie")
		return "", err
	}
	return tokenString, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidCookie
	}
	return claims, nil
}

// Logout ends the session carried by ctx. It is safe to call more than once.
func (s *AuthService) Logout(ctx context.Context) {
	s.sessions.EndFromContext(ctx, session.ReasonLogout)
}
