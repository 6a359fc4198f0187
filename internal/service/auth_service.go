package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"boulder-editor/internal/domain"
	"boulder-editor/pkg/hash"
	"boulder-editor/pkg/jwt"
)

// AuthService guards the API with a single shared passphrase. With no hash
// configured it is disabled and every request is let through.
type AuthService struct {
	passphraseHash string
	jwtSecret      string
	jwtExpiration  time.Duration
}

func NewAuthService(passphraseHash, jwtSecret string, jwtExp time.Duration) *AuthService {
	return &AuthService{
		passphraseHash: passphraseHash,
		jwtSecret:      jwtSecret,
		jwtExpiration:  jwtExp,
	}
}

func (s *AuthService) Enabled() bool {
	return s.passphraseHash != ""
}

func (s *AuthService) Login(req *domain.LoginRequest) (*domain.LoginResponse, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}

	if err := hash.Compare(s.passphraseHash, req.Passphrase); err != nil {
		logrus.Warn("Rejected login with wrong passphrase")
		return nil, ErrInvalidPassphrase
	}

	editorID := uuid.New().String()
	accessToken, err := jwt.GenerateToken(editorID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	logrus.WithField("editor_id", editorID).Info("Editor logged in")

	return &domain.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtExpiration.Seconds()),
	}, nil
}

func (s *AuthService) ValidateToken(token string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
