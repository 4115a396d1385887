// Package auth provisions credentialed identities and authenticates logins.
// Every new identity starts on the Basic plan with a fresh usage counter.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"bookforge/internal/domain"
)

const minPasswordLength = 8

var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	identity domain.IdentityProvider
	store    domain.ProfileStore
	logger   zerolog.Logger
}

func NewService(identity domain.IdentityProvider, store domain.ProfileStore, logger zerolog.Logger) *Service {
	return &Service{identity: identity, store: store, logger: logger.With().Str("component", "auth").Logger()}
}

// Register provisions a credential and its profile. The profile starts as
// plan=basic, usage_count=0, last_reset_date=today.
func (s *Service) Register(ctx context.Context, email, password string) (*domain.Profile, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	if len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	profile, err := s.identity.Provision(ctx, email, string(hash))
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("profile_id", profile.ID).Msg("identity provisioned")
	return profile, nil
}

// Login verifies the credential and returns the matching profile.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Profile, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	profileID, hash, err := s.identity.Credentials(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.store.GetByID(ctx, profileID)
}

// NormalizeEmail lowercases and trims an email for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
