// Package auth authenticates operators against the active period's users.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/period"
)

// ErrInvalidCredentials indicates a failed login.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Service wraps the credential check.
type Service struct {
	repo *period.Repository
}

// NewService constructs a new Service.
func NewService(repo *period.Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates name/password against the active period's users.
func (s *Service) Authenticate(name, password string) (*ledger.User, error) {
	var user *ledger.User
	err := s.repo.View(func(e *ledger.Engine) error {
		u, ok := e.UserByName(name)
		if !ok {
			return ErrInvalidCredentials
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
