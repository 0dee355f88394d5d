package auth

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/period"
	"github.com/tillbook/tillbook/internal/platform/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mem := store.NewMemory()
	logger := slog.Default()
	repo := period.NewRepository(mem, period.NewSyncWriter(mem, logger, observability.NewMetrics()), period.NewNotifier(), logger)

	id, err := repo.Create(context.Background(), "FY 2024")
	require.NoError(t, err)
	repo.SwitchActive(context.Background(), id)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repo.Update(func(e *ledger.Engine) error {
		return e.AddUser(&ledger.User{ID: "u1", Name: "mia", Role: "owner", PasswordHash: string(hash)})
	}))
	return NewService(repo)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Authenticate("mia", "hunter22")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "owner", user.Role)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Authenticate("mia", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Authenticate("ghost", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
