package period

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/platform/store"
)

func newTestRepository(t *testing.T) (*Repository, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	logger := slog.Default()
	metrics := observability.NewMetrics()
	repo := NewRepository(mem, NewSyncWriter(mem, logger, metrics), NewNotifier(), logger)
	repo.WithNow(func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) })
	n := 0
	repo.WithIDFunc(func() string { n++; return map[int]string{1: "fy24", 2: "fy25", 3: "fy26"}[n] })
	return repo, mem
}

func TestCreatePersistsDefaultAccount(t *testing.T) {
	repo, mem := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "FY 2024")
	require.NoError(t, err)
	require.Equal(t, "fy24", id)

	blob, err := mem.Get(ctx, id)
	require.NoError(t, err)
	var p ledger.Period
	require.NoError(t, json.Unmarshal(blob, &p))
	require.Equal(t, "FY 2024", p.Name)
	require.Len(t, p.Accounts, 1)
	require.Equal(t, ledger.DefaultAccountID, p.Accounts[0].ID)
	require.True(t, p.Accounts[0].IsDefault)
}

func TestLoadMissingDefaultsToEmptyPeriod(t *testing.T) {
	repo, _ := newTestRepository(t)
	repo.Load(context.Background(), "ghost")
	require.Equal(t, "ghost", repo.ActiveID())

	err := repo.View(func(e *ledger.Engine) error {
		require.Empty(t, e.Period().Transactions)
		require.Len(t, e.Period().Accounts, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdatePersistsAndNotifies(t *testing.T) {
	repo, mem := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "FY 2024")
	require.NoError(t, err)
	repo.SwitchActive(ctx, id)

	signal, cancel := repo.Notifier().Subscribe()
	defer cancel()

	err = repo.Update(func(e *ledger.Engine) error {
		return e.AddParty(&ledger.Party{ID: "c1", Name: "Aung Traders", Kind: ledger.PartyCustomer})
	})
	require.NoError(t, err)

	select {
	case <-signal:
	default:
		t.Fatal("expected change notification")
	}

	blob, err := mem.Get(ctx, id)
	require.NoError(t, err)
	var p ledger.Period
	require.NoError(t, json.Unmarshal(blob, &p))
	require.Len(t, p.Parties, 1)
	require.Equal(t, "Aung Traders", p.Parties[0].Name)
}

func TestUpdateErrorLeavesStoreUntouched(t *testing.T) {
	repo, mem := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "FY 2024")
	require.NoError(t, err)
	repo.SwitchActive(ctx, id)
	before, err := mem.Get(ctx, id)
	require.NoError(t, err)

	err = repo.Update(func(e *ledger.Engine) error {
		return e.UpdateTransaction("missing", &ledger.Transaction{})
	})
	require.ErrorIs(t, err, ledger.ErrTransactionNotFound)

	after, err := mem.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
}

func TestUpdateWithoutActivePeriod(t *testing.T) {
	repo, _ := newTestRepository(t)
	err := repo.Update(func(e *ledger.Engine) error { return nil })
	require.ErrorIs(t, err, ErrNoActivePeriod)
}

func TestSwitchActiveRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, "FY 2024")
	require.NoError(t, err)
	second, err := repo.Create(ctx, "FY 2025")
	require.NoError(t, err)

	repo.SwitchActive(ctx, first)
	require.NoError(t, repo.Update(func(e *ledger.Engine) error {
		return e.AddParty(&ledger.Party{ID: "c1", Name: "Only in FY24", Balance: decimal.NewFromInt(100)})
	}))

	repo.SwitchActive(ctx, second)
	require.Equal(t, second, repo.ActiveID())
	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		require.Empty(t, e.Period().Parties)
		return nil
	}))

	// Switching back reloads the persisted state.
	repo.SwitchActive(ctx, first)
	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		require.Len(t, e.Period().Parties, 1)
		require.True(t, e.Period().Parties[0].Balance.Equal(decimal.NewFromInt(100)))
		return nil
	}))

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"fy24", "fy25"}, ids)
}

func TestRestoreReplacesCacheWithDefaults(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "FY 2024")
	require.NoError(t, err)
	repo.SwitchActive(ctx, id)
	require.NoError(t, repo.Update(func(e *ledger.Engine) error {
		return e.AddParty(&ledger.Party{ID: "old", Name: "Gone after restore"})
	}))

	backup := `{
		"profile": {"businessName": "Restored Shop"},
		"parties": [{"id": "c9", "name": "From backup", "kind": "customer", "balance": "250"}]
	}`
	require.NoError(t, repo.Restore([]byte(backup)))

	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		p := e.Period()
		require.Equal(t, id, p.ID)
		require.Equal(t, "Restored Shop", p.Profile.BusinessName)
		require.Len(t, p.Parties, 1)
		require.Equal(t, "From backup", p.Parties[0].Name)
		// Missing keys fall back to defaults.
		require.Empty(t, p.Transactions)
		require.Len(t, p.Accounts, 1)
		require.Equal(t, ledger.DefaultAccountID, p.Accounts[0].ID)
		return nil
	}))
}

func TestRestoreRejectsNonObject(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	id, err := repo.Create(ctx, "FY 2024")
	require.NoError(t, err)
	repo.SwitchActive(ctx, id)

	require.ErrorIs(t, repo.Restore([]byte(`[1,2,3]`)), ErrMalformedBackup)
	require.ErrorIs(t, repo.Restore([]byte(`"nope"`)), ErrMalformedBackup)
	require.ErrorIs(t, repo.Restore(nil), ErrMalformedBackup)
}

func TestNotifierCoalesces(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe()
	defer cancel()

	n.Notify()
	n.Notify()
	n.Notify()

	<-ch
	select {
	case <-ch:
		t.Fatal("signals should coalesce into the buffered slot")
	default:
	}
}
