package close

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/period"
	"github.com/tillbook/tillbook/internal/platform/store"
)

func newTestService(t *testing.T) (*Service, *period.Repository) {
	t.Helper()
	mem := store.NewMemory()
	logger := slog.Default()
	metrics := observability.NewMetrics()
	repo := period.NewRepository(mem, period.NewSyncWriter(mem, logger, metrics), period.NewNotifier(), logger)
	svc := NewService(repo, logger, metrics)
	svc.WithNow(func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) })
	n := 0
	svc.WithIDFunc(func() string { n++; return fmt.Sprintf("id-%d", n) })

	id, err := repo.Create(context.Background(), "FY 2024")
	require.NoError(t, err)
	repo.SwitchActive(context.Background(), id)
	return svc, repo
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestRolloverConservesPartyBalances(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	require.NoError(t, repo.Update(func(e *ledger.Engine) error {
		if err := e.AddParty(&ledger.Party{ID: "c1", Name: "Debtor", Kind: ledger.PartyCustomer, Balance: dec(500)}); err != nil {
			return err
		}
		if err := e.AddParty(&ledger.Party{ID: "s1", Name: "Creditor", Kind: ledger.PartySupplier, Balance: dec(-200)}); err != nil {
			return err
		}
		return e.AddParty(&ledger.Party{ID: "c2", Name: "Settled", Kind: ledger.PartyCustomer})
	}))

	nextID, err := svc.ClosePeriod(ctx, "FY 2025")
	require.NoError(t, err)
	require.Equal(t, nextID, repo.ActiveID())

	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		sum := decimal.Zero
		for _, p := range e.Period().Parties {
			sum = sum.Add(p.Balance)
		}
		require.True(t, sum.Equal(dec(300)), "sum %s", sum)

		c1, _ := e.Party("c1")
		s1, _ := e.Party("s1")
		c2, _ := e.Party("c2")
		require.True(t, c1.Balance.Equal(dec(500)))
		require.True(t, s1.Balance.Equal(dec(-200)))
		require.True(t, c2.Balance.IsZero())

		// One opening adjustment per non-zero party, nothing else in the log.
		require.Len(t, e.Period().Transactions, 2)
		for _, tx := range e.Period().Transactions {
			require.Equal(t, ledger.KindBalanceAdjustment, tx.Kind)
			require.Equal(t, OpeningBalanceCategory, tx.Category)
			require.Empty(t, tx.AccountID)
		}
		return nil
	}))
}

func TestRolloverCopiesAccountsProductsDrawerVerbatim(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	drawerTime := time.Date(2026, 3, 31, 18, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Update(func(e *ledger.Engine) error {
		if err := e.AddAccount(&ledger.Account{ID: "a1", Name: "Bank", Balance: dec(1234)}); err != nil {
			return err
		}
		if err := e.AddProduct(&ledger.Product{ID: "p1", Name: "Charger", Kind: ledger.ProductGoods, Stock: 7, MinStockLevel: 2}); err != nil {
			return err
		}
		e.SetCashDrawer(map[string]int{"5000": 10, "1000": 4}, drawerTime)
		return nil
	}))

	var defaultBalance decimal.Decimal
	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		a, _ := e.Account(ledger.DefaultAccountID)
		defaultBalance = a.Balance
		return nil
	}))

	_, err := svc.ClosePeriod(ctx, "FY 2025")
	require.NoError(t, err)

	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		a1, ok := e.Account("a1")
		require.True(t, ok)
		require.True(t, a1.Balance.Equal(dec(1234)), "account balances must not be reset")

		def, ok := e.Account(ledger.DefaultAccountID)
		require.True(t, ok)
		require.True(t, def.IsDefault)
		require.True(t, def.Balance.Equal(defaultBalance))

		p1, ok := e.Product("p1")
		require.True(t, ok)
		require.InDelta(t, 7.0, p1.Stock, 0.0001)

		drawer := e.Period().CashDrawer
		require.Equal(t, map[string]int{"5000": 10, "1000": 4}, drawer.Denominations)
		require.Equal(t, drawerTime, drawer.LastUpdated)
		return nil
	}))
}

func TestRolloverCarriesOnlyOpenWork(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	require.NoError(t, repo.Update(func(e *ledger.Engine) error {
		e.AddServiceJob(&ledger.ServiceJob{ID: "j1", Device: "Laptop", Status: ledger.JobInProgress})
		e.AddServiceJob(&ledger.ServiceJob{ID: "j2", Device: "Phone", Status: ledger.JobDelivered})
		e.AddServiceJob(&ledger.ServiceJob{ID: "j3", Device: "Tablet", Status: ledger.JobCancelled})
		e.AddWarrantyCase(&ledger.WarrantyCase{ID: "w1", Issue: "Dead pixel", Status: ledger.WarrantyOpen})
		e.AddWarrantyCase(&ledger.WarrantyCase{ID: "w2", Issue: "Settled", Status: ledger.WarrantyClosed})
		e.AddWarrantyCase(&ledger.WarrantyCase{ID: "w3", Issue: "Withdrawn", Status: ledger.WarrantyCancelled})
		return nil
	}))

	_, err := svc.ClosePeriod(ctx, "FY 2025")
	require.NoError(t, err)

	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		jobs := e.Period().ServiceJobs
		require.Len(t, jobs, 1)
		require.Equal(t, "j1", jobs[0].ID)
		require.Equal(t, ledger.JobInProgress, jobs[0].Status)

		cases := e.Period().WarrantyCases
		require.Len(t, cases, 1)
		require.Equal(t, "w1", cases[0].ID)
		return nil
	}))
}

func TestRolloverDropsTransactionLog(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	require.NoError(t, repo.Update(func(e *ledger.Engine) error {
		if err := e.AddParty(&ledger.Party{ID: "c1", Kind: ledger.PartyCustomer}); err != nil {
			return err
		}
		e.ApplyTransaction(&ledger.Transaction{ID: "t1", Kind: ledger.KindSale, PartyID: "c1", TotalAmount: dec(700)})
		e.ApplyTransaction(&ledger.Transaction{ID: "t2", Kind: ledger.KindPaymentIn, PartyID: "c1", TotalAmount: dec(200)})
		return nil
	}))

	_, err := svc.ClosePeriod(ctx, "FY 2025")
	require.NoError(t, err)

	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		// The finished log is gone; one opening adjustment re-establishes 500.
		require.Len(t, e.Period().Transactions, 1)
		c1, _ := e.Party("c1")
		require.True(t, c1.Balance.Equal(dec(500)))
		return nil
	}))
}

func TestRolloverIsolatesPeriods(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	oldID := repo.ActiveID()

	require.NoError(t, repo.Update(func(e *ledger.Engine) error {
		return e.AddParty(&ledger.Party{ID: "c1", Kind: ledger.PartyCustomer, Balance: dec(100)})
	}))

	nextID, err := svc.ClosePeriod(ctx, "FY 2025")
	require.NoError(t, err)

	// Mutating the successor must not leak into the closed period.
	require.NoError(t, repo.Update(func(e *ledger.Engine) error {
		p, _ := e.Party("c1")
		p.Name = "renamed in successor"
		return nil
	}))

	repo.SwitchActive(ctx, oldID)
	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		p, _ := e.Party("c1")
		require.Empty(t, p.Name)
		require.True(t, p.Balance.Equal(dec(100)))
		return nil
	}))

	repo.SwitchActive(ctx, nextID)
	require.NoError(t, repo.View(func(e *ledger.Engine) error {
		p, _ := e.Party("c1")
		require.Equal(t, "renamed in successor", p.Name)
		return nil
	}))
}
