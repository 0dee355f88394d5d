// Package close implements the period rollover: closing one trading period
// and opening a successor whose opening balances equal the prior period's
// closing balances.
package close

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/period"
)

// OpeningBalanceCategory marks the synthetic adjustments a rollover records.
const OpeningBalanceCategory = "Opening Balance"

// Service orchestrates the rollover against the period repository.
type Service struct {
	repo    *period.Repository
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
	newID   func() string
}

// NewService constructs a Service instance.
func NewService(repo *period.Repository, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithIDFunc overrides id generation for deterministic tests.
func (s *Service) WithIDFunc(fn func() string) {
	if fn != nil {
		s.newID = fn
	}
}

// ClosePeriod snapshots the active period into a successor named nextName,
// persists it, makes it active and replays one opening BALANCE_ADJUSTMENT
// per party with a non-zero balance through the normal apply path. Accounts,
// products, the cash drawer and users carry forward verbatim; service jobs
// and warranty cases in a terminal status are dropped.
func (s *Service) ClosePeriod(ctx context.Context, nextName string) (string, error) {
	now := s.now()
	next := ledger.NewPeriod(s.newID(), nextName, now)
	var adjustments []*ledger.Transaction

	err := s.repo.View(func(e *ledger.Engine) error {
		cur := e.Period()
		next.Profile = cur.Profile
		next.DBConfig = copyConfig(cur.DBConfig)
		next.CloudConfig = copyConfig(cur.CloudConfig)

		// Balances on accounts already reflect reality; copy, never reset.
		next.Accounts = next.Accounts[:0]
		for _, a := range cur.Accounts {
			copied := *a
			next.Accounts = append(next.Accounts, &copied)
		}

		// Physical stock carries forward unchanged.
		for _, p := range cur.Products {
			copied := *p
			next.Products = append(next.Products, &copied)
		}

		next.CashDrawer = ledger.CashDrawer{
			Denominations: map[string]int{},
			LastUpdated:   cur.CashDrawer.LastUpdated,
		}
		for denom, count := range cur.CashDrawer.Denominations {
			next.CashDrawer.Denominations[denom] = count
		}

		for _, u := range cur.Users {
			copied := *u
			next.Users = append(next.Users, &copied)
		}

		// Only open operational work survives the rollover.
		for _, j := range cur.ServiceJobs {
			if j.Status.Terminal() {
				continue
			}
			copied := *j
			next.ServiceJobs = append(next.ServiceJobs, &copied)
		}
		for _, c := range cur.WarrantyCases {
			if c.Status.Terminal() {
				continue
			}
			copied := *c
			next.WarrantyCases = append(next.WarrantyCases, &copied)
		}

		// Parties restart at zero; an opening adjustment re-establishes each
		// non-zero balance through the engine's own impact path.
		for _, p := range cur.Parties {
			copied := *p
			if !p.Balance.IsZero() {
				adjustments = append(adjustments, &ledger.Transaction{
					ID:          s.newID(),
					Date:        now,
					Kind:        ledger.KindBalanceAdjustment,
					PartyID:     p.ID,
					TotalAmount: p.Balance,
					Category:    OpeningBalanceCategory,
					Notes:       fmt.Sprintf("Balance carried from %s", cur.Name),
				})
			}
			copied.Balance = decimal.Zero
			next.Parties = append(next.Parties, &copied)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.Save(ctx, next); err != nil {
		return "", fmt.Errorf("close: save successor: %w", err)
	}
	s.repo.SwitchActive(ctx, next.ID)

	err = s.repo.Update(func(e *ledger.Engine) error {
		for _, adj := range adjustments {
			e.ApplyTransaction(adj)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("close: replay opening adjustments: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RolloversTotal.Inc()
	}
	s.logger.Info("period closed",
		slog.String("next", next.ID),
		slog.String("name", nextName),
		slog.Int("openingAdjustments", len(adjustments)))
	return next.ID, nil
}

func copyConfig(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
