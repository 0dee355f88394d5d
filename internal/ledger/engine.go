package ledger

import (
	"github.com/shopspring/decimal"
)

// Engine owns one period's in-memory state. Every balance field on parties,
// products and accounts is exclusively mutated here, as a function of the
// transactions currently applied. The engine is not safe for concurrent use;
// the owning repository serialises calls.
type Engine struct {
	period *Period

	txIndex  map[string]*Transaction
	parties  map[string]*Party
	products map[string]*Product
	accounts map[string]*Account
}

// NewEngine wraps a period and builds the id indexes.
func NewEngine(p *Period) *Engine {
	e := &Engine{period: p}
	e.Reindex()
	return e
}

// Period exposes the owned state for read-only snapshots and persistence.
func (e *Engine) Period() *Period {
	return e.period
}

// Reset swaps the owned period, rebuilding all indexes.
func (e *Engine) Reset(p *Period) {
	e.period = p
	e.Reindex()
}

// Reindex rebuilds the id lookups after the period was replaced wholesale,
// e.g. by a load or a backup restore.
func (e *Engine) Reindex() {
	e.txIndex = make(map[string]*Transaction, len(e.period.Transactions))
	for _, t := range e.period.Transactions {
		e.txIndex[t.ID] = t
	}
	e.parties = make(map[string]*Party, len(e.period.Parties))
	for _, p := range e.period.Parties {
		e.parties[p.ID] = p
	}
	e.products = make(map[string]*Product, len(e.period.Products))
	for _, p := range e.period.Products {
		e.products[p.ID] = p
	}
	e.accounts = make(map[string]*Account, len(e.period.Accounts))
	for _, a := range e.period.Accounts {
		e.accounts[a.ID] = a
	}
}

// ApplyTransaction appends t to the log and applies its value impact to the
// party, stock and account surfaces. References to absent entities are
// skipped on that surface; this is best-effort policy, not an error.
func (e *Engine) ApplyTransaction(t *Transaction) {
	e.period.Transactions = append(e.period.Transactions, t)
	e.txIndex[t.ID] = t
	e.impact(t, 1)
}

// UpdateTransaction replaces the stored transaction wholesale. The old
// impact is reversed before the new one is applied, so a transaction that
// references the same party, product or account before and after is counted
// exactly once.
func (e *Engine) UpdateTransaction(id string, next *Transaction) error {
	old, ok := e.txIndex[id]
	if !ok {
		return ErrTransactionNotFound
	}
	e.impact(old, -1)
	next.ID = id
	*old = *next
	e.impact(old, 1)
	return nil
}

// DeleteTransaction reverses t's impact and removes it from the log. A
// missing id is a no-op.
func (e *Engine) DeleteTransaction(id string) {
	t, ok := e.txIndex[id]
	if !ok {
		return
	}
	e.impact(t, -1)
	delete(e.txIndex, id)
	for i, cur := range e.period.Transactions {
		if cur.ID == id {
			e.period.Transactions = append(e.period.Transactions[:i], e.period.Transactions[i+1:]...)
			break
		}
	}
}

// Transaction returns the applied transaction with the given id.
func (e *Engine) Transaction(id string) (*Transaction, bool) {
	t, ok := e.txIndex[id]
	return t, ok
}

// impact applies the signed value of t to all three balance surfaces,
// scaled by factor (+1 to apply, -1 to reverse). The kind dispatch is a
// total function over the closed kind set; kinds outside the table still
// debit the attached account, preserving the historical fallthrough for
// EXPENSE, QUOTATION and PURCHASE_ORDER.
func (e *Engine) impact(t *Transaction, factor int64) {
	f := decimal.NewFromInt(factor)
	total := t.TotalAmount.Mul(f)

	var partyDelta, accountDelta decimal.Decimal
	var stockDir float64

	switch t.Kind {
	case KindSale:
		partyDelta, accountDelta, stockDir = total, total, -1
	case KindPurchase:
		partyDelta, accountDelta, stockDir = total.Neg(), total.Neg(), 1
	case KindPaymentIn:
		partyDelta, accountDelta = total.Neg(), total
	case KindPaymentOut:
		partyDelta, accountDelta = total, total.Neg()
	case KindSaleReturn:
		partyDelta, accountDelta, stockDir = total.Neg(), total.Neg(), 1
	case KindPurchaseReturn:
		partyDelta, accountDelta, stockDir = total, total, -1
	case KindBalanceAdjustment:
		// Stored amount is already signed.
		partyDelta, accountDelta = total, total
	default:
		// EXPENSE, QUOTATION, PURCHASE_ORDER: no party or stock movement,
		// but an attached account is still debited.
		accountDelta = total.Neg()
	}

	if t.PartyID != "" && !partyDelta.IsZero() {
		if p, ok := e.parties[t.PartyID]; ok {
			p.Balance = p.Balance.Add(partyDelta)
		}
	}
	if t.AccountID != "" && !accountDelta.IsZero() {
		if a, ok := e.accounts[t.AccountID]; ok {
			a.Balance = a.Balance.Add(accountDelta)
		}
	}
	if stockDir != 0 {
		for _, item := range t.Items {
			p, ok := e.products[item.ProductID]
			if !ok || p.Kind == ProductService {
				continue
			}
			p.Stock += stockDir * item.Quantity * float64(factor)
		}
	}
}
