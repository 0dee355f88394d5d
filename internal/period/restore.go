package period

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/tillbook/tillbook/internal/ledger"
)

// ErrMalformedBackup indicates restore input that is not a JSON object.
var ErrMalformedBackup = errors.New("period: malformed backup data")

// Restore replaces the active period's entire cache with the backup
// content. Missing top-level keys fall back to empty defaults rather than
// failing; the period keeps its id and name. The new state is persisted and
// the change signal fires.
func (r *Repository) Restore(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrMalformedBackup
	}
	return r.Update(func(e *ledger.Engine) error {
		cur := e.Period()
		next := ledger.NewPeriod(cur.ID, cur.Name, r.now())
		next.CreatedAt = cur.CreatedAt
		if err := json.Unmarshal(trimmed, next); err != nil {
			return ErrMalformedBackup
		}
		// The backup never carries identity; keep the period's own.
		next.ID = cur.ID
		next.Name = cur.Name
		e.Reset(next)
		return nil
	})
}
