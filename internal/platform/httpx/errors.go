package httpx

import (
	"errors"
	"net/http"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/period"
)

// RespondError maps ledger and period errors to RFC7807 responses. The
// caller keeps its prior state on every failure; nothing here is fatal.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrNotFoundEntity):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledger.ErrDuplicateID):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ledger.ErrDefaultAccount):
		Problem(w, http.StatusUnprocessableEntity, "Protected", err.Error())
	case errors.Is(err, period.ErrMalformedBackup):
		Problem(w, http.StatusBadRequest, "Malformed Input", err.Error())
	case errors.Is(err, period.ErrNoActivePeriod):
		Problem(w, http.StatusConflict, "No Active Period", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
