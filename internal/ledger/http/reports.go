package ledgerhttp

import (
	"net/http"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/platform/httpx"
)

// summaryResponse aggregates the derived balances of the active period.
// Display fields carry grouped formatting for the UI; the raw decimal
// strings stay exact.
type summaryResponse struct {
	Period           string   `json:"period"`
	Receivables      string   `json:"receivables"`
	Payables         string   `json:"payables"`
	AccountsTotal    string   `json:"accountsTotal"`
	StockValue       string   `json:"stockValue"`
	ReceivablesText  string   `json:"receivablesText"`
	PayablesText     string   `json:"payablesText"`
	AccountsText     string   `json:"accountsText"`
	StockValueText   string   `json:"stockValueText"`
	TransactionCount int      `json:"transactionCount"`
	LowStockProducts []string `json:"lowStockProducts"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	var out summaryResponse
	err := h.repo.View(func(e *ledger.Engine) error {
		p := e.Period()
		out.Period = p.Name
		out.TransactionCount = len(p.Transactions)

		receivables, payables := decimal.Zero, decimal.Zero
		for _, party := range p.Parties {
			switch {
			case party.Balance.IsPositive():
				receivables = receivables.Add(party.Balance)
			case party.Balance.IsNegative():
				payables = payables.Add(party.Balance.Neg())
			}
		}
		accounts := decimal.Zero
		for _, a := range p.Accounts {
			accounts = accounts.Add(a.Balance)
		}
		stockValue := decimal.Zero
		low := 0
		for _, prod := range p.Products {
			if prod.Kind != ledger.ProductGoods {
				continue
			}
			stockValue = stockValue.Add(prod.PurchasePrice.Mul(decimal.NewFromFloat(prod.Stock)))
			if prod.Stock <= prod.MinStockLevel {
				low++
				out.LowStockProducts = append(out.LowStockProducts, prod.Name)
			}
		}
		h.metrics.LowStockProducts.Set(float64(low))

		printer := message.NewPrinter(language.English)
		out.Receivables = receivables.String()
		out.Payables = payables.String()
		out.AccountsTotal = accounts.String()
		out.StockValue = stockValue.String()
		out.ReceivablesText = printer.Sprintf("%.2f", receivables.InexactFloat64())
		out.PayablesText = printer.Sprintf("%.2f", payables.InexactFloat64())
		out.AccountsText = printer.Sprintf("%.2f", accounts.InexactFloat64())
		out.StockValueText = printer.Sprintf("%.2f", stockValue.InexactFloat64())
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
