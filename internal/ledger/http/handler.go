// Package ledgerhttp exposes the ledger engine over a thin JSON API. The
// handlers carry no business logic: they decode, validate shape, call one
// engine operation through the repository and re-read state for the reply.
package ledgerhttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/period"
	"github.com/tillbook/tillbook/internal/platform/httpx"
)

// Handler serves the ledger endpoints for the active period.
type Handler struct {
	logger   *slog.Logger
	repo     *period.Repository
	metrics  *observability.Metrics
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, repo *period.Repository, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		repo:     repo,
		metrics:  metrics,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Routes mounts every ledger endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.listTransactions)
		r.Post("/", h.createTransaction)
		r.Put("/{id}", h.updateTransaction)
		r.Delete("/{id}", h.deleteTransaction)
	})
	r.Route("/parties", func(r chi.Router) {
		r.Get("/", h.listParties)
		r.Post("/", h.createParty)
		r.Put("/{id}", h.updateParty)
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Put("/{id}", h.updateProduct)
	})
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.Post("/", h.createAccount)
		r.Delete("/{id}", h.deleteAccount)
	})
	r.Route("/service-jobs", func(r chi.Router) {
		r.Get("/", h.listServiceJobs)
		r.Post("/", h.createServiceJob)
		r.Put("/{id}/status", h.setServiceJobStatus)
	})
	r.Route("/warranty-cases", func(r chi.Router) {
		r.Get("/", h.listWarrantyCases)
		r.Post("/", h.createWarrantyCase)
		r.Put("/{id}/status", h.setWarrantyStatus)
	})
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
	})
	r.Route("/cash-drawer", func(r chi.Router) {
		r.Get("/", h.getCashDrawer)
		r.Put("/", h.setCashDrawer)
	})
	r.Get("/reports/summary", h.summary)
}

type lineItemRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  float64         `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}

type transactionRequest struct {
	ID          string            `json:"id"`
	Date        time.Time         `json:"date"`
	Kind        string            `json:"kind" validate:"required,oneof=SALE PURCHASE PAYMENT_IN PAYMENT_OUT SALE_RETURN PURCHASE_RETURN BALANCE_ADJUSTMENT EXPENSE QUOTATION PURCHASE_ORDER"`
	PartyID     string            `json:"partyId"`
	AccountID   string            `json:"accountId"`
	Items       []lineItemRequest `json:"items" validate:"dive"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Notes       string            `json:"notes"`
	Category    string            `json:"category"`
}

func (h *Handler) decodeTransaction(w http.ResponseWriter, r *http.Request) (*ledger.Transaction, bool) {
	var req transactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Input", err.Error())
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return nil, false
	}
	kind := ledger.TransactionKind(req.Kind)
	if kind != ledger.KindBalanceAdjustment && req.TotalAmount.IsNegative() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "totalAmount must not be negative")
		return nil, false
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Date.IsZero() {
		req.Date = h.now()
	}
	items := make([]ledger.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ledger.LineItem{ProductID: item.ProductID, Quantity: item.Quantity, Amount: item.Amount})
	}
	return &ledger.Transaction{
		ID:          req.ID,
		Date:        req.Date,
		Kind:        kind,
		PartyID:     req.PartyID,
		AccountID:   req.AccountID,
		Items:       items,
		TotalAmount: req.TotalAmount,
		Notes:       req.Notes,
		Category:    req.Category,
	}, true
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.decodeTransaction(w, r)
	if !ok {
		return
	}
	err := h.repo.Update(func(e *ledger.Engine) error {
		e.ApplyTransaction(tx)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.TransactionsTotal.WithLabelValues("apply").Inc()
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, ok := h.decodeTransaction(w, r)
	if !ok {
		return
	}
	err := h.repo.Update(func(e *ledger.Engine) error {
		return e.UpdateTransaction(id, tx)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.TransactionsTotal.WithLabelValues("update").Inc()
	httpx.JSON(w, http.StatusOK, tx)
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.repo.Update(func(e *ledger.Engine) error {
		e.DeleteTransaction(id)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.TransactionsTotal.WithLabelValues("delete").Inc()
	httpx.NoContent(w)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	var out []*ledger.Transaction
	err := h.repo.View(func(e *ledger.Engine) error {
		out = append(out, e.Period().Transactions...)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type partyRequest struct {
	ID      string          `json:"id"`
	Name    string          `json:"name" validate:"required"`
	Kind    string          `json:"kind" validate:"required,oneof=customer supplier"`
	Phone   string          `json:"phone"`
	Email   string          `json:"email" validate:"omitempty,email"`
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

func (h *Handler) createParty(w http.ResponseWriter, r *http.Request) {
	var req partyRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	party := &ledger.Party{
		ID:      req.ID,
		Name:    req.Name,
		Kind:    ledger.PartyKind(req.Kind),
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		// Opening balance: the one moment the caller may set it.
		Balance: req.Balance,
	}
	err := h.repo.Update(func(e *ledger.Engine) error {
		return e.AddParty(party)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, party)
}

func (h *Handler) updateParty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req partyRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	next := ledger.Party{
		Name:    req.Name,
		Kind:    ledger.PartyKind(req.Kind),
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	}
	var out *ledger.Party
	err := h.repo.Update(func(e *ledger.Engine) error {
		if err := e.UpdateParty(id, next); err != nil {
			return err
		}
		out, _ = e.Party(id)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listParties(w http.ResponseWriter, r *http.Request) {
	var out []*ledger.Party
	err := h.repo.View(func(e *ledger.Engine) error {
		out = append(out, e.Period().Parties...)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type productRequest struct {
	ID            string          `json:"id"`
	Name          string          `json:"name" validate:"required"`
	Kind          string          `json:"kind" validate:"required,oneof=goods service"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	Stock         float64         `json:"stock"`
	MinStockLevel float64         `json:"minStockLevel"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	product := &ledger.Product{
		ID:            req.ID,
		Name:          req.Name,
		Kind:          ledger.ProductKind(req.Kind),
		SalePrice:     req.SalePrice,
		PurchasePrice: req.PurchasePrice,
		Stock:         req.Stock,
		MinStockLevel: req.MinStockLevel,
	}
	err := h.repo.Update(func(e *ledger.Engine) error {
		return e.AddProduct(product)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req productRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	next := ledger.Product{
		Name:          req.Name,
		Kind:          ledger.ProductKind(req.Kind),
		SalePrice:     req.SalePrice,
		PurchasePrice: req.PurchasePrice,
		MinStockLevel: req.MinStockLevel,
	}
	var out *ledger.Product
	err := h.repo.Update(func(e *ledger.Engine) error {
		if err := e.UpdateProduct(id, next); err != nil {
			return err
		}
		out, _ = e.Product(id)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var out []*ledger.Product
	err := h.repo.View(func(e *ledger.Engine) error {
		out = append(out, e.Period().Products...)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type accountRequest struct {
	ID      string          `json:"id"`
	Name    string          `json:"name" validate:"required"`
	Balance decimal.Decimal `json:"balance"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	account := &ledger.Account{ID: req.ID, Name: req.Name, Balance: req.Balance}
	err := h.repo.Update(func(e *ledger.Engine) error {
		return e.AddAccount(account)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.repo.Update(func(e *ledger.Engine) error {
		return e.DeleteAccount(id)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	var out []*ledger.Account
	err := h.repo.View(func(e *ledger.Engine) error {
		out = append(out, e.Period().Accounts...)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type serviceJobRequest struct {
	ID       string          `json:"id"`
	PartyID  string          `json:"partyId"`
	Device   string          `json:"device" validate:"required"`
	Problem  string          `json:"problem"`
	Estimate decimal.Decimal `json:"estimate"`
}

func (h *Handler) createServiceJob(w http.ResponseWriter, r *http.Request) {
	var req serviceJobRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	job := &ledger.ServiceJob{
		ID:         req.ID,
		PartyID:    req.PartyID,
		Device:     req.Device,
		Problem:    req.Problem,
		Status:     ledger.JobReceived,
		Estimate:   req.Estimate,
		ReceivedAt: h.now(),
	}
	err := h.repo.Update(func(e *ledger.Engine) error {
		e.AddServiceJob(job)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, job)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) setServiceJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req statusRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	err := h.repo.Update(func(e *ledger.Engine) error {
		return e.SetServiceJobStatus(id, ledger.ServiceJobStatus(req.Status))
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listServiceJobs(w http.ResponseWriter, r *http.Request) {
	var out []*ledger.ServiceJob
	err := h.repo.View(func(e *ledger.Engine) error {
		out = append(out, e.Period().ServiceJobs...)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type warrantyCaseRequest struct {
	ID        string `json:"id"`
	PartyID   string `json:"partyId"`
	ProductID string `json:"productId"`
	Issue     string `json:"issue" validate:"required"`
}

func (h *Handler) createWarrantyCase(w http.ResponseWriter, r *http.Request) {
	var req warrantyCaseRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	wc := &ledger.WarrantyCase{
		ID:        req.ID,
		PartyID:   req.PartyID,
		ProductID: req.ProductID,
		Issue:     req.Issue,
		Status:    ledger.WarrantyOpen,
		OpenedAt:  h.now(),
	}
	err := h.repo.Update(func(e *ledger.Engine) error {
		e.AddWarrantyCase(wc)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, wc)
}

func (h *Handler) setWarrantyStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req statusRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	err := h.repo.Update(func(e *ledger.Engine) error {
		return e.SetWarrantyStatus(id, ledger.WarrantyStatus(req.Status))
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listWarrantyCases(w http.ResponseWriter, r *http.Request) {
	var out []*ledger.WarrantyCase
	err := h.repo.View(func(e *ledger.Engine) error {
		out = append(out, e.Period().WarrantyCases...)
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type userRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=owner manager cashier"`
	Password string `json:"password" validate:"required,min=6"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	user := &ledger.User{ID: req.ID, Name: req.Name, Role: req.Role, PasswordHash: string(hash)}
	err = h.repo.Update(func(e *ledger.Engine) error {
		return e.AddUser(user)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, userResponse{ID: user.ID, Name: user.Name, Role: user.Role})
}

type userResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	var out []userResponse
	err := h.repo.View(func(e *ledger.Engine) error {
		for _, u := range e.Period().Users {
			out = append(out, userResponse{ID: u.ID, Name: u.Name, Role: u.Role})
		}
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type cashDrawerRequest struct {
	Denominations map[string]int `json:"denominations" validate:"required"`
}

func (h *Handler) getCashDrawer(w http.ResponseWriter, r *http.Request) {
	var out ledger.CashDrawer
	err := h.repo.View(func(e *ledger.Engine) error {
		out = e.Period().CashDrawer
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) setCashDrawer(w http.ResponseWriter, r *http.Request) {
	var req cashDrawerRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	err := h.repo.Update(func(e *ledger.Engine) error {
		e.SetCashDrawer(req.Denominations, h.now())
		return nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Input", err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}
