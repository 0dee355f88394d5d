// Package ledger holds the in-memory state of one trading period and keeps
// every derived balance (party, stock, account) consistent with the
// transaction log applied to it.
package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PartyKind distinguishes the two sides a business trades with.
type PartyKind string

const (
	// PartyCustomer buys from the business.
	PartyCustomer PartyKind = "customer"
	// PartySupplier sells to the business.
	PartySupplier PartyKind = "supplier"
)

// Party is a customer or supplier. Balance follows the debit-positive
// convention and is owned by the engine; callers set it only as an opening
// balance at creation time.
type Party struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Kind    PartyKind       `json:"kind"`
	Phone   string          `json:"phone,omitempty"`
	Email   string          `json:"email,omitempty"`
	Address string          `json:"address,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}

// ProductKind separates stocked goods from services.
type ProductKind string

const (
	// ProductGoods is a stocked item.
	ProductGoods ProductKind = "goods"
	// ProductService carries no stock; quantity movements are ignored.
	ProductService ProductKind = "service"
)

// Product is a sellable item. Stock is owned by the engine and meaningless
// for services.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Kind          ProductKind     `json:"kind"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	Stock         float64         `json:"stock"`
	MinStockLevel float64         `json:"minStockLevel"`
}

// DefaultAccountID is the deletion-protected cash account present in every
// period.
const DefaultAccountID = "1"

// Account is a cash or bank ledger. Balance is owned by the engine.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	IsDefault bool            `json:"isDefault"`
}

// TransactionKind enumerates the closed set of transaction types.
type TransactionKind string

const (
	KindSale              TransactionKind = "SALE"
	KindPurchase          TransactionKind = "PURCHASE"
	KindPaymentIn         TransactionKind = "PAYMENT_IN"
	KindPaymentOut        TransactionKind = "PAYMENT_OUT"
	KindSaleReturn        TransactionKind = "SALE_RETURN"
	KindPurchaseReturn    TransactionKind = "PURCHASE_RETURN"
	KindBalanceAdjustment TransactionKind = "BALANCE_ADJUSTMENT"
	KindExpense           TransactionKind = "EXPENSE"
	KindQuotation         TransactionKind = "QUOTATION"
	KindPurchaseOrder     TransactionKind = "PURCHASE_ORDER"
)

// LineItem is one product movement inside a transaction.
type LineItem struct {
	ProductID string          `json:"productId"`
	Quantity  float64         `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}

// Transaction is one entry of the period's log. TotalAmount is non-negative
// for every kind except BALANCE_ADJUSTMENT, which stores a signed amount.
type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Kind        TransactionKind `json:"kind"`
	PartyID     string          `json:"partyId,omitempty"`
	AccountID   string          `json:"accountId,omitempty"`
	Items       []LineItem      `json:"items,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Notes       string          `json:"notes,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// CashDrawer tracks physical cash by denomination. It is edited manually,
// never derived from the log, and carries across rollover verbatim.
type CashDrawer struct {
	Denominations map[string]int `json:"denominations"`
	LastUpdated   time.Time      `json:"lastUpdated"`
}

// ServiceJobStatus enumerates repair-job states.
type ServiceJobStatus string

const (
	JobReceived   ServiceJobStatus = "RECEIVED"
	JobInProgress ServiceJobStatus = "IN_PROGRESS"
	JobReady      ServiceJobStatus = "READY"
	JobDelivered  ServiceJobStatus = "DELIVERED"
	JobCancelled  ServiceJobStatus = "CANCELLED"
)

// Terminal reports whether the job is finished work that does not carry
// into the next period.
func (s ServiceJobStatus) Terminal() bool {
	return s == JobDelivered || s == JobCancelled
}

// ServiceJob is an open repair ticket.
type ServiceJob struct {
	ID         string           `json:"id"`
	PartyID    string           `json:"partyId,omitempty"`
	Device     string           `json:"device"`
	Problem    string           `json:"problem,omitempty"`
	Status     ServiceJobStatus `json:"status"`
	Estimate   decimal.Decimal  `json:"estimate"`
	ReceivedAt time.Time        `json:"receivedAt"`
}

// WarrantyStatus enumerates warranty-case states.
type WarrantyStatus string

const (
	WarrantyOpen      WarrantyStatus = "OPEN"
	WarrantyInReview  WarrantyStatus = "IN_REVIEW"
	WarrantyResolved  WarrantyStatus = "RESOLVED"
	WarrantyClosed    WarrantyStatus = "CLOSED"
	WarrantyCancelled WarrantyStatus = "CANCELLED"
)

// Terminal reports whether the case is settled and does not carry forward.
func (s WarrantyStatus) Terminal() bool {
	return s == WarrantyClosed || s == WarrantyCancelled
}

// WarrantyCase is a product claim under warranty.
type WarrantyCase struct {
	ID        string         `json:"id"`
	PartyID   string         `json:"partyId,omitempty"`
	ProductID string         `json:"productId,omitempty"`
	Issue     string         `json:"issue"`
	Status    WarrantyStatus `json:"status"`
	OpenedAt  time.Time      `json:"openedAt"`
}

// User is an operator account stored inside the period.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// Profile holds the business identity shown on documents.
type Profile struct {
	BusinessName string `json:"businessName"`
	OwnerName    string `json:"ownerName,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	Currency     string `json:"currency,omitempty"`
}

// Period is one business year: a named container owning a full copy of every
// collection plus configuration blobs. The JSON shape doubles as the backing
// store blob and the backup-file contract.
type Period struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	CreatedAt     time.Time         `json:"createdAt"`
	Profile       Profile           `json:"profile"`
	Transactions  []*Transaction    `json:"transactions"`
	Products      []*Product        `json:"products"`
	Parties       []*Party          `json:"parties"`
	Accounts      []*Account        `json:"accounts"`
	ServiceJobs   []*ServiceJob     `json:"serviceJobs"`
	WarrantyCases []*WarrantyCase   `json:"warrantyCases"`
	CashDrawer    CashDrawer        `json:"cashDrawer"`
	Users         []*User           `json:"users"`
	DBConfig      map[string]string `json:"dbConfig"`
	CloudConfig   map[string]string `json:"cloudConfig"`
}

// NewPeriod returns an empty period seeded with the default cash account.
func NewPeriod(id, name string, now time.Time) *Period {
	return &Period{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		Accounts: []*Account{
			{ID: DefaultAccountID, Name: "Cash", IsDefault: true},
		},
		Transactions:  []*Transaction{},
		Products:      []*Product{},
		Parties:       []*Party{},
		ServiceJobs:   []*ServiceJob{},
		WarrantyCases: []*WarrantyCase{},
		Users:         []*User{},
		CashDrawer:    CashDrawer{Denominations: map[string]int{}},
		DBConfig:      map[string]string{},
		CloudConfig:   map[string]string{},
	}
}

var (
	// ErrTransactionNotFound indicates an update against an unknown transaction id.
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
	// ErrDefaultAccount indicates an attempt to delete the protected default account.
	ErrDefaultAccount = errors.New("ledger: default account cannot be deleted")
	// ErrAccountNotFound indicates a delete against an unknown account id.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrDuplicateID indicates a create with an id already taken.
	ErrDuplicateID = errors.New("ledger: id already exists")
	// ErrNotFoundEntity indicates an update against an unknown entity id.
	ErrNotFoundEntity = errors.New("ledger: entity not found")
)
