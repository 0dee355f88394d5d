package ledger

import "time"

// AddParty registers a caller-created party. The balance passed in is the
// opening balance; after this call it is owned by the engine.
func (e *Engine) AddParty(p *Party) error {
	if _, exists := e.parties[p.ID]; exists {
		return ErrDuplicateID
	}
	e.period.Parties = append(e.period.Parties, p)
	e.parties[p.ID] = p
	return nil
}

// UpdateParty replaces the party's identity and contact fields. The balance
// is engine-owned and deliberately not touched.
func (e *Engine) UpdateParty(id string, next Party) error {
	p, ok := e.parties[id]
	if !ok {
		return ErrNotFoundEntity
	}
	p.Name = next.Name
	p.Kind = next.Kind
	p.Phone = next.Phone
	p.Email = next.Email
	p.Address = next.Address
	return nil
}

// Party returns the party with the given id.
func (e *Engine) Party(id string) (*Party, bool) {
	p, ok := e.parties[id]
	return p, ok
}

// AddProduct registers a caller-created product. Stock passed in is the
// opening stock level.
func (e *Engine) AddProduct(p *Product) error {
	if _, exists := e.products[p.ID]; exists {
		return ErrDuplicateID
	}
	e.period.Products = append(e.period.Products, p)
	e.products[p.ID] = p
	return nil
}

// UpdateProduct replaces pricing and identity fields, keeping the
// engine-owned stock level.
func (e *Engine) UpdateProduct(id string, next Product) error {
	p, ok := e.products[id]
	if !ok {
		return ErrNotFoundEntity
	}
	p.Name = next.Name
	p.Kind = next.Kind
	p.SalePrice = next.SalePrice
	p.PurchasePrice = next.PurchasePrice
	p.MinStockLevel = next.MinStockLevel
	return nil
}

// Product returns the product with the given id.
func (e *Engine) Product(id string) (*Product, bool) {
	p, ok := e.products[id]
	return p, ok
}

// AddAccount registers a caller-created account.
func (e *Engine) AddAccount(a *Account) error {
	if _, exists := e.accounts[a.ID]; exists {
		return ErrDuplicateID
	}
	e.period.Accounts = append(e.period.Accounts, a)
	e.accounts[a.ID] = a
	return nil
}

// DeleteAccount removes an account. The default account is protected.
func (e *Engine) DeleteAccount(id string) error {
	a, ok := e.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if a.IsDefault || id == DefaultAccountID {
		return ErrDefaultAccount
	}
	delete(e.accounts, id)
	for i, cur := range e.period.Accounts {
		if cur.ID == id {
			e.period.Accounts = append(e.period.Accounts[:i], e.period.Accounts[i+1:]...)
			break
		}
	}
	return nil
}

// Account returns the account with the given id.
func (e *Engine) Account(id string) (*Account, bool) {
	a, ok := e.accounts[id]
	return a, ok
}

// AddServiceJob records a new repair ticket.
func (e *Engine) AddServiceJob(j *ServiceJob) {
	e.period.ServiceJobs = append(e.period.ServiceJobs, j)
}

// SetServiceJobStatus moves a job through its lifecycle.
func (e *Engine) SetServiceJobStatus(id string, status ServiceJobStatus) error {
	for _, j := range e.period.ServiceJobs {
		if j.ID == id {
			j.Status = status
			return nil
		}
	}
	return ErrNotFoundEntity
}

// AddWarrantyCase records a new warranty claim.
func (e *Engine) AddWarrantyCase(c *WarrantyCase) {
	e.period.WarrantyCases = append(e.period.WarrantyCases, c)
}

// SetWarrantyStatus moves a case through its lifecycle.
func (e *Engine) SetWarrantyStatus(id string, status WarrantyStatus) error {
	for _, c := range e.period.WarrantyCases {
		if c.ID == id {
			c.Status = status
			return nil
		}
	}
	return ErrNotFoundEntity
}

// AddUser registers an operator account.
func (e *Engine) AddUser(u *User) error {
	for _, cur := range e.period.Users {
		if cur.ID == u.ID {
			return ErrDuplicateID
		}
	}
	e.period.Users = append(e.period.Users, u)
	return nil
}

// UserByName finds an operator by login name.
func (e *Engine) UserByName(name string) (*User, bool) {
	for _, u := range e.period.Users {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// SetCashDrawer replaces the denomination counts. The drawer is manual
// bookkeeping, independent of the transaction log.
func (e *Engine) SetCashDrawer(denominations map[string]int, now time.Time) {
	if denominations == nil {
		denominations = map[string]int{}
	}
	e.period.CashDrawer = CashDrawer{Denominations: denominations, LastUpdated: now}
}
