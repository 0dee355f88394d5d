// Seeds a demo period so a fresh install has something to sell. Idempotent:
// an existing period with the same id is overwritten.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/tillbook/tillbook/internal/app"
	"github.com/tillbook/tillbook/internal/ledger"
	"github.com/tillbook/tillbook/internal/period"
	"github.com/tillbook/tillbook/internal/platform/cache"
	"github.com/tillbook/tillbook/internal/platform/db"
	"github.com/tillbook/tillbook/internal/platform/store"
)

const demoPeriodID = "demo"

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	blobStore, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("connect store: %v", err)
	}
	defer cleanup()

	logger := slog.Default()
	repo := period.NewRepository(blobStore, period.NewSyncWriter(blobStore, logger, nil), period.NewNotifier(), logger)

	fmt.Println("→ Seeding demo period...")
	p := buildDemoPeriod()
	if err := repo.Save(ctx, p); err != nil {
		log.Fatalf("save period: %v", err)
	}
	fmt.Printf("✓ Seeded period %q with %d products, %d parties, %d users\n",
		p.ID, len(p.Products), len(p.Parties), len(p.Users))
	fmt.Printf("  Activate it with ACTIVE_PERIOD=%s\n", p.ID)
}

func buildDemoPeriod() *ledger.Period {
	now := time.Now().UTC()
	p := ledger.NewPeriod(demoPeriodID, "Demo FY", now)

	p.Products = []*ledger.Product{
		{ID: "prod-cable", Name: "USB-C Cable", Kind: ledger.ProductGoods, SalePrice: dec("4500"), PurchasePrice: dec("2800"), Stock: 40, MinStockLevel: 10},
		{ID: "prod-charger", Name: "Fast Charger 30W", Kind: ledger.ProductGoods, SalePrice: dec("18000"), PurchasePrice: dec("12500"), Stock: 15, MinStockLevel: 5},
		{ID: "prod-screen", Name: "Screen Protector", Kind: ledger.ProductGoods, SalePrice: dec("3000"), PurchasePrice: dec("1200"), Stock: 80, MinStockLevel: 20},
		{ID: "prod-repair", Name: "Screen Repair", Kind: ledger.ProductService, SalePrice: dec("25000")},
	}
	p.Parties = []*ledger.Party{
		{ID: "cust-aung", Name: "Aung Traders", Kind: ledger.PartyCustomer, Phone: "09-111222333"},
		{ID: "cust-hla", Name: "Hla Electronics", Kind: ledger.PartyCustomer, Phone: "09-444555666"},
		{ID: "supp-golden", Name: "Golden Import Co", Kind: ledger.PartySupplier, Phone: "09-777888999"},
	}
	p.Accounts = append(p.Accounts, &ledger.Account{ID: "acc-bank", Name: "KBZ Bank"})

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	p.Users = []*ledger.User{
		{ID: "user-owner", Name: "owner", Role: "owner", PasswordHash: string(hash)},
	}
	return p
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Fatalf("parse decimal %q: %v", v, err)
	}
	return d
}

func buildStore(ctx context.Context, cfg *app.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	case "memory":
		fmt.Fprintln(os.Stderr, "refusing to seed the in-memory store: nothing would survive this process")
		os.Exit(1)
		return nil, nil, nil
	default:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedis(client), func() { _ = client.Close() }, nil
	}
}
