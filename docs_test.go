package rosca_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/bank"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/store/memory"
	"github.com/xraph/rosca/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and behave as described.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Memory store for demo, use PostgreSQL in production.
		store := memory.New()
		vault := bank.NewVault()

		engine := rosca.NewEngine(store, vault,
			rosca.WithLogger(slog.Default()),
			rosca.WithJournalConfig(100, 5*time.Second),
		)

		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		p, err := engine.CreatePool(ctx, "march circle", pool.Config{
			Operator:        "treasurer",
			MinContribution: rosca.USD(1000),
			Quota:           2,
		})
		if err != nil {
			t.Fatalf("failed to create pool: %v", err)
		}

		for _, who := range []rosca.Identity{"alice", "bob"} {
			if err := engine.Contribute(ctx, p.ID, who, rosca.USD(1000)); err != nil {
				t.Fatalf("contribute %s: %v", who, err)
			}
		}

		// Without escrow the vault only sees outgoing payouts.
		if err := vault.Deposit(bank.PoolAccount(p.ID), rosca.USD(2000)); err != nil {
			t.Fatal(err)
		}

		req, err := engine.RequestPayout(ctx, p.ID, "alice")
		if err != nil {
			t.Fatalf("request payout: %v", err)
		}
		if req.Amount != rosca.USD(2000) {
			t.Errorf("expected request for $20.00, got %s", req.Amount)
		}

		payout, err := engine.ApprovePayout(ctx, p.ID, "treasurer", req.Requester)
		if err != nil {
			t.Fatalf("approve payout: %v", err)
		}
		if payout.Recipient != "alice" {
			t.Errorf("expected alice to be paid, got %s", payout.Recipient)
		}
		if got := vault.Balance("alice"); got != rosca.USD(2000) {
			t.Errorf("expected alice balance $20.00, got %s", got)
		}
	})

	t.Run("MoneyExamples", func(t *testing.T) {
		price := rosca.USD(4900)
		if price.String() != "$49.00" {
			t.Errorf("expected $49.00, got %s", price.String())
		}

		total := price.Add(rosca.USD(100))
		if total.Amount != 5000 {
			t.Errorf("expected 5000, got %d", total.Amount)
		}

		if !price.LessThan(total) {
			t.Error("expected price to be less than total")
		}

		yen := rosca.JPY(100)
		if yen.FormatMajor() != "100" {
			t.Errorf("expected 100, got %s", yen.FormatMajor())
		}

		parsed, err := types.ParseMajor("12.34", "eur")
		if err != nil {
			t.Fatal(err)
		}
		if parsed != rosca.EUR(1234) {
			t.Errorf("expected €12.34, got %s", parsed)
		}

		if !rosca.Zero("gbp").IsZero() {
			t.Error("expected zero value")
		}
	})
}
