package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/ledger"
	"github.com/radieske/game-round-engine-poc/internal/testutil"
)

func TestGetOrCreateWallet_Idempotent(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := ledger.NewPostgres(db)

	id1, bal, err := store.GetOrCreateWallet(ctx, "wallet-user-1")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if bal != 0 {
		t.Errorf("new wallet balance = %d, want 0", bal)
	}

	id2, _, err := store.GetOrCreateWallet(ctx, "wallet-user-1")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if id1 != id2 {
		t.Errorf("wallet ids differ: %s vs %s", id1, id2)
	}
}

func TestDeposit_CreditsAndAppends(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := ledger.NewPostgres(db)

	bal, err := store.Deposit(ctx, "deposit-user", 1500, "dep-1")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if bal != 1500 {
		t.Errorf("balance = %d, want 1500", bal)
	}

	entries, err := store.EntriesByUser(ctx, "deposit-user", 1, 10)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.AmountCents != 1500 || e.Reason != ledger.ReasonDeposit || e.ReferenceID != "dep-1" {
		t.Errorf("entry = %+v, want 1500 deposit dep-1", e)
	}
}

func TestDeposit_SameReferenceCreditsOnce(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := ledger.NewPostgres(db)

	if _, err := store.Deposit(ctx, "idem-user", 500, "topup-1"); err != nil {
		t.Fatalf("first deposit: %v", err)
	}

	// reenvio do mesmo external_ref: devolve o saldo sem creditar de novo
	bal, err := store.Deposit(ctx, "idem-user", 500, "topup-1")
	if err != nil {
		t.Fatalf("repeated deposit: %v", err)
	}
	if bal != 500 {
		t.Errorf("balance after repeat = %d, want 500", bal)
	}

	entries, err := store.EntriesByReference(ctx, "topup-1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d ledger entries, want 1", len(entries))
	}

	// uma referência nova credita normalmente
	if bal, err = store.Deposit(ctx, "idem-user", 300, "topup-2"); err != nil || bal != 800 {
		t.Errorf("new reference: balance = %d (err %v), want 800", bal, err)
	}
}

func TestApply_InsufficientFunds(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := ledger.NewPostgres(db)

	if _, err := store.Deposit(ctx, "poor-user", 100, "dep-1"); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = ledger.Apply(ctx, tx, "poor-user", -200, ledger.ReasonBetPlaced, "bet-1")
	tx.Rollback()
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}

	bal, err := store.Balance(ctx, "poor-user")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 100 {
		t.Errorf("balance after rejected debit = %d, want 100", bal)
	}
}

func TestApplyUnchecked_AllowsNegativeBalance(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := ledger.NewPostgres(db)

	if _, err := store.Deposit(ctx, "clawback-user", 100, "dep-1"); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// reversão de um pagamento já gasto: o saldo pode ficar negativo
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := ledger.ApplyUnchecked(ctx, tx, "clawback-user", -600, ledger.ReasonSettlementReversed, "bet-1"); err != nil {
		tx.Rollback()
		t.Fatalf("apply unchecked: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	bal, err := store.Balance(ctx, "clawback-user")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != -500 {
		t.Errorf("balance = %d, want -500", bal)
	}
}

func TestEntriesByReference(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	store := ledger.NewPostgres(db)

	if _, err := store.Deposit(ctx, "ref-user-a", 100, "shared-ref"); err != nil {
		t.Fatalf("deposit a: %v", err)
	}
	if _, err := store.Deposit(ctx, "ref-user-b", 200, "shared-ref"); err != nil {
		t.Fatalf("deposit b: %v", err)
	}

	entries, err := store.EntriesByReference(ctx, "shared-ref")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestBalance_UnknownUser(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	_, err := ledger.NewPostgres(db).Balance(context.Background(), "nobody")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
