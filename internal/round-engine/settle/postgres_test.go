package settle_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/admission"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/dice"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/ledger"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/outcome"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/settle"
	"github.com/radieske/game-round-engine-poc/internal/testutil"
)

type fixture struct {
	db      *sql.DB
	engine  *settle.Engine
	rounds  *round.Postgres
	games   *dice.Postgres
	adm     *admission.Postgres
	wallets *ledger.Postgres
}

func newFixture(t *testing.T) (fixture, func()) {
	t.Helper()
	db, cleanup := testutil.SetupTestDB(t)
	return fixture{
		db:      db,
		engine:  settle.NewEngine(zap.NewNop(), settle.NewPostgres(db), nil),
		rounds:  round.NewPostgres(db),
		games:   dice.NewPostgres(db),
		adm:     admission.NewPostgres(db),
		wallets: ledger.NewPostgres(db),
	}, cleanup
}

func (f fixture) deposit(t *testing.T, user string, cents int64) {
	t.Helper()
	if _, err := f.wallets.Deposit(context.Background(), user, cents, "dep-"+user); err != nil {
		t.Fatalf("deposit %s: %v", user, err)
	}
}

func (f fixture) balance(t *testing.T, user string) int64 {
	t.Helper()
	bal, err := f.wallets.Balance(context.Background(), user)
	if err != nil {
		t.Fatalf("balance %s: %v", user, err)
	}
	return bal
}

// crashedRound cria a rodada, admite as apostas e a leva até CRASHED
func (f fixture) crashedRound(t *testing.T, crashPoint float64, place func(roundID int64)) *round.Round {
	t.Helper()
	ctx := context.Background()
	r, err := f.rounds.Create(ctx, crashPoint, "commit", "seed", t.Name())
	if err != nil {
		t.Fatalf("create round: %v", err)
	}
	place(r.ID)
	if _, err := f.rounds.Transition(ctx, r.ID, round.StateInProgress); err != nil {
		t.Fatalf("to in-progress: %v", err)
	}
	r, err = f.rounds.TransitionCrashed(ctx, r.ID, crashPoint, "computed")
	if err != nil {
		t.Fatalf("to crashed: %v", err)
	}
	return r
}

func TestSettleCrashRound(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	f.deposit(t, "crash-u1", 1000)
	f.deposit(t, "crash-u2", 1000)

	r := f.crashedRound(t, 3.0, func(roundID int64) {
		cm1, cm2 := 2.0, 5.0
		if _, err := f.adm.PlaceRoundBet(ctx, roundID, "crash-u1", 100, &cm1); err != nil {
			t.Fatalf("bet u1: %v", err)
		}
		if _, err := f.adm.PlaceRoundBet(ctx, roundID, "crash-u2", 200, &cm2); err != nil {
			t.Fatalf("bet u2: %v", err)
		}
	})

	sum, err := f.engine.SettleCrashRound(ctx, r, outcome.Computed(3.0))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	want := round.SettlementSummary{BetCount: 2, WinnerCount: 1, TotalStakedCents: 300, TotalPaidOutCents: 200}
	if sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}

	// u1 acertou o alvo 2.0: -100 na admissão, +200 na liquidação
	if got := f.balance(t, "crash-u1"); got != 1100 {
		t.Errorf("u1 balance = %d, want 1100", got)
	}
	// u2 mirou 5.0 e perdeu o stake
	if got := f.balance(t, "crash-u2"); got != 800 {
		t.Errorf("u2 balance = %d, want 800", got)
	}

	settled, err := f.rounds.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settled.State != round.StateCompleted {
		t.Errorf("state = %s, want COMPLETED", settled.State)
	}
}

func TestSettleCrashRound_AlreadySettled(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	r := f.crashedRound(t, 2.0, func(int64) {})
	if _, err := f.engine.SettleCrashRound(ctx, r, outcome.Computed(2.0)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := f.engine.SettleCrashRound(ctx, r, outcome.Computed(2.0)); !errors.Is(err, settle.ErrAlreadySettled) {
		t.Errorf("second settle: got %v, want ErrAlreadySettled", err)
	}
}

func TestResettleCrashRound(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	f.deposit(t, "re-u1", 1000)
	f.deposit(t, "re-u2", 1000)

	r := f.crashedRound(t, 3.0, func(roundID int64) {
		cm1, cm2 := 2.0, 5.0
		if _, err := f.adm.PlaceRoundBet(ctx, roundID, "re-u1", 100, &cm1); err != nil {
			t.Fatalf("bet u1: %v", err)
		}
		if _, err := f.adm.PlaceRoundBet(ctx, roundID, "re-u2", 200, &cm2); err != nil {
			t.Fatalf("bet u2: %v", err)
		}
	})
	if _, err := f.engine.SettleCrashRound(ctx, r, outcome.Computed(3.0)); err != nil {
		t.Fatalf("settle: %v", err)
	}

	// mesmo resultado de novo: rejeitado, sem dupla aplicação
	if _, _, _, err := f.engine.ResettleCrashRound(ctx, r.ID, 3.0); !errors.Is(err, settle.ErrAlreadySettled) {
		t.Fatalf("same outcome: got %v, want ErrAlreadySettled", err)
	}

	corrected, rev, sum, err := f.engine.ResettleCrashRound(ctx, r.ID, 10.0)
	if err != nil {
		t.Fatalf("resettle: %v", err)
	}

	// só o pagamento anterior de u1 (200) é revertido; stakes ficam onde estão
	if rev.ReversedBets != 1 || rev.ReversedCents != 200 {
		t.Errorf("reversal = %+v, want 1 bet / 200 cents", rev)
	}
	if sum.WinnerCount != 2 {
		t.Errorf("corrected winners = %d, want 2", sum.WinnerCount)
	}

	// u1: 1000 -100 +200 -200 +200 = 1100 (mesmo resultado final)
	if got := f.balance(t, "re-u1"); got != 1100 {
		t.Errorf("u1 balance = %d, want 1100", got)
	}
	// u2: 1000 -200 +1000 = 1800 (agora o alvo 5.0 cabe no crash 10.0)
	if got := f.balance(t, "re-u2"); got != 1800 {
		t.Errorf("u2 balance = %d, want 1800", got)
	}

	if corrected.Multiplier != 10.0 {
		t.Errorf("multiplier = %v, want 10.0", corrected.Multiplier)
	}
	if corrected.OutcomeSource != string(outcome.SourceAdminOverride) {
		t.Errorf("outcome source = %s, want admin-override", corrected.OutcomeSource)
	}
}

func TestSettleDiceGame_AdminProfitScenario(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	f.deposit(t, "dice-u1", 1000)
	f.deposit(t, "dice-u2", 1000)

	g, err := f.games.Create(ctx, "Alice", "Bob", 2.0)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if _, err := f.adm.PlaceDiceBet(ctx, g.ID, "dice-u1", dice.SidePlayer1, 300); err != nil {
		t.Fatalf("bet u1: %v", err)
	}
	if _, err := f.adm.PlaceDiceBet(ctx, g.ID, "dice-u2", dice.SidePlayer2, 100); err != nil {
		t.Fatalf("bet u2: %v", err)
	}
	if _, err := f.games.Close(ctx, g.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	winner := dice.SidePlayer1
	settled, sum, err := f.engine.SettleDiceGame(ctx, g.ID, &winner, nil, false)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != dice.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", settled.Status)
	}
	// pagar 600 sobre 400 apostados: lucro do admin -200
	if settled.AdminProfitCents == nil || *settled.AdminProfitCents != -200 {
		t.Errorf("admin profit = %v, want -200", settled.AdminProfitCents)
	}
	if sum.TotalPaidOutCents != 600 {
		t.Errorf("paid out = %d, want 600", sum.TotalPaidOutCents)
	}

	if got := f.balance(t, "dice-u1"); got != 1300 {
		t.Errorf("u1 balance = %d, want 1300", got)
	}
	if got := f.balance(t, "dice-u2"); got != 900 {
		t.Errorf("u2 balance = %d, want 900", got)
	}

	// dupla liquidação sem correção explícita é rejeitada
	if _, _, err := f.engine.SettleDiceGame(ctx, g.ID, &winner, nil, false); !errors.Is(err, settle.ErrAlreadySettled) {
		t.Errorf("second settle: got %v, want ErrAlreadySettled", err)
	}
}

func TestResettleDiceGame_CorrectionScenario(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	f.deposit(t, "corr-u1", 1000)
	f.deposit(t, "corr-u2", 1000)

	g, err := f.games.Create(ctx, "Alice", "Bob", 2.0)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if _, err := f.adm.PlaceDiceBet(ctx, g.ID, "corr-u1", dice.SidePlayer1, 300); err != nil {
		t.Fatalf("bet u1: %v", err)
	}
	if _, err := f.adm.PlaceDiceBet(ctx, g.ID, "corr-u2", dice.SidePlayer2, 100); err != nil {
		t.Fatalf("bet u2: %v", err)
	}
	if _, err := f.games.Close(ctx, g.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	winner := dice.SidePlayer1
	if _, _, err := f.engine.SettleDiceGame(ctx, g.ID, &winner, nil, false); err != nil {
		t.Fatalf("settle: %v", err)
	}

	// mesma escolha de novo: rejeitada
	if _, _, _, err := f.engine.ResettleDiceGame(ctx, g.ID, dice.SidePlayer1, nil); !errors.Is(err, settle.ErrAlreadySettled) {
		t.Fatalf("same winner: got %v, want ErrAlreadySettled", err)
	}

	corrected, rev, _, err := f.engine.ResettleDiceGame(ctx, g.ID, dice.SidePlayer2, nil)
	if err != nil {
		t.Fatalf("resettle: %v", err)
	}
	if rev.ReversedBets != 1 || rev.ReversedCents != 600 {
		t.Errorf("reversal = %+v, want 1 bet / 600 cents", rev)
	}
	// lucro corrigido: 400 apostados - 200 pagos = 200
	if corrected.AdminProfitCents == nil || *corrected.AdminProfitCents != 200 {
		t.Errorf("admin profit = %v, want 200", corrected.AdminProfitCents)
	}

	// u1: 1000 -300 +600 -600 = 700; a correção não devolve o stake
	if got := f.balance(t, "corr-u1"); got != 700 {
		t.Errorf("u1 balance = %d, want 700", got)
	}
	// u2: 1000 -100 +200 = 1100
	if got := f.balance(t, "corr-u2"); got != 1100 {
		t.Errorf("u2 balance = %d, want 1100", got)
	}
}

func TestSettleDiceGame_WinnerRequired(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	f.deposit(t, "wr-u1", 1000)
	f.deposit(t, "wr-u2", 1000)

	g, err := f.games.Create(ctx, "Alice", "Bob", 2.0)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	// apostas dos dois lados: fechar não auto-seleciona vencedor
	if _, err := f.adm.PlaceDiceBet(ctx, g.ID, "wr-u1", dice.SidePlayer1, 100); err != nil {
		t.Fatalf("bet u1: %v", err)
	}
	if _, err := f.adm.PlaceDiceBet(ctx, g.ID, "wr-u2", dice.SidePlayer2, 100); err != nil {
		t.Fatalf("bet u2: %v", err)
	}
	if _, err := f.games.Close(ctx, g.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, _, err := f.engine.SettleDiceGame(ctx, g.ID, nil, nil, false); !errors.Is(err, settle.ErrWinnerRequired) {
		t.Errorf("got %v, want ErrWinnerRequired", err)
	}
}

func TestSettleDiceGame_ConfirmsAutoSelected(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	f.deposit(t, "auto-u", 1000)

	g, err := f.games.Create(ctx, "Alice", "Bob", 2.0)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if _, err := f.adm.PlaceDiceBet(ctx, g.ID, "auto-u", dice.SidePlayer1, 100); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if _, err := f.games.Close(ctx, g.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	// winner nil confirma o lado auto-selecionado no fechamento
	settled, _, err := f.engine.SettleDiceGame(ctx, g.ID, nil, nil, false)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.SelectedWinner == nil || *settled.SelectedWinner != dice.SidePlayer1 {
		t.Errorf("winner = %v, want auto-selected player1", settled.SelectedWinner)
	}
	if got := f.balance(t, "auto-u"); got != 1100 {
		t.Errorf("balance = %d, want 1100", got)
	}
}
