package admission

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/dice"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/ledger"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
	"github.com/radieske/game-round-engine-poc/internal/shared/metrics"
)

var (
	ErrInvalidStake   = errors.New("stake must be positive")
	ErrInvalidCashout = errors.New("cashout multiplier must be >= 1.0")
	ErrBetNotFound    = errors.New("bet not found")
	ErrNotCancellable = errors.New("bet is not cancellable")
)

// Postgres admite apostas contra rodadas e jogos abertos.
// Débito da carteira e inserção da aposta acontecem na mesma transação:
// ou os dois efeitos entram ou nenhum.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// PlaceRoundBet valida e registra uma aposta contra uma rodada aberta,
// debitando o stake da carteira com referência = id da aposta
func (p *Postgres) PlaceRoundBet(ctx context.Context, roundID int64, userID string, stakeCents int64, cashoutMultiplier *float64) (*round.Bet, error) {
	if stakeCents <= 0 {
		metrics.BetsRejected.WithLabelValues("invalid-stake").Inc()
		return nil, ErrInvalidStake
	}
	if cashoutMultiplier != nil && *cashoutMultiplier < 1.0 {
		metrics.BetsRejected.WithLabelValues("invalid-cashout").Inc()
		return nil, ErrInvalidCashout
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock na rodada serializa admissão contra transições de estado e liquidação
	var state round.State
	err = tx.QueryRowContext(ctx, `SELECT state FROM rounds WHERE id=$1 FOR UPDATE`, roundID).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, round.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !state.Admitting() {
		metrics.BetsRejected.WithLabelValues("betting-closed").Inc()
		return nil, round.ErrBettingClosed
	}

	betID := uuid.New().String()
	if err = ledger.Apply(ctx, tx, userID, -stakeCents, ledger.ReasonBetPlaced, betID); err != nil {
		if err == ledger.ErrInsufficientFunds {
			metrics.BetsRejected.WithLabelValues("insufficient-funds").Inc()
		}
		return nil, err
	}

	var b round.Bet
	row := tx.QueryRowContext(ctx, `
		INSERT INTO round_bets (id, round_id, user_id, stake_cents, cashout_multiplier, result)
		VALUES ($1,$2,$3,$4,$5,'pending')
		RETURNING id, round_id, user_id, stake_cents, cashout_multiplier, result, amount_change_cents, created_at, settled_at`,
		betID, roundID, userID, stakeCents, cashoutMultiplier,
	)
	if err = row.Scan(&b.ID, &b.RoundID, &b.UserID, &b.StakeCents, &b.CashoutMultiplier,
		&b.Result, &b.AmountChangeCents, &b.CreatedAt, &b.SettledAt); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	metrics.BetsPlaced.WithLabelValues("crash").Inc()
	return &b, nil
}

// PlaceDiceBet registra uma aposta em um lado de um jogo aceitando apostas
func (p *Postgres) PlaceDiceBet(ctx context.Context, gameID int64, userID, side string, stakeCents int64) (*dice.Bet, error) {
	if stakeCents <= 0 {
		metrics.BetsRejected.WithLabelValues("invalid-stake").Inc()
		return nil, ErrInvalidStake
	}
	if !dice.ValidSide(side) {
		return nil, dice.ErrInvalidSide
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var status dice.Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM dice_games WHERE id=$1 FOR UPDATE`, gameID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, dice.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if status != dice.StatusAcceptingBets {
		metrics.BetsRejected.WithLabelValues("betting-closed").Inc()
		return nil, dice.ErrBettingClosed
	}

	betID := uuid.New().String()
	if err = ledger.Apply(ctx, tx, userID, -stakeCents, ledger.ReasonBetPlaced, betID); err != nil {
		if err == ledger.ErrInsufficientFunds {
			metrics.BetsRejected.WithLabelValues("insufficient-funds").Inc()
		}
		return nil, err
	}

	var b dice.Bet
	row := tx.QueryRowContext(ctx, `
		INSERT INTO dice_bets (id, game_id, user_id, side, stake_cents, result)
		VALUES ($1,$2,$3,$4,$5,'pending')
		RETURNING id, game_id, user_id, side, stake_cents, result, amount_change_cents, created_at, settled_at`,
		betID, gameID, userID, side, stakeCents,
	)
	if err = row.Scan(&b.ID, &b.GameID, &b.UserID, &b.Side, &b.StakeCents,
		&b.Result, &b.AmountChangeCents, &b.CreatedAt, &b.SettledAt); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	metrics.BetsPlaced.WithLabelValues("dice").Inc()
	return &b, nil
}

// CancelRoundBet é a operação compensatória de cancelamento: marca a aposta
// como cancelled e devolve o stake com uma nova entrada no ledger.
// Nunca edita a aposta admitida; apostas liquidadas não são canceláveis.
func (p *Postgres) CancelRoundBet(ctx context.Context, betID string) (*round.Bet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var b round.Bet
	var roundState round.State
	row := tx.QueryRowContext(ctx, `
		SELECT b.id, b.round_id, b.user_id, b.stake_cents, b.cashout_multiplier, b.result, b.amount_change_cents, b.created_at, b.settled_at, r.state
		FROM round_bets b
		JOIN rounds r ON r.id = b.round_id
		WHERE b.id=$1
		FOR UPDATE OF b, r`, betID)
	if err = row.Scan(&b.ID, &b.RoundID, &b.UserID, &b.StakeCents, &b.CashoutMultiplier,
		&b.Result, &b.AmountChangeCents, &b.CreatedAt, &b.SettledAt, &roundState); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBetNotFound
		}
		return nil, err
	}

	// só cancela enquanto a rodada ainda admite apostas e a aposta está pendente
	if b.Result != round.ResultPending || !roundState.Admitting() {
		return nil, ErrNotCancellable
	}

	if err = ledger.Apply(ctx, tx, b.UserID, b.StakeCents, ledger.ReasonBetCancelled, b.ID); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE round_bets SET result='cancelled' WHERE id=$1`, b.ID); err != nil {
		return nil, err
	}
	b.Result = round.ResultCancelled

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return &b, nil
}
