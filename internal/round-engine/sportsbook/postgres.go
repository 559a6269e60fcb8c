package sportsbook

import (
	"context"
	"database/sql"
	"math"

	"github.com/google/uuid"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/ledger"
	"github.com/radieske/game-round-engine-poc/internal/shared/metrics"
)

// Postgres implementa operações de apostas esportivas liquidadas pelo admin
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const betColumns = `id, user_id, event_id, market, selection, stake_cents, odd_value, status, amount_change_cents, created_at, settled_at`

// Place registra uma aposta esportiva debitando o stake na mesma transação
func (p *Postgres) Place(ctx context.Context, userID, eventID, market, selection string, stakeCents int64, oddValue float64) (*Bet, error) {
	if stakeCents <= 0 {
		metrics.BetsRejected.WithLabelValues("invalid-stake").Inc()
		return nil, ErrInvalidStake
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	betID := uuid.New().String()
	if err = ledger.Apply(ctx, tx, userID, -stakeCents, ledger.ReasonBetPlaced, betID); err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO sports_bets (id, user_id, event_id, market, selection, stake_cents, odd_value, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')
		RETURNING `+betColumns,
		betID, userID, eventID, market, selection, stakeCents, oddValue,
	)
	b, err := scanBet(row)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	metrics.BetsPlaced.WithLabelValues("sports").Inc()
	return b, nil
}

// Get retorna a aposta pelo id
func (p *Postgres) Get(ctx context.Context, betID string) (*Bet, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM sports_bets WHERE id=$1`, betID)
	b, err := scanBet(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

// Settle aplica o contrato de liquidação de uma aposta: vitória credita o
// winAmount (default stake x odd), derrota não paga nada, void devolve o
// stake. Aposta já liquidada falha com ErrAlreadySettled sem efeito colateral.
func (p *Postgres) Settle(ctx context.Context, betID, status string, winAmountCents *int64) (*Bet, error) {
	if status != StatusWin && status != StatusLoss && status != StatusVoid {
		return nil, ErrInvalidStatus
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+betColumns+` FROM sports_bets WHERE id=$1 FOR UPDATE`, betID)
	b, err := scanBet(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending {
		return nil, ErrAlreadySettled
	}

	var amountChange int64
	switch status {
	case StatusWin:
		payout := int64(math.Round(float64(b.StakeCents) * b.OddValue))
		if winAmountCents != nil {
			if *winAmountCents <= 0 {
				return nil, ErrWinAmount
			}
			payout = *winAmountCents
		}
		if err = ledger.Apply(ctx, tx, b.UserID, payout, ledger.ReasonBetWon, b.ID); err != nil {
			return nil, err
		}
		amountChange = payout - b.StakeCents
	case StatusVoid:
		// evento cancelado: o stake volta inteiro, aposta neutra
		if err = ledger.Apply(ctx, tx, b.UserID, b.StakeCents, ledger.ReasonBetCancelled, b.ID); err != nil {
			return nil, err
		}
		amountChange = 0
	default:
		amountChange = -b.StakeCents
	}

	row = tx.QueryRowContext(ctx, `
		UPDATE sports_bets SET status=$1, amount_change_cents=$2, settled_at=NOW()
		WHERE id=$3
		RETURNING `+betColumns,
		status, amountChange, betID,
	)
	if b, err = scanBet(row); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

// BulkSettle aplica o contrato individual a cada id: cada aposta sucede ou
// falha de forma independente — é um loop de conveniência, não uma transação.
func (p *Postgres) BulkSettle(ctx context.Context, betIDs []string, status string) []BulkResult {
	out := make([]BulkResult, 0, len(betIDs))
	for _, id := range betIDs {
		if _, err := p.Settle(ctx, id, status, nil); err != nil {
			out = append(out, BulkResult{BetID: id, Error: err.Error()})
			continue
		}
		out = append(out, BulkResult{BetID: id, OK: true})
	}
	return out
}

type betScanner interface{ Scan(dest ...any) error }

func scanBet(rs betScanner) (*Bet, error) {
	var b Bet
	err := rs.Scan(&b.ID, &b.UserID, &b.EventID, &b.Market, &b.Selection, &b.StakeCents,
		&b.OddValue, &b.Status, &b.AmountChangeCents, &b.CreatedAt, &b.SettledAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
