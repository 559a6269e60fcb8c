package settle

import (
	"context"
	"database/sql"
	"errors"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/dice"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/ledger"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
)

var (
	ErrAlreadySettled = errors.New("already settled")
	ErrWinnerRequired = errors.New("winner required: game has no auto-selected side")
)

// Postgres aplica planos de liquidação em uma única transação: entradas de
// ledger, resultados das apostas e estado da rodada/jogo entram juntos ou nada
// entra. Um crash no meio nunca deixa parte das apostas liquidada.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// ApplyCrash liquida todas as apostas da rodada CRASHED e a marca COMPLETED.
// Rodada já COMPLETED falha com ErrAlreadySettled em vez de pagar de novo.
func (p *Postgres) ApplyCrash(ctx context.Context, roundID int64, crashPoint float64) (Plan, error) {
	var plan Plan
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return plan, err
	}
	defer tx.Rollback()

	var state round.State
	err = tx.QueryRowContext(ctx, `SELECT state FROM rounds WHERE id=$1 FOR UPDATE`, roundID).Scan(&state)
	if err == sql.ErrNoRows {
		return plan, round.ErrNotFound
	}
	if err != nil {
		return plan, err
	}
	if state == round.StateCompleted {
		return plan, ErrAlreadySettled
	}
	if state != round.StateCrashed {
		return plan, round.ErrIllegalTransition
	}

	bets, err := lockRoundBets(ctx, tx, roundID)
	if err != nil {
		return plan, err
	}

	plan = PlanCrash(bets, crashPoint)
	if err = applyEntries(ctx, tx, plan.Entries, false); err != nil {
		return plan, err
	}
	if err = updateRoundBetResults(ctx, tx, plan.Results); err != nil {
		return plan, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE rounds SET state='COMPLETED' WHERE id=$1`, roundID); err != nil {
		return plan, err
	}

	return plan, tx.Commit()
}

// ResettleCrash corrige o resultado de uma rodada já liquidada: reverte os
// pagamentos anteriores, recalcula com o novo multiplicador e aplica — tudo na
// mesma transação. O mesmo resultado duas vezes falha com ErrAlreadySettled.
func (p *Postgres) ResettleCrash(ctx context.Context, roundID int64, newCrashPoint float64) (*round.Round, Reversal, Plan, error) {
	var plan Plan
	var rev Reversal

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, rev, plan, err
	}
	defer tx.Rollback()

	var state round.State
	var curMultiplier float64
	err = tx.QueryRowContext(ctx,
		`SELECT state, multiplier FROM rounds WHERE id=$1 FOR UPDATE`, roundID).Scan(&state, &curMultiplier)
	if err == sql.ErrNoRows {
		return nil, rev, plan, round.ErrNotFound
	}
	if err != nil {
		return nil, rev, plan, err
	}
	if state != round.StateCompleted {
		return nil, rev, plan, round.ErrIllegalTransition
	}
	if newCrashPoint == curMultiplier {
		return nil, rev, plan, ErrAlreadySettled
	}

	bets, err := lockRoundBets(ctx, tx, roundID)
	if err != nil {
		return nil, rev, plan, err
	}

	// fase 1: reversão exata dos pagamentos anteriores
	var entries []Entry
	entries, rev = PlanReversal(priorRoundPayouts(bets))
	if err = applyEntries(ctx, tx, entries, true); err != nil {
		return nil, rev, plan, err
	}

	// fases 2 e 3: recálculo e aplicação sob o novo resultado
	plan = PlanCrash(bets, newCrashPoint)
	if err = applyEntries(ctx, tx, plan.Entries, false); err != nil {
		return nil, rev, plan, err
	}
	if err = updateRoundBetResults(ctx, tx, plan.Results); err != nil {
		return nil, rev, plan, err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE rounds SET multiplier=$1, outcome_source='admin-override' WHERE id=$2`,
		newCrashPoint, roundID); err != nil {
		return nil, rev, plan, err
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, state, multiplier, crash_point, COALESCE(outcome_source,''), commit_hash, server_seed, round_key, started_at, ended_at, created_at
		FROM rounds WHERE id=$1`, roundID)
	var r round.Round
	if err = row.Scan(&r.ID, &r.State, &r.Multiplier, &r.CrashPoint, &r.OutcomeSource,
		&r.CommitHash, &r.ServerSeed, &r.RoundKey, &r.StartedAt, &r.EndedAt, &r.CreatedAt); err != nil {
		return nil, rev, plan, err
	}

	return &r, rev, plan, tx.Commit()
}

// ApplyDice liquida um jogo de dados pro vencedor informado. winner nil usa o
// lado auto-selecionado no fechamento; sem ele, ErrWinnerRequired.
func (p *Postgres) ApplyDice(ctx context.Context, gameID int64, winner *string, diceResult *string, adminSet bool) (*dice.Game, Plan, error) {
	var plan Plan
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, plan, err
	}
	defer tx.Rollback()

	g, err := lockGame(ctx, tx, gameID)
	if err != nil {
		return nil, plan, err
	}
	if g.Status == dice.StatusCompleted {
		return nil, plan, ErrAlreadySettled
	}
	if g.Status != dice.StatusClosed && g.Status != dice.StatusWaitingForAdmin {
		return nil, plan, dice.ErrInvalidState
	}

	chosen := ""
	switch {
	case winner != nil:
		chosen = *winner
	case g.SelectedWinner != nil:
		chosen = *g.SelectedWinner
	default:
		return nil, plan, ErrWinnerRequired
	}
	if !dice.ValidSide(chosen) {
		return nil, plan, dice.ErrInvalidSide
	}

	bets, err := lockDiceBets(ctx, tx, gameID)
	if err != nil {
		return nil, plan, err
	}

	plan = PlanDice(bets, chosen, g.PayoutMultiplier)
	if err = applyEntries(ctx, tx, plan.Entries, false); err != nil {
		return nil, plan, err
	}
	if err = updateDiceBetResults(ctx, tx, plan.Results); err != nil {
		return nil, plan, err
	}

	// vencedor e lucro do admin persistem juntos, nunca defasados
	if _, err = tx.ExecContext(ctx, `
		UPDATE dice_games
		SET status='COMPLETED', selected_winner=$1, dice_result=$2, admin_set_result=$3,
		    admin_profit_cents=$4, completed_at=NOW()
		WHERE id=$5`,
		chosen, diceResult, adminSet, plan.AdminProfitCents(), gameID); err != nil {
		return nil, plan, err
	}

	g, err = lockGame(ctx, tx, gameID)
	if err != nil {
		return nil, plan, err
	}

	return g, plan, tx.Commit()
}

// ResettleDice corrige o vencedor de um jogo já liquidado: reverte pagamentos,
// recalcula pro novo lado e aplica, atômico como uma unidade
func (p *Postgres) ResettleDice(ctx context.Context, gameID int64, newWinner string, newDiceResult *string) (*dice.Game, Reversal, Plan, error) {
	var plan Plan
	var rev Reversal

	if !dice.ValidSide(newWinner) {
		return nil, rev, plan, dice.ErrInvalidSide
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, rev, plan, err
	}
	defer tx.Rollback()

	g, err := lockGame(ctx, tx, gameID)
	if err != nil {
		return nil, rev, plan, err
	}
	if g.Status != dice.StatusCompleted {
		return nil, rev, plan, dice.ErrInvalidState
	}
	if g.SelectedWinner != nil && *g.SelectedWinner == newWinner {
		return nil, rev, plan, ErrAlreadySettled
	}

	bets, err := lockDiceBets(ctx, tx, gameID)
	if err != nil {
		return nil, rev, plan, err
	}

	var entries []Entry
	entries, rev = PlanReversal(priorDicePayouts(bets))
	if err = applyEntries(ctx, tx, entries, true); err != nil {
		return nil, rev, plan, err
	}

	plan = PlanDice(bets, newWinner, g.PayoutMultiplier)
	if err = applyEntries(ctx, tx, plan.Entries, false); err != nil {
		return nil, rev, plan, err
	}
	if err = updateDiceBetResults(ctx, tx, plan.Results); err != nil {
		return nil, rev, plan, err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE dice_games
		SET selected_winner=$1, dice_result=$2, admin_profit_cents=$3, completed_at=NOW()
		WHERE id=$4`,
		newWinner, newDiceResult, plan.AdminProfitCents(), gameID); err != nil {
		return nil, rev, plan, err
	}

	g, err = lockGame(ctx, tx, gameID)
	if err != nil {
		return nil, rev, plan, err
	}

	return g, rev, plan, tx.Commit()
}

// --- helpers de transação ---

func lockGame(ctx context.Context, tx *sql.Tx, gameID int64) (*dice.Game, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, game_number, status, player1_name, player2_name, payout_multiplier,
		       selected_winner, dice_result, admin_set_result, auto_selected, admin_profit_cents,
		       created_at, closed_at, completed_at
		FROM dice_games WHERE id=$1 FOR UPDATE`, gameID)
	var g dice.Game
	err := row.Scan(&g.ID, &g.GameNumber, &g.Status, &g.Player1Name, &g.Player2Name,
		&g.PayoutMultiplier, &g.SelectedWinner, &g.DiceResult, &g.AdminSetResult,
		&g.AutoSelected, &g.AdminProfitCents, &g.CreatedAt, &g.ClosedAt, &g.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, dice.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func lockRoundBets(ctx context.Context, tx *sql.Tx, roundID int64) ([]round.Bet, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, round_id, user_id, stake_cents, cashout_multiplier, result, amount_change_cents, created_at, settled_at
		FROM round_bets
		WHERE round_id=$1
		ORDER BY created_at
		FOR UPDATE`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []round.Bet
	for rows.Next() {
		var b round.Bet
		if err := rows.Scan(&b.ID, &b.RoundID, &b.UserID, &b.StakeCents, &b.CashoutMultiplier,
			&b.Result, &b.AmountChangeCents, &b.CreatedAt, &b.SettledAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func lockDiceBets(ctx context.Context, tx *sql.Tx, gameID int64) ([]dice.Bet, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, game_id, user_id, side, stake_cents, result, amount_change_cents, created_at, settled_at
		FROM dice_bets
		WHERE game_id=$1
		ORDER BY created_at
		FOR UPDATE`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dice.Bet
	for rows.Next() {
		var b dice.Bet
		if err := rows.Scan(&b.ID, &b.GameID, &b.UserID, &b.Side, &b.StakeCents,
			&b.Result, &b.AmountChangeCents, &b.CreatedAt, &b.SettledAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func applyEntries(ctx context.Context, tx *sql.Tx, entries []Entry, unchecked bool) error {
	for _, e := range entries {
		var err error
		if unchecked {
			err = ledger.ApplyUnchecked(ctx, tx, e.UserID, e.AmountCents, e.Reason, e.ReferenceID)
		} else {
			err = ledger.Apply(ctx, tx, e.UserID, e.AmountCents, e.Reason, e.ReferenceID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func updateRoundBetResults(ctx context.Context, tx *sql.Tx, results []BetResult) error {
	for _, r := range results {
		if _, err := tx.ExecContext(ctx, `
			UPDATE round_bets SET result=$1, amount_change_cents=$2, settled_at=NOW() WHERE id=$3`,
			r.Result, r.AmountChangeCents, r.BetID); err != nil {
			return err
		}
	}
	return nil
}

func updateDiceBetResults(ctx context.Context, tx *sql.Tx, results []BetResult) error {
	for _, r := range results {
		if _, err := tx.ExecContext(ctx, `
			UPDATE dice_bets SET result=$1, amount_change_cents=$2, settled_at=NOW() WHERE id=$3`,
			r.Result, r.AmountChangeCents, r.BetID); err != nil {
			return err
		}
	}
	return nil
}

// priorRoundPayouts extrai os pagamentos anteriores das apostas vencedoras:
// payout = amount_change + stake
func priorRoundPayouts(bets []round.Bet) []SettledPayout {
	var out []SettledPayout
	for _, b := range bets {
		if b.Result == round.ResultWin && b.AmountChangeCents != nil {
			out = append(out, SettledPayout{
				BetID:       b.ID,
				UserID:      b.UserID,
				PayoutCents: *b.AmountChangeCents + b.StakeCents,
			})
		}
	}
	return out
}

func priorDicePayouts(bets []dice.Bet) []SettledPayout {
	var out []SettledPayout
	for _, b := range bets {
		if b.Result == round.ResultWin && b.AmountChangeCents != nil {
			out = append(out, SettledPayout{
				BetID:       b.ID,
				UserID:      b.UserID,
				PayoutCents: *b.AmountChangeCents + b.StakeCents,
			})
		}
	}
	return out
}
