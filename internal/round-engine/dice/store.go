package dice

import (
	"context"
	"database/sql"
)

// Postgres persiste jogos de dados e suas apostas
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const gameColumns = `id, game_number, status, player1_name, player2_name, payout_multiplier,
	selected_winner, dice_result, admin_set_result, auto_selected, admin_profit_cents,
	created_at, closed_at, completed_at`

// Create abre um novo jogo aceitando apostas; game_number vem de sequence própria
func (p *Postgres) Create(ctx context.Context, player1Name, player2Name string, payoutMultiplier float64) (*Game, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO dice_games (game_number, status, player1_name, player2_name, payout_multiplier)
		VALUES (nextval('dice_game_number_seq'), 'ACCEPTING_BETS', $1, $2, $3)
		RETURNING `+gameColumns,
		player1Name, player2Name, payoutMultiplier,
	)
	return scanGame(row)
}

// Get retorna o jogo pelo id
func (p *Postgres) Get(ctx context.Context, id int64) (*Game, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM dice_games WHERE id=$1`, id)
	g, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return g, err
}

// Close encerra a janela de apostas. Se exatamente um lado recebeu apostas,
// o jogo vai pra WAITING_FOR_ADMIN com esse lado como auto-selecionado — o
// lado que apostou, nunca a recomendação de lucro. Fundos só se movem na
// confirmação explícita do admin em select-winner.
func (p *Postgres) Close(ctx context.Context, id int64) (*Game, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var status Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM dice_games WHERE id=$1 FOR UPDATE`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if status != StatusAcceptingBets {
		return nil, ErrInvalidState
	}

	var p1Count, p2Count int
	err = tx.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE side='player1' AND result <> 'cancelled'),
			COUNT(*) FILTER (WHERE side='player2' AND result <> 'cancelled')
		FROM dice_bets WHERE game_id=$1`, id).Scan(&p1Count, &p2Count)
	if err != nil {
		return nil, err
	}

	next := StatusClosed
	var autoWinner *string
	if p1Count > 0 && p2Count == 0 {
		next = StatusWaitingForAdmin
		w := SidePlayer1
		autoWinner = &w
	} else if p2Count > 0 && p1Count == 0 {
		next = StatusWaitingForAdmin
		w := SidePlayer2
		autoWinner = &w
	}

	if autoWinner != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE dice_games SET status=$1, selected_winner=$2, auto_selected=TRUE, closed_at=NOW()
			WHERE id=$3`, next, *autoWinner, id)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE dice_games SET status=$1, closed_at=NOW() WHERE id=$2`, next, id)
	}
	if err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM dice_games WHERE id=$1`, id)
	g, err := scanGame(row)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return g, nil
}

// SideSummaries retorna os agregados por lado do jogo
func (p *Postgres) SideSummaries(ctx context.Context, gameID int64) ([]SideSummary, error) {
	var p1Name, p2Name string
	err := p.db.QueryRowContext(ctx,
		`SELECT player1_name, player2_name FROM dice_games WHERE id=$1`, gameID).Scan(&p1Name, &p2Name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT side, COALESCE(SUM(stake_cents),0), COUNT(*)
		FROM dice_bets
		WHERE game_id=$1 AND result <> 'cancelled'
		GROUP BY side`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]SideSummary{
		SidePlayer1: {Side: SidePlayer1, Name: p1Name},
		SidePlayer2: {Side: SidePlayer2, Name: p2Name},
	}
	for rows.Next() {
		var side string
		var total int64
		var count int
		if err := rows.Scan(&side, &total, &count); err != nil {
			return nil, err
		}
		s := totals[side]
		s.Side = side
		s.TotalBetCents = total
		s.BetCount = count
		totals[side] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return []SideSummary{totals[SidePlayer1], totals[SidePlayer2]}, nil
}

// ListBetsByGame lista as apostas de um jogo, paginadas
func (p *Postgres) ListBetsByGame(ctx context.Context, gameID int64, page, pageSize int) ([]Bet, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, game_id, user_id, side, stake_cents, result, amount_change_cents, created_at, settled_at
		FROM dice_bets
		WHERE game_id=$1
		ORDER BY created_at
		LIMIT $2 OFFSET $3`, gameID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.ID, &b.GameID, &b.UserID, &b.Side, &b.StakeCents,
			&b.Result, &b.AmountChangeCents, &b.CreatedAt, &b.SettledAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type gameScanner interface{ Scan(dest ...any) error }

func scanGame(rs gameScanner) (*Game, error) {
	var g Game
	err := rs.Scan(&g.ID, &g.GameNumber, &g.Status, &g.Player1Name, &g.Player2Name,
		&g.PayoutMultiplier, &g.SelectedWinner, &g.DiceResult, &g.AdminSetResult,
		&g.AutoSelected, &g.AdminProfitCents, &g.CreatedAt, &g.ClosedAt, &g.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
