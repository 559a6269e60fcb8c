package round

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// Postgres é a fonte única de verdade do estado das rodadas e suas apostas
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const roundColumns = `id, state, multiplier, crash_point, COALESCE(outcome_source,''), commit_hash, server_seed, round_key, started_at, ended_at, created_at`

// Create insere uma nova rodada em WAITING.
// O índice único parcial one_active_round garante no banco que nunca existem
// duas rodadas em WAITING/IN_PROGRESS, mesmo sob criações concorrentes.
func (p *Postgres) Create(ctx context.Context, crashPoint float64, commitHash, serverSeed, roundKey string) (*Round, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO rounds (state, multiplier, crash_point, commit_hash, server_seed, round_key)
		VALUES ('WAITING', 1.0, $1, $2, $3, $4)
		RETURNING `+roundColumns,
		crashPoint, commitHash, serverSeed, roundKey,
	)
	r, err := scanRound(row)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrActiveRoundExists
		}
		return nil, err
	}
	return r, nil
}

// Get retorna a rodada pelo id
func (p *Postgres) Get(ctx context.Context, id int64) (*Round, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id=$1`, id)
	r, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

// GetActive retorna a rodada que ocupa o slot ativo, se houver
func (p *Postgres) GetActive(ctx context.Context) (*Round, error) {
	states := make([]string, len(ActiveStates))
	for i, s := range ActiveStates {
		states[i] = string(s)
	}
	row := p.db.QueryRowContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE state = ANY($1) LIMIT 1`, pq.Array(states))
	r, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, ErrNoActiveRound
	}
	return r, err
}

// ListCrashed retorna rodadas CRASHED que nunca viraram COMPLETED: a
// liquidação falhou ou o processo caiu no meio do crash. Consumido pelo
// Recover do scheduler pra reliquidar.
func (p *Postgres) ListCrashed(ctx context.Context) ([]Round, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE state='CRASHED' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Transition aplica uma aresta da máquina de estados com o bookkeeping do
// estado alvo; aresta ilegal falha com ErrIllegalTransition sem mutação
func (p *Postgres) Transition(ctx context.Context, id int64, next State) (*Round, error) {
	return p.transition(ctx, id, next, func(tx *sql.Tx) error {
		switch next {
		case StateInProgress:
			_, err := tx.ExecContext(ctx,
				`UPDATE rounds SET state=$1, started_at=NOW() WHERE id=$2`, next, id)
			return err
		default:
			_, err := tx.ExecContext(ctx,
				`UPDATE rounds SET state=$1 WHERE id=$2`, next, id)
			return err
		}
	})
}

// TransitionCrashed congela o multiplicador final e marca a rodada como CRASHED
func (p *Postgres) TransitionCrashed(ctx context.Context, id int64, finalMultiplier float64, source string) (*Round, error) {
	return p.transition(ctx, id, StateCrashed, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE rounds SET state='CRASHED', multiplier=$1, outcome_source=$2, ended_at=NOW()
			WHERE id=$3`, finalMultiplier, source, id)
		return err
	})
}

func (p *Postgres) transition(ctx context.Context, id int64, next State, apply func(tx *sql.Tx) error) (*Round, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var cur State
	err = tx.QueryRowContext(ctx, `SELECT state FROM rounds WHERE id=$1 FOR UPDATE`, id).Scan(&cur)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !CanTransition(cur, next) {
		return nil, ErrIllegalTransition
	}

	if err = apply(tx); err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id=$1`, id)
	r, err := scanRound(row)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}

// ListByStatus lista rodadas por estado, paginadas; consumido pela exportação do admin
func (p *Postgres) ListByStatus(ctx context.Context, state State, page, pageSize int) ([]Round, error) {
	page, pageSize = clampPage(page, pageSize)
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+roundColumns+` FROM rounds
		WHERE state=$1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`, state, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListBetsByRound lista as apostas de uma rodada, paginadas
func (p *Postgres) ListBetsByRound(ctx context.Context, roundID int64, page, pageSize int) ([]Bet, error) {
	page, pageSize = clampPage(page, pageSize)
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, round_id, user_id, stake_cents, cashout_multiplier, result, amount_change_cents, created_at, settled_at
		FROM round_bets
		WHERE round_id=$1
		ORDER BY created_at
		LIMIT $2 OFFSET $3`, roundID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.ID, &b.RoundID, &b.UserID, &b.StakeCents, &b.CashoutMultiplier,
			&b.Result, &b.AmountChangeCents, &b.CreatedAt, &b.SettledAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BetStats retorna contagem e total apostado da rodada (estatísticas live do poller)
func (p *Postgres) BetStats(ctx context.Context, roundID int64) (count int, totalCents int64, err error) {
	err = p.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(stake_cents),0)
		FROM round_bets
		WHERE round_id=$1 AND result <> 'cancelled'`, roundID).Scan(&count, &totalCents)
	return count, totalCents, err
}

type roundScanner interface{ Scan(dest ...any) error }

func scanRound(rs roundScanner) (*Round, error) {
	var r Round
	err := rs.Scan(&r.ID, &r.State, &r.Multiplier, &r.CrashPoint, &r.OutcomeSource,
		&r.CommitHash, &r.ServerSeed, &r.RoundKey, &r.StartedAt, &r.EndedAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return page, pageSize
}
