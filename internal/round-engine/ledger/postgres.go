package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres implementa o ledger de saldo por usuário
// wallets guarda o saldo materializado; ledger_entries é a fonte de verdade append-only
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

// GetOrCreateWallet retorna o walletId e saldo de um usuário, criando a carteira se não existir
// Usa transação para garantir atomicidade
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balanceCents int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	var id string
	var bal int64
	err = tx.QueryRowContext(ctx, `SELECT id, balance_cents FROM wallets WHERE user_id=$1`, userID).Scan(&id, &bal)
	if err == sql.ErrNoRows {
		id = uuid.New().String()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,0,1)`,
			id, userID); err != nil {
			return "", 0, err
		}
		bal = 0
	} else if err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}

	return id, bal, nil
}

// Deposit credita saldo na carteira do usuário e registra a entrada no ledger.
// Idempotente por referenceID: repetir o mesmo external_ref devolve o saldo
// atual sem segundo crédito, garantido pelo índice único parcial do banco.
func (p *Postgres) Deposit(ctx context.Context, userID string, amountCents int64, referenceID string) (newBalanceCents int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err = Apply(ctx, tx, userID, amountCents, ReasonDeposit, referenceID); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			_ = tx.Rollback()
			return p.Balance(ctx, userID)
		}
		return 0, err
	}

	if err = tx.QueryRowContext(ctx, `SELECT balance_cents FROM wallets WHERE user_id=$1`, userID).Scan(&newBalanceCents); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return newBalanceCents, nil
}

// Balance retorna o saldo atual do usuário
func (p *Postgres) Balance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	err := p.db.QueryRowContext(ctx, `SELECT balance_cents FROM wallets WHERE user_id=$1`, userID).Scan(&bal)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return bal, err
}

// EntriesByReference lista as entradas do ledger vinculadas a uma referência
// (aposta, rodada ou jogo); usado por exportação e auditoria
func (p *Postgres) EntriesByReference(ctx context.Context, referenceID string) ([]Entry, error) {
	const q = `
		SELECT id, user_id, amount_cents, reason, reference_id, created_at
		FROM ledger_entries
		WHERE reference_id=$1
		ORDER BY created_at;
	`
	rows, err := p.db.QueryContext(ctx, q, referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// EntriesByUser lista as entradas de um usuário, paginadas
func (p *Postgres) EntriesByUser(ctx context.Context, userID string, page, pageSize int) ([]Entry, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	const q = `
		SELECT id, user_id, amount_cents, reason, reference_id, created_at
		FROM ledger_entries
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := p.db.QueryContext(ctx, q, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.AmountCents, &e.Reason, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Apply aplica uma mutação de saldo dentro de uma transação já aberta pelo chamador:
// lock pessimista na carteira, débito só com saldo suficiente, append no ledger.
// É o único caminho de mutação de saldo; admissão e liquidação compõem suas
// transações com esta função para garantir tudo-ou-nada.
func Apply(ctx context.Context, tx *sql.Tx, userID string, amountCents int64, reason, referenceID string) error {
	return apply(ctx, tx, userID, amountCents, reason, referenceID, true)
}

// ApplyUnchecked aplica sem checar saldo. Usado pela reversão de correções:
// o pagamento revertido pode já ter sido gasto e o saldo fica negativo até o
// usuário repor — a reversão precisa cancelar o valor exato mesmo assim.
func ApplyUnchecked(ctx context.Context, tx *sql.Tx, userID string, amountCents int64, reason, referenceID string) error {
	return apply(ctx, tx, userID, amountCents, reason, referenceID, false)
}

func apply(ctx context.Context, tx *sql.Tx, userID string, amountCents int64, reason, referenceID string, checkFunds bool) error {
	var walletID string
	var balance int64
	err := tx.QueryRowContext(ctx,
		`SELECT id, balance_cents FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&walletID, &balance)
	if err == sql.ErrNoRows {
		// cria a carteira zerada dentro da mesma transação
		walletID = uuid.New().String()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,0,1)`,
			walletID, userID); err != nil {
			return err
		}
		balance = 0
	} else if err != nil {
		return err
	}

	if checkFunds && amountCents < 0 && balance+amountCents < 0 {
		return ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2`,
		amountCents, walletID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries(id, user_id, amount_cents, reason, reference_id)
		VALUES($1,$2,$3,$4,$5)`,
		uuid.New().String(), userID, amountCents, reason, referenceID); err != nil {
		return err
	}

	return nil
}
