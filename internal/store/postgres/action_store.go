package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// ActionStore implements domain.ActionStore using PostgreSQL.
type ActionStore struct {
	pool *pgxpool.Pool
}

// NewActionStore creates an ActionStore backed by pool.
func NewActionStore(pool *pgxpool.Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

const actionColumns = `id, cycle_id, kind, side, contract, order_id,
	amount::text, price::text, status, tx_hash, error, created_at`

// Insert stores rec, assigning an id when it has none.
func (s *ActionStore) Insert(ctx context.Context, rec domain.ActionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO actions (
			id, cycle_id, kind, side, contract, order_id,
			amount, price, status, tx_hash, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.CycleID, string(rec.Kind), string(rec.Side), rec.Contract, rec.OrderID,
		rec.Amount.String(), rec.Price.String(),
		string(rec.Status), rec.TxHash, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert action %s: %w", rec.ID, err)
	}
	return nil
}

// ListByCycle returns the actions of one cycle in submission order.
func (s *ActionStore) ListByCycle(ctx context.Context, cycleID string) ([]domain.ActionRecord, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE cycle_id = $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list actions for cycle %s: %w", cycleID, err)
	}
	return collectActions(rows)
}

// ListRecent returns actions newest first.
func (s *ActionStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	query, args := pageQuery(`SELECT `+actionColumns+` FROM actions WHERE 1=1`, nil, opts)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent actions: %w", err)
	}
	return collectActions(rows)
}

func collectActions(rows pgx.Rows) ([]domain.ActionRecord, error) {
	defer rows.Close()

	var out []domain.ActionRecord
	for rows.Next() {
		var (
			r             domain.ActionRecord
			kind, side    string
			status        string
			amount, price string
		)
		if err := rows.Scan(&r.ID, &r.CycleID, &kind, &side, &r.Contract, &r.OrderID,
			&amount, &price, &status, &r.TxHash, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan action: %w", err)
		}
		r.Kind = domain.ActionKind(kind)
		r.Side = domain.Side(side)
		r.Status = domain.ActionStatus(status)

		var err error
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("postgres: action %s amount: %w", r.ID, err)
		}
		if r.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("postgres: action %s price: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list actions rows: %w", err)
	}
	return out, nil
}
