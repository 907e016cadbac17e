package banks

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corpbank/corpbank/internal/platform/db"
	"github.com/corpbank/corpbank/internal/platform/httpx"
	"github.com/corpbank/corpbank/internal/registry/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Bank, error)
	Get(ctx context.Context, id int64) (Bank, error)
	Create(ctx context.Context, bank Bank) (Bank, error)
	Update(ctx context.Context, id int64, bank Bank) (Bank, error)
	// Delete removes the bank and every bank account pointing at it.
	Delete(ctx context.Context, id int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var orderColumns = map[string]string{
	"id":   "id",
	"code": "code",
	"name": "name",
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Bank, error) {
	query := `SELECT id, code, name FROM banks`
	var args []any
	if filters.Search != "" {
		query += ` WHERE name ILIKE $1 OR code ILIKE $1`
		args = append(args, shared.ContainsPattern(filters.Search))
	}
	query += ` ORDER BY ` + shared.OrderClause(filters.Ordering, orderColumns)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("banks: list: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Bank, error) {
		return scanBank(row)
	})
	if err != nil {
		return nil, fmt.Errorf("banks: list scan: %w", err)
	}
	return list, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Bank, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, code, name FROM banks WHERE id = $1`, id)
	b, err := scanBank(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bank{}, httpx.ErrNotFound
	}
	if err != nil {
		return Bank{}, fmt.Errorf("banks: get: %w", err)
	}
	return b, nil
}

func (r *repository) Create(ctx context.Context, bank Bank) (Bank, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO banks (code, name) VALUES ($1, $2) RETURNING id, code, name`, bank.Code, bank.Name)
	created, err := scanBank(row)
	if err != nil {
		return Bank{}, fmt.Errorf("banks: create: %w", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, bank Bank) (Bank, error) {
	row := r.pool.QueryRow(ctx, `UPDATE banks SET code = $1, name = $2 WHERE id = $3 RETURNING id, code, name`, bank.Code, bank.Name, id)
	updated, err := scanBank(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bank{}, httpx.ErrNotFound
	}
	if err != nil {
		return Bank{}, fmt.Errorf("banks: update: %w", err)
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	var removedAccounts int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM bank_accounts WHERE bank_id = $1`, id)
		if err != nil {
			return fmt.Errorf("banks: delete accounts: %w", err)
		}
		removedAccounts = tag.RowsAffected()
		tag, err = tx.Exec(ctx, `DELETE FROM banks WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("banks: delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removedAccounts, nil
}

func scanBank(row pgx.Row) (Bank, error) {
	var b Bank
	err := row.Scan(&b.ID, &b.Code, &b.Name)
	return b, err
}
