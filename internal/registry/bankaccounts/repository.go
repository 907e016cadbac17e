package bankaccounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corpbank/corpbank/internal/platform/httpx"
	"github.com/corpbank/corpbank/internal/registry/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]BankAccount, error)
	Get(ctx context.Context, id int64) (BankAccount, error)
	Create(ctx context.Context, account BankAccount) (BankAccount, error)
	Update(ctx context.Context, id int64, account BankAccount) (BankAccount, error)
	Delete(ctx context.Context, id int64) error
	BankExists(ctx context.Context, id int64) (bool, error)
	CompanyExists(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const (
	accountColumns = `id, bank_id, company_id, account_number, agency`

	fkBank    = "bank_accounts_bank_id_fkey"
	fkCompany = "bank_accounts_company_id_fkey"
	pgFKCode  = "23503"
)

var orderColumns = map[string]string{
	"id":             "id",
	"bank":           "bank_id",
	"company":        "company_id",
	"account_number": "account_number",
	"agency":         "agency",
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]BankAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE 1=1`
	args := []any{}
	if filters.BankID != nil {
		args = append(args, *filters.BankID)
		query += ` AND bank_id = $` + strconv.Itoa(len(args))
	}
	if filters.CompanyID != nil {
		args = append(args, *filters.CompanyID)
		query += ` AND company_id = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, shared.ContainsPattern(filters.Search))
		query += ` AND account_number ILIKE $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY ` + shared.OrderClause(filters.Ordering, orderColumns)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bankaccounts: list: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (BankAccount, error) {
		return scanAccount(row)
	})
	if err != nil {
		return nil, fmt.Errorf("bankaccounts: list scan: %w", err)
	}
	return list, nil
}

func (r *repository) Get(ctx context.Context, id int64) (BankAccount, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankAccount{}, httpx.ErrNotFound
	}
	if err != nil {
		return BankAccount{}, fmt.Errorf("bankaccounts: get: %w", err)
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, account BankAccount) (BankAccount, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO bank_accounts (bank_id, company_id, account_number, agency)
		VALUES ($1, $2, $3, $4)
		RETURNING `+accountColumns,
		account.BankID, account.CompanyID, account.AccountNumber, account.Agency,
	)
	created, err := scanAccount(row)
	if err != nil {
		if refErr := referenceError(err, account); refErr != nil {
			return BankAccount{}, refErr
		}
		return BankAccount{}, fmt.Errorf("bankaccounts: create: %w", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, account BankAccount) (BankAccount, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bank_accounts
		SET bank_id = $1, company_id = $2, account_number = $3, agency = $4
		WHERE id = $5
		RETURNING `+accountColumns,
		account.BankID, account.CompanyID, account.AccountNumber, account.Agency, id,
	)
	updated, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankAccount{}, httpx.ErrNotFound
	}
	if err != nil {
		if refErr := referenceError(err, account); refErr != nil {
			return BankAccount{}, refErr
		}
		return BankAccount{}, fmt.Errorf("bankaccounts: update: %w", err)
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bank_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("bankaccounts: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) BankExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM banks WHERE id = $1)`, id)
}

func (r *repository) CompanyExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`, id)
}

func (r *repository) exists(ctx context.Context, query string, id int64) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("bankaccounts: exists: %w", err)
	}
	return ok, nil
}

// referenceError maps a foreign key violation raised by a concurrent parent delete
// onto the same error the service reports for a missing parent.
func referenceError(err error, account BankAccount) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgFKCode {
		return nil
	}
	switch pgErr.ConstraintName {
	case fkBank:
		return shared.MissingReference("bank", account.BankID)
	case fkCompany:
		return shared.MissingReference("company", account.CompanyID)
	}
	return nil
}

func scanAccount(row pgx.Row) (BankAccount, error) {
	var a BankAccount
	err := row.Scan(&a.ID, &a.BankID, &a.CompanyID, &a.AccountNumber, &a.Agency)
	return a, err
}
