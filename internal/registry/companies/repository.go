package companies

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/corpbank/corpbank/internal/platform/db"
	"github.com/corpbank/corpbank/internal/platform/httpx"
	"github.com/corpbank/corpbank/internal/registry/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Company, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
	Update(ctx context.Context, id int64, company Company) (Company, error)
	// Delete removes the company and every bank account pointing at it.
	Delete(ctx context.Context, id int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// earnings_declared travels as text in both directions to keep NUMERIC precision.
const companyColumns = `id, name, phone, address, address_additional_info, city, state, country, earnings_declared::text, created_at`

var orderColumns = map[string]string{
	"id":                "id",
	"name":              "name",
	"city":              "city",
	"state":             "state",
	"country":           "country",
	"earnings_declared": "earnings_declared",
	"created_at":        "created_at",
}

// List uses a dynamic query for search and ordering.
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR city ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, shared.ContainsPattern(filters.Search))
	}
	query += ` ORDER BY ` + shared.OrderClause(filters.Ordering, orderColumns)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("companies: list: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Company, error) {
		return scanCompany(row)
	})
	if err != nil {
		return nil, fmt.Errorf("companies: list scan: %w", err)
	}
	return list, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	c, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, httpx.ErrNotFound
	}
	if err != nil {
		return Company{}, fmt.Errorf("companies: get: %w", err)
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, company Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO companies (name, phone, address, address_additional_info, city, state, country, earnings_declared)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric)
		RETURNING `+companyColumns,
		company.Name, company.Phone, company.Address, company.AddressAdditionalInfo,
		company.City, company.State, company.Country, company.EarningsDeclared.String(),
	)
	created, err := scanCompany(row)
	if err != nil {
		return Company{}, fmt.Errorf("companies: create: %w", err)
	}
	return created, nil
}

// Update never touches created_at.
func (r *repository) Update(ctx context.Context, id int64, company Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE companies
		SET name = $1, phone = $2, address = $3, address_additional_info = $4,
		    city = $5, state = $6, country = $7, earnings_declared = $8::numeric
		WHERE id = $9
		RETURNING `+companyColumns,
		company.Name, company.Phone, company.Address, company.AddressAdditionalInfo,
		company.City, company.State, company.Country, company.EarningsDeclared.String(), id,
	)
	updated, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, httpx.ErrNotFound
	}
	if err != nil {
		return Company{}, fmt.Errorf("companies: update: %w", err)
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	var removedAccounts int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM bank_accounts WHERE company_id = $1`, id)
		if err != nil {
			return fmt.Errorf("companies: delete accounts: %w", err)
		}
		removedAccounts = tag.RowsAffected()
		tag, err = tx.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("companies: delete: %w", err)
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

func scanCompany(row pgx.Row) (Company, error) {
	var (
		c          Company
		additional pgtype.Text
		earnings   string
		createdAt  pgtype.Timestamptz
	)
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &additional, &c.City, &c.State, &c.Country, &earnings, &createdAt)
	if err != nil {
		return Company{}, err
	}
	if additional.Valid {
		value := additional.String
		c.AddressAdditionalInfo = &value
	}
	c.EarningsDeclared, err = decimal.NewFromString(earnings)
	if err != nil {
		return Company{}, fmt.Errorf("companies: decode earnings %q: %w", earnings, err)
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	return c, nil
}
