package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	apperrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/query"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

const (
	pgNotNullViolation = "23502"
	pgCheckViolation   = "23514"
)

const customerColumns = "id, COALESCE(lastname, ''), COALESCE(firstname, ''), registered_since, account_type"

var columnFields = map[string]query.Field{
	"id":               query.FieldID,
	"lastname":         query.FieldLastname,
	"firstname":        query.FieldFirstname,
	"registered_since": query.FieldRegisteredSince,
	"account_type":     query.FieldAccountType,
}

var constraintFields = map[string]query.Field{
	"customers_account_type_check": query.FieldAccountType,
}

type Backend struct {
	transactor.PgxTransactor
}

func NewBackend(trx transactor.PgxTransactor) *Backend {
	return &Backend{PgxTransactor: trx}
}

func (b *Backend) Insert(ctx context.Context, c *model.Customer) error {
	q := `INSERT INTO customers(lastname, firstname, registered_since, account_type)
          VALUES($1, $2, $3, $4) RETURNING id`

	var id int64
	row := b.Executor(ctx).QueryRow(ctx, q, c.Lastname, c.Firstname, dateParam(c.RegisteredSince), accountTypeParam(c.AccountType))
	if err := row.Scan(&id); err != nil {
		return fmt.Errorf("failed to insert customer - %w", translateErr(err))
	}

	c.ID = id
	return nil
}

func (b *Backend) FindByID(ctx context.Context, id int64) (*model.Customer, error) {
	q := "SELECT " + customerColumns + " FROM customers WHERE id = $1"

	c, err := scanCustomer(b.Executor(ctx).QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer %d - %w", id, err)
	}
	return c, nil
}

func (b *Backend) Merge(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	q := `UPDATE customers SET lastname = $1, firstname = $2, registered_since = $3, account_type = $4
          WHERE id = $5 RETURNING ` + customerColumns

	row := b.Executor(ctx).QueryRow(ctx, q, c.Lastname, c.Firstname, dateParam(c.RegisteredSince), accountTypeParam(c.AccountType), c.ID)
	merged, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewEntryNotFoundErr(fmt.Sprintf("customer with id %d doesn't exist", c.ID))
		}
		return nil, fmt.Errorf("failed to update customer %d - %w", c.ID, translateErr(err))
	}
	return merged, nil
}

func (b *Backend) Remove(ctx context.Context, c *model.Customer) error {
	q := "DELETE FROM customers WHERE id = $1"

	comm, err := b.Executor(ctx).Exec(ctx, q, c.ID)
	if err != nil {
		return fmt.Errorf("failed to delete customer %d - %w", c.ID, err)
	}

	if comm.RowsAffected() == 0 {
		return apperrors.NewEntryNotFoundErr(fmt.Sprintf("customer with id %d doesn't exist", c.ID))
	}
	return nil
}

func (b *Backend) Query(ctx context.Context, q query.Query) ([]*model.Customer, error) {
	sql, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := b.Executor(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers - %w", err)
	}
	defer rows.Close()

	customers := make([]*model.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	var since *time.Time
	var accountType string

	if err := row.Scan(&c.ID, &c.Lastname, &c.Firstname, &since, &accountType); err != nil {
		return nil, err
	}

	if since != nil {
		c.RegisteredSince = civil.DateOf(*since)
	}
	c.AccountType = model.AccountType(accountType)
	return &c, nil
}

func dateParam(d civil.Date) pgtype.Date {
	if !d.IsValid() {
		return pgtype.Date{Status: pgtype.Null}
	}
	return pgtype.Date{Time: d.In(time.UTC), Status: pgtype.Present}
}

func accountTypeParam(t model.AccountType) pgtype.Text {
	if t == "" {
		return pgtype.Text{Status: pgtype.Null}
	}
	return pgtype.Text{String: string(t), Status: pgtype.Present}
}

// translateErr turns constraint violations into validation errors, other errors are returned as is
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgNotNullViolation:
		return apperrors.NewValidationErr(string(columnFields[pgErr.ColumnName]), "must not be null", pgErr)
	case pgCheckViolation:
		return apperrors.NewValidationErr(string(constraintFields[pgErr.ConstraintName]), "value is not allowed", pgErr)
	default:
		return err
	}
}
