package repository

import (
	"context"

	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/query"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

// Backend is persistence store customer repository delegates to.
// Mutating calls are expected to run within transaction opened by WithinTransaction.
type Backend interface {
	transactor.Transactor

	// Insert stores new customer and assigns fresh id to it
	Insert(ctx context.Context, c *model.Customer) error

	// FindByID returns nil without error if customer does not exist
	FindByID(ctx context.Context, id int64) (*model.Customer, error)

	// Merge overwrites stored customer with values of c and returns persisted state
	Merge(ctx context.Context, c *model.Customer) (*model.Customer, error)

	// Remove deletes stored customer with id of c
	Remove(ctx context.Context, c *model.Customer) error

	// Query returns customers matching q ordered as q requests
	Query(ctx context.Context, q query.Query) ([]*model.Customer, error)
}
