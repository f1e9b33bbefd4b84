// Package memory keeps customers in process memory. It backs tests and the
// memory mode of the command line tool.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/query"
)

type unitKey struct{}

type state struct {
	customers map[int64]model.Customer
	lastID    int64
}

func (s *state) clone() *state {
	customers := make(map[int64]model.Customer, len(s.customers))
	for id, c := range s.customers {
		customers[id] = c
	}
	return &state{customers: customers, lastID: s.lastID}
}

func unitState(ctx context.Context) *state {
	if s, ok := ctx.Value(unitKey{}).(*state); ok {
		return s
	}
	return nil
}

// Backend is safe for concurrent use, units of work are serialized
type Backend struct {
	mu    sync.RWMutex
	state *state
}

func NewBackend() *Backend {
	return &Backend{state: &state{customers: make(map[int64]model.Customer)}}
}

// WithinTransaction runs txFunc against private copy of the store, copy replaces store only if txFunc succeeds
func (b *Backend) WithinTransaction(ctx context.Context, txFunc func(context.Context) error) error {
	if unitState(ctx) != nil {
		return txFunc(ctx)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	working := b.state.clone()
	if err := txFunc(context.WithValue(ctx, unitKey{}, working)); err != nil {
		return err
	}

	b.state = working
	return nil
}

func (b *Backend) Insert(ctx context.Context, c *model.Customer) error {
	if err := validate(c); err != nil {
		return err
	}

	return b.write(ctx, func(s *state) error {
		s.lastID++
		stored := *c
		stored.ID = s.lastID
		s.customers[stored.ID] = stored
		c.ID = stored.ID
		return nil
	})
}

func (b *Backend) FindByID(ctx context.Context, id int64) (*model.Customer, error) {
	var found *model.Customer
	err := b.read(ctx, func(s *state) error {
		if c, ok := s.customers[id]; ok {
			found = &c
		}
		return nil
	})
	return found, err
}

func (b *Backend) Merge(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	if err := validate(c); err != nil {
		return nil, err
	}

	var merged *model.Customer
	err := b.write(ctx, func(s *state) error {
		if _, ok := s.customers[c.ID]; !ok {
			return apperrors.NewEntryNotFoundErr(fmt.Sprintf("customer with id %d doesn't exist", c.ID))
		}
		s.customers[c.ID] = *c
		merged = c.Clone()
		return nil
	})
	return merged, err
}

func (b *Backend) Remove(ctx context.Context, c *model.Customer) error {
	return b.write(ctx, func(s *state) error {
		if _, ok := s.customers[c.ID]; !ok {
			return apperrors.NewEntryNotFoundErr(fmt.Sprintf("customer with id %d doesn't exist", c.ID))
		}
		delete(s.customers, c.ID)
		return nil
	})
}

func (b *Backend) Query(ctx context.Context, q query.Query) ([]*model.Customer, error) {
	matches, err := q.Matcher()
	if err != nil {
		return nil, err
	}

	customers := make([]*model.Customer, 0)
	err = b.read(ctx, func(s *state) error {
		for _, c := range s.customers {
			ok, err := matches(c)
			if err != nil {
				return err
			}
			if ok {
				cp := c
				customers = append(customers, &cp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(customers, func(i, j int) bool {
		return q.Less(*customers[i], *customers[j])
	})
	return customers, nil
}

// Len returns number of stored customers
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.state.customers)
}

func (b *Backend) read(ctx context.Context, fn func(*state) error) error {
	if s := unitState(ctx); s != nil {
		return fn(s)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return fn(b.state)
}

// write outside of unit of work commits immediately
func (b *Backend) write(ctx context.Context, fn func(*state) error) error {
	return b.WithinTransaction(ctx, func(ctx context.Context) error {
		return fn(unitState(ctx))
	})
}

func validate(c *model.Customer) error {
	if c.AccountType == "" {
		return apperrors.NewValidationErr("accountType", "must not be null", nil)
	}
	if !c.AccountType.IsValid() {
		return apperrors.NewValidationErr("accountType", fmt.Sprintf("unknown value %q", c.AccountType), nil)
	}
	return nil
}
