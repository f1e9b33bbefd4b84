package repository

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	apperrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/query"
)

const customerTarget = "customer"

const (
	msgNotExistUpdate = "Customer does not exist, cannot update"
	msgNotExistDelete = "Customer does not exist, cannot delete"
)

// CustomerRepository is the only gateway to persisted customers
type CustomerRepository interface {
	// Create persists transient customer and assigns id to it.
	// Returns false for nil customer or customer which already has id.
	Create(context.Context, *model.Customer) (bool, error)

	// Read returns nil if id is zero or customer does not exist
	Read(context.Context, int64) (*model.Customer, error)

	// Update overwrites existing customer, fails with *errors.ArgumentErr if it does not exist
	Update(context.Context, *model.Customer) (*model.Customer, error)

	// Delete removes existing customer, fails with *errors.ArgumentErr if it does not exist
	Delete(context.Context, *model.Customer) (bool, error)

	// FindAll returns all customers ordered by registration date
	FindAll(context.Context) ([]*model.Customer, error)

	// FindByLastname returns customers whose lastname contains part ignoring case, ordered by lastname
	FindByLastname(context.Context, string) ([]*model.Customer, error)

	// FindByAccountType returns customers of exactly given account type
	FindByAccountType(context.Context, model.AccountType) ([]*model.Customer, error)

	// FindAllRegisteredAfter returns customers registered strictly after date
	FindAllRegisteredAfter(context.Context, civil.Date) ([]*model.Customer, error)
}

type customerRepository struct {
	backend Backend
	logger  logrus.FieldLogger
}

func NewCustomerRepository(b Backend, logger logrus.FieldLogger) CustomerRepository {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &customerRepository{
		backend: b,
		logger:  logger.WithField("component", "customer-repository"),
	}
}

func (r *customerRepository) Create(ctx context.Context, c *model.Customer) (bool, error) {
	log := r.logger.WithField("operation", "create")
	if c == nil {
		log.Debug("nil customer rejected")
		return false, nil
	}

	if !c.IsNew() {
		log.WithField("id", c.ID).Debug("customer already has identity, rejected")
		return false, nil
	}

	log = log.WithField("unit", uuid.NewString())
	err := r.backend.WithinTransaction(ctx, func(ctx context.Context) error {
		return r.backend.Insert(ctx, c)
	})
	if err != nil {
		c.ID = 0
		log.WithError(err).Error("failed to create customer")
		return false, err
	}

	log.WithField("id", c.ID).Debug("customer created")
	return true, nil
}

func (r *customerRepository) Read(ctx context.Context, id int64) (*model.Customer, error) {
	if id == 0 {
		return nil, nil
	}

	c, err := r.backend.FindByID(ctx, id)
	if err != nil {
		r.logger.WithFields(logrus.Fields{"operation": "read", "id": id}).WithError(err).Error("failed to read customer")
		return nil, err
	}
	return c, nil
}

func (r *customerRepository) Update(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	log := r.logger.WithField("operation", "update")
	if c == nil {
		log.Debug("nil customer rejected")
		return nil, nil
	}

	if c.IsNew() {
		log.Warn("transient customer can't be updated")
		return nil, apperrors.NewArgumentErr(customerTarget, msgNotExistUpdate)
	}

	log = log.WithFields(logrus.Fields{"id": c.ID, "unit": uuid.NewString()})

	var merged *model.Customer
	err := r.backend.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := r.backend.FindByID(ctx, c.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			return apperrors.NewArgumentErr(customerTarget, msgNotExistUpdate)
		}

		merged, err = r.backend.Merge(ctx, c)
		return err
	})
	if err != nil {
		err = r.notExistAsArgumentErr(err, msgNotExistUpdate)
		r.logFailure(log, err, "failed to update customer")
		return nil, err
	}

	log.Debug("customer updated")
	return merged, nil
}

func (r *customerRepository) Delete(ctx context.Context, c *model.Customer) (bool, error) {
	log := r.logger.WithField("operation", "delete")
	if c == nil {
		log.Debug("nil customer rejected")
		return false, nil
	}

	if c.IsNew() {
		log.Warn("transient customer can't be deleted")
		return false, apperrors.NewArgumentErr(customerTarget, msgNotExistDelete)
	}

	log = log.WithFields(logrus.Fields{"id": c.ID, "unit": uuid.NewString()})

	err := r.backend.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := r.backend.FindByID(ctx, c.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			return apperrors.NewArgumentErr(customerTarget, msgNotExistDelete)
		}
		return r.backend.Remove(ctx, existing)
	})
	if err != nil {
		err = r.notExistAsArgumentErr(err, msgNotExistDelete)
		r.logFailure(log, err, "failed to delete customer")
		return false, err
	}

	log.Debug("customer deleted")
	return true, nil
}

func (r *customerRepository) FindAll(ctx context.Context) ([]*model.Customer, error) {
	q := query.New().OrderBy(query.FieldRegisteredSince)
	return r.query(ctx, "findAll", q)
}

func (r *customerRepository) FindByLastname(ctx context.Context, part string) ([]*model.Customer, error) {
	if part == "" {
		return make([]*model.Customer, 0), nil
	}

	q := query.New().
		Where(query.Contains(query.FieldLastname, part)).
		OrderBy(query.FieldLastname)
	return r.query(ctx, "findByLastname", q)
}

func (r *customerRepository) FindByAccountType(ctx context.Context, t model.AccountType) ([]*model.Customer, error) {
	if t == "" {
		return make([]*model.Customer, 0), nil
	}

	q := query.New().Where(query.Equals(query.FieldAccountType, t))
	return r.query(ctx, "findByAccountType", q)
}

func (r *customerRepository) FindAllRegisteredAfter(ctx context.Context, date civil.Date) ([]*model.Customer, error) {
	if !date.IsValid() {
		return make([]*model.Customer, 0), nil
	}

	q := query.New().Where(query.GreaterThan(query.FieldRegisteredSince, date))
	return r.query(ctx, "findAllRegisteredAfter", q)
}

func (r *customerRepository) query(ctx context.Context, operation string, q query.Query) ([]*model.Customer, error) {
	customers, err := r.backend.Query(ctx, q)
	if err != nil {
		r.logger.WithFields(logrus.Fields{"operation": operation, "query": q.String()}).WithError(err).Error("failed to query customers")
		return nil, err
	}

	if customers == nil {
		customers = make([]*model.Customer, 0)
	}
	return customers, nil
}

// notExistAsArgumentErr covers customer removed concurrently between existence check and write
func (r *customerRepository) notExistAsArgumentErr(err error, msg string) error {
	var nfErr *apperrors.EntryNotFoundErr
	if errors.As(err, &nfErr) {
		return apperrors.NewArgumentErr(customerTarget, msg)
	}
	return err
}

func (r *customerRepository) logFailure(log logrus.FieldLogger, err error, msg string) {
	var argErr *apperrors.ArgumentErr
	if errors.As(err, &argErr) {
		log.WithError(err).Warn(msg)
		return
	}
	log.WithError(err).Error(msg)
}
