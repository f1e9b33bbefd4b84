package monitoring

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/repository"
)

type instrumentedRepository struct {
	next    repository.CustomerRepository
	metrics *RepositoryMetrics
}

// Instrument decorates repository with call metrics
func Instrument(next repository.CustomerRepository, metrics *RepositoryMetrics) repository.CustomerRepository {
	return &instrumentedRepository{next: next, metrics: metrics}
}

func (r *instrumentedRepository) Create(ctx context.Context, c *model.Customer) (bool, error) {
	start := time.Now()
	created, err := r.next.Create(ctx, c)
	r.record("create", start, err, !created)
	return created, err
}

func (r *instrumentedRepository) Read(ctx context.Context, id int64) (*model.Customer, error) {
	start := time.Now()
	c, err := r.next.Read(ctx, id)
	r.record("read", start, err, c == nil)
	return c, err
}

func (r *instrumentedRepository) Update(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	start := time.Now()
	updated, err := r.next.Update(ctx, c)
	r.record("update", start, err, updated == nil)
	return updated, err
}

func (r *instrumentedRepository) Delete(ctx context.Context, c *model.Customer) (bool, error) {
	start := time.Now()
	deleted, err := r.next.Delete(ctx, c)
	r.record("delete", start, err, !deleted)
	return deleted, err
}

func (r *instrumentedRepository) FindAll(ctx context.Context) ([]*model.Customer, error) {
	start := time.Now()
	customers, err := r.next.FindAll(ctx)
	r.record("findAll", start, err, false)
	return customers, err
}

func (r *instrumentedRepository) FindByLastname(ctx context.Context, part string) ([]*model.Customer, error) {
	start := time.Now()
	customers, err := r.next.FindByLastname(ctx, part)
	r.record("findByLastname", start, err, part == "")
	return customers, err
}

func (r *instrumentedRepository) FindByAccountType(ctx context.Context, t model.AccountType) ([]*model.Customer, error) {
	start := time.Now()
	customers, err := r.next.FindByAccountType(ctx, t)
	r.record("findByAccountType", start, err, t == "")
	return customers, err
}

func (r *instrumentedRepository) FindAllRegisteredAfter(ctx context.Context, date civil.Date) ([]*model.Customer, error) {
	start := time.Now()
	customers, err := r.next.FindAllRegisteredAfter(ctx, date)
	r.record("findAllRegisteredAfter", start, err, !date.IsValid())
	return customers, err
}

func (r *instrumentedRepository) record(operation string, start time.Time, err error, rejected bool) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeError
	case rejected:
		outcome = OutcomeRejected
	}
	r.metrics.RecordCall(operation, outcome, time.Since(start))
}
