package infra

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-registry/internal/backend/memory"
	"github.com/umalmyha/customer-registry/internal/backend/mongodb"
	"github.com/umalmyha/customer-registry/internal/backend/postgres"
	"github.com/umalmyha/customer-registry/internal/config"
	"github.com/umalmyha/customer-registry/internal/repository"
	"github.com/umalmyha/customer-registry/migrations"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

// Storage is backend selected by configuration together with its schema management and connection lifecycle
type Storage struct {
	Backend repository.Backend
	migrate func(context.Context) error
	close   func(context.Context)
}

// Migrate brings storage schema up to date
func (s *Storage) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

func (s *Storage) Close(ctx context.Context) {
	s.close(ctx)
}

func OpenStorage(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*Storage, error) {
	logger = logger.WithField("backend", cfg.Backend)

	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := Postgresql(ctx, cfg.PostgresCfg)
		if err != nil {
			return nil, err
		}

		trx := transactor.NewPgxTransactor(pool)
		logger.Debug("connected to postgresql")
		return &Storage{
			Backend: postgres.NewBackend(trx),
			migrate: func(ctx context.Context) error {
				return MigratePostgres(ctx, trx, migrations.FS, logger)
			},
			close: func(context.Context) {
				pool.Close()
			},
		}, nil
	case config.BackendMongo:
		client, err := Mongodb(ctx, cfg.MongoCfg)
		if err != nil {
			return nil, err
		}

		db := client.Database(cfg.MongoCfg.Database)
		logger.WithField("transactions", cfg.MongoCfg.Transactions).Debug("connected to mongodb")
		return &Storage{
			Backend: mongodb.NewBackend(transactor.NewMongoTransactor(client, cfg.MongoCfg.Transactions), db),
			migrate: func(ctx context.Context) error {
				if err := mongodb.EnsureSchema(ctx, db); err != nil {
					return err
				}
				logger.Info("mongodb schema ensured")
				return nil
			},
			close: func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					logger.WithError(err).Warn("failed to disconnect from mongodb")
				}
			},
		}, nil
	case config.BackendMemory:
		return &Storage{
			Backend: memory.NewBackend(),
			migrate: func(context.Context) error { return nil },
			close:   func(context.Context) {},
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
