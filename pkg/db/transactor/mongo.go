package transactor

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

type mongoTransactor struct {
	client  *mongo.Client
	enabled bool
}

// NewMongoTransactor builds transactor on top of client sessions. Multi-document
// transactions need replica set, so with enabled=false txFunc runs directly and
// atomicity is limited to single document writes.
func NewMongoTransactor(client *mongo.Client, enabled bool) Transactor {
	return &mongoTransactor{client: client, enabled: enabled}
}

func (t *mongoTransactor) WithinTransaction(ctx context.Context, txFunc func(context.Context) error) error {
	if !t.enabled || mongo.SessionFromContext(ctx) != nil {
		return txFunc(ctx)
	}

	return t.client.UseSession(ctx, func(sessCtx mongo.SessionContext) error {
		_, err := sessCtx.WithTransaction(sessCtx, func(txCtx mongo.SessionContext) (interface{}, error) {
			return nil, txFunc(txCtx)
		})
		return err
	})
}
