package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	apperrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/query"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	customersCollection = "customers"
	countersCollection  = "counters"
	customersCounterID  = "customers"
)

const (
	mongoNamespaceExists           = 48
	mongoDocumentValidationFailure = 121
)

type customerDocument struct {
	ID              int64      `bson:"_id"`
	Lastname        string     `bson:"lastname"`
	Firstname       string     `bson:"firstname"`
	RegisteredSince *time.Time `bson:"registeredSince,omitempty"`
	AccountType     string     `bson:"accountType,omitempty"`
}

func toDocument(c *model.Customer) *customerDocument {
	doc := &customerDocument{
		ID:          c.ID,
		Lastname:    c.Lastname,
		Firstname:   c.Firstname,
		AccountType: string(c.AccountType),
	}
	if c.RegisteredSince.IsValid() {
		t := c.RegisteredSince.In(time.UTC)
		doc.RegisteredSince = &t
	}
	return doc
}

func (d *customerDocument) customer() *model.Customer {
	c := &model.Customer{
		ID:          d.ID,
		Lastname:    d.Lastname,
		Firstname:   d.Firstname,
		AccountType: model.AccountType(d.AccountType),
	}
	if d.RegisteredSince != nil {
		c.RegisteredSince = civil.DateOf(d.RegisteredSince.UTC())
	}
	return c
}

type counterDocument struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

type Backend struct {
	transactor.Transactor
	customers *mongo.Collection
	counters  *mongo.Collection
}

func NewBackend(trx transactor.Transactor, db *mongo.Database) *Backend {
	return &Backend{
		Transactor: trx,
		customers:  db.Collection(customersCollection),
		counters:   db.Collection(countersCollection),
	}
}

func (b *Backend) Insert(ctx context.Context, c *model.Customer) error {
	id, err := b.nextID(ctx)
	if err != nil {
		return err
	}

	doc := toDocument(c)
	doc.ID = id
	if _, err := b.customers.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert customer - %w", translateErr(err))
	}

	c.ID = id
	return nil
}

func (b *Backend) FindByID(ctx context.Context, id int64) (*model.Customer, error) {
	var doc customerDocument
	if err := b.customers.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer %d - %w", id, err)
	}
	return doc.customer(), nil
}

func (b *Backend) Merge(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)

	var doc customerDocument
	err := b.customers.FindOneAndReplace(ctx, bson.M{"_id": c.ID}, toDocument(c), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NewEntryNotFoundErr(fmt.Sprintf("customer with id %d doesn't exist", c.ID))
		}
		return nil, fmt.Errorf("failed to update customer %d - %w", c.ID, translateErr(err))
	}
	return doc.customer(), nil
}

func (b *Backend) Remove(ctx context.Context, c *model.Customer) error {
	res, err := b.customers.DeleteOne(ctx, bson.M{"_id": c.ID})
	if err != nil {
		return fmt.Errorf("failed to delete customer %d - %w", c.ID, err)
	}

	if res.DeletedCount == 0 {
		return apperrors.NewEntryNotFoundErr(fmt.Sprintf("customer with id %d doesn't exist", c.ID))
	}
	return nil
}

func (b *Backend) Query(ctx context.Context, q query.Query) ([]*model.Customer, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return nil, err
	}

	sort, err := buildSort(q)
	if err != nil {
		return nil, err
	}

	cur, err := b.customers.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to query customers - %w", err)
	}
	defer cur.Close(ctx)

	customers := make([]*model.Customer, 0)
	for cur.Next(ctx) {
		var doc customerDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		customers = append(customers, doc.customer())
	}

	if err := cur.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (b *Backend) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}

	var counter counterDocument
	if err := b.counters.FindOneAndUpdate(ctx, bson.M{"_id": customersCounterID}, update, opts).Decode(&counter); err != nil {
		return 0, fmt.Errorf("failed to generate customer id - %w", err)
	}
	return counter.Seq, nil
}

// EnsureSchema creates customers collection with validator, counters collection and indexes, it is safe to run repeatedly
func EnsureSchema(ctx context.Context, db *mongo.Database) error {
	validator := customersValidator()

	created, err := createCollection(ctx, db, customersCollection, options.CreateCollection().SetValidator(validator))
	if err != nil {
		return err
	}

	if !created {
		cmd := bson.D{{Key: "collMod", Value: customersCollection}, {Key: "validator", Value: validator}}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("failed to update validator of collection %s - %w", customersCollection, err)
		}
	}

	// counters must exist before first insert, transactions can't create collections on older servers
	if _, err := createCollection(ctx, db, countersCollection, options.CreateCollection()); err != nil {
		return err
	}

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "lastname", Value: 1}}},
		{Keys: bson.D{{Key: "registeredSince", Value: 1}}},
		{Keys: bson.D{{Key: "accountType", Value: 1}}},
	}
	if _, err := db.Collection(customersCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes of collection %s - %w", customersCollection, err)
	}
	return nil
}

// createCollection reports false if collection already exists
func createCollection(ctx context.Context, db *mongo.Database, name string, opts *options.CreateCollectionOptions) (bool, error) {
	err := db.CreateCollection(ctx, name, opts)
	if err == nil {
		return true, nil
	}

	if hasErrorCode(err, mongoNamespaceExists) {
		return false, nil
	}
	return false, fmt.Errorf("failed to create collection %s - %w", name, err)
}

func customersValidator() bson.M {
	accountTypes := make(bson.A, 0, len(model.AccountTypes))
	for _, t := range model.AccountTypes {
		accountTypes = append(accountTypes, string(t))
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"accountType"},
			"properties": bson.M{
				"lastname":        bson.M{"bsonType": "string"},
				"firstname":       bson.M{"bsonType": "string"},
				"registeredSince": bson.M{"bsonType": "date"},
				"accountType":     bson.M{"enum": accountTypes},
			},
		},
	}
}

func hasErrorCode(err error, code int) bool {
	var srvErr mongo.ServerError
	return errors.As(err, &srvErr) && srvErr.HasErrorCode(code)
}

// translateErr turns document validation failures into validation errors, other errors are returned as is
func translateErr(err error) error {
	if hasErrorCode(err, mongoDocumentValidationFailure) {
		return apperrors.NewValidationErr(string(query.FieldAccountType), "document failed validation", err)
	}
	return err
}
