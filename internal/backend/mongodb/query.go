package mongodb

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var fieldKeys = map[query.Field]string{
	query.FieldID:              "_id",
	query.FieldLastname:        "lastname",
	query.FieldFirstname:       "firstname",
	query.FieldRegisteredSince: "registeredSince",
	query.FieldAccountType:     "accountType",
}

// buildFilter translates query conditions into filter document, LIKE patterns become case-insensitive regular expressions
func buildFilter(q query.Query) (bson.D, error) {
	clauses := make(bson.A, 0, len(q.Conditions))
	for _, cond := range q.Conditions {
		key, ok := fieldKeys[cond.Field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", query.ErrUnsupported, cond.Field)
		}

		switch cond.Op {
		case query.OpContains:
			pattern, ok := cond.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s", query.ErrUnsupported, cond)
			}
			clauses = append(clauses, bson.D{{Key: key, Value: primitive.Regex{Pattern: query.LikeToRegexp(pattern), Options: "is"}}})
		case query.OpEquals:
			v, err := bsonValue(cond.Value)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, bson.D{{Key: key, Value: v}})
		case query.OpGreaterThan:
			v, err := bsonValue(cond.Value)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, bson.D{{Key: key, Value: bson.D{{Key: "$gt", Value: v}}}})
		default:
			return nil, fmt.Errorf("%w: %s", query.ErrUnsupported, cond)
		}
	}

	switch len(clauses) {
	case 0:
		return bson.D{}, nil
	case 1:
		return clauses[0].(bson.D), nil
	default:
		return bson.D{{Key: "$and", Value: clauses}}, nil
	}
}

func buildSort(q query.Query) (bson.D, error) {
	sort := make(bson.D, 0, len(q.Order)+1)
	for _, f := range q.Order {
		key, ok := fieldKeys[f]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", query.ErrUnsupported, f)
		}
		sort = append(sort, bson.E{Key: key, Value: 1})
		if key == "_id" {
			return sort, nil
		}
	}
	return append(sort, bson.E{Key: "_id", Value: 1}), nil
}

func bsonValue(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case int64, string:
		return v, nil
	case model.AccountType:
		return string(v), nil
	case civil.Date:
		return v.In(time.UTC), nil
	default:
		return nil, fmt.Errorf("%w: value of type %T", query.ErrUnsupported, v)
	}
}
