package postgres

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/query"
)

var fieldColumns = map[query.Field]string{
	query.FieldID:              "id",
	query.FieldLastname:        "lastname",
	query.FieldFirstname:       "firstname",
	query.FieldRegisteredSince: "registered_since",
	query.FieldAccountType:     "account_type",
}

// orderColumns sort text byte-wise with missing values first, as zero values sort in process
var orderColumns = map[query.Field]string{
	query.FieldID:              "id ASC",
	query.FieldLastname:        `lastname COLLATE "C" ASC NULLS FIRST`,
	query.FieldFirstname:       `firstname COLLATE "C" ASC NULLS FIRST`,
	query.FieldRegisteredSince: "registered_since ASC NULLS FIRST",
	query.FieldAccountType:     `account_type COLLATE "C" ASC`,
}

// buildSelect translates query into SQL, LIKE runs without escape character so % and _ in patterns stay wildcards
func buildSelect(q query.Query) (string, []interface{}, error) {
	var b strings.Builder
	b.WriteString("SELECT " + customerColumns + " FROM customers")

	args := make([]interface{}, 0, len(q.Conditions))
	for i, cond := range q.Conditions {
		col, ok := fieldColumns[cond.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q", query.ErrUnsupported, cond.Field)
		}

		arg, err := conditionArg(cond)
		if err != nil {
			return "", nil, err
		}
		args = append(args, arg)

		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}

		switch cond.Op {
		case query.OpContains:
			fmt.Fprintf(&b, "lower(%s) LIKE lower($%d) ESCAPE ''", col, len(args))
		case query.OpEquals:
			fmt.Fprintf(&b, "%s = $%d", col, len(args))
		case query.OpGreaterThan:
			fmt.Fprintf(&b, "%s > $%d", col, len(args))
		default:
			return "", nil, fmt.Errorf("%w: %s", query.ErrUnsupported, cond)
		}
	}

	b.WriteString(" ORDER BY ")
	for _, f := range q.Order {
		order, ok := orderColumns[f]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q", query.ErrUnsupported, f)
		}
		b.WriteString(order + ", ")
	}
	b.WriteString("id ASC")

	return b.String(), args, nil
}

func conditionArg(cond query.Condition) (interface{}, error) {
	if cond.Op == query.OpContains {
		if _, ok := cond.Value.(string); !ok {
			return nil, fmt.Errorf("%w: %s", query.ErrUnsupported, cond)
		}
	}

	switch v := cond.Value.(type) {
	case int64, string:
		return v, nil
	case model.AccountType:
		return string(v), nil
	case civil.Date:
		return dateParam(v), nil
	default:
		return nil, fmt.Errorf("%w: value of type %T", query.ErrUnsupported, cond.Value)
	}
}
