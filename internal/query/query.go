// Package query describes customer lookups as plain data, so that every
// backend can translate them into its native query mechanism.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/umalmyha/customer-registry/internal/model"
)

// ErrUnsupported is returned when field, operator and value do not fit together
var ErrUnsupported = errors.New("unsupported query")

// Field names customer attribute which can be filtered or sorted by
type Field string

const (
	FieldID              Field = "id"
	FieldLastname        Field = "lastname"
	FieldFirstname       Field = "firstname"
	FieldRegisteredSince Field = "registeredSince"
	FieldAccountType     Field = "accountType"
)

// Operator is comparison applied by condition
type Operator int

const (
	// OpContains matches text field against LIKE pattern, case-insensitive
	OpContains Operator = iota + 1
	// OpEquals matches exact value
	OpEquals
	// OpGreaterThan matches values strictly greater than operand
	OpGreaterThan
)

func (o Operator) String() string {
	switch o {
	case OpContains:
		return "contains"
	case OpEquals:
		return "equals"
	case OpGreaterThan:
		return "greaterThan"
	default:
		return fmt.Sprintf("operator(%d)", int(o))
	}
}

// Condition is single predicate, for OpContains Value holds LIKE pattern
type Condition struct {
	Field Field
	Op    Operator
	Value interface{}
}

// Contains builds case-insensitive substring condition. Wildcards inside part are not escaped.
func Contains(f Field, part string) Condition {
	return Condition{Field: f, Op: OpContains, Value: ContainsPattern(part)}
}

func Equals(f Field, v interface{}) Condition {
	return Condition{Field: f, Op: OpEquals, Value: v}
}

func GreaterThan(f Field, v interface{}) Condition {
	return Condition{Field: f, Op: OpGreaterThan, Value: v}
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// Query is conjunction of conditions with ascending ordering
type Query struct {
	Conditions []Condition
	Order      []Field
}

func New() Query {
	return Query{}
}

// Where returns copy of query extended with conditions
func (q Query) Where(conds ...Condition) Query {
	merged := make([]Condition, 0, len(q.Conditions)+len(conds))
	merged = append(merged, q.Conditions...)
	q.Conditions = append(merged, conds...)
	return q
}

// OrderBy returns copy of query sorted ascending by fields
func (q Query) OrderBy(fields ...Field) Query {
	merged := make([]Field, 0, len(q.Order)+len(fields))
	merged = append(merged, q.Order...)
	q.Order = append(merged, fields...)
	return q
}

func (q Query) String() string {
	parts := make([]string, 0, len(q.Conditions))
	for _, c := range q.Conditions {
		parts = append(parts, c.String())
	}

	s := "all"
	if len(parts) > 0 {
		s = strings.Join(parts, " and ")
	}
	if len(q.Order) > 0 {
		fields := make([]string, 0, len(q.Order))
		for _, f := range q.Order {
			fields = append(fields, string(f))
		}
		s += " order by " + strings.Join(fields, ", ")
	}
	return s
}

// MatchFunc evaluates query conditions against customer
type MatchFunc func(model.Customer) (bool, error)

// Matcher prepares query for evaluation against many customers, LIKE patterns are compiled once
func (q Query) Matcher() (MatchFunc, error) {
	likes := make(map[int]*regexp.Regexp)
	for i, cond := range q.Conditions {
		if cond.Op != OpContains {
			continue
		}

		pattern, ok := cond.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, cond)
		}

		re, err := CompileLike(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %s - %v", ErrUnsupported, cond, err)
		}
		likes[i] = re
	}

	conds := q.Conditions
	return func(c model.Customer) (bool, error) {
		for i, cond := range conds {
			var ok bool
			var err error
			if re, compiled := likes[i]; compiled {
				ok, err = cond.matchRegexp(c, re)
			} else {
				ok, err = cond.Matches(c)
			}

			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}, nil
}

// Matches evaluates query conditions against customer
func (q Query) Matches(c model.Customer) (bool, error) {
	m, err := q.Matcher()
	if err != nil {
		return false, err
	}
	return m(c)
}

// Less orders customers by query fields, id breaks ties
func (q Query) Less(a, b model.Customer) bool {
	for _, f := range q.Order {
		av, err := FieldValue(a, f)
		if err != nil {
			continue
		}
		bv, err := FieldValue(b, f)
		if err != nil {
			continue
		}
		if cmp, err := compare(av, bv); err == nil && cmp != 0 {
			return cmp < 0
		}
	}
	return a.ID < b.ID
}

// Matches evaluates single condition against customer
func (c Condition) Matches(cust model.Customer) (bool, error) {
	v, err := FieldValue(cust, c.Field)
	if err != nil {
		return false, err
	}

	switch c.Op {
	case OpContains:
		s, ok := v.(string)
		pattern, isStr := c.Value.(string)
		if !ok || !isStr {
			return false, fmt.Errorf("%w: %s", ErrUnsupported, c)
		}
		return MatchLike(s, pattern), nil
	case OpEquals:
		cmp, err := compare(v, c.Value)
		if err != nil {
			return false, fmt.Errorf("%w: %s", err, c)
		}
		return cmp == 0, nil
	case OpGreaterThan:
		cmp, err := compare(v, c.Value)
		if err != nil {
			return false, fmt.Errorf("%w: %s", err, c)
		}
		return cmp > 0, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupported, c)
	}
}

func (c Condition) matchRegexp(cust model.Customer, re *regexp.Regexp) (bool, error) {
	v, err := FieldValue(cust, c.Field)
	if err != nil {
		return false, err
	}

	s, ok := v.(string)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnsupported, c)
	}
	return re.MatchString(s), nil
}

// FieldValue extracts value of field from customer
func FieldValue(c model.Customer, f Field) (interface{}, error) {
	switch f {
	case FieldID:
		return c.ID, nil
	case FieldLastname:
		return c.Lastname, nil
	case FieldFirstname:
		return c.Firstname, nil
	case FieldRegisteredSince:
		return c.RegisteredSince, nil
	case FieldAccountType:
		return c.AccountType, nil
	default:
		return nil, fmt.Errorf("%w: unknown field %q", ErrUnsupported, f)
	}
}

func compare(a, b interface{}) (int, error) {
	switch av := a.(type) {
	case int64:
		bv, ok := b.(int64)
		if !ok {
			break
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	case string:
		bv, ok := b.(string)
		if !ok {
			break
		}
		return strings.Compare(av, bv), nil
	case model.AccountType:
		bv, ok := b.(model.AccountType)
		if !ok {
			break
		}
		return strings.Compare(string(av), string(bv)), nil
	case civil.Date:
		bv, ok := b.(civil.Date)
		if !ok {
			break
		}
		switch {
		case av.Before(bv):
			return -1, nil
		case av.After(bv):
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: cannot compare %T with %T", ErrUnsupported, a, b)
}
