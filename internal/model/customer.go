package model

import (
	"cloud.google.com/go/civil"
)

// Customer is customer model entity
type Customer struct {
	ID              int64       `json:"id"`
	Lastname        string      `json:"lastname"`
	Firstname       string      `json:"firstname"`
	RegisteredSince civil.Date  `json:"registeredSince"`
	AccountType     AccountType `json:"accountType"`
}

// IsNew reports whether customer has not been persisted yet
func (c Customer) IsNew() bool {
	return c.ID == 0
}

// Equal compares customers field by field, two nil customers are equal
func (c *Customer) Equal(other *Customer) bool {
	if c == nil || other == nil {
		return c == other
	}
	return *c == *other
}

// Clone returns detached copy of customer
func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
