package model

import (
	"fmt"
	"strings"
)

// AccountType classifies customer account tier, empty value means unset
type AccountType string

const (
	// AccountTypeBasic is default account tier
	AccountTypeBasic AccountType = "BASIC"
	// AccountTypePremium is paid account tier
	AccountTypePremium AccountType = "PREMIUM"
)

// AccountTypes lists all known account types
var AccountTypes = []AccountType{AccountTypeBasic, AccountTypePremium}

// IsValid reports whether account type belongs to the known set
func (t AccountType) IsValid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t AccountType) String() string {
	return string(t)
}

// ParseAccountType converts case-insensitive name into account type
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown account type %q", s)
	}
	return t, nil
}
