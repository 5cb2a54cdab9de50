package models

import (
	"time"
)

type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "Debit"
	NormalBalanceCredit NormalBalance = "Credit"
)

// AccountGroup is the top tier of the chart of accounts.
type AccountGroup struct {
	ID             int64           `json:"id" db:"id"`
	Code           string          `json:"code" db:"code"`
	Name           string          `json:"name" db:"name"`
	NormalBalance  NormalBalance   `json:"normalBalance" db:"normal_balance"`
	IsActive       bool            `json:"isActive" db:"is_active"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      *time.Time      `json:"updatedAt" db:"updated_at"`
	ParentAccounts []ParentAccount `json:"parentAccounts,omitempty"`
}

type ParentAccount struct {
	ID             int64      `json:"id" db:"id"`
	AccountGroupID int64      `json:"accountGroupId" db:"account_group_id"`
	Code           string     `json:"code" db:"code"`
	Name           string     `json:"name" db:"name"`
	IsActive       bool       `json:"isActive" db:"is_active"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      *time.Time `json:"updatedAt" db:"updated_at"`
	Accounts       []Account  `json:"accounts,omitempty"`
}

// Account is a controlling account, the leaf that ledger lines post against.
type Account struct {
	ID              int64      `json:"id" db:"id"`
	ParentAccountID *int64     `json:"parentAccountId" db:"parent_account_id"`
	Code            string     `json:"code" db:"code"`
	Name            string     `json:"name" db:"name"`
	IsActive        bool       `json:"isActive" db:"is_active"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       *time.Time `json:"updatedAt" db:"updated_at"`
}
