package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Voucher types
const (
	VoucherTypePayment = 1
	VoucherTypeReceipt = 2
	VoucherTypeJournal = 3
	VoucherTypeContra  = 4
	VoucherTypeDebit   = 5
)

var voucherTypeNames = map[int]string{
	VoucherTypePayment: "Payment",
	VoucherTypeReceipt: "Receipt",
	VoucherTypeJournal: "Journal",
	VoucherTypeContra:  "Contra",
	VoucherTypeDebit:   "Debit",
}

// VoucherTypeName reports the display name of a voucher type id.
func VoucherTypeName(id int) (string, bool) {
	name, ok := voucherTypeNames[id]
	return name, ok
}

type VoucherType struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Transaction is a ledger entry header. Details are kept in insertion order.
type Transaction struct {
	ID              int64               `json:"id" db:"id"`
	VoucherTypeID   int                 `json:"voucherTypeId" db:"voucher_type_id"`
	VoucherTypeName string              `json:"voucherTypeName,omitempty" db:"voucher_type_name"`
	VoucherNo       string              `json:"voucherNo" db:"voucher_no"`
	EntryDate       Date                `json:"entryDate" db:"entry_date"`
	Payee           string              `json:"payee" db:"payee"`
	Messer          string              `json:"messer" db:"messer"`
	Status          string              `json:"status" db:"status"`
	IsActive        bool                `json:"isActive" db:"is_active"`
	CreatedBy       string              `json:"createdBy" db:"created_by"`
	CreatedAt       time.Time           `json:"createdAt" db:"created_at"`
	UpdatedBy       *string             `json:"updatedBy" db:"updated_by"`
	UpdatedAt       *time.Time          `json:"updatedAt" db:"updated_at"`
	Details         []TransactionDetail `json:"details"`
}

// Totals sums the debit and credit sides of all detail lines.
func (t *Transaction) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, d := range t.Details {
		debit = debit.Add(d.DebitAmount)
		credit = credit.Add(d.CreditAmount)
	}
	return debit, credit
}

// IsBalanced reports whether total debits equal total credits.
func (t *Transaction) IsBalanced() bool {
	debit, credit := t.Totals()
	return debit.Equal(credit)
}

type TransactionDetail struct {
	ID            int64           `json:"id" db:"id"`
	TransactionID int64           `json:"transactionId" db:"transaction_id"`
	AccountID     int64           `json:"accountId" db:"account_id"`
	Description   string          `json:"description" db:"description"`
	DebitAmount   decimal.Decimal `json:"debitAmount" db:"debit_amount"`
	CreditAmount  decimal.Decimal `json:"creditAmount" db:"credit_amount"`
	IsActive      bool            `json:"isActive" db:"is_active"`
	CreatedBy     string          `json:"createdBy" db:"created_by"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedBy     *string         `json:"updatedBy" db:"updated_by"`
	UpdatedAt     *time.Time      `json:"updatedAt" db:"updated_at"`
}

// DateLayout is the wire format of Date.
const DateLayout = "2006-01-02"

// Date is a calendar date stored in a DATE column.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON implements json.Marshaler for Date
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON accepts "2006-01-02" or a full RFC 3339 timestamp.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid date %q", s)
		}
	}
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

// Value implements driver.Valuer for Date
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(DateLayout), nil
}

// Scan implements sql.Scanner for Date
func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		d.Time = time.Time{}
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
	return nil
}

func (d *Date) parse(s string) error {
	t, err := time.Parse(DateLayout, s[:min(len(s), len(DateLayout))])
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
