package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Schema creates the ledger tables. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS account_groups (
    id             BIGSERIAL PRIMARY KEY,
    code           VARCHAR(32)  NOT NULL,
    name           VARCHAR(200) NOT NULL,
    normal_balance VARCHAR(6)   NOT NULL CHECK (normal_balance IN ('Debit', 'Credit')),
    is_active      BOOLEAN      NOT NULL DEFAULT TRUE,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS parent_accounts (
    id               BIGSERIAL PRIMARY KEY,
    account_group_id BIGINT       NOT NULL REFERENCES account_groups(id),
    code             VARCHAR(32)  NOT NULL,
    name             VARCHAR(200) NOT NULL,
    is_active        BOOLEAN      NOT NULL DEFAULT TRUE,
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_parent_accounts_group ON parent_accounts(account_group_id);

-- parent_account_id is nullable: an account need not be a sub-account
CREATE TABLE IF NOT EXISTS accounts (
    id                BIGSERIAL PRIMARY KEY,
    parent_account_id BIGINT REFERENCES parent_accounts(id),
    code              VARCHAR(32)  NOT NULL,
    name              VARCHAR(200) NOT NULL,
    is_active         BOOLEAN      NOT NULL DEFAULT TRUE,
    created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts(parent_account_id);

CREATE TABLE IF NOT EXISTS voucher_types (
    id   INTEGER PRIMARY KEY,
    name VARCHAR(50) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS transactions (
    id              BIGSERIAL PRIMARY KEY,
    voucher_type_id INTEGER      NOT NULL REFERENCES voucher_types(id),
    voucher_no      VARCHAR(100) NOT NULL DEFAULT '',
    entry_date      DATE         NOT NULL,
    payee           VARCHAR(200) NOT NULL DEFAULT '',
    messer          VARCHAR(200) NOT NULL DEFAULT '',
    status          VARCHAR(50)  NOT NULL DEFAULT 'Pending',
    is_active       BOOLEAN      NOT NULL DEFAULT TRUE,
    created_by      VARCHAR(100) NOT NULL,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    updated_by      VARCHAR(100),
    updated_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_transactions_active_date ON transactions(is_active, entry_date);

CREATE TABLE IF NOT EXISTS transaction_details (
    id             BIGSERIAL PRIMARY KEY,
    transaction_id BIGINT        NOT NULL REFERENCES transactions(id),
    account_id     BIGINT        NOT NULL REFERENCES accounts(id),
    description    VARCHAR(500)  NOT NULL DEFAULT '',
    debit_amount   NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (debit_amount >= 0),
    credit_amount  NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (credit_amount >= 0),
    is_active      BOOLEAN       NOT NULL DEFAULT TRUE,
    created_by     VARCHAR(100)  NOT NULL,
    created_at     TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
    updated_by     VARCHAR(100),
    updated_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_transaction_details_tx ON transaction_details(transaction_id);
CREATE INDEX IF NOT EXISTS idx_transaction_details_account ON transaction_details(account_id);
`

// VoucherTypeSeeds are the fixed voucher classifications.
var VoucherTypeSeeds = []struct {
	ID   int
	Name string
}{
	{1, "Payment"},
	{2, "Receipt"},
	{3, "Journal"},
	{4, "Contra"},
	{5, "Debit"},
}

// Migrate applies Schema and seeds voucher types in a single transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}

		for _, vt := range VoucherTypeSeeds {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO voucher_types (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
				vt.ID, vt.Name); err != nil {
				return fmt.Errorf("failed to seed voucher type %s: %w", vt.Name, err)
			}
		}

		log.Printf("[DATABASE] Schema applied, %d voucher types seeded", len(VoucherTypeSeeds))
		return nil
	})
}

// ActiveOnly returns the soft-delete predicate for a table alias. Every read
// path filters through it.
func ActiveOnly(alias string) string {
	if alias == "" {
		return "is_active = TRUE"
	}
	return alias + ".is_active = TRUE"
}
