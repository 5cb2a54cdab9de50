package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/campusledger/backend/internal/database"
	"github.com/campusledger/backend/internal/models"
)

// ErrNotFound is returned when no active row matches.
var ErrNotFound = errors.New("record not found")

// TransactionRepository issues ledger queries against a *sql.DB or a *sql.Tx.
type TransactionRepository struct {
	q database.Querier
}

func NewTransactionRepository(q database.Querier) *TransactionRepository {
	return &TransactionRepository{q: q}
}

const transactionColumns = `t.id, t.voucher_type_id, vt.name, t.voucher_no, t.entry_date, t.payee, t.messer,
		t.status, t.is_active, t.created_by, t.created_at, t.updated_by, t.updated_at`

const detailColumns = `d.id, d.transaction_id, d.account_id, d.description, d.debit_amount, d.credit_amount,
		d.is_active, d.created_by, d.created_at, d.updated_by, d.updated_at`

// Insert stores a header and returns the generated id.
func (r *TransactionRepository) Insert(ctx context.Context, t *models.Transaction) (int64, error) {
	var id int64
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO transactions (voucher_type_id, voucher_no, entry_date, payee, messer, status, is_active, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
		RETURNING id`,
		t.VoucherTypeID, t.VoucherNo, t.EntryDate, t.Payee, t.Messer, t.Status, t.CreatedBy, t.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// InsertDetail stores one ledger line and returns the generated id.
func (r *TransactionRepository) InsertDetail(ctx context.Context, d *models.TransactionDetail) (int64, error) {
	var id int64
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO transaction_details (transaction_id, account_id, description, debit_amount, credit_amount, is_active, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)
		RETURNING id`,
		d.TransactionID, d.AccountID, d.Description, d.DebitAmount, d.CreditAmount, d.CreatedBy, d.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction detail: %w", err)
	}
	return id, nil
}

// LockActive takes a row lock on an active header for the rest of the
// enclosing transaction. Concurrent writers on the same id queue behind it.
func (r *TransactionRepository) LockActive(ctx context.Context, id int64) (*models.Transaction, error) {
	var t models.Transaction
	err := r.q.QueryRowContext(ctx, `
		SELECT id, status, created_by, created_at
		FROM transactions
		WHERE id = $1 AND `+database.ActiveOnly("")+`
		FOR UPDATE`, id).Scan(&t.ID, &t.Status, &t.CreatedBy, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock transaction %d: %w", id, err)
	}
	t.IsActive = true
	return &t, nil
}

// UpdateHeader overwrites the mutable header fields. created_* are left alone.
func (r *TransactionRepository) UpdateHeader(ctx context.Context, t *models.Transaction) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET voucher_type_id = $1, voucher_no = $2, entry_date = $3, payee = $4, messer = $5,
			status = $6, updated_by = $7, updated_at = $8
		WHERE id = $9 AND `+database.ActiveOnly(""),
		t.VoucherTypeID, t.VoucherNo, t.EntryDate, t.Payee, t.Messer, t.Status, t.UpdatedBy, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	return expectAffected(result)
}

// DeleteDetails hard-deletes every line of a transaction.
func (r *TransactionRepository) DeleteDetails(ctx context.Context, transactionID int64) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM transaction_details WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return 0, fmt.Errorf("delete details of transaction %d: %w", transactionID, err)
	}
	return result.RowsAffected()
}

// SoftDelete flips the header's active flag. Detail rows are not touched.
func (r *TransactionRepository) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET is_active = FALSE, updated_by = $1, updated_at = $2
		WHERE id = $3 AND `+database.ActiveOnly(""),
		actor, at, id)
	if err != nil {
		return fmt.Errorf("soft delete transaction %d: %w", id, err)
	}
	return expectAffected(result)
}

// GetActiveWithDetails loads one active transaction with its voucher type name
// and active detail lines.
func (r *TransactionRepository) GetActiveWithDetails(ctx context.Context, id int64) (*models.Transaction, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN voucher_types vt ON vt.id = t.voucher_type_id
		WHERE t.id = $1 AND `+database.ActiveOnly("t"), id)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}

	details, err := r.detailsFor(ctx, []int64{t.ID})
	if err != nil {
		return nil, err
	}
	t.Details = details[t.ID]
	if t.Details == nil {
		t.Details = []models.TransactionDetail{}
	}
	return t, nil
}

// ListActiveWithDetailsAndVoucherType returns every active transaction, newest
// entry date first, with detail lines and voucher type names attached.
func (r *TransactionRepository) ListActiveWithDetailsAndVoucherType(ctx context.Context) ([]models.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN voucher_types vt ON vt.id = t.voucher_type_id
		WHERE `+database.ActiveOnly("t")+`
		ORDER BY t.entry_date DESC, t.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	ids := []int64{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return transactions, nil
	}

	details, err := r.detailsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range transactions {
		transactions[i].Details = details[transactions[i].ID]
		if transactions[i].Details == nil {
			transactions[i].Details = []models.TransactionDetail{}
		}
	}
	return transactions, nil
}

// CountActiveReferences counts active ledger lines posted against an account.
func (r *TransactionRepository) CountActiveReferences(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transaction_details d
		JOIN transactions t ON t.id = d.transaction_id
		WHERE d.account_id = $1 AND `+database.ActiveOnly("d")+` AND `+database.ActiveOnly("t"),
		accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count references to account %d: %w", accountID, err)
	}
	return n, nil
}

func (r *TransactionRepository) detailsFor(ctx context.Context, transactionIDs []int64) (map[int64][]models.TransactionDetail, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+detailColumns+`
		FROM transaction_details d
		WHERE d.transaction_id = ANY($1) AND `+database.ActiveOnly("d")+`
		ORDER BY d.transaction_id, d.id`, pq.Array(transactionIDs))
	if err != nil {
		return nil, fmt.Errorf("list transaction details: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.TransactionDetail, len(transactionIDs))
	for rows.Next() {
		var d models.TransactionDetail
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.AccountID, &d.Description, &d.DebitAmount, &d.CreditAmount,
			&d.IsActive, &d.CreatedBy, &d.CreatedAt, &d.UpdatedBy, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction detail: %w", err)
		}
		out[d.TransactionID] = append(out[d.TransactionID], d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (*models.Transaction, error) {
	var t models.Transaction
	err := s.Scan(&t.ID, &t.VoucherTypeID, &t.VoucherTypeName, &t.VoucherNo, &t.EntryDate, &t.Payee, &t.Messer,
		&t.Status, &t.IsActive, &t.CreatedBy, &t.CreatedAt, &t.UpdatedBy, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
