package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/campusledger/backend/internal/audit"
	"github.com/campusledger/backend/internal/database"
	"github.com/campusledger/backend/internal/models"
	"github.com/campusledger/backend/internal/repository"
)

// Auditor receives ledger audit events.
type Auditor interface {
	LogPosting(eventType string, transactionID int64, actor string, total decimal.Decimal, lines int)
	LogOperation(eventType, entity string, id int64, actor string)
	LogError(operation string, transactionID int64, actor string, err error)
}

// TransactionDetailInput is one submitted ledger line.
type TransactionDetailInput struct {
	AccountID    int64           `json:"accountId" validate:"required,gt=0"`
	Description  string          `json:"description" validate:"max=500"`
	DebitAmount  decimal.Decimal `json:"debitAmount"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
}

// TransactionInput is the submitted header plus its full set of lines. ID is
// ignored on create and required on update.
type TransactionInput struct {
	ID            int64                    `json:"id"`
	VoucherTypeID int                      `json:"voucherTypeId" validate:"required,gt=0"`
	VoucherNo     string                   `json:"voucherNo" validate:"max=100"`
	EntryDate     models.Date              `json:"entryDate"`
	Payee         string                   `json:"payee" validate:"max=200"`
	Messer        string                   `json:"messer" validate:"max=200"`
	Status        string                   `json:"status" validate:"max=50"`
	Details       []TransactionDetailInput `json:"details" validate:"dive"`
}

// LedgerService creates and mutates Transaction aggregates. Every multi-row
// write runs in one database transaction.
type LedgerService struct {
	db            *sql.DB
	transactions  *repository.TransactionRepository
	idempotency   *IdempotencyStore
	audit         Auditor
	validator     *ValidationHelper
	defaultStatus string
	now           func() time.Time
}

func NewLedgerService(db *sql.DB, idempotency *IdempotencyStore, auditor Auditor, defaultStatus string) *LedgerService {
	if defaultStatus == "" {
		defaultStatus = "Pending"
	}
	return &LedgerService{
		db:            db,
		transactions:  repository.NewTransactionRepository(db),
		idempotency:   idempotency,
		audit:         auditor,
		validator:     NewValidationHelper(),
		defaultStatus: defaultStatus,
		now:           time.Now,
	}
}

// CreateTransaction posts a new balanced transaction. When idempotencyKey was
// already used, the original transaction is returned with replayed=true.
func (s *LedgerService) CreateTransaction(ctx context.Context, in TransactionInput, actor, idempotencyKey string) (tx *models.Transaction, replayed bool, err error) {
	if err := s.validateInput(&in); err != nil {
		return nil, false, err
	}

	fingerprint := requestFingerprint(in)
	existingID, reserved, err := s.idempotency.Reserve(ctx, idempotencyKey, fingerprint)
	switch {
	case errors.Is(err, ErrConflict):
		return nil, false, err
	case err != nil:
		log.Printf("[LEDGER] Idempotency store unavailable, posting without replay guard: %v", err)
		idempotencyKey = ""
	case !reserved:
		log.Printf("[LEDGER] Replaying idempotency key %s as transaction %d", idempotencyKey, existingID)
		existing, err := s.GetTransactionByID(ctx, existingID)
		if err != nil {
			return nil, false, err
		}
		return existing, true, nil
	}

	now := s.now()
	header := &models.Transaction{
		VoucherTypeID: in.VoucherTypeID,
		VoucherNo:     in.VoucherNo,
		EntryDate:     in.EntryDate,
		Payee:         in.Payee,
		Messer:        in.Messer,
		Status:        statusOr(in.Status, s.defaultStatus),
		IsActive:      true,
		CreatedBy:     actor,
		CreatedAt:     now,
	}
	header.VoucherTypeName, _ = models.VoucherTypeName(in.VoucherTypeID)

	err = database.WithTx(ctx, s.db, func(dbTx *sql.Tx) error {
		if err := ensureAccounts(ctx, repository.NewAccountRepository(dbTx), in.Details); err != nil {
			return err
		}

		txRepo := repository.NewTransactionRepository(dbTx)
		id, err := txRepo.Insert(ctx, header)
		if err != nil {
			return err
		}
		header.ID = id

		header.Details, err = insertDetails(ctx, txRepo, id, in.Details, actor, now)
		return err
	})
	if err != nil {
		if relErr := s.idempotency.Release(ctx, idempotencyKey); relErr != nil {
			log.Printf("[LEDGER] Failed to release idempotency key %s: %v", idempotencyKey, relErr)
		}
		s.audit.LogError("create", 0, actor, err)
		return nil, false, translateDBError(err)
	}

	if err := s.idempotency.Complete(ctx, idempotencyKey, fingerprint, header.ID); err != nil {
		log.Printf("[LEDGER] Failed to record idempotency key %s: %v", idempotencyKey, err)
	}

	debit, _ := header.Totals()
	s.audit.LogPosting(audit.EventPosted, header.ID, actor, debit, len(header.Details))
	log.Printf("[LEDGER] Transaction %d posted by %s with %d lines", header.ID, actor, len(header.Details))
	return header, false, nil
}

// UpdateTransaction overwrites the header and replaces every detail line.
// The header row lock serializes concurrent updates of the same id, and the
// replacement commits or rolls back as a unit.
func (s *LedgerService) UpdateTransaction(ctx context.Context, in TransactionInput, actor string) (*models.Transaction, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	now := s.now()
	var updated *models.Transaction

	err := database.WithTx(ctx, s.db, func(dbTx *sql.Tx) error {
		txRepo := repository.NewTransactionRepository(dbTx)

		existing, err := txRepo.LockActive(ctx, in.ID)
		if err != nil {
			return err
		}

		if err := ensureAccounts(ctx, repository.NewAccountRepository(dbTx), in.Details); err != nil {
			return err
		}

		header := &models.Transaction{
			ID:            in.ID,
			VoucherTypeID: in.VoucherTypeID,
			VoucherNo:     in.VoucherNo,
			EntryDate:     in.EntryDate,
			Payee:         in.Payee,
			Messer:        in.Messer,
			Status:        statusOr(in.Status, existing.Status),
			IsActive:      true,
			CreatedBy:     existing.CreatedBy,
			CreatedAt:     existing.CreatedAt,
			UpdatedBy:     &actor,
			UpdatedAt:     &now,
		}
		header.VoucherTypeName, _ = models.VoucherTypeName(in.VoucherTypeID)

		if err := txRepo.UpdateHeader(ctx, header); err != nil {
			return err
		}

		removed, err := txRepo.DeleteDetails(ctx, in.ID)
		if err != nil {
			return err
		}

		header.Details, err = insertDetails(ctx, txRepo, in.ID, in.Details, actor, now)
		if err != nil {
			return err
		}

		log.Printf("[LEDGER] Transaction %d: replaced %d lines with %d", in.ID, removed, len(header.Details))
		updated = header
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("transaction %d: %w", in.ID, ErrNotFound)
		}
		s.audit.LogError("update", in.ID, actor, err)
		return nil, translateDBError(err)
	}

	debit, _ := updated.Totals()
	s.audit.LogPosting(audit.EventUpdated, updated.ID, actor, debit, len(updated.Details))
	return updated, nil
}

// DeleteTransaction soft-deletes the header. Detail rows keep their flags.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64, actor string) error {
	if err := s.transactions.SoftDelete(ctx, id, actor, s.now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
		}
		s.audit.LogError("delete", id, actor, err)
		return err
	}

	s.audit.LogOperation(audit.EventDeleted, "transaction", id, actor)
	return nil
}

// GetAllTransactions returns active transactions with details and voucher type names.
// Headers and details are read in one snapshot so a concurrent update can
// never pair old header fields with a new set of lines.
func (s *LedgerService) GetAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	var list []models.Transaction
	err := database.WithTxOptions(ctx, s.db, database.ReadSnapshot, func(dbTx *sql.Tx) error {
		var err error
		list, err = repository.NewTransactionRepository(dbTx).ListActiveWithDetailsAndVoucherType(ctx)
		return err
	})
	return list, err
}

// GetTransactionByID returns an active transaction. Soft-deleted ids are
// reported as ErrNotFound, the same as GetAllTransactions omitting them.
func (s *LedgerService) GetTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	var tx *models.Transaction
	err := database.WithTxOptions(ctx, s.db, database.ReadSnapshot, func(dbTx *sql.Tx) error {
		var err error
		tx, err = repository.NewTransactionRepository(dbTx).GetActiveWithDetails(ctx, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *LedgerService) validateInput(in *TransactionInput) error {
	if err := s.validator.ValidateStruct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if _, ok := models.VoucherTypeName(in.VoucherTypeID); !ok {
		return fmt.Errorf("%w: unknown voucher type %d", ErrValidation, in.VoucherTypeID)
	}
	if in.EntryDate.IsZero() {
		return fmt.Errorf("%w: entryDate is required", ErrValidation)
	}
	return ValidateDetails(in.Details)
}

// ValidateDetails checks the double-entry rules that need no database:
// at least one line, one non-negative side per line, and equal totals.
func ValidateDetails(lines []TransactionDetailInput) error {
	if len(lines) == 0 {
		return ErrEmptyDetails
	}

	debit, credit := decimal.Zero, decimal.Zero
	for i, l := range lines {
		n := i + 1
		if l.DebitAmount.IsNegative() || l.CreditAmount.IsNegative() {
			return fmt.Errorf("%w: line %d has a negative amount", ErrInvalidLine, n)
		}
		if !amountInRange(l.DebitAmount) || !amountInRange(l.CreditAmount) {
			return fmt.Errorf("%w: line %d amount is outside the storable range", ErrInvalidLine, n)
		}
		if l.DebitAmount.IsZero() == l.CreditAmount.IsZero() {
			return fmt.Errorf("%w: line %d must have exactly one of debit or credit", ErrInvalidLine, n)
		}
		if !l.DebitAmount.Equal(l.DebitAmount.Round(2)) || !l.CreditAmount.Equal(l.CreditAmount.Round(2)) {
			return fmt.Errorf("%w: line %d has more than two decimal places", ErrInvalidLine, n)
		}
		debit = debit.Add(l.DebitAmount)
		credit = credit.Add(l.CreditAmount)
		if !amountInRange(debit) || !amountInRange(credit) {
			return fmt.Errorf("%w: running total exceeds the storable range at line %d", ErrInvalidLine, n)
		}
	}

	if !debit.Equal(credit) {
		return fmt.Errorf("%w (debit %s, credit %s)", ErrUnbalanced, debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

// Detail amounts are stored as NUMERIC(18,2).
const (
	maxAmountIntegerDigits = 16
	maxAmountScale         = 18
)

// amountInRange reports whether d has fewer than 16 integer digits and a sane
// scale. It reads only the coefficient length and exponent, so an input such
// as "1e2000000" is refused without being expanded.
func amountInRange(d decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}
	exp := int(d.Exponent())
	if exp < -maxAmountScale {
		return false
	}
	return d.NumDigits()+exp <= maxAmountIntegerDigits
}

// ensureAccounts share-locks every referenced account so none can be
// soft-deleted before the posting commits.
func ensureAccounts(ctx context.Context, accounts *repository.AccountRepository, lines []TransactionDetailInput) error {
	ids := uniqueAccountIDs(lines)
	found, err := accounts.LockActiveAccounts(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}

	present := make(map[int64]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var missing []int64
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnknownAccount, missing)
}

func insertDetails(ctx context.Context, repo *repository.TransactionRepository, transactionID int64, lines []TransactionDetailInput, actor string, now time.Time) ([]models.TransactionDetail, error) {
	details := make([]models.TransactionDetail, 0, len(lines))
	for _, l := range lines {
		d := models.TransactionDetail{
			TransactionID: transactionID,
			AccountID:     l.AccountID,
			Description:   l.Description,
			DebitAmount:   l.DebitAmount,
			CreditAmount:  l.CreditAmount,
			IsActive:      true,
			CreatedBy:     actor,
			CreatedAt:     now,
		}
		id, err := repo.InsertDetail(ctx, &d)
		if err != nil {
			return nil, err
		}
		d.ID = id
		details = append(details, d)
	}
	return details, nil
}

// uniqueAccountIDs returns the referenced ids in ascending order, which is
// also the lock order.
func uniqueAccountIDs(lines []TransactionDetailInput) []int64 {
	seen := make(map[int64]bool, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func statusOr(status, fallback string) string {
	if status == "" {
		return fallback
	}
	return status
}

// translateDBError maps PostgreSQL constraint and concurrency failures onto
// service errors. Anything else passes through unchanged.
func translateDBError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "23503": // foreign_key_violation
		if pqErr.Constraint == "transaction_details_account_id_fkey" {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, pqErr.Detail)
		}
		return fmt.Errorf("%w: %s", ErrValidation, pqErr.Message)
	case "23514": // check_violation
		return fmt.Errorf("%w: %s", ErrInvalidLine, pqErr.Message)
	case "22003": // numeric_value_out_of_range
		return fmt.Errorf("%w: %s", ErrInvalidLine, pqErr.Message)
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return fmt.Errorf("%w: concurrent modification, retry the request", ErrConflict)
	}
	return err
}
