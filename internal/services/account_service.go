package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/campusledger/backend/internal/audit"
	"github.com/campusledger/backend/internal/database"
	"github.com/campusledger/backend/internal/models"
	"github.com/campusledger/backend/internal/repository"
)

type AccountGroupInput struct {
	ID            int64  `json:"id"`
	Code          string `json:"code" validate:"required,max=32"`
	Name          string `json:"name" validate:"required,max=200"`
	NormalBalance string `json:"normalBalance" validate:"required,oneof=Debit Credit"`
}

type ParentAccountInput struct {
	ID             int64  `json:"id"`
	AccountGroupID int64  `json:"accountGroupId" validate:"required,gt=0"`
	Code           string `json:"code" validate:"required,max=32"`
	Name           string `json:"name" validate:"required,max=200"`
}

// AccountInput describes a controlling account. ParentAccountID may be nil.
type AccountInput struct {
	ID              int64  `json:"id"`
	ParentAccountID *int64 `json:"parentAccountId" validate:"omitempty,gt=0"`
	Code            string `json:"code" validate:"required,max=32"`
	Name            string `json:"name" validate:"required,max=200"`
}

// AccountService manages the chart of accounts. Writes that depend on the
// state of a parent or child row take row locks inside one transaction.
type AccountService struct {
	db        *sql.DB
	accounts  *repository.AccountRepository
	audit     Auditor
	validator *ValidationHelper
	now       func() time.Time
}

func NewAccountService(db *sql.DB, auditor Auditor) *AccountService {
	return &AccountService{
		db:        db,
		accounts:  repository.NewAccountRepository(db),
		audit:     auditor,
		validator: NewValidationHelper(),
		now:       time.Now,
	}
}

// Account groups

func (s *AccountService) AddAccountGroup(ctx context.Context, in AccountGroupInput, actor string) (*models.AccountGroup, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	g := &models.AccountGroup{
		Code:          in.Code,
		Name:          in.Name,
		NormalBalance: models.NormalBalance(in.NormalBalance),
		IsActive:      true,
		CreatedAt:     s.now(),
	}
	id, err := s.accounts.InsertGroup(ctx, g)
	if err != nil {
		return nil, err
	}
	g.ID = id

	s.audit.LogOperation(audit.EventRecordCreated, "account_group", id, actor)
	return g, nil
}

func (s *AccountService) UpdateAccountGroup(ctx context.Context, in AccountGroupInput, actor string) (*models.AccountGroup, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	now := s.now()
	g := &models.AccountGroup{
		ID:            in.ID,
		Code:          in.Code,
		Name:          in.Name,
		NormalBalance: models.NormalBalance(in.NormalBalance),
		IsActive:      true,
		UpdatedAt:     &now,
	}
	createdAt, err := s.accounts.UpdateGroup(ctx, g)
	if err != nil {
		return nil, notFound("account group", in.ID, err)
	}
	g.CreatedAt = createdAt

	s.audit.LogOperation(audit.EventRecordUpdated, "account_group", in.ID, actor)
	return g, nil
}

// DeleteAccountGroup soft-deletes a group that has no active parent accounts.
func (s *AccountService) DeleteAccountGroup(ctx context.Context, id int64, actor string) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewAccountRepository(tx)

		ok, err := repo.GroupIsActive(ctx, id, repository.LockUpdate)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		n, err := repo.CountActiveParents(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: account group %d still has %d active parent accounts", ErrConflict, id, n)
		}

		return repo.SoftDeleteGroup(ctx, id, s.now())
	})
	if err != nil {
		return notFound("account group", id, err)
	}

	s.audit.LogOperation(audit.EventRecordDeleted, "account_group", id, actor)
	return nil
}

// GetAllAccountGroups lists active groups. With includeChildren the active
// parent accounts and their active accounts are attached.
func (s *AccountService) GetAllAccountGroups(ctx context.Context, includeChildren bool) ([]models.AccountGroup, error) {
	groups, err := s.accounts.ListActiveGroups(ctx)
	if err != nil || !includeChildren || len(groups) == 0 {
		return groups, err
	}

	groupIDs := make([]int64, len(groups))
	for i, g := range groups {
		groupIDs[i] = g.ID
	}
	parents, err := s.accounts.ListActiveParents(ctx, groupIDs)
	if err != nil {
		return nil, err
	}

	if len(parents) > 0 {
		parentIDs := make([]int64, len(parents))
		for i, p := range parents {
			parentIDs[i] = p.ID
		}
		accounts, err := s.accounts.ListActiveAccounts(ctx, parentIDs)
		if err != nil {
			return nil, err
		}

		byParent := make(map[int64][]models.Account)
		for _, a := range accounts {
			byParent[*a.ParentAccountID] = append(byParent[*a.ParentAccountID], a)
		}
		for i := range parents {
			parents[i].Accounts = byParent[parents[i].ID]
		}
	}

	byGroup := make(map[int64][]models.ParentAccount)
	for _, p := range parents {
		byGroup[p.AccountGroupID] = append(byGroup[p.AccountGroupID], p)
	}
	for i := range groups {
		groups[i].ParentAccounts = byGroup[groups[i].ID]
	}
	return groups, nil
}

func (s *AccountService) GetAccountGroupByID(ctx context.Context, id int64) (*models.AccountGroup, error) {
	g, err := s.accounts.GetActiveGroup(ctx, id)
	if err != nil {
		return nil, notFound("account group", id, err)
	}
	return g, nil
}

// Parent accounts

func (s *AccountService) AddParentAccount(ctx context.Context, in ParentAccountInput, actor string) (*models.ParentAccount, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	p := &models.ParentAccount{
		AccountGroupID: in.AccountGroupID,
		Code:           in.Code,
		Name:           in.Name,
		IsActive:       true,
		CreatedAt:      s.now(),
	}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewAccountRepository(tx)
		if err := requireActive(repo.GroupIsActive(ctx, in.AccountGroupID, repository.LockShare)); err != nil {
			return fmt.Errorf("account group %d: %w", in.AccountGroupID, err)
		}

		id, err := repo.InsertParent(ctx, p)
		p.ID = id
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogOperation(audit.EventRecordCreated, "parent_account", p.ID, actor)
	return p, nil
}

func (s *AccountService) UpdateParentAccount(ctx context.Context, in ParentAccountInput, actor string) (*models.ParentAccount, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.ParentAccount{
		ID:             in.ID,
		AccountGroupID: in.AccountGroupID,
		Code:           in.Code,
		Name:           in.Name,
		IsActive:       true,
		UpdatedAt:      &now,
	}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewAccountRepository(tx)
		if err := requireActive(repo.GroupIsActive(ctx, in.AccountGroupID, repository.LockShare)); err != nil {
			return fmt.Errorf("account group %d: %w", in.AccountGroupID, err)
		}

		createdAt, err := repo.UpdateParent(ctx, p)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("parent account %d: %w", in.ID, err)
		}
		p.CreatedAt = createdAt
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogOperation(audit.EventRecordUpdated, "parent_account", in.ID, actor)
	return p, nil
}

// DeleteParentAccount soft-deletes a parent account that has no active accounts.
func (s *AccountService) DeleteParentAccount(ctx context.Context, id int64, actor string) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewAccountRepository(tx)
		if err := requireActive(repo.ParentIsActive(ctx, id, repository.LockUpdate)); err != nil {
			return err
		}

		n, err := repo.CountActiveAccounts(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: parent account %d still has %d active accounts", ErrConflict, id, n)
		}

		return repo.SoftDeleteParent(ctx, id, s.now())
	})
	if err != nil {
		return notFound("parent account", id, err)
	}

	s.audit.LogOperation(audit.EventRecordDeleted, "parent_account", id, actor)
	return nil
}

func (s *AccountService) GetAllParentAccounts(ctx context.Context) ([]models.ParentAccount, error) {
	return s.accounts.ListActiveParents(ctx, nil)
}

func (s *AccountService) GetParentAccountByID(ctx context.Context, id int64) (*models.ParentAccount, error) {
	p, err := s.accounts.GetActiveParent(ctx, id)
	if err != nil {
		return nil, notFound("parent account", id, err)
	}
	return p, nil
}

// Accounts

func (s *AccountService) AddAccount(ctx context.Context, in AccountInput, actor string) (*models.Account, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	a := &models.Account{
		ParentAccountID: in.ParentAccountID,
		Code:            in.Code,
		Name:            in.Name,
		IsActive:        true,
		CreatedAt:       s.now(),
	}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewAccountRepository(tx)
		if err := s.requireParent(ctx, repo, in.ParentAccountID); err != nil {
			return err
		}

		id, err := repo.InsertAccount(ctx, a)
		a.ID = id
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogOperation(audit.EventRecordCreated, "account", a.ID, actor)
	return a, nil
}

func (s *AccountService) UpdateAccount(ctx context.Context, in AccountInput, actor string) (*models.Account, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	now := s.now()
	a := &models.Account{
		ID:              in.ID,
		ParentAccountID: in.ParentAccountID,
		Code:            in.Code,
		Name:            in.Name,
		IsActive:        true,
		UpdatedAt:       &now,
	}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewAccountRepository(tx)
		if err := s.requireParent(ctx, repo, in.ParentAccountID); err != nil {
			return err
		}

		createdAt, err := repo.UpdateAccount(ctx, a)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("account %d: %w", in.ID, err)
		}
		a.CreatedAt = createdAt
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogOperation(audit.EventRecordUpdated, "account", in.ID, actor)
	return a, nil
}

// DeleteAccount soft-deletes an account that no active ledger line posts
// against. The exclusive row lock waits for in-flight postings that share-lock
// the same account.
func (s *AccountService) DeleteAccount(ctx context.Context, id int64, actor string) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewAccountRepository(tx)
		if err := requireActive(repo.AccountIsActive(ctx, id, repository.LockUpdate)); err != nil {
			return err
		}

		refs, err := repository.NewTransactionRepository(tx).CountActiveReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: account %d is referenced by %d active ledger lines", ErrConflict, id, refs)
		}

		return repo.SoftDeleteAccount(ctx, id, s.now())
	})
	if err != nil {
		return notFound("account", id, err)
	}

	log.Printf("[ACCOUNTS] Account %d deactivated by %s", id, actor)
	s.audit.LogOperation(audit.EventRecordDeleted, "account", id, actor)
	return nil
}

func (s *AccountService) GetAllAccounts(ctx context.Context) ([]models.Account, error) {
	return s.accounts.ListActiveAccounts(ctx, nil)
}

func (s *AccountService) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	a, err := s.accounts.GetActiveAccount(ctx, id)
	if err != nil {
		return nil, notFound("account", id, err)
	}
	return a, nil
}

func (s *AccountService) validate(in any) error {
	if err := s.validator.ValidateStruct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func (s *AccountService) requireParent(ctx context.Context, repo *repository.AccountRepository, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	if err := requireActive(repo.ParentIsActive(ctx, *parentID, repository.LockShare)); err != nil {
		return fmt.Errorf("parent account %d: %w", *parentID, err)
	}
	return nil
}

func requireActive(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// notFound names the entity on a bare ErrNotFound and passes other errors through.
func notFound(entity string, id int64, err error) error {
	if err == ErrNotFound {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return err
}
