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

// LockMode is appended to existence checks that run inside a transaction.
type LockMode string

const (
	NoLock     LockMode = ""
	LockShare  LockMode = "FOR SHARE"
	LockUpdate LockMode = "FOR UPDATE"
)

const (
	tableAccountGroups  = "account_groups"
	tableParentAccounts = "parent_accounts"
	tableAccounts       = "accounts"
)

// AccountRepository covers the three tiers of the chart of accounts.
type AccountRepository struct {
	q database.Querier
}

func NewAccountRepository(q database.Querier) *AccountRepository {
	return &AccountRepository{q: q}
}

// GroupIsActive reports whether an active account group exists, optionally
// locking it.
func (r *AccountRepository) GroupIsActive(ctx context.Context, id int64, mode LockMode) (bool, error) {
	return r.isActive(ctx, tableAccountGroups, id, mode)
}

func (r *AccountRepository) ParentIsActive(ctx context.Context, id int64, mode LockMode) (bool, error) {
	return r.isActive(ctx, tableParentAccounts, id, mode)
}

func (r *AccountRepository) AccountIsActive(ctx context.Context, id int64, mode LockMode) (bool, error) {
	return r.isActive(ctx, tableAccounts, id, mode)
}

// LockActiveAccounts share-locks the active accounts among ids, in id order,
// and returns the ids it found. Missing or inactive ids are simply absent.
func (r *AccountRepository) LockActiveAccounts(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id FROM accounts
		WHERE id = ANY($1) AND `+database.ActiveOnly("")+`
		ORDER BY id
		FOR SHARE`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer rows.Close()

	found := make([]int64, 0, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found = append(found, id)
	}
	return found, rows.Err()
}

func (r *AccountRepository) CountActiveParents(ctx context.Context, groupID int64) (int, error) {
	return r.countActive(ctx, tableParentAccounts, "account_group_id", groupID)
}

func (r *AccountRepository) CountActiveAccounts(ctx context.Context, parentID int64) (int, error) {
	return r.countActive(ctx, tableAccounts, "parent_account_id", parentID)
}

func (r *AccountRepository) SoftDeleteGroup(ctx context.Context, id int64, at time.Time) error {
	return r.softDelete(ctx, tableAccountGroups, id, at)
}

func (r *AccountRepository) SoftDeleteParent(ctx context.Context, id int64, at time.Time) error {
	return r.softDelete(ctx, tableParentAccounts, id, at)
}

func (r *AccountRepository) SoftDeleteAccount(ctx context.Context, id int64, at time.Time) error {
	return r.softDelete(ctx, tableAccounts, id, at)
}

// Account groups

func (r *AccountRepository) InsertGroup(ctx context.Context, g *models.AccountGroup) (int64, error) {
	var id int64
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO account_groups (code, name, normal_balance, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING id`,
		g.Code, g.Name, g.NormalBalance, g.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert account group: %w", err)
	}
	return id, nil
}

func (r *AccountRepository) ListActiveGroups(ctx context.Context) ([]models.AccountGroup, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, code, name, normal_balance, is_active, created_at, updated_at
		FROM account_groups
		WHERE `+database.ActiveOnly("")+`
		ORDER BY code, id`)
	if err != nil {
		return nil, fmt.Errorf("list account groups: %w", err)
	}
	defer rows.Close()

	groups := []models.AccountGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

func (r *AccountRepository) GetActiveGroup(ctx context.Context, id int64) (*models.AccountGroup, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, code, name, normal_balance, is_active, created_at, updated_at
		FROM account_groups
		WHERE id = $1 AND `+database.ActiveOnly(""), id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// UpdateGroup overwrites the mutable fields and returns the preserved created_at.
func (r *AccountRepository) UpdateGroup(ctx context.Context, g *models.AccountGroup) (time.Time, error) {
	var createdAt time.Time
	err := r.q.QueryRowContext(ctx, `
		UPDATE account_groups
		SET code = $1, name = $2, normal_balance = $3, updated_at = $4
		WHERE id = $5 AND `+database.ActiveOnly("")+`
		RETURNING created_at`,
		g.Code, g.Name, g.NormalBalance, g.UpdatedAt, g.ID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("update account group %d: %w", g.ID, err)
	}
	return createdAt, nil
}

// Parent accounts

func (r *AccountRepository) InsertParent(ctx context.Context, p *models.ParentAccount) (int64, error) {
	var id int64
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO parent_accounts (account_group_id, code, name, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING id`,
		p.AccountGroupID, p.Code, p.Name, p.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert parent account: %w", err)
	}
	return id, nil
}

// ListActiveParents returns active parent accounts. A non-empty groupIDs
// restricts the result to those groups.
func (r *AccountRepository) ListActiveParents(ctx context.Context, groupIDs []int64) ([]models.ParentAccount, error) {
	query := `
		SELECT id, account_group_id, code, name, is_active, created_at, updated_at
		FROM parent_accounts
		WHERE ` + database.ActiveOnly("")
	args := []any{}
	if len(groupIDs) > 0 {
		query += ` AND account_group_id = ANY($1)`
		args = append(args, pq.Array(groupIDs))
	}
	query += ` ORDER BY code, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list parent accounts: %w", err)
	}
	defer rows.Close()

	parents := []models.ParentAccount{}
	for rows.Next() {
		p, err := scanParent(rows)
		if err != nil {
			return nil, err
		}
		parents = append(parents, *p)
	}
	return parents, rows.Err()
}

func (r *AccountRepository) GetActiveParent(ctx context.Context, id int64) (*models.ParentAccount, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, account_group_id, code, name, is_active, created_at, updated_at
		FROM parent_accounts
		WHERE id = $1 AND `+database.ActiveOnly(""), id)
	p, err := scanParent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *AccountRepository) UpdateParent(ctx context.Context, p *models.ParentAccount) (time.Time, error) {
	var createdAt time.Time
	err := r.q.QueryRowContext(ctx, `
		UPDATE parent_accounts
		SET account_group_id = $1, code = $2, name = $3, updated_at = $4
		WHERE id = $5 AND `+database.ActiveOnly("")+`
		RETURNING created_at`,
		p.AccountGroupID, p.Code, p.Name, p.UpdatedAt, p.ID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("update parent account %d: %w", p.ID, err)
	}
	return createdAt, nil
}

// Accounts

func (r *AccountRepository) InsertAccount(ctx context.Context, a *models.Account) (int64, error) {
	var id int64
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO accounts (parent_account_id, code, name, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING id`,
		a.ParentAccountID, a.Code, a.Name, a.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}
	return id, nil
}

// ListActiveAccounts returns active accounts. A non-empty parentIDs restricts
// the result to those parents.
func (r *AccountRepository) ListActiveAccounts(ctx context.Context, parentIDs []int64) ([]models.Account, error) {
	query := `
		SELECT id, parent_account_id, code, name, is_active, created_at, updated_at
		FROM accounts
		WHERE ` + database.ActiveOnly("")
	args := []any{}
	if len(parentIDs) > 0 {
		query += ` AND parent_account_id = ANY($1)`
		args = append(args, pq.Array(parentIDs))
	}
	query += ` ORDER BY code, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) GetActiveAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, parent_account_id, code, name, is_active, created_at, updated_at
		FROM accounts
		WHERE id = $1 AND `+database.ActiveOnly(""), id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *AccountRepository) UpdateAccount(ctx context.Context, a *models.Account) (time.Time, error) {
	var createdAt time.Time
	err := r.q.QueryRowContext(ctx, `
		UPDATE accounts
		SET parent_account_id = $1, code = $2, name = $3, updated_at = $4
		WHERE id = $5 AND `+database.ActiveOnly("")+`
		RETURNING created_at`,
		a.ParentAccountID, a.Code, a.Name, a.UpdatedAt, a.ID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("update account %d: %w", a.ID, err)
	}
	return createdAt, nil
}

func (r *AccountRepository) isActive(ctx context.Context, table string, id int64, mode LockMode) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM `+table+` WHERE id = $1 AND `+database.ActiveOnly("")+` `+string(mode), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s %d: %w", table, id, err)
	}
	return true, nil
}

func (r *AccountRepository) countActive(ctx context.Context, table, fkColumn string, id int64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE `+fkColumn+` = $1 AND `+database.ActiveOnly(""), id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s for %d: %w", table, id, err)
	}
	return n, nil
}

func (r *AccountRepository) softDelete(ctx context.Context, table string, id int64, at time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE `+table+` SET is_active = FALSE, updated_at = $1 WHERE id = $2 AND `+database.ActiveOnly(""), at, id)
	if err != nil {
		return fmt.Errorf("soft delete %s %d: %w", table, id, err)
	}
	return expectAffected(result)
}

func scanGroup(s scanner) (*models.AccountGroup, error) {
	var g models.AccountGroup
	if err := s.Scan(&g.ID, &g.Code, &g.Name, &g.NormalBalance, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanParent(s scanner) (*models.ParentAccount, error) {
	var p models.ParentAccount
	if err := s.Scan(&p.ID, &p.AccountGroupID, &p.Code, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanAccount(s scanner) (*models.Account, error) {
	var a models.Account
	if err := s.Scan(&a.ID, &a.ParentAccountID, &a.Code, &a.Name, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
