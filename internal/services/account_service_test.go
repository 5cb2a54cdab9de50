package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusledger/backend/internal/audit"
	"github.com/campusledger/backend/internal/models"
)

func newTestAccounts(t *testing.T) (*AccountService, sqlmock.Sqlmock, *MockAuditor) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	auditor := newMockAuditor()
	svc := NewAccountService(db, auditor)
	svc.now = func() time.Time { return fixedNow }
	return svc, dbMock, auditor
}

func TestAccountService_AccountGroups(t *testing.T) {
	ctx := context.Background()

	t.Run("add", func(t *testing.T) {
		svc, dbMock, auditor := newTestAccounts(t)
		dbMock.ExpectQuery("INSERT INTO account_groups").
			WithArgs("1000", "Assets", "Debit", fixedNow).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		g, err := svc.AddAccountGroup(ctx, AccountGroupInput{Code: "1000", Name: "Assets", NormalBalance: "Debit"}, "clerk")
		require.NoError(t, err)
		assert.Equal(t, int64(1), g.ID)
		assert.True(t, g.IsActive)
		assert.Equal(t, fixedNow, g.CreatedAt)

		auditor.AssertCalled(t, "LogOperation", audit.EventRecordCreated, "account_group", int64(1), "clerk")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("add rejects unknown normal balance", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)

		_, err := svc.AddAccountGroup(ctx, AccountGroupInput{Code: "1000", Name: "Assets", NormalBalance: "Both"}, "clerk")
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("update keeps created_at", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		created := fixedNow.Add(-30 * 24 * time.Hour)
		dbMock.ExpectQuery("UPDATE account_groups").
			WithArgs("1000", "Current Assets", "Debit", fixedNow, int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

		g, err := svc.UpdateAccountGroup(ctx, AccountGroupInput{ID: 1, Code: "1000", Name: "Current Assets", NormalBalance: "Debit"}, "clerk")
		require.NoError(t, err)
		assert.Equal(t, created, g.CreatedAt)
		require.NotNil(t, g.UpdatedAt)
		assert.Equal(t, fixedNow, *g.UpdatedAt)
	})

	t.Run("delete with active parents conflicts", func(t *testing.T) {
		svc, dbMock, auditor := newTestAccounts(t)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM account_groups WHERE id = $1 AND is_active = TRUE FOR UPDATE")).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		dbMock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM parent_accounts WHERE account_group_id = $1")).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		dbMock.ExpectRollback()

		err := svc.DeleteAccountGroup(ctx, 1, "clerk")
		assert.ErrorIs(t, err, ErrConflict)
		auditor.AssertNotCalled(t, "LogOperation", audit.EventRecordDeleted, "account_group", int64(1), "clerk")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("delete missing group", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery("SELECT 1 FROM account_groups").
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
		dbMock.ExpectRollback()

		err := svc.DeleteAccountGroup(ctx, 9, "clerk")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "account group 9")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("delete empty group", func(t *testing.T) {
		svc, dbMock, auditor := newTestAccounts(t)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery("SELECT 1 FROM account_groups").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		dbMock.ExpectQuery("SELECT COUNT").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		dbMock.ExpectExec("UPDATE account_groups SET is_active = FALSE").
			WithArgs(fixedNow, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.ExpectCommit()

		require.NoError(t, svc.DeleteAccountGroup(ctx, 1, "clerk"))
		auditor.AssertCalled(t, "LogOperation", audit.EventRecordDeleted, "account_group", int64(1), "clerk")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestAccountService_GetAllAccountGroupsWithChildren(t *testing.T) {
	svc, dbMock, _ := newTestAccounts(t)

	dbMock.ExpectQuery("FROM account_groups WHERE is_active = TRUE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "normal_balance", "is_active", "created_at", "updated_at"}).
			AddRow(1, "1000", "Assets", "Debit", true, fixedNow, nil).
			AddRow(2, "4000", "Income", "Credit", true, fixedNow, nil))
	dbMock.ExpectQuery("FROM parent_accounts WHERE is_active = TRUE AND account_group_id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_group_id", "code", "name", "is_active", "created_at", "updated_at"}).
			AddRow(4, 1, "1100", "Cash and Bank", true, fixedNow, nil))
	dbMock.ExpectQuery("FROM accounts WHERE is_active = TRUE AND parent_account_id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "parent_account_id", "code", "name", "is_active", "created_at", "updated_at"}).
			AddRow(10, 4, "1110", "Cash", true, fixedNow, nil).
			AddRow(20, 4, "1120", "Bank", true, fixedNow, nil))

	groups, err := svc.GetAllAccountGroups(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Len(t, groups[0].ParentAccounts, 1)
	assert.Len(t, groups[0].ParentAccounts[0].Accounts, 2)
	assert.Empty(t, groups[1].ParentAccounts)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestAccountService_ParentAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("add under inactive group", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM account_groups WHERE id = $1 AND is_active = TRUE FOR SHARE")).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
		dbMock.ExpectRollback()

		_, err := svc.AddParentAccount(ctx, ParentAccountInput{AccountGroupID: 3, Code: "1100", Name: "Cash and Bank"}, "clerk")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "account group 3")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("add", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery("SELECT 1 FROM account_groups").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		dbMock.ExpectQuery("INSERT INTO parent_accounts").
			WithArgs(int64(1), "1100", "Cash and Bank", fixedNow).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		dbMock.ExpectCommit()

		p, err := svc.AddParentAccount(ctx, ParentAccountInput{AccountGroupID: 1, Code: "1100", Name: "Cash and Bank"}, "clerk")
		require.NoError(t, err)
		assert.Equal(t, int64(4), p.ID)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("delete with active accounts conflicts", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery("SELECT 1 FROM parent_accounts WHERE id = \\$1 AND is_active = TRUE FOR UPDATE").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		dbMock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM accounts WHERE parent_account_id = \\$1").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		dbMock.ExpectRollback()

		assert.ErrorIs(t, svc.DeleteParentAccount(ctx, 4, "clerk"), ErrConflict)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("update missing parent", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery("SELECT 1 FROM account_groups").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		dbMock.ExpectQuery("UPDATE parent_accounts").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
		dbMock.ExpectRollback()

		_, err := svc.UpdateParentAccount(ctx, ParentAccountInput{ID: 77, AccountGroupID: 1, Code: "1100", Name: "Cash"}, "clerk")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "parent account 77")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestAccountService_Accounts(t *testing.T) {
	ctx := context.Background()

	t.Run("add without parent", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery("INSERT INTO accounts").
			WithArgs(nil, "9000", "Suspense", fixedNow).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		dbMock.ExpectCommit()

		a, err := svc.AddAccount(ctx, AccountInput{Code: "9000", Name: "Suspense"}, "clerk")
		require.NoError(t, err)
		assert.Equal(t, int64(11), a.ID)
		assert.Nil(t, a.ParentAccountID)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("add under parent", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		parentID := int64(4)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM parent_accounts WHERE id = $1 AND is_active = TRUE FOR SHARE")).
			WithArgs(parentID).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		dbMock.ExpectQuery("INSERT INTO accounts").
			WithArgs(parentID, "1110", "Cash", fixedNow).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		dbMock.ExpectCommit()

		a, err := svc.AddAccount(ctx, AccountInput{ParentAccountID: &parentID, Code: "1110", Name: "Cash"}, "clerk")
		require.NoError(t, err)
		assert.Equal(t, int64(10), a.ID)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("delete referenced account conflicts", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM accounts WHERE id = $1 AND is_active = TRUE FOR UPDATE")).
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		dbMock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transaction_details d JOIN transactions t").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		dbMock.ExpectRollback()

		err := svc.DeleteAccount(ctx, 10, "clerk")
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "3 active ledger lines")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("delete unreferenced account", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		dbMock.ExpectBegin()
		dbMock.ExpectQuery("SELECT 1 FROM accounts").
			WithArgs(int64(11)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		dbMock.ExpectQuery("FROM transaction_details d").
			WithArgs(int64(11)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		dbMock.ExpectExec("UPDATE accounts SET is_active = FALSE").
			WithArgs(fixedNow, int64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.ExpectCommit()

		assert.NoError(t, svc.DeleteAccount(ctx, 11, "clerk"))
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("get inactive account", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		dbMock.ExpectQuery("FROM accounts WHERE id = \\$1 AND is_active = TRUE").
			WithArgs(int64(12)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "parent_account_id", "code", "name", "is_active", "created_at", "updated_at"}))

		_, err := svc.GetAccountByID(ctx, 12)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "account 12")
	})

	t.Run("list", func(t *testing.T) {
		svc, dbMock, _ := newTestAccounts(t)
		dbMock.ExpectQuery("FROM accounts WHERE is_active = TRUE ORDER BY code, id").
			WillReturnRows(sqlmock.NewRows([]string{"id", "parent_account_id", "code", "name", "is_active", "created_at", "updated_at"}).
				AddRow(10, 4, "1110", "Cash", true, fixedNow, nil))

		accounts, err := svc.GetAllAccounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Account{{
			ID: 10, ParentAccountID: ptr(int64(4)), Code: "1110", Name: "Cash", IsActive: true, CreatedAt: fixedNow,
		}}, accounts)
	})
}

func ptr[T any](v T) *T { return &v }
