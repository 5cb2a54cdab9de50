package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/campusledger/backend/internal/models"
	"github.com/campusledger/backend/internal/services"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) CreateTransaction(ctx context.Context, in services.TransactionInput, actor, idempotencyKey string) (*models.Transaction, bool, error) {
	args := m.Called(ctx, in, actor, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Transaction), args.Bool(1), args.Error(2)
}

func (m *MockLedgerService) UpdateTransaction(ctx context.Context, in services.TransactionInput, actor string) (*models.Transaction, error) {
	args := m.Called(ctx, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockLedgerService) DeleteTransaction(ctx context.Context, id int64, actor string) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *MockLedgerService) GetAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockLedgerService) GetTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) AddAccountGroup(ctx context.Context, in services.AccountGroupInput, actor string) (*models.AccountGroup, error) {
	args := m.Called(ctx, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountGroup), args.Error(1)
}

func (m *MockAccountService) UpdateAccountGroup(ctx context.Context, in services.AccountGroupInput, actor string) (*models.AccountGroup, error) {
	args := m.Called(ctx, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountGroup), args.Error(1)
}

func (m *MockAccountService) DeleteAccountGroup(ctx context.Context, id int64, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *MockAccountService) GetAllAccountGroups(ctx context.Context, includeChildren bool) ([]models.AccountGroup, error) {
	args := m.Called(ctx, includeChildren)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AccountGroup), args.Error(1)
}

func (m *MockAccountService) GetAccountGroupByID(ctx context.Context, id int64) (*models.AccountGroup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountGroup), args.Error(1)
}

func (m *MockAccountService) AddParentAccount(ctx context.Context, in services.ParentAccountInput, actor string) (*models.ParentAccount, error) {
	args := m.Called(ctx, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ParentAccount), args.Error(1)
}

func (m *MockAccountService) UpdateParentAccount(ctx context.Context, in services.ParentAccountInput, actor string) (*models.ParentAccount, error) {
	args := m.Called(ctx, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ParentAccount), args.Error(1)
}

func (m *MockAccountService) DeleteParentAccount(ctx context.Context, id int64, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *MockAccountService) GetAllParentAccounts(ctx context.Context) ([]models.ParentAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ParentAccount), args.Error(1)
}

func (m *MockAccountService) GetParentAccountByID(ctx context.Context, id int64) (*models.ParentAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ParentAccount), args.Error(1)
}

func (m *MockAccountService) AddAccount(ctx context.Context, in services.AccountInput, actor string) (*models.Account, error) {
	args := m.Called(ctx, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountService) UpdateAccount(ctx context.Context, in services.AccountInput, actor string) (*models.Account, error) {
	args := m.Called(ctx, in, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountService) DeleteAccount(ctx context.Context, id int64, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *MockAccountService) GetAllAccounts(ctx context.Context) ([]models.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}
