package services

import (
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockAuditor struct {
	mock.Mock
}

// newMockAuditor accepts any audit call. Tests assert the calls they care about.
func newMockAuditor() *MockAuditor {
	m := &MockAuditor{}
	m.On("LogPosting", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	m.On("LogOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	m.On("LogError", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	return m
}

func (m *MockAuditor) LogPosting(eventType string, transactionID int64, actor string, total decimal.Decimal, lines int) {
	m.Called(eventType, transactionID, actor, total, lines)
}

func (m *MockAuditor) LogOperation(eventType, entity string, id int64, actor string) {
	m.Called(eventType, entity, id, actor)
}

func (m *MockAuditor) LogError(operation string, transactionID int64, actor string, err error) {
	m.Called(operation, transactionID, actor, err)
}
