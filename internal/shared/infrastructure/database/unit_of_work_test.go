package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTx struct {
	mock.Mock
	Executor
}

func (m *mockTx) Commit(ctx context.Context) error   { return m.Called().Error(0) }
func (m *mockTx) Rollback(ctx context.Context) error { return m.Called().Error(0) }

type mockConn struct {
	mock.Mock
	Executor
}

func (m *mockConn) BeginTx(ctx context.Context) (Transaction, error) {
	args := m.Called()
	return args.Get(0).(Transaction), args.Error(1)
}
func (m *mockConn) Close() error                   { return nil }
func (m *mockConn) Ping(ctx context.Context) error { return nil }
func (m *mockConn) Driver() Driver                 { return DriverSQLite }

func TestUnitOfWork_NestedBeginJoinsOuterTransaction(t *testing.T) {
	ctx := context.Background()
	tx := new(mockTx)
	tx.On("Commit").Return(nil).Once()
	conn := new(mockConn)
	conn.On("BeginTx").Return(tx, nil).Once()
	uow := NewUnitOfWork(conn)

	outer, err := uow.Begin(ctx)
	require.NoError(t, err)
	inner, err := uow.Begin(outer)
	require.NoError(t, err)

	assert.Same(t, tx, ExecutorFromContext(inner, conn))
	require.NoError(t, uow.Commit(inner))
	require.NoError(t, uow.Rollback(inner))
	tx.AssertNotCalled(t, "Rollback")

	require.NoError(t, uow.Commit(outer))
	tx.AssertExpectations(t)
	conn.AssertExpectations(t)
}

func TestUnitOfWork_WithoutTransaction(t *testing.T) {
	conn := new(mockConn)
	uow := NewUnitOfWork(conn)

	assert.ErrorIs(t, uow.Commit(context.Background()), ErrNoTransaction)
	assert.ErrorIs(t, uow.Rollback(context.Background()), ErrNoTransaction)
	assert.Same(t, conn, ExecutorFromContext(context.Background(), conn))
}
