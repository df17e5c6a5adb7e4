package mocks

import (
	"context"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

type LedgerGateway struct {
	mock.Mock
}

var _ ports.LedgerGateway = (*LedgerGateway)(nil)

func NewLedgerGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *LedgerGateway {
	m := &LedgerGateway{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *LedgerGateway) FetchAll(ctx context.Context) ([]domain.LandRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]domain.LandRecord)
	return records, args.Error(1)
}

func (m *LedgerGateway) SubmitRegistration(ctx context.Context, from common.Address, input domain.RegistrationInput) (domain.TxHandle, error) {
	args := m.Called(ctx, from, input)
	return args.Get(0).(domain.TxHandle), args.Error(1)
}

func (m *LedgerGateway) SubmitVerification(ctx context.Context, from common.Address, landUID string) (domain.TxHandle, error) {
	args := m.Called(ctx, from, landUID)
	return args.Get(0).(domain.TxHandle), args.Error(1)
}

func (m *LedgerGateway) AwaitConfirmation(ctx context.Context, handle domain.TxHandle) (domain.Receipt, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(domain.Receipt), args.Error(1)
}
