package mocks

import (
	"context"
	"math/big"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

type SigningAgent struct {
	mock.Mock
}

var _ ports.SigningAgent = (*SigningAgent)(nil)

func NewSigningAgent(t interface {
	mock.TestingT
	Cleanup(func())
}) *SigningAgent {
	m := &SigningAgent{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SigningAgent) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]common.Address)
	return accounts, args.Error(1)
}

func (m *SigningAgent) ChainID(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	if fn, ok := args.Get(0).(func() uint64); ok {
		return fn(), args.Error(1)
	}
	return args.Get(0).(uint64), args.Error(1)
}

func (m *SigningAgent) SwitchChain(ctx context.Context, chainID uint64) error {
	return m.Called(ctx, chainID).Error(0)
}

func (m *SigningAgent) AddChain(ctx context.Context, params domain.NetworkParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *SigningAgent) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	args := m.Called(ctx, account)
	balance, _ := args.Get(0).(*big.Int)
	return balance, args.Error(1)
}

func (m *SigningAgent) Call(ctx context.Context, req ports.CallRequest, blockNumber *big.Int) ([]byte, error) {
	args := m.Called(ctx, req, blockNumber)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *SigningAgent) EstimateGas(ctx context.Context, req ports.CallRequest) (uint64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *SigningAgent) SendTransaction(ctx context.Context, req ports.TxRequest) (common.Hash, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(common.Hash), args.Error(1)
}

func (m *SigningAgent) WaitReceipt(ctx context.Context, hash common.Hash) (domain.Receipt, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(domain.Receipt), args.Error(1)
}

func (m *SigningAgent) SubscribeAccounts(listener ports.AccountsListener) func() {
	args := m.Called(listener)
	unsubscribe, _ := args.Get(0).(func())
	if unsubscribe == nil {
		return func() {}
	}
	return unsubscribe
}
