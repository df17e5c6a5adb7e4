package mocks

import (
	"context"

	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/stretchr/testify/mock"
)

type SecretStore struct {
	mock.Mock
}

var _ ports.SecretStore = (*SecretStore)(nil)

func NewSecretStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *SecretStore {
	m := &SecretStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SecretStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *SecretStore) Put(ctx context.Context, key string, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *SecretStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
