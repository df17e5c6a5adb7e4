package ports

import (
	"context"
	"math/big"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

// CallRequest is a read-only contract call or a gas estimation request.
type CallRequest struct {
	From common.Address
	To   common.Address
	Data []byte
	Gas  uint64
}

// TxRequest is a state-changing call handed to the signing agent for approval and signing.
type TxRequest struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Gas   uint64
	Value *big.Int
}

// AccountsListener receives the full account list every time the agent reports a change.
type AccountsListener func(accounts []common.Address)

// SigningAgent is the external component holding key material. It owns every network
// timeout; callers only pass contexts for their own cancellation.
type SigningAgent interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, params domain.NetworkParams) error
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	Call(ctx context.Context, req CallRequest, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, req CallRequest) (uint64, error)
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (domain.Receipt, error)
	SubscribeAccounts(listener AccountsListener) (unsubscribe func())
}

// BatchCaller is implemented by agents able to send several calls in one round trip.
type BatchCaller interface {
	BatchCall(ctx context.Context, reqs []CallRequest) ([][]byte, error)
}
