package ports

import (
	"context"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

type LedgerGateway interface {
	FetchAll(ctx context.Context) ([]domain.LandRecord, error)
	SubmitRegistration(ctx context.Context, from common.Address, input domain.RegistrationInput) (domain.TxHandle, error)
	SubmitVerification(ctx context.Context, from common.Address, landUID string) (domain.TxHandle, error)
	AwaitConfirmation(ctx context.Context, handle domain.TxHandle) (domain.Receipt, error)
}
