package application

import (
	"errors"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

func failureToast(title string, err error, txHash *common.Hash) domain.Toast {
	kind := domain.ToastError
	switch {
	case errors.Is(err, domain.ErrWrongNetwork),
		errors.Is(err, domain.ErrUserRejected),
		errors.Is(err, domain.ErrNotConnected):
		kind = domain.ToastWarning
	}

	return domain.Toast{
		Kind:          kind,
		Title:         title,
		Body:          failureBody(err),
		RelatedTxHash: txHash,
	}
}

func failureBody(err error) string {
	if reason, ok := domain.RevertReason(err); ok {
		if reason == "" {
			return "transaction reverted without a reason"
		}
		return domain.TruncateReason(reason, domain.MaxReasonLength)
	}

	switch {
	case errors.Is(err, domain.ErrNoAgent):
		return "No wallet found. Install or start a signing agent."
	case errors.Is(err, domain.ErrUserRejected):
		return "Request was rejected in the wallet."
	case errors.Is(err, domain.ErrNotConnected):
		return "Connect a wallet first."
	case errors.Is(err, domain.ErrTimeout):
		return "No confirmation received before the wallet timed out."
	}

	return err.Error()
}

func hashRef(hash common.Hash) *common.Hash {
	return &hash
}
