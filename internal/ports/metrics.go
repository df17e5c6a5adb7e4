package ports

import (
	"time"

	"github.com/bdlandchain/landchain-cli/internal/domain"
)

type Metrics interface {
	TxSubmitted(kind domain.TxKind)
	TxSettled(kind domain.TxKind, status domain.TxStatus)
	ToastPushed(kind domain.ToastKind)
	RefreshObserved(duration time.Duration, err error)
}

type NopMetrics struct{}

func (NopMetrics) TxSubmitted(domain.TxKind)                {}
func (NopMetrics) TxSettled(domain.TxKind, domain.TxStatus) {}
func (NopMetrics) ToastPushed(domain.ToastKind)             {}
func (NopMetrics) RefreshObserved(time.Duration, error)     {}
