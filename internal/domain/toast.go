package domain

import (
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultToastTTL   = 5 * time.Second
	DefaultTxToastTTL = 8 * time.Second

	MaxReasonLength = 100
)

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastWarning ToastKind = "warning"
	ToastInfo    ToastKind = "info"
)

type Toast struct {
	ID            string
	Kind          ToastKind
	Title         string
	Body          string
	RelatedTxHash *common.Hash
	TTL           time.Duration
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// ResolveTTL keeps an explicit TTL, otherwise picks the tx or default lifetime.
func (t Toast) ResolveTTL(defaultTTL, txTTL time.Duration) time.Duration {
	if t.TTL > 0 {
		return t.TTL
	}
	if t.RelatedTxHash != nil {
		if txTTL <= 0 {
			return DefaultTxToastTTL
		}
		return txTTL
	}
	if defaultTTL <= 0 {
		return DefaultToastTTL
	}

	return defaultTTL
}

// TruncateReason cuts reason to at most limit characters.
func TruncateReason(reason string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(reason) <= limit {
		return reason
	}

	runes := []rune(reason)
	return string(runes[:limit])
}
