package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PendingLandUID is shown until the ledger-assigned uid of a registration is known.
const PendingLandUID = "Pending…"

type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

func (s TxStatus) Terminal() bool {
	return s == TxStatusConfirmed || s == TxStatusFailed
}

func (s TxStatus) Valid() bool {
	return s == TxStatusPending || s.Terminal()
}

// CanTransition encodes the only allowed move: pending to a terminal status.
func CanTransition(from, to TxStatus) bool {
	return from == TxStatusPending && to.Terminal()
}

type TxKind string

const (
	TxKindRegistration TxKind = "registration"
	TxKindVerification TxKind = "verification"
)

type TxRecord struct {
	Hash      common.Hash
	From      common.Address
	To        common.Address
	Kind      TxKind
	LandUID   string
	Status    TxStatus
	Reason    string
	Timestamp time.Time
}

// TxHandle references a submitted write until it is confirmed or fails.
type TxHandle struct {
	Hash         common.Hash
	Kind         TxKind
	From         common.Address
	To           common.Address
	Data         []byte
	Gas          uint64
	LandUID      string
	SurveyNumber string
}

type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Succeeded   bool
}
