package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const zeroBalanceDisplay = "0"

var weiPerEther = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

type WalletSession struct {
	Address        common.Address
	BalanceDisplay string
	Connected      bool
}

func DisconnectedSession() WalletSession {
	return WalletSession{BalanceDisplay: zeroBalanceDisplay}
}

func ConnectedSession(address common.Address, balanceDisplay string) WalletSession {
	if address == (common.Address{}) {
		return DisconnectedSession()
	}
	if balanceDisplay == "" {
		balanceDisplay = zeroBalanceDisplay
	}

	return WalletSession{
		Address:        address,
		BalanceDisplay: balanceDisplay,
		Connected:      true,
	}
}

// FormatEther renders a wei amount in ether, always keeping at least one decimal place.
func FormatEther(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0.0"
	}

	value := new(big.Float).SetPrec(256).SetInt(wei)
	value.Quo(value, weiPerEther)

	text := value.Text('f', 18)
	text = strings.TrimRight(text, "0")
	if strings.HasSuffix(text, ".") {
		text += "0"
	}

	return text
}
