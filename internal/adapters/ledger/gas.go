package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/bdlandchain/landchain-cli/internal/domain"
)

type GasMode string

const (
	GasModeFixed                GasMode = "fixed"
	GasModeEstimate             GasMode = "estimate"
	GasModeEstimateWithFallback GasMode = "estimate_with_fallback"
)

// GasPolicy decides the gas allowance of a ledger write.
type GasPolicy struct {
	Mode     GasMode
	Fallback uint64
	Headroom float64
	Attempts int
}

func DefaultRegisterGas() GasPolicy {
	return GasPolicy{Mode: GasModeEstimateWithFallback, Fallback: 500000, Headroom: 1.2, Attempts: 2}
}

func DefaultVerifyGas() GasPolicy {
	return GasPolicy{Mode: GasModeEstimate, Fallback: 200000, Headroom: 1.2, Attempts: 2}
}

func (p GasPolicy) Validate() error {
	switch p.Mode {
	case GasModeEstimate:
	case GasModeFixed, GasModeEstimateWithFallback:
		if p.Fallback == 0 {
			return fmt.Errorf("gas mode %s requires a fallback limit", p.Mode)
		}
	default:
		return fmt.Errorf("unsupported gas mode %q", p.Mode)
	}
	if p.Headroom != 0 && p.Headroom < 1 {
		return fmt.Errorf("gas headroom must be at least 1, got %v", p.Headroom)
	}

	return nil
}

type estimateFunc func(ctx context.Context) (uint64, error)

// Resolve returns the gas limit for one submission. Estimation is retried for transient
// errors only; a revert answer is final. In estimate_with_fallback mode a failed estimate
// yields the fallback so the ledger gets the final word.
func (p GasPolicy) Resolve(ctx context.Context, estimate estimateFunc) (uint64, error) {
	if p.Mode == GasModeFixed {
		return p.Fallback, nil
	}

	attempts := max(p.Attempts, 1)
	var err error
	for i := 0; i < attempts; i++ {
		var gas uint64
		gas, err = estimate(ctx)
		if err == nil {
			return p.withHeadroom(gas), nil
		}
		if !retryableEstimate(ctx, err) {
			break
		}
	}

	if p.Mode == GasModeEstimateWithFallback && fallbackAllowed(ctx, err) {
		return p.Fallback, nil
	}

	return 0, fmt.Errorf("estimate gas: %w", err)
}

func (p GasPolicy) withHeadroom(gas uint64) uint64 {
	if p.Headroom <= 1 {
		return gas
	}

	return uint64(math.Ceil(float64(gas) * p.Headroom))
}

func retryableEstimate(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	return !errors.Is(err, domain.ErrReverted) &&
		!errors.Is(err, domain.ErrUserRejected) &&
		!errors.Is(err, domain.ErrNoAgent)
}

func fallbackAllowed(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	return !errors.Is(err, domain.ErrUserRejected) && !errors.Is(err, domain.ErrNoAgent)
}
