package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
)

// NetworkGuard makes sure the signing agent is on the required chain before any ledger call.
type NetworkGuard struct {
	agent    ports.SigningAgent
	required domain.NetworkParams
	logger   *slog.Logger
}

func NewNetworkGuard(agent ports.SigningAgent, required domain.NetworkParams, logger *slog.Logger) *NetworkGuard {
	return &NetworkGuard{agent: agent, required: required, logger: loggerOrDiscard(logger)}
}

func (g *NetworkGuard) Required() domain.NetworkParams {
	return g.required
}

func (g *NetworkGuard) EnsureNetwork(ctx context.Context) error {
	if g.agent == nil {
		return domain.ErrNoAgent
	}

	current, err := g.agent.ChainID(ctx)
	if err != nil {
		return classifyNetworkError("read chain id", err)
	}
	if current == g.required.ChainID {
		return nil
	}

	g.logger.Info("switching network",
		slog.Uint64("current_chain_id", current),
		slog.Uint64("required_chain_id", g.required.ChainID),
	)

	err = g.agent.SwitchChain(ctx, g.required.ChainID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUnrecognizedChain) {
		return classifyNetworkError("switch network", err)
	}

	if err := g.agent.AddChain(ctx, g.required); err != nil {
		return classifyNetworkError("add network", err)
	}
	if err := g.agent.SwitchChain(ctx, g.required.ChainID); err != nil {
		return classifyNetworkError("switch network after add", err)
	}

	return nil
}

func classifyNetworkError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUserRejected), errors.Is(err, domain.ErrNoAgent):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %w", domain.ErrWrongNetwork, op, err)
	}
}
