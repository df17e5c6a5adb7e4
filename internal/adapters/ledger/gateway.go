package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize    = 50
	DefaultConcurrency = 1
)

type Options struct {
	PageSize    int
	Concurrency int
	RegisterGas GasPolicy
	VerifyGas   GasPolicy
	Clock       ports.Clock
	Logger      *slog.Logger
}

// Gateway talks to the land registry contract through the signing agent.
type Gateway struct {
	agent    ports.SigningAgent
	contract common.Address
	opts     Options
	suffixes *surveySuffixer
	logger   *slog.Logger
}

var _ ports.LedgerGateway = (*Gateway)(nil)

func NewGateway(agent ports.SigningAgent, contract common.Address, opts Options) (*Gateway, error) {
	if agent == nil {
		return nil, domain.ErrNoAgent
	}
	if contract == (common.Address{}) {
		return nil, errors.New("ledger contract address is required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.RegisterGas.Mode == "" {
		opts.RegisterGas = DefaultRegisterGas()
	}
	if opts.VerifyGas.Mode == "" {
		opts.VerifyGas = DefaultVerifyGas()
	}
	if err := opts.RegisterGas.Validate(); err != nil {
		return nil, fmt.Errorf("register gas policy: %w", err)
	}
	if err := opts.VerifyGas.Validate(); err != nil {
		return nil, fmt.Errorf("verify gas policy: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Gateway{
		agent:    agent,
		contract: contract,
		opts:     opts,
		suffixes: &surveySuffixer{clock: opts.Clock},
		logger:   logger,
	}, nil
}

func (g *Gateway) Contract() common.Address {
	return g.contract
}

// FetchAll reads every record the ledger holds. A failure on any index fails the whole read.
func (g *Gateway) FetchAll(ctx context.Context) ([]domain.LandRecord, error) {
	count, err := g.landCount(ctx)
	if err != nil {
		return nil, err
	}

	// grows a page at a time; count comes from the ledger
	records := make([]domain.LandRecord, 0, min(count, g.opts.PageSize))
	for start := 0; start < count; start += g.opts.PageSize {
		end := min(start+g.opts.PageSize, count)
		page, err := g.fetchPage(ctx, start, end)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)
	}

	g.logger.Debug("fetched land records", slog.Int("count", count))

	return records, nil
}

func (g *Gateway) landCount(ctx context.Context) (int, error) {
	data, err := registryABI.Pack(methodLandCount)
	if err != nil {
		return 0, fmt.Errorf("pack %s: %w", methodLandCount, err)
	}

	out, err := g.agent.Call(ctx, ports.CallRequest{To: g.contract, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", methodLandCount, err)
	}

	values, err := registryABI.Unpack(methodLandCount, out)
	if err != nil || len(values) != 1 {
		return 0, fmt.Errorf("%w: land count: %v", domain.ErrDecodeFailure, err)
	}
	count, ok := values[0].(*big.Int)
	if !ok || count.Sign() < 0 || !count.IsInt64() || count.Int64() > math.MaxInt32 {
		return 0, fmt.Errorf("%w: land count out of range", domain.ErrDecodeFailure)
	}

	return int(count.Int64()), nil
}

func (g *Gateway) fetchPage(ctx context.Context, start, end int) ([]domain.LandRecord, error) {
	requests := make([]ports.CallRequest, 0, end-start)
	for i := start; i < end; i++ {
		data, err := registryABI.Pack(methodLandByIndex, big.NewInt(int64(i)))
		if err != nil {
			return nil, fmt.Errorf("pack %s(%d): %w", methodLandByIndex, i, err)
		}
		requests = append(requests, ports.CallRequest{To: g.contract, Data: data})
	}

	page := make([]domain.LandRecord, len(requests))
	if batcher, ok := g.agent.(ports.BatchCaller); ok {
		if err := g.fetchBatch(ctx, batcher, page, start, requests); err != nil {
			return nil, err
		}
		return page, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.opts.Concurrency)
	for offset, req := range requests {
		index := start + offset
		group.Go(func() error {
			out, err := g.agent.Call(groupCtx, req, nil)
			if err != nil {
				return fmt.Errorf("%w: land %d: %w", domain.ErrDecodeFailure, index, err)
			}
			record, err := decodeLandRecord(out)
			if err != nil {
				return fmt.Errorf("%w: land %d: %w", domain.ErrDecodeFailure, index, err)
			}
			page[offset] = record
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return page, nil
}

func (g *Gateway) fetchBatch(ctx context.Context, batcher ports.BatchCaller, page []domain.LandRecord, start int, requests []ports.CallRequest) error {
	results, err := batcher.BatchCall(ctx, requests)
	if err != nil {
		return fmt.Errorf("%w: lands %d-%d: %w", domain.ErrDecodeFailure, start, start+len(requests)-1, err)
	}
	if len(results) != len(requests) {
		return fmt.Errorf("%w: batch returned %d results for %d requests", domain.ErrDecodeFailure, len(results), len(requests))
	}

	for offset, out := range results {
		record, err := decodeLandRecord(out)
		if err != nil {
			return fmt.Errorf("%w: land %d: %w", domain.ErrDecodeFailure, start+offset, err)
		}
		page[offset] = record
	}

	return nil
}

// SubmitRegistration sends registerLand with a session-unique survey number and returns once
// the agent has accepted the transaction.
func (g *Gateway) SubmitRegistration(ctx context.Context, from common.Address, input domain.RegistrationInput) (domain.TxHandle, error) {
	if err := input.Validate(); err != nil {
		return domain.TxHandle{}, err
	}

	surveyNumber := input.SurveyNumber + g.suffixes.Next()
	data, err := registryABI.Pack(methodRegisterLand,
		input.Division,
		input.District,
		surveyNumber,
		big.NewInt(int64(input.Area.Value)),
		string(input.Area.Unit),
		formatGPS(input.GPS),
		input.DocumentHash,
	)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("pack %s: %w", methodRegisterLand, err)
	}

	handle := domain.TxHandle{
		Kind:         domain.TxKindRegistration,
		From:         from,
		To:           g.contract,
		Data:         data,
		SurveyNumber: surveyNumber,
	}

	return g.submit(ctx, handle, g.opts.RegisterGas)
}

// SubmitVerification sends verifyLand. Authorization is left entirely to the ledger.
func (g *Gateway) SubmitVerification(ctx context.Context, from common.Address, landUID string) (domain.TxHandle, error) {
	if landUID == "" {
		return domain.TxHandle{}, fmt.Errorf("%w: land uid is required", domain.ErrInvalidInput)
	}

	data, err := registryABI.Pack(methodVerifyLand, landUID)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("pack %s: %w", methodVerifyLand, err)
	}

	handle := domain.TxHandle{
		Kind:    domain.TxKindVerification,
		From:    from,
		To:      g.contract,
		Data:    data,
		LandUID: landUID,
	}

	return g.submit(ctx, handle, g.opts.VerifyGas)
}

func (g *Gateway) submit(ctx context.Context, handle domain.TxHandle, policy GasPolicy) (domain.TxHandle, error) {
	gas, err := policy.Resolve(ctx, func(ctx context.Context) (uint64, error) {
		return g.agent.EstimateGas(ctx, ports.CallRequest{From: handle.From, To: handle.To, Data: handle.Data})
	})
	if err != nil {
		return domain.TxHandle{}, err
	}
	handle.Gas = gas

	hash, err := g.agent.SendTransaction(ctx, ports.TxRequest{
		From: handle.From,
		To:   handle.To,
		Data: handle.Data,
		Gas:  gas,
	})
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("send %s transaction: %w", handle.Kind, err)
	}
	handle.Hash = hash

	g.logger.Info("ledger transaction sent",
		slog.String("hash", hash.Hex()),
		slog.String("kind", string(handle.Kind)),
		slog.Uint64("gas", gas),
	)

	return handle, nil
}

// AwaitConfirmation waits for the receipt. A failed receipt is replayed as a call at its block
// to recover the revert reason.
func (g *Gateway) AwaitConfirmation(ctx context.Context, handle domain.TxHandle) (domain.Receipt, error) {
	receipt, err := g.agent.WaitReceipt(ctx, handle.Hash)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("wait for %s: %w", handle.Hash.Hex(), err)
	}
	if receipt.Succeeded {
		return receipt, nil
	}

	return receipt, g.revertReason(ctx, handle, receipt)
}

func (g *Gateway) revertReason(ctx context.Context, handle domain.TxHandle, receipt domain.Receipt) error {
	req := ports.CallRequest{From: handle.From, To: handle.To, Data: handle.Data, Gas: handle.Gas}
	_, err := g.agent.Call(ctx, req, new(big.Int).SetUint64(receipt.BlockNumber))
	if reason, ok := domain.RevertReason(err); ok {
		return &domain.RevertError{Reason: reason}
	}
	if err != nil {
		g.logger.Debug("revert reason unavailable",
			slog.String("hash", handle.Hash.Hex()),
			slog.String("error", err.Error()),
		)
	}

	return &domain.RevertError{}
}
