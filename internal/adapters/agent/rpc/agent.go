package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/bdlandchain/landchain-cli/internal/adapters/agent"
	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

const (
	DefaultReceiptTimeout       = 5 * time.Minute
	DefaultPollInterval         = 2 * time.Second
	DefaultAccountsPollInterval = 3 * time.Second
)

type Options struct {
	RequestsPerSecond    float64
	Burst                int
	ReceiptTimeout       time.Duration
	PollInterval         time.Duration
	AccountsPollInterval time.Duration
	Logger               *slog.Logger
}

// Agent speaks the EIP-1193 request vocabulary over JSON-RPC to an external signer.
type Agent struct {
	client  *gethrpc.Client
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger

	ctx      context.Context
	stop     context.CancelFunc
	watchers sync.WaitGroup
}

var (
	_ ports.SigningAgent = (*Agent)(nil)
	_ ports.BatchCaller  = (*Agent)(nil)
)

func Dial(ctx context.Context, url string, opts Options) (*Agent, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: agent url is empty", domain.ErrNoAgent)
	}

	client, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", domain.ErrNoAgent, url, err)
	}

	return NewAgent(client, opts), nil
}

func NewAgent(client *gethrpc.Client, opts Options) *Agent {
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = DefaultReceiptTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.AccountsPollInterval <= 0 {
		opts.AccountsPollInterval = DefaultAccountsPollInterval
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := max(opts.Burst, 1)

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, stop := context.WithCancel(context.Background())

	return &Agent{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		opts:    opts,
		logger:  logger,
		ctx:     ctx,
		stop:    stop,
	}
}

// Close stops every account watcher and closes the connection.
func (a *Agent) Close() {
	a.stop()
	a.watchers.Wait()
	a.client.Close()
}

func (a *Agent) call(ctx context.Context, result any, method string, args ...any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := a.client.CallContext(ctx, result, method, args...); err != nil {
		return agent.MapError(err)
	}

	return nil
}

func (a *Agent) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := a.call(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (a *Agent) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := a.call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}

	return uint64(id), nil
}

type switchChainParams struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

func (a *Agent) SwitchChain(ctx context.Context, chainID uint64) error {
	return a.call(ctx, nil, "wallet_switchEthereumChain", switchChainParams{ChainID: hexutil.Uint64(chainID)})
}

type nativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type addChainParams struct {
	ChainID           hexutil.Uint64 `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    nativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

func (a *Agent) AddChain(ctx context.Context, params domain.NetworkParams) error {
	return a.call(ctx, nil, "wallet_addEthereumChain", addChainParams{
		ChainID:   hexutil.Uint64(params.ChainID),
		ChainName: params.Name,
		NativeCurrency: nativeCurrency{
			Name:     params.Currency.Name,
			Symbol:   params.Currency.Symbol,
			Decimals: params.Currency.Decimals,
		},
		RPCURLs:           params.RPCURLs,
		BlockExplorerURLs: params.ExplorerURLs,
	})
}

func (a *Agent) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	var balance hexutil.Big
	if err := a.call(ctx, &balance, "eth_getBalance", account, "latest"); err != nil {
		return nil, err
	}

	return balance.ToInt(), nil
}

type callArgs struct {
	From  *common.Address `json:"from,omitempty"`
	To    common.Address  `json:"to"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data"`
}

func toCallArgs(from, to common.Address, data []byte, gas uint64, value *big.Int) callArgs {
	args := callArgs{To: to, Data: data}
	if from != (common.Address{}) {
		args.From = &from
	}
	if gas > 0 {
		g := hexutil.Uint64(gas)
		args.Gas = &g
	}
	if value != nil {
		args.Value = (*hexutil.Big)(value)
	}

	return args
}

func blockTag(blockNumber *big.Int) string {
	if blockNumber == nil {
		return "latest"
	}

	return hexutil.EncodeBig(blockNumber)
}

func (a *Agent) Call(ctx context.Context, req ports.CallRequest, blockNumber *big.Int) ([]byte, error) {
	var out hexutil.Bytes
	args := toCallArgs(req.From, req.To, req.Data, req.Gas, nil)
	if err := a.call(ctx, &out, "eth_call", args, blockTag(blockNumber)); err != nil {
		return nil, err
	}

	return out, nil
}

func (a *Agent) BatchCall(ctx context.Context, reqs []ports.CallRequest) ([][]byte, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	results := make([]hexutil.Bytes, len(reqs))
	batch := make([]gethrpc.BatchElem, len(reqs))
	for i, req := range reqs {
		batch[i] = gethrpc.BatchElem{
			Method: "eth_call",
			Args:   []any{toCallArgs(req.From, req.To, req.Data, req.Gas, nil), "latest"},
			Result: &results[i],
		}
	}

	if err := a.client.BatchCallContext(ctx, batch); err != nil {
		return nil, agent.MapError(err)
	}

	out := make([][]byte, len(reqs))
	for i, elem := range batch {
		if elem.Error != nil {
			return nil, fmt.Errorf("batch element %d: %w", i, agent.MapError(elem.Error))
		}
		out[i] = results[i]
	}

	return out, nil
}

func (a *Agent) EstimateGas(ctx context.Context, req ports.CallRequest) (uint64, error) {
	var gas hexutil.Uint64
	args := toCallArgs(req.From, req.To, req.Data, 0, nil)
	if err := a.call(ctx, &gas, "eth_estimateGas", args); err != nil {
		return 0, err
	}

	return uint64(gas), nil
}

func (a *Agent) SendTransaction(ctx context.Context, req ports.TxRequest) (common.Hash, error) {
	var hash common.Hash
	args := toCallArgs(req.From, req.To, req.Data, req.Gas, req.Value)
	if err := a.call(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}

	return hash, nil
}

type rpcReceipt struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     hexutil.Uint64 `json:"blockNumber"`
	GasUsed         hexutil.Uint64 `json:"gasUsed"`
	Status          hexutil.Uint64 `json:"status"`
}

// WaitReceipt polls for the receipt until it appears or the agent's receipt timeout elapses.
func (a *Agent) WaitReceipt(ctx context.Context, hash common.Hash) (domain.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, a.opts.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		var receipt *rpcReceipt
		err := a.call(waitCtx, &receipt, "eth_getTransactionReceipt", hash)
		switch {
		case err == nil && receipt != nil:
			return domain.Receipt{
				TxHash:      receipt.TransactionHash,
				BlockNumber: uint64(receipt.BlockNumber),
				GasUsed:     uint64(receipt.GasUsed),
				Succeeded:   receipt.Status == 1,
			}, nil
		case err != nil && waitCtx.Err() == nil:
			a.logger.Debug("receipt poll failed", slog.String("hash", hash.Hex()), slog.String("error", err.Error()))
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return domain.Receipt{}, ctx.Err()
			}
			return domain.Receipt{}, fmt.Errorf("%w: %s after %s", domain.ErrTimeout, hash.Hex(), a.opts.ReceiptTimeout)
		case <-ticker.C:
		}
	}
}

// SubscribeAccounts polls eth_accounts and reports every change after the first snapshot.
func (a *Agent) SubscribeAccounts(listener ports.AccountsListener) func() {
	ctx, cancel := context.WithCancel(a.ctx)

	a.watchers.Add(1)

	go func() {
		defer a.watchers.Done()
		a.watchAccounts(ctx, listener)
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

func (a *Agent) watchAccounts(ctx context.Context, listener ports.AccountsListener) {
	ticker := time.NewTicker(a.opts.AccountsPollInterval)
	defer ticker.Stop()

	var last []common.Address
	initialised := false
	for {
		var accounts []common.Address
		err := a.call(ctx, &accounts, "eth_accounts")
		switch {
		case err != nil:
			if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				a.logger.Debug("accounts poll failed", slog.String("error", err.Error()))
			}
		case !initialised:
			last, initialised = accounts, true
		case !slices.Equal(last, accounts):
			last = accounts
			listener(slices.Clone(accounts))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
