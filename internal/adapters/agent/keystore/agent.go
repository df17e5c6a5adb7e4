package keystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/bdlandchain/landchain-cli/internal/adapters/agent"
	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	gethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	DefaultReceiptTimeout = 5 * time.Minute
	DefaultPollInterval   = 2 * time.Second
)

// Node is the subset of the node API the local signer needs.
type Node interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	Close()
}

// Prompter asks the operator to approve agent actions and to unlock keys.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
	Passphrase(ctx context.Context, account common.Address) (string, error)
}

type Dialer func(ctx context.Context, url string) (Node, error)

func DialNode(ctx context.Context, url string) (Node, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, errors.New("node endpoint required")
	}

	client, err := ethclient.DialContext(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	return client, nil
}

type Options struct {
	Dir            string
	ScryptN        int
	ScryptP        int
	ReceiptTimeout time.Duration
	PollInterval   time.Duration
	Secrets        ports.SecretStore
	Prompter       Prompter
	Dialer         Dialer
	Logger         *slog.Logger
}

// Agent signs locally with keys from a go-ethereum keystore directory and talks to a node
// of the currently selected network.
type Agent struct {
	keys     *gethkeystore.KeyStore
	secrets  ports.SecretStore
	prompter Prompter
	dial     Dialer
	opts     Options
	logger   *slog.Logger

	mu      sync.RWMutex
	node    Node
	chainID *big.Int
	known   map[uint64]domain.NetworkParams
}

var _ ports.SigningAgent = (*Agent)(nil)

// Open connects to the node serving network and loads the keystore.
func Open(ctx context.Context, network domain.NetworkParams, opts Options) (*Agent, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("%w: keystore directory is empty", domain.ErrNoAgent)
	}
	if opts.Prompter == nil {
		return nil, errors.New("keystore agent requires a prompter")
	}
	if len(network.RPCURLs) == 0 {
		return nil, fmt.Errorf("%w: network %s has no rpc url", domain.ErrNoAgent, network.Name)
	}
	if opts.Dialer == nil {
		opts.Dialer = DialNode
	}
	if opts.ScryptN == 0 || opts.ScryptP == 0 {
		opts.ScryptN, opts.ScryptP = gethkeystore.StandardScryptN, gethkeystore.StandardScryptP
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = DefaultReceiptTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	node, err := opts.Dialer(ctx, network.RPCURLs[0])
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", domain.ErrNoAgent, network.RPCURLs[0], err)
	}
	chainID, err := node.ChainID(ctx)
	if err != nil {
		node.Close()
		return nil, fmt.Errorf("%w: read chain id: %w", domain.ErrNoAgent, agent.MapError(err))
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	known := map[uint64]domain.NetworkParams{}
	if chainID.Uint64() == network.ChainID {
		known[network.ChainID] = network
	}

	return &Agent{
		keys:     gethkeystore.NewKeyStore(opts.Dir, opts.ScryptN, opts.ScryptP),
		secrets:  opts.Secrets,
		prompter: opts.Prompter,
		dial:     opts.Dialer,
		opts:     opts,
		logger:   logger,
		node:     node,
		chainID:  chainID,
		known:    known,
	}, nil
}

// CreateKey writes a new encrypted key into dir without a node connection.
func CreateKey(dir string, passphrase string) (common.Address, error) {
	return createKey(dir, passphrase, gethkeystore.StandardScryptN, gethkeystore.StandardScryptP)
}

func createKey(dir, passphrase string, scryptN, scryptP int) (common.Address, error) {
	if strings.TrimSpace(dir) == "" {
		return common.Address{}, errors.New("keystore directory is empty")
	}

	account, err := gethkeystore.StoreKey(dir, passphrase, scryptN, scryptP)
	if err != nil {
		return common.Address{}, fmt.Errorf("create keystore account: %w", err)
	}

	return account.Address, nil
}

func (a *Agent) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.node != nil {
		a.node.Close()
		a.node = nil
	}
}

func (a *Agent) current() (Node, *big.Int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.node == nil {
		return nil, nil, domain.ErrNoAgent
	}

	return a.node, new(big.Int).Set(a.chainID), nil
}

func (a *Agent) addresses() []common.Address {
	keys := a.keys.Accounts()
	addresses := make([]common.Address, 0, len(keys))
	for _, account := range keys {
		addresses = append(addresses, account.Address)
	}

	return addresses
}

func (a *Agent) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	addresses := a.addresses()
	if len(addresses) == 0 {
		return nil, nil
	}

	ok, err := a.prompter.Confirm(ctx, fmt.Sprintf("Connect account %s?", addresses[0].Hex()))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrUserRejected
	}

	return addresses, nil
}

func (a *Agent) ChainID(context.Context) (uint64, error) {
	_, chainID, err := a.current()
	if err != nil {
		return 0, err
	}

	return chainID.Uint64(), nil
}

func (a *Agent) SwitchChain(ctx context.Context, chainID uint64) error {
	_, current, err := a.current()
	if err != nil {
		return err
	}
	if current.Uint64() == chainID {
		return nil
	}

	a.mu.RLock()
	params, ok := a.known[chainID]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrUnrecognizedChain, chainID)
	}

	approved, err := a.prompter.Confirm(ctx, fmt.Sprintf("Switch to network %s (%d)?", params.Name, chainID))
	if err != nil {
		return err
	}
	if !approved {
		return domain.ErrUserRejected
	}

	node, err := a.dial(ctx, params.RPCURLs[0])
	if err != nil {
		return fmt.Errorf("dial %s: %w", params.RPCURLs[0], err)
	}
	remote, err := node.ChainID(ctx)
	if err != nil {
		node.Close()
		return agent.MapError(err)
	}
	if remote.Uint64() != chainID {
		node.Close()
		return fmt.Errorf("node %s serves chain %d, expected %d", params.RPCURLs[0], remote.Uint64(), chainID)
	}

	a.mu.Lock()
	previous := a.node
	a.node, a.chainID = node, remote
	a.mu.Unlock()
	if previous != nil {
		previous.Close()
	}

	a.logger.Info("keystore agent switched network", slog.Uint64("chain_id", chainID))

	return nil
}

func (a *Agent) AddChain(ctx context.Context, params domain.NetworkParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	approved, err := a.prompter.Confirm(ctx, fmt.Sprintf("Add network %s (%d) via %s?", params.Name, params.ChainID, params.RPCURLs[0]))
	if err != nil {
		return err
	}
	if !approved {
		return domain.ErrUserRejected
	}

	a.mu.Lock()
	a.known[params.ChainID] = params
	a.mu.Unlock()

	return nil
}

func (a *Agent) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	node, _, err := a.current()
	if err != nil {
		return nil, err
	}

	balance, err := node.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, agent.MapError(err)
	}

	return balance, nil
}

func callMsg(from, to common.Address, data []byte, gas uint64) ethereum.CallMsg {
	return ethereum.CallMsg{From: from, To: &to, Gas: gas, Data: data}
}

func (a *Agent) Call(ctx context.Context, req ports.CallRequest, blockNumber *big.Int) ([]byte, error) {
	node, _, err := a.current()
	if err != nil {
		return nil, err
	}

	out, err := node.CallContract(ctx, callMsg(req.From, req.To, req.Data, req.Gas), blockNumber)
	if err != nil {
		return nil, agent.MapError(err)
	}

	return out, nil
}

func (a *Agent) EstimateGas(ctx context.Context, req ports.CallRequest) (uint64, error) {
	node, _, err := a.current()
	if err != nil {
		return 0, err
	}

	gas, err := node.EstimateGas(ctx, callMsg(req.From, req.To, req.Data, 0))
	if err != nil {
		return 0, agent.MapError(err)
	}

	return gas, nil
}

// SendTransaction builds an EIP-1559 transaction, asks for approval, signs it and broadcasts it.
func (a *Agent) SendTransaction(ctx context.Context, req ports.TxRequest) (common.Hash, error) {
	node, chainID, err := a.current()
	if err != nil {
		return common.Hash{}, err
	}

	account := accounts.Account{Address: req.From}
	if !a.keys.HasAddress(req.From) {
		return common.Hash{}, fmt.Errorf("%w: %s is not in the keystore", domain.ErrNoAccounts, req.From.Hex())
	}

	tx, err := a.buildTx(ctx, node, chainID, req)
	if err != nil {
		return common.Hash{}, err
	}

	approved, err := a.prompter.Confirm(ctx, fmt.Sprintf("Send transaction to %s with gas limit %d?", req.To.Hex(), req.Gas))
	if err != nil {
		return common.Hash{}, err
	}
	if !approved {
		return common.Hash{}, domain.ErrUserRejected
	}

	passphrase, err := a.passphrase(ctx, req.From)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := a.keys.SignTxWithPassphrase(account, passphrase, tx, chainID)
	if err != nil {
		if errors.Is(err, gethkeystore.ErrDecrypt) {
			return common.Hash{}, fmt.Errorf("%w: wrong passphrase for %s", domain.ErrUserRejected, req.From.Hex())
		}
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := node.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, agent.MapError(err)
	}

	return signed.Hash(), nil
}

func (a *Agent) buildTx(ctx context.Context, node Node, chainID *big.Int, req ports.TxRequest) (*gethtypes.Transaction, error) {
	nonce, err := node.PendingNonceAt(ctx, req.From)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", agent.MapError(err))
	}
	tip, err := node.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest tip: %w", agent.MapError(err))
	}
	head, err := node.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("latest header: %w", agent.MapError(err))
	}

	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To

	return gethtypes.NewTx(&gethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       req.Gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	}), nil
}

func (a *Agent) passphrase(ctx context.Context, account common.Address) (string, error) {
	if a.secrets != nil {
		stored, err := a.secrets.Get(ctx, domain.PassphraseSecretKey(account))
		if err == nil {
			return stored, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		a.logger.Debug("stored passphrase unavailable", slog.String("account", account.Hex()), slog.String("error", err.Error()))
	}

	return a.prompter.Passphrase(ctx, account)
}

func (a *Agent) WaitReceipt(ctx context.Context, hash common.Hash) (domain.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, a.opts.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		node, _, err := a.current()
		if err != nil {
			return domain.Receipt{}, err
		}

		receipt, err := node.TransactionReceipt(waitCtx, hash)
		switch {
		case err == nil && receipt != nil:
			return toReceipt(receipt), nil
		case err != nil && !errors.Is(err, ethereum.NotFound) && waitCtx.Err() == nil:
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

func toReceipt(receipt *gethtypes.Receipt) domain.Receipt {
	out := domain.Receipt{
		TxHash:    receipt.TxHash,
		GasUsed:   receipt.GasUsed,
		Succeeded: receipt.Status == gethtypes.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}

	return out
}

// SubscribeAccounts reports the full account list whenever a key file appears or disappears.
func (a *Agent) SubscribeAccounts(listener ports.AccountsListener) func() {
	events := make(chan accounts.WalletEvent, 8)
	sub := a.keys.Subscribe(events)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-events:
				listener(a.addresses())
			case <-sub.Err():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.Unsubscribe()
			<-done
		})
	}
}
