// Package chain submits the on-chain protective action and decodes contract
// failures into clean, structured results.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Result is the structured outcome of a protective execution. Domain
// failures populate Error; the gateway never panics or raises for them.
type Result struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash,omitempty"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// AgentStatus is the registry view of one user.
type AgentStatus struct {
	Active   bool  `json:"active"`
	Strategy uint8 `json:"strategy"`
}

// PublicConfig is the read-only contract surface exposed to the status
// command and used for history metadata.
type PublicConfig struct {
	ChainID        int64  `json:"chainId,omitempty"`
	Registry       string `json:"registry"`
	Router         string `json:"router"`
	RouterExecutor string `json:"routerExecutor,omitempty"`
	CreationFeeWei string `json:"creationFeeWei,omitempty"`
	Warning        string `json:"warning,omitempty"`
}

// Executor is the surface the monitor depends on.
type Executor interface {
	ExecuteProtection(ctx context.Context, userAddress, amount string) Result
	AgentStatus(ctx context.Context, userAddress string) (AgentStatus, error)
	PublicConfig(ctx context.Context) (PublicConfig, error)
}

// Options parameterise the gateway.
type Options struct {
	RPCURL          string
	PrivateKey      string // hex, no 0x prefix required
	RegistryAddress string
	RouterAddress   string
	DeploymentPath  string
	RequestTimeout  time.Duration
	ReceiptTimeout  time.Duration
}

// backend is the slice of the Ethereum client the gateway uses; ethclient
// satisfies it, tests inject a fake.
type backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Gateway validates, submits, and decodes the protective transaction.
type Gateway struct {
	opts   Options
	logger zerolog.Logger

	clientMux sync.Mutex
	client    backend

	resolveMux sync.Mutex
	resolved   *AddressSet
	warning    string
}

// NewGateway constructs the execution gateway; the RPC connection is dialed
// lazily on first use.
func NewGateway(opts Options, logger zerolog.Logger) *Gateway {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 2 * time.Minute
	}
	return &Gateway{
		opts:   opts,
		logger: logger.With().Str("component", "execution_gateway").Logger(),
	}
}

// newGatewayWithBackend wires a pre-built backend; test hook.
func newGatewayWithBackend(opts Options, client backend, logger zerolog.Logger) *Gateway {
	g := NewGateway(opts, logger)
	g.client = client
	return g
}

func (g *Gateway) getClient(ctx context.Context) (backend, error) {
	g.clientMux.Lock()
	defer g.clientMux.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	if g.opts.RPCURL == "" {
		return nil, fmt.Errorf("chain rpc url not configured")
	}

	client, err := ethclient.DialContext(ctx, g.opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *Gateway) wallet() (*ecdsa.PrivateKey, common.Address, error) {
	if g.opts.PrivateKey == "" {
		return nil, common.Address{}, fmt.Errorf("signing key not configured")
	}
	key, err := crypto.HexToECDSA(trim0x(g.opts.PrivateKey))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse signing key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// addresses resolves (and caches) the contract address set.
func (g *Gateway) addresses(ctx context.Context) (AddressSet, string, error) {
	g.resolveMux.Lock()
	defer g.resolveMux.Unlock()

	if g.resolved != nil {
		return *g.resolved, g.warning, nil
	}

	set, warning, err := g.resolveAddresses(ctx)
	if err != nil {
		return AddressSet{}, "", err
	}
	g.resolved = &set
	g.warning = warning
	return set, warning, nil
}

// ExecuteProtection validates inputs, checks on-chain preconditions, and
// submits the protective transaction. All domain failures come back as a
// structured Result, never as a panic or error.
func (g *Gateway) ExecuteProtection(ctx context.Context, userAddress, amount string) Result {
	if !common.IsHexAddress(userAddress) {
		return failure("invalid userAddress")
	}
	amountWei, err := parseAmount(amount)
	if err != nil {
		return failure("invalid amount: %s", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.ReceiptTimeout)
	defer cancel()

	key, from, err := g.wallet()
	if err != nil {
		return failure("%s", err)
	}
	client, err := g.getClient(ctx)
	if err != nil {
		return failure("%s", err)
	}

	set, warning, err := g.addresses(ctx)
	if err != nil {
		return failure("%s", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return failure("read chain id: %s", err)
	}
	if set.ChainID != 0 && chainID.Int64() != set.ChainID {
		return failure("rpc network mismatch: expected chain id %d, connected to %d", set.ChainID, chainID.Int64())
	}

	user := common.HexToAddress(userAddress)

	// Preconditions: agent eligibility and executor authorisation.
	status, err := g.agentStatus(ctx, client, set.Registry, user)
	if err != nil {
		return failure("read agent status: %s", decodeRevert(err))
	}
	if !status.Active {
		return Result{Success: false, Error: "agent not active for this user", Warning: warning}
	}

	executor, err := g.routerExecutor(ctx, client, set.Router)
	if err != nil {
		return failure("read router executor: %s", decodeRevert(err))
	}
	if executor != (common.Address{}) && executor != from {
		return Result{Success: false, Error: "not the authorized executor", Warning: warning}
	}

	payload, err := routerABI.Pack("executeProtection", user, amountWei)
	if err != nil {
		return failure("pack executeProtection: %s", err)
	}

	txHash, err := g.submit(ctx, client, key, from, chainID, set.Router, payload)
	if err != nil {
		return Result{Success: false, Error: decodeRevert(err), Warning: warning}
	}

	g.logger.Info().
		Str("user", user.Hex()).
		Str("tx", txHash.Hex()).
		Str("router", set.Router.Hex()).
		Msg("protective execution confirmed")
	return Result{Success: true, TxHash: txHash.Hex(), Warning: warning}
}

func (g *Gateway) submit(ctx context.Context, client backend, key *ecdsa.PrivateKey, from common.Address, chainID *big.Int, to common.Address, payload []byte) (common.Hash, error) {
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("read nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: payload})
	if err != nil {
		// Estimation replays the call, so reverts surface here with data.
		return common.Hash{}, err
	}

	tx, err := types.SignNewTx(key, types.LatestSignerForChainID(chainID), &types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit + gasLimit/5,
		GasPrice: gasPrice,
		Data:     payload,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}

	if err := client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, err
	}

	receipt, err := g.waitMined(ctx, client, tx.Hash())
	if err != nil {
		return common.Hash{}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		// Replay to recover the revert reason.
		_, callErr := client.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Data: payload}, receipt.BlockNumber)
		if callErr != nil {
			return common.Hash{}, callErr
		}
		return common.Hash{}, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return tx.Hash(), nil
}

func (g *Gateway) waitMined(ctx context.Context, client backend, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("await receipt %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// AgentStatus reads the registry eligibility flag and strategy for a user.
func (g *Gateway) AgentStatus(ctx context.Context, userAddress string) (AgentStatus, error) {
	if !common.IsHexAddress(userAddress) {
		return AgentStatus{}, fmt.Errorf("invalid userAddress")
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.RequestTimeout)
	defer cancel()

	client, err := g.getClient(ctx)
	if err != nil {
		return AgentStatus{}, err
	}
	set, _, err := g.addresses(ctx)
	if err != nil {
		return AgentStatus{}, err
	}
	return g.agentStatus(ctx, client, set.Registry, common.HexToAddress(userAddress))
}

func (g *Gateway) agentStatus(ctx context.Context, client backend, registry, user common.Address) (AgentStatus, error) {
	payload, err := registryABI.Pack("getAgent", user)
	if err != nil {
		return AgentStatus{}, err
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &registry, Data: payload}, nil)
	if err != nil {
		return AgentStatus{}, err
	}

	outputs, err := registryABI.Unpack("getAgent", raw)
	if err != nil || len(outputs) != 2 {
		return AgentStatus{}, fmt.Errorf("decode getAgent response: %v", err)
	}

	active, _ := outputs[0].(bool)
	strategy, _ := outputs[1].(uint8)
	return AgentStatus{Active: active, Strategy: strategy}, nil
}

func (g *Gateway) routerExecutor(ctx context.Context, client backend, router common.Address) (common.Address, error) {
	payload, err := routerABI.Pack("executor")
	if err != nil {
		return common.Address{}, err
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &router, Data: payload}, nil)
	if err != nil {
		return common.Address{}, err
	}
	outputs, err := routerABI.Unpack("executor", raw)
	if err != nil || len(outputs) != 1 {
		return common.Address{}, fmt.Errorf("decode executor response: %v", err)
	}
	executor, _ := outputs[0].(common.Address)
	return executor, nil
}

// PublicConfig reads best-effort contract metadata; read failures populate
// Warning rather than failing the whole call.
func (g *Gateway) PublicConfig(ctx context.Context) (PublicConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.RequestTimeout)
	defer cancel()

	client, err := g.getClient(ctx)
	if err != nil {
		return PublicConfig{}, err
	}
	set, warning, err := g.addresses(ctx)
	if err != nil {
		return PublicConfig{}, err
	}

	cfg := PublicConfig{
		ChainID:  set.ChainID,
		Registry: set.Registry.Hex(),
		Router:   set.Router.Hex(),
		Warning:  warning,
	}

	if executor, err := g.routerExecutor(ctx, client, set.Router); err == nil && executor != (common.Address{}) {
		cfg.RouterExecutor = executor.Hex()
	} else if err != nil {
		cfg.Warning = appendWarning(cfg.Warning, "router executor unreadable")
	}

	if payload, err := registryABI.Pack("creationFee"); err == nil {
		if raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &set.Registry, Data: payload}, nil); err == nil {
			if outputs, err := registryABI.Unpack("creationFee", raw); err == nil && len(outputs) == 1 {
				if fee, ok := outputs[0].(*big.Int); ok {
					cfg.CreationFeeWei = fee.String()
				}
			}
		} else {
			cfg.Warning = appendWarning(cfg.Warning, "creation fee unreadable")
		}
	}

	return cfg, nil
}

func appendWarning(existing, warning string) string {
	if existing == "" {
		return warning
	}
	return existing + "; " + warning
}

// parseAmount converts a human-readable 18-decimal token amount to wei.
func parseAmount(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", amount)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("must be greater than zero")
	}
	return d.Shift(18).BigInt(), nil
}

var _ Executor = (*Gateway)(nil)
