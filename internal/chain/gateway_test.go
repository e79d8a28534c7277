package chain

import (
	"bytes"
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
)

// Hardhat's well-known second dev account; never holds real funds.
const testKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func testKeyAddress(t *testing.T) common.Address {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatal(err)
	}
	return crypto.PubkeyToAddress(key.PublicKey)
}

// fakeBackend scripts the chain interactions the gateway performs.
type fakeBackend struct {
	agentActive bool
	executor    common.Address
	sendErr     error
	estimateErr error
	receiptFail bool

	sentTx *types.Transaction
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) { return big.NewInt(97), nil }

func (f *fakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	switch {
	case bytes.HasPrefix(call.Data, registryABI.Methods["getAgent"].ID):
		return registryABI.Methods["getAgent"].Outputs.Pack(f.agentActive, uint8(1))
	case bytes.HasPrefix(call.Data, routerABI.Methods["executor"].ID):
		return routerABI.Methods["executor"].Outputs.Pack(f.executor)
	case bytes.HasPrefix(call.Data, registryABI.Methods["creationFee"].ID):
		return registryABI.Methods["creationFee"].Outputs.Pack(big.NewInt(1000))
	}
	return nil, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return 150_000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentTx = tx
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	status := types.ReceiptStatusSuccessful
	if f.receiptFail {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{Status: status, BlockNumber: big.NewInt(100)}, nil
}

// revertError mimics a provider error carrying revert data.
type revertError struct {
	msg  string
	data string
}

func (e *revertError) Error() string        { return e.msg }
func (e *revertError) ErrorData() interface{} { return e.data }

func newTestGateway(t *testing.T, be *fakeBackend) *Gateway {
	t.Helper()
	return newGatewayWithBackend(Options{
		PrivateKey:      testKeyHex,
		RegistryAddress: "0x1000000000000000000000000000000000000001",
		RouterAddress:   "0x1000000000000000000000000000000000000002",
	}, be, zerolog.Nop())
}

func TestExecuteProtectionValidation(t *testing.T) {
	g := newTestGateway(t, &fakeBackend{})

	if res := g.ExecuteProtection(context.Background(), "not-an-address", "1"); res.Success || res.Error != "invalid userAddress" {
		t.Fatalf("expected address validation failure: %+v", res)
	}

	for _, amount := range []string{"", "abc", "0", "-5"} {
		res := g.ExecuteProtection(context.Background(), "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", amount)
		if res.Success {
			t.Fatalf("amount %q should fail validation", amount)
		}
	}
}

func TestExecuteProtectionHappyPath(t *testing.T) {
	be := &fakeBackend{agentActive: true}
	be.executor = testKeyAddress(t)
	g := newTestGateway(t, be)

	res := g.ExecuteProtection(context.Background(), "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "0.5")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.TxHash == "" {
		t.Fatal("success must carry the transaction hash")
	}
	if be.sentTx == nil {
		t.Fatal("no transaction submitted")
	}

	// 0.5 tokens at 18 decimals.
	wantAmount, _ := new(big.Int).SetString("500000000000000000", 10)
	unpacked, err := routerABI.Methods["executeProtection"].Inputs.Unpack(be.sentTx.Data()[4:])
	if err != nil {
		t.Fatalf("unpack sent calldata: %v", err)
	}
	if got := unpacked[1].(*big.Int); got.Cmp(wantAmount) != 0 {
		t.Fatalf("expected amountIn %s, got %s", wantAmount, got)
	}
}

func TestExecuteProtectionInactiveAgent(t *testing.T) {
	g := newTestGateway(t, &fakeBackend{agentActive: false})

	res := g.ExecuteProtection(context.Background(), "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "1")
	if res.Success || res.Error != "agent not active for this user" {
		t.Fatalf("inactive agent must be a clean failure: %+v", res)
	}
}

func TestExecuteProtectionUnauthorizedExecutor(t *testing.T) {
	be := &fakeBackend{agentActive: true}
	be.executor = common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	g := newTestGateway(t, be)

	res := g.ExecuteProtection(context.Background(), "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "1")
	if res.Success || res.Error != "not the authorized executor" {
		t.Fatalf("executor mismatch must be a clean failure: %+v", res)
	}
}

func TestExecuteProtectionDecodesRevert(t *testing.T) {
	sel := selector("NothingToSell()")
	be := &fakeBackend{agentActive: true}
	be.executor = testKeyAddress(t)
	be.estimateErr = &revertError{msg: "execution reverted", data: "0x" + common.Bytes2Hex(sel[:])}
	g := newTestGateway(t, be)

	res := g.ExecuteProtection(context.Background(), "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "1")
	if res.Success || res.Error != "nothing to sell" {
		t.Fatalf("expected decoded revert cause, got %+v", res)
	}
}

func TestDecodeRevertUnknownSelectorKeepsRawMessage(t *testing.T) {
	err := &revertError{msg: "execution reverted: boom", data: "0xdeadbeef"}
	if got := decodeRevert(err); got != "execution reverted: boom" {
		t.Fatalf("unknown selector should keep the provider message, got %q", got)
	}
}

func TestDecodeRevertKnownSelectors(t *testing.T) {
	cases := map[string]string{
		"NothingToSell()":         "nothing to sell",
		"InsufficientLiquidity()": "insufficient liquidity",
		"NotExecutor()":           "not the authorized executor",
		"AgentNotActive()":        "agent not active",
	}
	for sig, want := range cases {
		sel := selector(sig)
		err := &revertError{msg: "execution reverted", data: "0x" + common.Bytes2Hex(sel[:])}
		if got := decodeRevert(err); got != want {
			t.Fatalf("%s: expected %q, got %q", sig, want, got)
		}
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent-demo-97.json")
	manifest := `{
  "network": {"name": "bscTestnet", "chainId": 97},
  "executor": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
  "VibeShieldRegistry": "0x1000000000000000000000000000000000000001",
  "VibeShieldRouter": "0x1000000000000000000000000000000000000002"
}`
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := loadManifest(path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if set.ChainID != 97 {
		t.Fatalf("expected chain id 97, got %d", set.ChainID)
	}
	if set.Registry != common.HexToAddress("0x1000000000000000000000000000000000000001") {
		t.Fatalf("unexpected registry: %s", set.Registry.Hex())
	}
}

func TestLoadManifestInvalidAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(path, []byte(`{"VibeShieldRegistry": "nope", "VibeShieldRouter": "0x1000000000000000000000000000000000000002"}`), 0o644)

	if _, err := loadManifest(path); err == nil {
		t.Fatal("清单中的非法地址应报错")
	}
}

func TestParseAmount(t *testing.T) {
	if _, err := parseAmount("1.5"); err != nil {
		t.Fatalf("valid amount rejected: %v", err)
	}
	wei, _ := parseAmount("2")
	want, _ := new(big.Int).SetString("2000000000000000000", 10)
	if wei.Cmp(want) != 0 {
		t.Fatalf("expected %s wei, got %s", want, wei)
	}
}
