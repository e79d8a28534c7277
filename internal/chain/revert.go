package chain

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

// Custom error signatures the router and registry revert with, mapped to
// operator-readable causes.
var revertCauses = map[[4]byte]string{
	selector("NothingToSell()"):         "nothing to sell",
	selector("InsufficientLiquidity()"): "insufficient liquidity",
	selector("NotExecutor()"):           "not the authorized executor",
	selector("AgentNotActive()"):        "agent not active",
	selector("SlippageExceeded()"):      "slippage exceeded",
}

func selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// decodeRevert turns a provider error into a readable cause where the revert
// data carries a known selector; otherwise the raw provider message stands.
func decodeRevert(err error) string {
	if err == nil {
		return ""
	}

	if de, ok := err.(rpc.DataError); ok {
		if cause, ok := causeFromData(de.ErrorData()); ok {
			return cause
		}
	}
	return err.Error()
}

func causeFromData(data any) (string, bool) {
	raw, ok := data.(string)
	if !ok {
		return "", false
	}
	raw = strings.TrimPrefix(raw, "0x")
	if len(raw) < 8 {
		return "", false
	}

	decoded, err := hex.DecodeString(raw[:8])
	if err != nil {
		return "", false
	}

	var sel [4]byte
	copy(sel[:], decoded)
	cause, ok := revertCauses[sel]
	return cause, ok
}
