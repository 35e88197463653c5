package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Receipt is the confirmation outcome of a broadcast transaction.
type Receipt struct {
	TxHash common.Hash
	Status uint64
}

const (
	ReceiptStatusSuccess uint64 = 1
	ReceiptStatusFailed  uint64 = 0
)

// Client is the chain provider surface the pipeline and the holder gate
// depend on. The production implementation lives in evm.go; tests substitute
// an in-memory stub.
type Client interface {
	// SignerAddress reports the address derived from the configured trading
	// key, or false when no key is configured.
	SignerAddress() (common.Address, bool)

	Ping(ctx context.Context) error
	CodeAt(ctx context.Context, account common.Address) ([]byte, error)
	GetAmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	TokenSymbol(ctx context.Context, token common.Address) (string, error)
	BalanceOf(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error)
	SendNative(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
	SwapNativeForTokens(ctx context.Context, router common.Address, minOut *big.Int, path []common.Address, recipient common.Address, deadline *big.Int, value *big.Int) (common.Hash, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error)
}

// ErrNoSigner is returned by write operations when no trading key is set.
var ErrNoSigner = errors.New("chain: no trading key configured")

// IsRevert reports whether an eth_call failure was a contract-level revert
// rather than a transport problem. Reverted quotes are an expected condition
// (no liquidity, bad path) and must not be treated as infrastructure errors.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "revert") ||
		strings.Contains(msg, "execution reverted") ||
		strings.Contains(msg, "invalid opcode")
}
