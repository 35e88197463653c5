package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"channelbuyer/internal/config"
)

// Function selectors for the UniswapV2-style router and ERC20 calls this
// service makes. Calls are hand-encoded; the ABI surface is four functions.
var (
	selGetAmountsOut = common.FromHex("0xd06ca61f") // getAmountsOut(uint256,address[])
	selSwapExactETH  = common.FromHex("0xb6f9de95") // swapExactETHForTokensSupportingFeeOnTransferTokens(uint256,address[],address,uint256)
	selBalanceOf     = common.FromHex("0x70a08231") // balanceOf(address)
	selSymbol        = common.FromHex("0x95d89b41") // symbol()
)

const (
	nativeTransferGas = 21000
	receiptPollEvery  = 3 * time.Second
)

type EVMClient struct {
	ec          *ethclient.Client
	chainID     *big.Int
	gasLimit    uint64
	callTimeout time.Duration

	key    *ecdsa.PrivateKey
	signer common.Address

	// Serializes nonce fetch through broadcast; the signing key is shared by
	// every live trade in the process.
	sendMu sync.Mutex
}

func NewEVMClient(cfg config.ChainConfig) (*EVMClient, error) {
	ec, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial rpc: %w", err)
	}
	c := &EVMClient{
		ec:          ec,
		chainID:     big.NewInt(cfg.ChainID),
		gasLimit:    cfg.GasLimit,
		callTimeout: cfg.RequestTimeout,
	}
	if pk := strings.TrimSpace(strings.TrimPrefix(cfg.PrivateKey, "0x")); pk != "" {
		key, err := gethcrypto.HexToECDSA(pk)
		if err != nil {
			return nil, fmt.Errorf("chain: parse trading key: %w", err)
		}
		c.key = key
		c.signer = gethcrypto.PubkeyToAddress(key.PublicKey)
	}
	return c, nil
}

func (c *EVMClient) Close() {
	if c != nil && c.ec != nil {
		c.ec.Close()
	}
}

func (c *EVMClient) SignerAddress() (common.Address, bool) {
	if c == nil || c.key == nil {
		return common.Address{}, false
	}
	return c.signer, true
}

// callCtx bounds a single RPC round trip; the caller context still governs
// the overall operation.
func (c *EVMClient) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *EVMClient) Ping(ctx context.Context) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	got, err := c.ec.ChainID(ctx)
	if err != nil {
		return err
	}
	if c.chainID != nil && got != nil && got.Cmp(c.chainID) != 0 {
		return fmt.Errorf("chain: rpc reports chain id %s, configured %s", got, c.chainID)
	}
	return nil
}

func (c *EVMClient) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ec.CodeAt(ctx, account, nil)
}

func (c *EVMClient) GetAmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	data := append([]byte{}, selGetAmountsOut...)
	data = append(data, padUint(amountIn)...)
	data = append(data, padUint(big.NewInt(64))...) // dynamic array offset
	data = append(data, padUint(big.NewInt(int64(len(path))))...)
	for _, hop := range path {
		data = append(data, padAddress(hop)...)
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	out, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &router, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return decodeUintArray(out)
}

func (c *EVMClient) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	out, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &token, Data: selSymbol}, nil)
	if err != nil || len(out) == 0 {
		return "", err
	}
	// Dynamic string: offset @32, length @64, bytes after.
	if len(out) >= 64 {
		l := new(big.Int).SetBytes(out[32:64]).Int64()
		if l > 0 && 64+int(l) <= len(out) {
			return string(out[64 : 64+int(l)]), nil
		}
	}
	// Some tokens return bytes32 right-padded with zeros.
	return strings.TrimRight(string(out), "\x00"), nil
}

func (c *EVMClient) BalanceOf(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error) {
	data := append(append([]byte{}, selBalanceOf...), padAddress(owner)...)
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	out, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(out), nil
}

func (c *EVMClient) SendNative(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	return c.sendTx(ctx, &to, amount, nativeTransferGas, nil)
}

func (c *EVMClient) SwapNativeForTokens(ctx context.Context, router common.Address, minOut *big.Int, path []common.Address, recipient common.Address, deadline *big.Int, value *big.Int) (common.Hash, error) {
	data := append([]byte{}, selSwapExactETH...)
	data = append(data, padUint(minOut)...)
	data = append(data, padUint(big.NewInt(128))...) // path offset: 4 head slots
	data = append(data, padAddress(recipient)...)
	data = append(data, padUint(deadline)...)
	data = append(data, padUint(big.NewInt(int64(len(path))))...)
	for _, hop := range path {
		data = append(data, padAddress(hop)...)
	}
	return c.sendTx(ctx, &router, value, c.gasLimit, data)
}

func (c *EVMClient) WaitForReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	ticker := time.NewTicker(receiptPollEvery)
	defer ticker.Stop()
	for {
		rcpt, err := c.pollReceipt(ctx, txHash)
		if err == nil && rcpt != nil {
			return &Receipt{TxHash: txHash, Status: rcpt.Status}, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *EVMClient) pollReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ec.TransactionReceipt(ctx, txHash)
}

func (c *EVMClient) sendTx(ctx context.Context, to *common.Address, value *big.Int, gas uint64, data []byte) (common.Hash, error) {
	if c == nil || c.key == nil {
		return common.Hash{}, ErrNoSigner
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	nonce, err := c.ec.PendingNonceAt(ctx, c.signer)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: pending nonce: %w", err)
	}
	gasPrice, err := c.ec.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: gas price: %w", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: sign tx: %w", err)
	}
	if err := c.ec.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("chain: broadcast: %w", err)
	}
	return signed.Hash(), nil
}

func padUint(v *big.Int) []byte {
	if v == nil {
		v = big.NewInt(0)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

func padAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

func decodeUintArray(out []byte) ([]*big.Int, error) {
	if len(out) < 64 {
		return nil, fmt.Errorf("chain: short uint[] response (%d bytes)", len(out))
	}
	n := new(big.Int).SetBytes(out[32:64]).Int64()
	if n < 0 || 64+int(n)*32 > len(out) {
		return nil, fmt.Errorf("chain: malformed uint[] response")
	}
	amounts := make([]*big.Int, 0, n)
	for i := 0; i < int(n); i++ {
		start := 64 + i*32
		amounts = append(amounts, new(big.Int).SetBytes(out[start:start+32]))
	}
	return amounts, nil
}
