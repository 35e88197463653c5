package trade

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const bpsDenominator = 10000

// Plan is a fully resolved swap: every amount is in wei and already carries
// the slippage floor and the fee split. Built once per attempt from a single
// profile snapshot.
type Plan struct {
	AmountIn     *big.Int
	QuotedOut    *big.Int
	MinOut       *big.Int
	FeeAmount    *big.Int
	NetSwapValue *big.Int
	Path         []common.Address
	Deadline     time.Time
}

// amountToWei converts a native-currency amount to 18-decimal base units.
// The shift is exact; fractional wei (beyond 18 decimals) truncates toward
// zero.
func amountToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(18).Truncate(0).BigInt()
}

// slippageFloor computes floor(quotedOut * (10000 - slippageBps) / 10000)
// with integer arithmetic only. For slippageBps of 0 the quote passes through
// unchanged; for 10000 the floor is zero.
func slippageFloor(quotedOut *big.Int, slippageBps int) *big.Int {
	keep := big.NewInt(int64(bpsDenominator - slippageBps))
	out := new(big.Int).Mul(quotedOut, keep)
	return out.Div(out, big.NewInt(bpsDenominator))
}

// splitFee computes feeAmount = floor(amountIn * feeBps / 10000) and the
// remaining swap value. feeAmount + net == amountIn holds exactly.
func splitFee(amountIn *big.Int, feeBps int) (feeAmount, net *big.Int) {
	feeAmount = new(big.Int).Mul(amountIn, big.NewInt(int64(feeBps)))
	feeAmount.Div(feeAmount, big.NewInt(bpsDenominator))
	net = new(big.Int).Sub(amountIn, feeAmount)
	return feeAmount, net
}
