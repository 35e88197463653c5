package trade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"channelbuyer/internal/chain"
	"channelbuyer/internal/models"
	"channelbuyer/internal/repository"
)

// FeatureFlags gates trading at the process level (DB-backed kill switch).
type FeatureFlags interface {
	IsEnabled(ctx context.Context, key string, fallback bool) bool
}

// Publisher receives every appended ledger row (live trade feed).
type Publisher interface {
	PublishTrade(entry models.TradeLog)
}

const FeatureTrading = "trading.enabled"

// ErrMalformedToken is returned when the candidate address does not look
// like a 20-byte hex address. Callers should have validated already.
var ErrMalformedToken = errors.New("trade: malformed token address")

type Options struct {
	// TreasuryFallback is the process-level treasury used when a profile has
	// none of its own.
	TreasuryFallback string
	// DeadlineWindow bounds how long a submitted swap stays valid.
	DeadlineWindow time.Duration
	// ConfirmTimeout bounds the receipt wait for a live swap.
	ConfirmTimeout time.Duration
}

// Engine runs the channel-triggered auto-buy pipeline: resolve binding,
// throttle, plan, then simulate or execute, appending one ledger row per
// attempt that reaches planning.
type Engine struct {
	Repo   repository.Repository
	Chain  chain.Client
	Logger *zap.Logger
	Flags  FeatureFlags
	Feed   Publisher

	opts  Options
	locks *channelLocks
}

func NewEngine(repo repository.Repository, chainClient chain.Client, logger *zap.Logger, opts Options) *Engine {
	if opts.DeadlineWindow <= 0 {
		opts.DeadlineWindow = 180 * time.Second
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 120 * time.Second
	}
	return &Engine{
		Repo:   repo,
		Chain:  chainClient,
		Logger: logger,
		opts:   opts,
		locks:  newChannelLocks(),
	}
}

// Execute runs one trade attempt for a detected token address in a channel.
// Expected rejections come back as Outcome values; the error return is
// reserved for malformed input and infrastructure failures.
func (e *Engine) Execute(ctx context.Context, userID string, slug string, token string) (Outcome, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	token = strings.TrimSpace(token)
	if slug == "" || !common.IsHexAddress(token) {
		return Outcome{}, ErrMalformedToken
	}

	if e.Flags != nil && !e.Flags.IsEnabled(ctx, FeatureTrading, true) {
		return Outcome{Kind: KindDisabled}, nil
	}

	channel, err := e.Repo.GetActiveChannelBySlug(ctx, userID, slug, models.ChannelModeMTProto)
	if err != nil {
		return Outcome{}, fmt.Errorf("trade: resolve channel: %w", err)
	}
	if channel == nil || channel.BuyProfile.ID == "" || channel.BuyProfile.Wallet.ID == "" {
		return Outcome{Kind: KindNotConfigured}, nil
	}

	// Single config snapshot for the whole attempt; a concurrent dry-run
	// toggle must not change an in-flight evaluation.
	profile := channel.BuyProfile

	lock := e.locks.lockFor(channel.ID)
	lock.Lock()
	defer lock.Unlock()

	window := time.Duration(profile.MinSecondsBetweenBuys) * time.Second
	if window > 0 {
		last, err := e.Repo.FindMostRecentTradeLog(ctx, channel.ID)
		if err != nil {
			return Outcome{}, fmt.Errorf("trade: throttle lookup: %w", err)
		}
		if last != nil && time.Since(last.CreatedAt) < window {
			return Outcome{Kind: KindThrottled, Detail: fmt.Sprintf("%ds", profile.MinSecondsBetweenBuys)}, nil
		}
	}

	plan, reject, err := e.buildPlan(ctx, &profile, token)
	if err != nil {
		return Outcome{}, err
	}
	if reject.Kind != "" {
		return reject, nil
	}

	symbol := e.tokenSymbol(ctx, token)

	if profile.DryRun {
		return e.recordDry(ctx, channel, &profile, token, symbol, plan)
	}
	return e.executeLive(ctx, channel, &profile, token, symbol, plan)
}

// buildPlan resolves the swap plan from a profile snapshot. A non-empty
// Outcome means the attempt was rejected before any ledger write.
func (e *Engine) buildPlan(ctx context.Context, profile *models.BuyProfile, token string) (*Plan, Outcome, error) {
	signer, hasSigner := e.Chain.SignerAddress()
	if !hasSigner {
		return nil, rejected("trading key not configured"), nil
	}
	if !profile.DryRun && !strings.EqualFold(signer.Hex(), profile.Wallet.Address) {
		return nil, rejected("signer %s != profile wallet %s", signer.Hex(), profile.Wallet.Address), nil
	}

	amountIn := amountToWei(profile.AmountNative)
	if amountIn.Sign() <= 0 {
		return nil, rejected("buy amount is not positive"), nil
	}

	// Fee routing is checked before any chain call: a non-zero fee with no
	// treasury must never be silently dropped.
	feeAmount, netSwapValue := splitFee(amountIn, profile.FeeBps)
	treasury := e.treasuryFor(profile)
	if feeAmount.Sign() > 0 && treasury == "" {
		return nil, rejected("treasury not set for fee %d bps", profile.FeeBps), nil
	}

	tokenAddr := common.HexToAddress(token)
	code, err := e.Chain.CodeAt(ctx, tokenAddr)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("trade: code lookup: %w", err)
	}
	if len(code) == 0 {
		return nil, rejected("no contract at %s", token), nil
	}

	path := []common.Address{common.HexToAddress(profile.WrappedNative), tokenAddr}
	amounts, err := e.Chain.GetAmountsOut(ctx, common.HexToAddress(profile.Router), amountIn, path)
	if err != nil {
		if chain.IsRevert(err) {
			return nil, Outcome{Kind: KindNoLiquidity}, nil
		}
		return nil, Outcome{}, fmt.Errorf("trade: quote: %w", err)
	}
	if len(amounts) == 0 {
		return nil, Outcome{Kind: KindNoLiquidity}, nil
	}
	quoted := amounts[len(amounts)-1]

	return &Plan{
		AmountIn:     amountIn,
		QuotedOut:    quoted,
		MinOut:       slippageFloor(quoted, profile.SlippageBps),
		FeeAmount:    feeAmount,
		NetSwapValue: netSwapValue,
		Path:         path,
		Deadline:     time.Now().Add(e.opts.DeadlineWindow),
	}, Outcome{}, nil
}

func (e *Engine) recordDry(ctx context.Context, channel *models.Channel, profile *models.BuyProfile, token, symbol string, plan *Plan) (Outcome, error) {
	reason := fmt.Sprintf("Would buy ~%s (minOut=%s) of %s for %s native; fee=%s wei",
		plan.QuotedOut, plan.MinOut, symbol, profile.AmountNative, plan.FeeAmount)
	if err := e.appendLog(ctx, channel, token, models.TradeStatusDry, reason, "", plan, symbol); err != nil {
		return Outcome{}, err
	}
	detail := fmt.Sprintf("%s (%s) out=%s minOut=%s fee=%s", symbol, token, plan.QuotedOut, plan.MinOut, plan.FeeAmount)
	return Outcome{Kind: KindDry, Detail: detail}, nil
}

func (e *Engine) executeLive(ctx context.Context, channel *models.Channel, profile *models.BuyProfile, token, symbol string, plan *Plan) (Outcome, error) {
	treasury := e.treasuryFor(profile)
	if plan.FeeAmount.Sign() > 0 {
		feeTx, err := e.Chain.SendNative(ctx, common.HexToAddress(treasury), plan.FeeAmount)
		if err != nil {
			// Nothing moved; the attempt is still idempotent.
			return Outcome{}, fmt.Errorf("trade: fee transfer: %w", err)
		}
		if e.Logger != nil {
			e.Logger.Info("fee skim sent",
				zap.String("channel", channel.Slug),
				zap.String("treasury", treasury),
				zap.String("fee_wei", plan.FeeAmount.String()),
				zap.String("tx", feeTx.Hex()),
			)
		}
	}

	// Past this point the fee (if any) has been collected; every failure is
	// terminal for the attempt and must leave a ledger row.
	signer, _ := e.Chain.SignerAddress()
	deadline := new(big.Int).SetInt64(plan.Deadline.Unix())
	txHash, err := e.Chain.SwapNativeForTokens(ctx, common.HexToAddress(profile.Router),
		plan.MinOut, plan.Path, signer, deadline, plan.NetSwapValue)
	if err != nil {
		reason := "swap submission failed: " + err.Error()
		if logErr := e.appendLog(ctx, channel, token, models.TradeStatusFail, reason, "", plan, symbol); logErr != nil {
			return Outcome{}, logErr
		}
		return Outcome{Kind: KindFail, Detail: "swap submission failed"}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.opts.ConfirmTimeout)
	defer cancel()
	receipt, err := e.Chain.WaitForReceipt(waitCtx, txHash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			reason := "confirmation timed out; transaction may still land"
			if logErr := e.appendLog(ctx, channel, token, models.TradeStatusFail, reason, txHash.Hex(), plan, symbol); logErr != nil {
				return Outcome{}, logErr
			}
			return Outcome{Kind: KindFail, Detail: "confirmation timed out", TxHash: txHash.Hex()}, nil
		}
		// Broadcast succeeded but the receipt state is unknown; surface as a
		// transient error rather than guessing an outcome.
		return Outcome{}, fmt.Errorf("trade: receipt wait for %s: %w", txHash.Hex(), err)
	}

	if receipt.Status == chain.ReceiptStatusSuccess {
		reason := "Bought " + symbol
		if logErr := e.appendLog(ctx, channel, token, models.TradeStatusSuccess, reason, txHash.Hex(), plan, symbol); logErr != nil {
			return Outcome{}, logErr
		}
		return Outcome{Kind: KindSuccess, Detail: fmt.Sprintf("Bought %s (%s)", symbol, token), TxHash: txHash.Hex()}, nil
	}

	if logErr := e.appendLog(ctx, channel, token, models.TradeStatusFail, "swap reverted", txHash.Hex(), plan, symbol); logErr != nil {
		return Outcome{}, logErr
	}
	return Outcome{Kind: KindFail, Detail: "swap reverted", TxHash: txHash.Hex()}, nil
}

func (e *Engine) appendLog(ctx context.Context, channel *models.Channel, token, status, reason, txHash string, plan *Plan, symbol string) error {
	detail, _ := json.Marshal(map[string]string{
		"quoted_out": plan.QuotedOut.String(),
		"min_out":    plan.MinOut.String(),
		"fee_wei":    plan.FeeAmount.String(),
		"symbol":     symbol,
	})
	entry := &models.TradeLog{
		UserID:    channel.UserID,
		ChannelID: channel.ID,
		Token:     strings.ToLower(token),
		Status:    status,
		Reason:    reason,
		TxHash:    txHash,
		Detail:    datatypes.JSON(detail),
	}
	if err := e.Repo.AppendTradeLog(ctx, entry); err != nil {
		return fmt.Errorf("trade: ledger append: %w", err)
	}
	if e.Feed != nil {
		e.Feed.PublishTrade(*entry)
	}
	if e.Logger != nil {
		e.Logger.Info("trade logged",
			zap.String("channel", channel.Slug),
			zap.String("token", entry.Token),
			zap.String("status", status),
			zap.String("tx", txHash),
		)
	}
	return nil
}

func (e *Engine) treasuryFor(profile *models.BuyProfile) string {
	if profile.Treasury != nil && strings.TrimSpace(*profile.Treasury) != "" {
		return strings.TrimSpace(*profile.Treasury)
	}
	return strings.TrimSpace(e.opts.TreasuryFallback)
}

func (e *Engine) tokenSymbol(ctx context.Context, token string) string {
	symbol, err := e.Chain.TokenSymbol(ctx, common.HexToAddress(token))
	if err != nil || strings.TrimSpace(symbol) == "" {
		return "TOKEN"
	}
	return symbol
}
