package trade

import "fmt"

// Kind classifies the terminal state of one trade attempt. Everything except
// Dry, Success and Fail is an expected rejection that leaves no ledger row.
type Kind string

const (
	// KindDisabled: the process-level trading switch is off.
	KindDisabled Kind = "disabled"
	// KindNotConfigured: no active channel binding (or its profile/wallet is
	// missing) for the slug.
	KindNotConfigured Kind = "not_configured"
	// KindThrottled: a ledger row exists inside the channel's throttle window.
	KindThrottled Kind = "throttled"
	// KindRejected: a planner precondition failed (no signer, wallet
	// mismatch, no contract at address, fee without treasury).
	KindRejected Kind = "rejected"
	// KindNoLiquidity: the router quote reverted; recoverable on a later
	// message.
	KindNoLiquidity Kind = "no_liquidity"
	// KindDry: simulated trade recorded in the ledger.
	KindDry Kind = "dry"
	// KindSuccess: on-chain swap confirmed.
	KindSuccess Kind = "success"
	// KindFail: on-chain swap submitted but reverted, timed out, or failed to
	// broadcast.
	KindFail Kind = "fail"
)

// Outcome is the tagged result of Engine.Execute. Expected rejections are
// values, not errors; only malformed input and infrastructure failures
// surface as Go errors.
type Outcome struct {
	Kind   Kind
	Detail string
	TxHash string
}

// Logged reports whether this outcome corresponds to a persisted ledger row.
func (o Outcome) Logged() bool {
	switch o.Kind {
	case KindDry, KindSuccess, KindFail:
		return true
	default:
		return false
	}
}

// String renders the operator-facing result line.
func (o Outcome) String() string {
	switch o.Kind {
	case KindDisabled:
		return "Skip: trading disabled"
	case KindNotConfigured:
		return "Skip: channel not configured or no profile"
	case KindThrottled:
		return fmt.Sprintf("Skip: throttle window (%s)", o.Detail)
	case KindRejected:
		return "Skip: " + o.Detail
	case KindNoLiquidity:
		return "Skip: quote reverted (no liquidity / bad path)"
	case KindDry:
		return "DRY: " + o.Detail
	case KindSuccess:
		return fmt.Sprintf("%s tx=%s", o.Detail, o.TxHash)
	case KindFail:
		if o.TxHash != "" {
			return fmt.Sprintf("FAIL: %s tx=%s", o.Detail, o.TxHash)
		}
		return "FAIL: " + o.Detail
	default:
		return o.Detail
	}
}

func rejected(format string, args ...any) Outcome {
	return Outcome{Kind: KindRejected, Detail: fmt.Sprintf(format, args...)}
}
