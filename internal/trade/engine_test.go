package trade

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"channelbuyer/internal/chain"
	"channelbuyer/internal/models"
	"channelbuyer/internal/repository"
)

const (
	testSigner  = "0x1000000000000000000000000000000000000001"
	testRouter  = "0x2000000000000000000000000000000000000002"
	testWrapped = "0x3000000000000000000000000000000000000003"
	testToken   = "0x4000000000000000000000000000000000000004"
	testTreas   = "0x5000000000000000000000000000000000000005"
)

type stubRepo struct {
	mu      sync.Mutex
	channel *models.Channel
	last    *models.TradeLog
	lastErr error
	logs    []models.TradeLog
}

func (r *stubRepo) UpsertUserByAPIKey(context.Context, string) (*models.User, error) {
	return nil, nil
}
func (r *stubRepo) GetUserByAPIKey(context.Context, string) (*models.User, error) { return nil, nil }
func (r *stubRepo) InsertWallet(context.Context, *models.Wallet) error            { return nil }
func (r *stubRepo) GetWalletByID(context.Context, string) (*models.Wallet, error) { return nil, nil }
func (r *stubRepo) ListWalletsByUserID(context.Context, string) ([]models.Wallet, error) {
	return nil, nil
}
func (r *stubRepo) UpdateWalletLabel(context.Context, string, string) error { return nil }
func (r *stubRepo) InsertBuyProfile(context.Context, *models.BuyProfile) error {
	return nil
}
func (r *stubRepo) GetBuyProfileByID(context.Context, string) (*models.BuyProfile, error) {
	return nil, nil
}
func (r *stubRepo) UpdateBuyProfileDryRun(context.Context, string, bool) error { return nil }
func (r *stubRepo) GetChannelByUserSlug(context.Context, string, string) (*models.Channel, error) {
	return nil, nil
}

func (r *stubRepo) GetActiveChannelBySlug(_ context.Context, userID, slug, mode string) (*models.Channel, error) {
	if r.channel == nil || r.channel.UserID != userID || r.channel.Slug != slug || r.channel.Mode != mode {
		return nil, nil
	}
	return r.channel, nil
}

func (r *stubRepo) UpsertChannelBinding(context.Context, *models.Channel) error { return nil }
func (r *stubRepo) ListChannelsByUserID(context.Context, string) ([]models.Channel, error) {
	return nil, nil
}
func (r *stubRepo) SetChannelActive(context.Context, string, bool) error { return nil }

func (r *stubRepo) FindMostRecentTradeLog(context.Context, string) (*models.TradeLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastErr != nil {
		return nil, r.lastErr
	}
	if len(r.logs) > 0 {
		entry := r.logs[len(r.logs)-1]
		return &entry, nil
	}
	return r.last, nil
}

func (r *stubRepo) AppendTradeLog(_ context.Context, item *models.TradeLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.CreatedAt = time.Now()
	r.logs = append(r.logs, *item)
	return nil
}

func (r *stubRepo) ListTradeLogs(context.Context, repository.ListTradeLogsParams) ([]models.TradeLog, error) {
	return nil, nil
}
func (r *stubRepo) CountTradeLogsByStatusSince(context.Context, time.Time) ([]repository.StatusCount, error) {
	return nil, nil
}
func (r *stubRepo) GetSystemSettingByKey(context.Context, string) (*models.SystemSetting, error) {
	return nil, nil
}
func (r *stubRepo) UpsertSystemSetting(context.Context, *models.SystemSetting) error { return nil }

func (r *stubRepo) appended() []models.TradeLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TradeLog, len(r.logs))
	copy(out, r.logs)
	return out
}

type stubChain struct {
	mu sync.Mutex

	signer    common.Address
	hasSigner bool

	code     []byte
	codeErr  error
	quote    *big.Int
	quoteErr error

	sendErr error
	swapErr error

	receipt    *chain.Receipt
	receiptErr error

	codeCalls  int
	quoteCalls int
	sendCalls  int
	swapCalls  int
	swapMinOut *big.Int
	swapValue  *big.Int
	sentAmount *big.Int
	sentTo     common.Address
}

func (c *stubChain) SignerAddress() (common.Address, bool) { return c.signer, c.hasSigner }
func (c *stubChain) Ping(context.Context) error            { return nil }

func (c *stubChain) CodeAt(context.Context, common.Address) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codeCalls++
	return c.code, c.codeErr
}

func (c *stubChain) GetAmountsOut(_ context.Context, _ common.Address, amountIn *big.Int, _ []common.Address) ([]*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quoteCalls++
	if c.quoteErr != nil {
		return nil, c.quoteErr
	}
	return []*big.Int{amountIn, c.quote}, nil
}

func (c *stubChain) TokenSymbol(context.Context, common.Address) (string, error) {
	return "GEM", nil
}

func (c *stubChain) BalanceOf(context.Context, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (c *stubChain) SendNative(_ context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendCalls++
	c.sentTo = to
	c.sentAmount = new(big.Int).Set(amount)
	if c.sendErr != nil {
		return common.Hash{}, c.sendErr
	}
	return common.HexToHash("0xfee"), nil
}

func (c *stubChain) SwapNativeForTokens(_ context.Context, _ common.Address, minOut *big.Int, _ []common.Address, _ common.Address, _ *big.Int, value *big.Int) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.swapCalls++
	c.swapMinOut = new(big.Int).Set(minOut)
	c.swapValue = new(big.Int).Set(value)
	if c.swapErr != nil {
		return common.Hash{}, c.swapErr
	}
	return common.HexToHash("0xswap"), nil
}

func (c *stubChain) WaitForReceipt(ctx context.Context, txHash common.Hash) (*chain.Receipt, error) {
	if c.receiptErr != nil {
		if errors.Is(c.receiptErr, context.DeadlineExceeded) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return nil, c.receiptErr
	}
	r := *c.receipt
	r.TxHash = txHash
	return &r, nil
}

type stubFlags struct{ enabled bool }

func (f *stubFlags) IsEnabled(context.Context, string, bool) bool { return f.enabled }

func testChannel(dryRun bool) *models.Channel {
	treasury := testTreas
	return &models.Channel{
		ID:     "chan-1",
		UserID: "user-1",
		Slug:   "alphacalls",
		Mode:   models.ChannelModeMTProto,
		Active: true,
		BuyProfile: models.BuyProfile{
			ID:                    "prof-1",
			UserID:                "user-1",
			WalletID:              "wal-1",
			AmountNative:          decimal.NewFromInt(1),
			SlippageBps:           500,
			MinSecondsBetweenBuys: 900,
			Router:                testRouter,
			WrappedNative:         testWrapped,
			FeeBps:                100,
			Treasury:              &treasury,
			DryRun:                dryRun,
			Wallet: models.Wallet{
				ID:      "wal-1",
				UserID:  "user-1",
				Address: testSigner,
			},
		},
	}
}

func newTestEngine(repo *stubRepo, ch *stubChain) *Engine {
	return NewEngine(repo, ch, zap.NewNop(), Options{
		DeadlineWindow: 180 * time.Second,
		ConfirmTimeout: 50 * time.Millisecond,
	})
}

func healthyChain(dry bool) *stubChain {
	c := &stubChain{
		signer:    common.HexToAddress(testSigner),
		hasSigner: true,
		code:      []byte{0x60, 0x60},
		quote:     big.NewInt(1000),
		receipt:   &chain.Receipt{Status: chain.ReceiptStatusSuccess},
	}
	_ = dry
	return c
}

func TestExecuteMalformedInput(t *testing.T) {
	e := newTestEngine(&stubRepo{}, healthyChain(true))

	if _, err := e.Execute(context.Background(), "user-1", "", testToken); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("empty slug: got %v", err)
	}
	if _, err := e.Execute(context.Background(), "user-1", "alphacalls", "0x123"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("short token: got %v", err)
	}
	if _, err := e.Execute(context.Background(), "user-1", "alphacalls", "not-an-address"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("non-hex token: got %v", err)
	}
}

func TestExecuteKillSwitch(t *testing.T) {
	repo := &stubRepo{channel: testChannel(true)}
	ch := healthyChain(true)
	e := newTestEngine(repo, ch)
	e.Flags = &stubFlags{enabled: false}

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindDisabled {
		t.Fatalf("expected disabled, got %s", outcome.Kind)
	}
	if ch.codeCalls != 0 || ch.quoteCalls != 0 {
		t.Fatalf("kill switch must short-circuit before chain calls")
	}
	if len(repo.appended()) != 0 {
		t.Fatalf("kill switch must not write ledger rows")
	}
}

func TestExecuteUnboundChannel(t *testing.T) {
	e := newTestEngine(&stubRepo{}, healthyChain(true))
	outcome, err := e.Execute(context.Background(), "user-1", "nosuchchannel", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindNotConfigured {
		t.Fatalf("expected not-configured, got %s", outcome.Kind)
	}
}

func TestExecuteThrottle(t *testing.T) {
	repo := &stubRepo{channel: testChannel(true)}
	ch := healthyChain(true)
	e := newTestEngine(repo, ch)

	// Fresh channel: first attempt goes through and leaves a DRY row.
	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if outcome.Kind != KindDry {
		t.Fatalf("first attempt should be DRY, got %s", outcome.Kind)
	}

	// Immediately after, the window has not elapsed.
	outcome, err = e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if outcome.Kind != KindThrottled {
		t.Fatalf("second attempt should throttle, got %s", outcome.Kind)
	}
	if got := len(repo.appended()); got != 1 {
		t.Fatalf("throttled attempt must not append, have %d rows", got)
	}
}

func TestExecuteThrottleWindowElapsed(t *testing.T) {
	repo := &stubRepo{channel: testChannel(true)}
	repo.last = &models.TradeLog{
		ChannelID: "chan-1",
		Status:    models.TradeStatusDry,
		CreatedAt: time.Now().Add(-901 * time.Second),
	}
	e := newTestEngine(repo, healthyChain(true))

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindDry {
		t.Fatalf("elapsed window should trade, got %s", outcome.Kind)
	}
}

func TestExecuteThrottleBoundary(t *testing.T) {
	// Exactly at the boundary the elapsed time is not < window, so the
	// attempt proceeds.
	repo := &stubRepo{channel: testChannel(true)}
	repo.last = &models.TradeLog{
		ChannelID: "chan-1",
		Status:    models.TradeStatusDry,
		CreatedAt: time.Now().Add(-900*time.Second - 50*time.Millisecond),
	}
	e := newTestEngine(repo, healthyChain(true))

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindDry {
		t.Fatalf("boundary attempt should trade, got %s", outcome.Kind)
	}
}

func TestExecuteConcurrentSameChannel(t *testing.T) {
	repo := &stubRepo{channel: testChannel(true)}
	e := newTestEngine(repo, healthyChain(true))

	var wg sync.WaitGroup
	results := make([]Outcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
			if err != nil {
				t.Errorf("goroutine %d: %v", i, err)
				return
			}
			results[i] = outcome
		}(i)
	}
	wg.Wait()

	var dry, throttled int
	for _, o := range results {
		switch o.Kind {
		case KindDry:
			dry++
		case KindThrottled:
			throttled++
		}
	}
	if dry != 1 || throttled != 1 {
		t.Fatalf("expected exactly one DRY and one throttle, got %+v", results)
	}
	if got := len(repo.appended()); got != 1 {
		t.Fatalf("expected one ledger row, have %d", got)
	}
}

func TestExecuteDryRunNeverSpends(t *testing.T) {
	repo := &stubRepo{channel: testChannel(true)}
	ch := healthyChain(true)
	e := newTestEngine(repo, ch)

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindDry {
		t.Fatalf("expected DRY, got %s", outcome.Kind)
	}
	if ch.sendCalls != 0 || ch.swapCalls != 0 {
		t.Fatalf("dry run must not broadcast: sends=%d swaps=%d", ch.sendCalls, ch.swapCalls)
	}

	logs := repo.appended()
	if len(logs) != 1 || logs[0].Status != models.TradeStatusDry {
		t.Fatalf("expected one DRY ledger row, got %+v", logs)
	}
	var detail map[string]string
	if err := json.Unmarshal(logs[0].Detail, &detail); err != nil {
		t.Fatalf("detail unmarshal: %v", err)
	}
	// quote 1000 at 500 bps slippage floors to 950
	if detail["quoted_out"] != "1000" || detail["min_out"] != "950" {
		t.Fatalf("wrong plan snapshot: %v", detail)
	}
	if logs[0].Token != strings.ToLower(testToken) {
		t.Fatalf("token must be stored lowercased, got %s", logs[0].Token)
	}
}

func TestExecuteFeeWithoutTreasury(t *testing.T) {
	channel := testChannel(true)
	channel.BuyProfile.Treasury = nil
	repo := &stubRepo{channel: channel}
	ch := healthyChain(true)
	e := newTestEngine(repo, ch)

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindRejected {
		t.Fatalf("expected rejection, got %s", outcome.Kind)
	}
	if ch.codeCalls != 0 || ch.quoteCalls != 0 {
		t.Fatalf("fee routing check must run before any chain call")
	}
	if len(repo.appended()) != 0 {
		t.Fatalf("rejection must not write a ledger row")
	}
}

func TestExecuteFeeWithoutTreasuryUsesFallback(t *testing.T) {
	channel := testChannel(true)
	channel.BuyProfile.Treasury = nil
	repo := &stubRepo{channel: channel}
	ch := healthyChain(true)
	e := NewEngine(repo, ch, zap.NewNop(), Options{TreasuryFallback: testTreas})

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindDry {
		t.Fatalf("fallback treasury should allow the attempt, got %s", outcome.Kind)
	}
}

func TestExecuteZeroFeeSkipsTreasuryCheck(t *testing.T) {
	channel := testChannel(true)
	channel.BuyProfile.Treasury = nil
	channel.BuyProfile.FeeBps = 0
	repo := &stubRepo{channel: channel}
	e := newTestEngine(repo, healthyChain(true))

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindDry {
		t.Fatalf("zero fee needs no treasury, got %s", outcome.Kind)
	}
}

func TestExecuteNoContract(t *testing.T) {
	repo := &stubRepo{channel: testChannel(true)}
	ch := healthyChain(true)
	ch.code = nil
	e := newTestEngine(repo, ch)

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindRejected {
		t.Fatalf("expected rejection, got %s", outcome.Kind)
	}
	if ch.quoteCalls != 0 {
		t.Fatalf("no-contract rejection must skip the quote")
	}
}

func TestExecuteQuoteRevertMeansNoLiquidity(t *testing.T) {
	repo := &stubRepo{channel: testChannel(true)}
	ch := healthyChain(true)
	ch.quoteErr = errors.New("execution reverted: INSUFFICIENT_LIQUIDITY")
	e := newTestEngine(repo, ch)

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindNoLiquidity {
		t.Fatalf("expected no-liquidity, got %s", outcome.Kind)
	}
	if len(repo.appended()) != 0 {
		t.Fatalf("no-liquidity must not write a ledger row")
	}
}

func TestExecuteQuoteTransportError(t *testing.T) {
	repo := &stubRepo{channel: testChannel(true)}
	ch := healthyChain(true)
	ch.quoteErr = errors.New("connection refused")
	e := newTestEngine(repo, ch)

	if _, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken); err == nil {
		t.Fatalf("transport error must surface as error")
	}
}

func TestExecuteNoSigner(t *testing.T) {
	repo := &stubRepo{channel: testChannel(true)}
	ch := healthyChain(true)
	ch.hasSigner = false
	e := newTestEngine(repo, ch)

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindRejected {
		t.Fatalf("expected rejection, got %s", outcome.Kind)
	}
}

func TestExecuteLiveWalletMismatch(t *testing.T) {
	channel := testChannel(false)
	channel.BuyProfile.Wallet.Address = "0x9999999999999999999999999999999999999999"
	repo := &stubRepo{channel: channel}
	ch := healthyChain(false)
	e := newTestEngine(repo, ch)

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindRejected {
		t.Fatalf("expected rejection, got %s", outcome.Kind)
	}
	if ch.swapCalls != 0 {
		t.Fatalf("mismatched wallet must never swap")
	}
}

func TestExecuteLiveSuccess(t *testing.T) {
	repo := &stubRepo{channel: testChannel(false)}
	ch := healthyChain(false)
	e := newTestEngine(repo, ch)

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindSuccess {
		t.Fatalf("expected success, got %s (%s)", outcome.Kind, outcome.Detail)
	}
	if outcome.TxHash == "" {
		t.Fatalf("success must carry the tx hash")
	}

	// 1 native at 100 bps: fee 0.01, swap value 0.99.
	wantFee, _ := new(big.Int).SetString("10000000000000000", 10)
	wantNet, _ := new(big.Int).SetString("990000000000000000", 10)
	if ch.sentAmount.Cmp(wantFee) != 0 {
		t.Fatalf("fee sent %s, want %s", ch.sentAmount, wantFee)
	}
	if ch.sentTo != common.HexToAddress(testTreas) {
		t.Fatalf("fee routed to %s", ch.sentTo.Hex())
	}
	if ch.swapValue.Cmp(wantNet) != 0 {
		t.Fatalf("swap value %s, want %s", ch.swapValue, wantNet)
	}
	if ch.swapMinOut.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("swap minOut %s, want 950", ch.swapMinOut)
	}

	logs := repo.appended()
	if len(logs) != 1 || logs[0].Status != models.TradeStatusSuccess {
		t.Fatalf("expected one SUCCESS row, got %+v", logs)
	}
	if logs[0].TxHash == "" {
		t.Fatalf("success row must carry the tx hash")
	}
}

func TestExecuteLiveRevert(t *testing.T) {
	repo := &stubRepo{channel: testChannel(false)}
	ch := healthyChain(false)
	ch.receipt = &chain.Receipt{Status: chain.ReceiptStatusFailed}
	e := newTestEngine(repo, ch)

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindFail || outcome.TxHash == "" {
		t.Fatalf("expected FAIL with hash, got %+v", outcome)
	}
	logs := repo.appended()
	if len(logs) != 1 || logs[0].Status != models.TradeStatusFail {
		t.Fatalf("expected one FAIL row, got %+v", logs)
	}
}

func TestExecuteLiveConfirmTimeout(t *testing.T) {
	repo := &stubRepo{channel: testChannel(false)}
	ch := healthyChain(false)
	ch.receiptErr = context.DeadlineExceeded
	e := newTestEngine(repo, ch)

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindFail || outcome.TxHash == "" {
		t.Fatalf("timeout must be a FAIL carrying the hash, got %+v", outcome)
	}
	logs := repo.appended()
	if len(logs) != 1 || logs[0].Status != models.TradeStatusFail || logs[0].TxHash == "" {
		t.Fatalf("expected one FAIL row with hash, got %+v", logs)
	}
}

func TestExecuteLiveSubmitFailure(t *testing.T) {
	repo := &stubRepo{channel: testChannel(false)}
	ch := healthyChain(false)
	ch.swapErr = errors.New("insufficient funds for gas")
	e := newTestEngine(repo, ch)

	outcome, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != KindFail || outcome.TxHash != "" {
		t.Fatalf("submit failure is FAIL without hash, got %+v", outcome)
	}
	logs := repo.appended()
	if len(logs) != 1 || logs[0].TxHash != "" {
		t.Fatalf("expected one hashless FAIL row, got %+v", logs)
	}
}

func TestExecuteLiveFeeTransferFailureIsTransient(t *testing.T) {
	repo := &stubRepo{channel: testChannel(false)}
	ch := healthyChain(false)
	ch.sendErr = errors.New("nonce too low")
	e := newTestEngine(repo, ch)

	if _, err := e.Execute(context.Background(), "user-1", "alphacalls", testToken); err == nil {
		t.Fatalf("fee transfer failure must surface as error")
	}
	if ch.swapCalls != 0 {
		t.Fatalf("swap must not run after a failed fee transfer")
	}
	if len(repo.appended()) != 0 {
		t.Fatalf("nothing moved; no ledger row expected")
	}
}
