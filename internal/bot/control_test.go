package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"channelbuyer/internal/models"
	"channelbuyer/internal/repository"
)

type stubRepo struct {
	profile *models.BuyProfile
	channel *models.Channel

	boundChannel *models.Channel
	deactivated  string
	dryRunSet    *bool
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
func (r *stubRepo) UpdateWalletLabel(context.Context, string, string) error    { return nil }
func (r *stubRepo) InsertBuyProfile(context.Context, *models.BuyProfile) error { return nil }

func (r *stubRepo) GetBuyProfileByID(_ context.Context, id string) (*models.BuyProfile, error) {
	if r.profile == nil || r.profile.ID != id {
		return nil, nil
	}
	return r.profile, nil
}

func (r *stubRepo) UpdateBuyProfileDryRun(_ context.Context, _ string, dryRun bool) error {
	r.dryRunSet = &dryRun
	return nil
}

func (r *stubRepo) GetChannelByUserSlug(_ context.Context, _ string, slug string) (*models.Channel, error) {
	if r.channel == nil || r.channel.Slug != slug {
		return nil, nil
	}
	return r.channel, nil
}

func (r *stubRepo) GetActiveChannelBySlug(context.Context, string, string, string) (*models.Channel, error) {
	return nil, nil
}

func (r *stubRepo) UpsertChannelBinding(_ context.Context, item *models.Channel) error {
	r.boundChannel = item
	return nil
}

func (r *stubRepo) ListChannelsByUserID(context.Context, string) ([]models.Channel, error) {
	if r.channel == nil {
		return nil, nil
	}
	return []models.Channel{*r.channel}, nil
}

func (r *stubRepo) SetChannelActive(_ context.Context, id string, active bool) error {
	if !active {
		r.deactivated = id
	}
	return nil
}

func (r *stubRepo) FindMostRecentTradeLog(context.Context, string) (*models.TradeLog, error) {
	return nil, nil
}
func (r *stubRepo) AppendTradeLog(context.Context, *models.TradeLog) error { return nil }
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

func testProfile(dryRun bool) *models.BuyProfile {
	return &models.BuyProfile{
		ID:           "prof-1",
		UserID:       "user-1",
		AmountNative: decimal.NewFromInt(2),
		SlippageBps:  500,
		FeeBps:       100,
		DryRun:       dryRun,
		Wallet:       models.Wallet{Address: "0x1000000000000000000000000000000000000001"},
	}
}

func newTestBot(repo *stubRepo) *ControlBot {
	return New("token", "user-1", repo, zap.NewNop())
}

func TestParseSlug(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://t.me/AlphaCalls", "alphacalls"},
		{"t.me/alphacalls", "alphacalls"},
		{"@AlphaCalls", "alphacalls"},
		{"AlphaCalls", "alphacalls"},
		{"  @gems  ", "gems"},
	}
	for _, tc := range cases {
		if got := ParseSlug(tc.in); got != tc.want {
			t.Fatalf("ParseSlug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDispatchHelp(t *testing.T) {
	b := newTestBot(&stubRepo{})
	reply, markup := b.dispatch(context.Background(), "/start")
	if !strings.Contains(reply, "/add") || markup != nil {
		t.Fatalf("unexpected help reply: %q", reply)
	}
}

func TestDispatchAdd(t *testing.T) {
	repo := &stubRepo{profile: testProfile(true)}
	b := newTestBot(repo)

	reply, _ := b.dispatch(context.Background(), "/add @AlphaCalls userbot prof-1")
	if !strings.Contains(reply, "Added alphacalls") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if repo.boundChannel == nil {
		t.Fatalf("binding was not upserted")
	}
	if repo.boundChannel.Slug != "alphacalls" || repo.boundChannel.Mode != models.ChannelModeMTProto || !repo.boundChannel.Active {
		t.Fatalf("wrong binding: %+v", repo.boundChannel)
	}
}

func TestDispatchAddUnknownProfile(t *testing.T) {
	repo := &stubRepo{}
	b := newTestBot(repo)

	reply, _ := b.dispatch(context.Background(), "/add @gems userbot missing")
	if !strings.Contains(reply, "profile not found") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if repo.boundChannel != nil {
		t.Fatalf("must not bind without a profile")
	}
}

func TestDispatchAddForeignProfile(t *testing.T) {
	profile := testProfile(true)
	profile.UserID = "someone-else"
	repo := &stubRepo{profile: profile}
	b := newTestBot(repo)

	reply, _ := b.dispatch(context.Background(), "/add @gems userbot prof-1")
	if !strings.Contains(reply, "profile not found") {
		t.Fatalf("foreign profile must be hidden, got %q", reply)
	}
}

func TestDispatchAddUsage(t *testing.T) {
	b := newTestBot(&stubRepo{})
	reply, _ := b.dispatch(context.Background(), "/add @gems prof-1")
	if !strings.Contains(reply, "Usage:") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestDispatchList(t *testing.T) {
	b := newTestBot(&stubRepo{})
	reply, _ := b.dispatch(context.Background(), "/list")
	if reply != "No channels configured." {
		t.Fatalf("unexpected empty-list reply: %q", reply)
	}

	repo := &stubRepo{channel: &models.Channel{
		Slug: "alphacalls", Mode: models.ChannelModeMTProto, BuyProfileID: "prof-1", Active: true,
	}}
	reply, _ = newTestBot(repo).dispatch(context.Background(), "/list")
	if !strings.Contains(reply, "[on] alphacalls") || !strings.Contains(reply, "profile=prof-1") {
		t.Fatalf("unexpected list reply: %q", reply)
	}
}

func TestDispatchRemove(t *testing.T) {
	repo := &stubRepo{channel: &models.Channel{ID: "chan-1", Slug: "alphacalls", Active: true}}
	b := newTestBot(repo)

	reply, _ := b.dispatch(context.Background(), "/remove t.me/AlphaCalls")
	if !strings.Contains(reply, "Disabled alphacalls") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if repo.deactivated != "chan-1" {
		t.Fatalf("channel was not deactivated")
	}
}

func TestDispatchStatus(t *testing.T) {
	repo := &stubRepo{profile: testProfile(true)}
	b := newTestBot(repo)

	reply, markup := b.dispatch(context.Background(), "/status prof-1")
	if !strings.Contains(reply, "Wallet: 0x1000000000000000000000000000000000000001") ||
		!strings.Contains(reply, "Slippage: 500 bps") {
		t.Fatalf("unexpected status body: %q", reply)
	}
	if markup == nil || len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("expected toggle+refresh buttons, got %+v", markup)
	}
	if markup.InlineKeyboard[0][0].CallbackData != "toggle:prof-1" {
		t.Fatalf("wrong toggle callback: %q", markup.InlineKeyboard[0][0].CallbackData)
	}
	if !strings.Contains(markup.InlineKeyboard[0][0].Text, "OFF (DRY)") {
		t.Fatalf("wrong toggle label: %q", markup.InlineKeyboard[0][0].Text)
	}
}

func TestHandleCallbackToggle(t *testing.T) {
	repo := &stubRepo{profile: testProfile(true)}
	b := newTestBot(repo)

	text := b.handleCallback(context.Background(), "toggle:prof-1")
	if !strings.Contains(text, "ON (LIVE)") {
		t.Fatalf("unexpected toast: %q", text)
	}
	if repo.dryRunSet == nil || *repo.dryRunSet != false {
		t.Fatalf("dry run was not flipped to live")
	}
}

func TestHandleCallbackRefresh(t *testing.T) {
	repo := &stubRepo{profile: testProfile(false)}
	b := newTestBot(repo)

	text := b.handleCallback(context.Background(), "refresh:prof-1")
	if !strings.Contains(text, "DRY=false") || !strings.Contains(text, "Slippage=500") {
		t.Fatalf("unexpected toast: %q", text)
	}
}

func TestHandleCallbackUnknownProfile(t *testing.T) {
	b := newTestBot(&stubRepo{})
	if text := b.handleCallback(context.Background(), "toggle:missing"); !strings.Contains(text, "not found") {
		t.Fatalf("unexpected toast: %q", text)
	}
}
