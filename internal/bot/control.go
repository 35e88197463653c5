package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"channelbuyer/internal/models"
	"channelbuyer/internal/repository"
)

const (
	callbackToggle  = "toggle:"
	callbackRefresh = "refresh:"
)

const helpText = `Commands:
/add <t.me/slug|@slug> userbot <profileId>
/list
/remove <slug>
/status <profileId>`

// ControlBot is the operator command surface: channel bindings and the
// dry-run switch, driven from a private Telegram chat instead of the HTTP
// API. It acts on behalf of the single configured operator account.
type ControlBot struct {
	Repo   repository.Repository
	Logger *zap.Logger
	UserID string

	token string
}

func New(token string, userID string, repo repository.Repository, logger *zap.Logger) *ControlBot {
	return &ControlBot{
		Repo:   repo,
		Logger: logger,
		UserID: userID,
		token:  token,
	}
}

// Run blocks until ctx is cancelled. Per-command failures are reported back
// to the chat and never stop the loop.
func (b *ControlBot) Run(ctx context.Context) error {
	tg, err := telego.NewBot(b.token, telego.WithDefaultLogger(false, false))
	if err != nil {
		return err
	}
	updates, err := tg.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return err
	}
	b.Logger.Info("control bot started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, tg, update)
		}
	}
}

func (b *ControlBot) handleUpdate(ctx context.Context, tg *telego.Bot, update telego.Update) {
	if q := update.CallbackQuery; q != nil {
		text := b.handleCallback(ctx, q.Data)
		if err := tg.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
			CallbackQueryID: q.ID,
			Text:            text,
		}); err != nil {
			b.Logger.Warn("callback answer failed", zap.Error(err))
		}
		return
	}
	msg := update.Message
	if msg == nil || !strings.HasPrefix(msg.Text, "/") {
		return
	}
	reply, markup := b.dispatch(ctx, msg.Text)
	if reply == "" {
		return
	}
	params := &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: msg.Chat.ID},
		Text:   reply,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := tg.SendMessage(ctx, params); err != nil {
		b.Logger.Warn("control reply failed", zap.Error(err))
	}
}

// dispatch executes one slash command and renders the reply. Split from the
// transport so command behavior is testable without a bot session.
func (b *ControlBot) dispatch(ctx context.Context, text string) (string, *telego.InlineKeyboardMarkup) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	switch strings.ToLower(fields[0]) {
	case "/start", "/help":
		return helpText, nil
	case "/add":
		if len(fields) != 4 || !strings.EqualFold(fields[2], "userbot") {
			return "Usage: /add <t.me/slug|@slug> userbot <profileId>", nil
		}
		return b.addChannel(ctx, ParseSlug(fields[1]), fields[3]), nil
	case "/list":
		return b.listChannels(ctx), nil
	case "/remove":
		if len(fields) != 2 {
			return "Usage: /remove <slug>", nil
		}
		return b.removeChannel(ctx, ParseSlug(fields[1])), nil
	case "/status":
		if len(fields) != 2 {
			return "Usage: /status <profileId>", nil
		}
		return b.profileStatus(ctx, fields[1])
	default:
		return "", nil
	}
}

func (b *ControlBot) addChannel(ctx context.Context, slug, profileID string) string {
	if slug == "" {
		return "Invalid slug."
	}
	profile, err := b.Repo.GetBuyProfileByID(ctx, profileID)
	if err != nil {
		return "/add failed: " + err.Error()
	}
	if profile == nil || profile.UserID != b.UserID {
		return "/add failed: profile not found"
	}
	item := &models.Channel{
		UserID:       b.UserID,
		Slug:         slug,
		Mode:         models.ChannelModeMTProto,
		BuyProfileID: profile.ID,
		Active:       true,
	}
	if err := b.Repo.UpsertChannelBinding(ctx, item); err != nil {
		return "/add failed: " + err.Error()
	}
	return fmt.Sprintf("Added %s (mode=%s) with profile=%s", slug, item.Mode, profile.ID)
}

func (b *ControlBot) listChannels(ctx context.Context) string {
	channels, err := b.Repo.ListChannelsByUserID(ctx, b.UserID)
	if err != nil {
		return "/list failed: " + err.Error()
	}
	if len(channels) == 0 {
		return "No channels configured."
	}
	lines := make([]string, 0, len(channels))
	for _, ch := range channels {
		state := "on"
		if !ch.Active {
			state = "off"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s (%s) profile=%s", state, ch.Slug, ch.Mode, ch.BuyProfileID))
	}
	return strings.Join(lines, "\n")
}

func (b *ControlBot) removeChannel(ctx context.Context, slug string) string {
	channel, err := b.Repo.GetChannelByUserSlug(ctx, b.UserID, slug)
	if err != nil {
		return "/remove failed: " + err.Error()
	}
	if channel == nil {
		return "/remove failed: channel not found"
	}
	if err := b.Repo.SetChannelActive(ctx, channel.ID, false); err != nil {
		return "/remove failed: " + err.Error()
	}
	return "Disabled " + slug
}

func (b *ControlBot) profileStatus(ctx context.Context, profileID string) (string, *telego.InlineKeyboardMarkup) {
	profile, err := b.Repo.GetBuyProfileByID(ctx, profileID)
	if err != nil {
		return "/status failed: " + err.Error(), nil
	}
	if profile == nil || profile.UserID != b.UserID {
		return "/status failed: profile not found", nil
	}
	treasury := "(not set)"
	if profile.Treasury != nil && *profile.Treasury != "" {
		treasury = *profile.Treasury
	}
	body := fmt.Sprintf(`Profile: %s
Wallet: %s
Amount: %s native
Slippage: %d bps
Fee: %d bps
Treasury: %s`,
		profile.ID, profile.Wallet.Address, profile.AmountNative,
		profile.SlippageBps, profile.FeeBps, treasury)
	markup := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{
			{Text: "Auto-Buy: " + modeLabel(profile.DryRun), CallbackData: callbackToggle + profile.ID},
			{Text: "Refresh", CallbackData: callbackRefresh + profile.ID},
		}},
	}
	return body, markup
}

// handleCallback services the inline buttons; the returned text becomes the
// callback answer toast.
func (b *ControlBot) handleCallback(ctx context.Context, data string) string {
	switch {
	case strings.HasPrefix(data, callbackToggle):
		id := strings.TrimPrefix(data, callbackToggle)
		profile, err := b.Repo.GetBuyProfileByID(ctx, id)
		if err != nil {
			return "Error: " + err.Error()
		}
		if profile == nil || profile.UserID != b.UserID {
			return "Error: profile not found"
		}
		next := !profile.DryRun
		if err := b.Repo.UpdateBuyProfileDryRun(ctx, id, next); err != nil {
			return "Error: " + err.Error()
		}
		return "Auto-Buy is now " + modeLabel(next)
	case strings.HasPrefix(data, callbackRefresh):
		id := strings.TrimPrefix(data, callbackRefresh)
		profile, err := b.Repo.GetBuyProfileByID(ctx, id)
		if err != nil {
			return "Error: " + err.Error()
		}
		if profile == nil || profile.UserID != b.UserID {
			return "Error: profile not found"
		}
		return fmt.Sprintf("DRY=%t Amount=%s Slippage=%d", profile.DryRun, profile.AmountNative, profile.SlippageBps)
	default:
		return ""
	}
}

func modeLabel(dryRun bool) string {
	if dryRun {
		return "OFF (DRY)"
	}
	return "ON (LIVE)"
}

var slugPrefix = regexp.MustCompile(`^(https?://)?(t\.me/)?@?`)

// ParseSlug normalizes operator input (t.me links, @handles, bare slugs)
// into the lowercase binding key.
func ParseSlug(input string) string {
	s := strings.TrimSpace(input)
	s = slugPrefix.ReplaceAllString(s, "")
	return strings.ToLower(s)
}
