package watcher

import (
	"context"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"channelbuyer/internal/config"
	"channelbuyer/internal/models"
	"channelbuyer/internal/repository"
	"channelbuyer/internal/trade"
)

// Executor is the slice of the trade engine the watcher drives.
type Executor interface {
	Execute(ctx context.Context, userID string, slug string, token string) (trade.Outcome, error)
}

// TelegramWatcher long-polls a bot account and feeds detected contract
// addresses from bound channels into the trade engine.
type TelegramWatcher struct {
	Repo    repository.Repository
	Engine  Executor
	Logger  *zap.Logger
	UserID  string
	targets map[string]struct{}
	token   string
}

func NewTelegramWatcher(cfg config.TelegramConfig, repo repository.Repository, engine Executor, userID string, logger *zap.Logger) *TelegramWatcher {
	targets := make(map[string]struct{}, len(cfg.TargetChats))
	for _, t := range cfg.TargetChats {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			targets[t] = struct{}{}
		}
	}
	return &TelegramWatcher{
		Repo:    repo,
		Engine:  engine,
		Logger:  logger,
		UserID:  userID,
		targets: targets,
		token:   cfg.BotToken,
	}
}

// Run blocks until ctx is cancelled. Per-message failures are logged and
// swallowed; only startup errors are returned.
func (w *TelegramWatcher) Run(ctx context.Context) error {
	bot, err := telego.NewBot(w.token, telego.WithDefaultLogger(false, false))
	if err != nil {
		return err
	}
	updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "channel_post"},
	})
	if err != nil {
		return err
	}
	w.Logger.Info("telegram watcher started", zap.Int("target_chats", len(w.targets)))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			w.handleUpdate(ctx, update)
		}
	}
}

func (w *TelegramWatcher) handleUpdate(ctx context.Context, update telego.Update) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil {
		return
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}
	slug := chatSlug(msg.Chat)
	if slug == "" || !w.inScope(msg.Chat, slug) {
		return
	}
	addresses := ExtractAddresses(text)
	if len(addresses) == 0 {
		return
	}

	channel, err := w.Repo.GetActiveChannelBySlug(ctx, w.UserID, slug, models.ChannelModeMTProto)
	if err != nil {
		w.Logger.Warn("channel lookup failed", zap.String("slug", slug), zap.Error(err))
		return
	}
	if channel == nil {
		return
	}
	profile := channel.BuyProfile
	if ContainsAny(text, profile.DenyWords) {
		w.Logger.Info("message vetoed by deny words", zap.String("slug", slug))
		return
	}
	if profile.Keywords != "" && !ContainsAny(text, profile.Keywords) {
		w.Logger.Debug("message lacks trigger keywords", zap.String("slug", slug))
		return
	}

	// Only the first address in a message triggers a buy attempt.
	token := addresses[0]
	outcome, err := w.Engine.Execute(ctx, w.UserID, slug, token)
	if err != nil {
		w.Logger.Warn("trade attempt failed",
			zap.String("slug", slug),
			zap.String("token", token),
			zap.Error(err))
		return
	}
	w.Logger.Info("trade attempt finished",
		zap.String("slug", slug),
		zap.String("token", token),
		zap.String("result", outcome.String()))
}

func (w *TelegramWatcher) inScope(chat telego.Chat, slug string) bool {
	if len(w.targets) == 0 {
		return true
	}
	if _, ok := w.targets[slug]; ok {
		return true
	}
	_, ok := w.targets[strconv.FormatInt(chat.ID, 10)]
	return ok
}

// chatSlug derives the channel binding key: the chat username when present,
// otherwise the lowercased title.
func chatSlug(chat telego.Chat) string {
	if chat.Username != "" {
		return strings.ToLower(chat.Username)
	}
	return strings.ToLower(strings.TrimSpace(chat.Title))
}
