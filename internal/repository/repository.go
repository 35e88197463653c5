package repository

import (
	"context"
	"time"

	"channelbuyer/internal/models"
)

type ListTradeLogsParams struct {
	UserID    string
	ChannelID *string
	Status    *string
	Limit     int
	Offset    int
}

// StatusCount is one row of the per-status ledger aggregate.
type StatusCount struct {
	Status string
	Count  int64
}

// Repository is the persistence surface of the service. The trade pipeline
// only touches the channel lookup and the two ledger operations; everything
// else serves the management handlers.
type Repository interface {
	// Users
	UpsertUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)

	// Wallets
	InsertWallet(ctx context.Context, item *models.Wallet) error
	GetWalletByID(ctx context.Context, id string) (*models.Wallet, error)
	ListWalletsByUserID(ctx context.Context, userID string) ([]models.Wallet, error)
	UpdateWalletLabel(ctx context.Context, id string, label string) error

	// Buy profiles
	InsertBuyProfile(ctx context.Context, item *models.BuyProfile) error
	GetBuyProfileByID(ctx context.Context, id string) (*models.BuyProfile, error)
	UpdateBuyProfileDryRun(ctx context.Context, id string, dryRun bool) error

	// Channels
	GetChannelByUserSlug(ctx context.Context, userID string, slug string) (*models.Channel, error)
	GetActiveChannelBySlug(ctx context.Context, userID string, slug string, mode string) (*models.Channel, error)
	UpsertChannelBinding(ctx context.Context, item *models.Channel) error
	ListChannelsByUserID(ctx context.Context, userID string) ([]models.Channel, error)
	SetChannelActive(ctx context.Context, id string, active bool) error

	// Trade ledger (append-only)
	FindMostRecentTradeLog(ctx context.Context, channelID string) (*models.TradeLog, error)
	AppendTradeLog(ctx context.Context, item *models.TradeLog) error
	ListTradeLogs(ctx context.Context, params ListTradeLogsParams) ([]models.TradeLog, error)
	CountTradeLogsByStatusSince(ctx context.Context, since time.Time) ([]StatusCount, error)

	// System settings
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
}
