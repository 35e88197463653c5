package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"channelbuyer/internal/models"
	"channelbuyer/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Users ------------------------------------------------------------------

func (s *Store) UpsertUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	if s == nil || s.db == nil || strings.TrimSpace(apiKey) == "" {
		return nil, nil
	}
	existing, err := s.GetUserByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	item := &models.User{
		ID:     uuid.NewString(),
		APIKey: apiKey,
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Wallets ----------------------------------------------------------------

func (s *Store) InsertWallet(ctx context.Context, item *models.Wallet) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetWalletByID(ctx context.Context, id string) (*models.Wallet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Wallet
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListWalletsByUserID(ctx context.Context, userID string) ([]models.Wallet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Wallet
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateWalletLabel(ctx context.Context, id string, label string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", id).
		Update("label", label).Error
}

// --- Buy profiles -----------------------------------------------------------

func (s *Store) InsertBuyProfile(ctx context.Context, item *models.BuyProfile) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Omit("Wallet").Create(item).Error
}

func (s *Store) GetBuyProfileByID(ctx context.Context, id string) (*models.BuyProfile, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.BuyProfile
	err := s.db.WithContext(ctx).
		Preload("Wallet").
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateBuyProfileDryRun(ctx context.Context, id string, dryRun bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.BuyProfile{}).
		Where("id = ?", id).
		Update("dry_run", dryRun).Error
}

// --- Channels ---------------------------------------------------------------

func (s *Store) GetChannelByUserSlug(ctx context.Context, userID string, slug string) (*models.Channel, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Channel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND slug = ?", userID, strings.ToLower(slug)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetActiveChannelBySlug(ctx context.Context, userID string, slug string, mode string) (*models.Channel, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Channel
	err := s.db.WithContext(ctx).
		Preload("BuyProfile").
		Preload("BuyProfile.Wallet").
		Where("user_id = ? AND slug = ? AND mode = ? AND active = ?", userID, strings.ToLower(slug), mode, true).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpsertChannelBinding inserts a new binding or repoints the existing
// (user, slug) row at the given profile, reactivating it.
func (s *Store) UpsertChannelBinding(ctx context.Context, item *models.Channel) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Slug = strings.ToLower(item.Slug)
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Omit("BuyProfile").Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"buy_profile_id",
			"active",
			"mode",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListChannelsByUserID(ctx context.Context, userID string) ([]models.Channel, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Channel
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("slug asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SetChannelActive(ctx context.Context, id string, active bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", id).
		Update("active", active).Error
}

// --- Trade ledger -----------------------------------------------------------

func (s *Store) FindMostRecentTradeLog(ctx context.Context, channelID string) (*models.TradeLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TradeLog
	err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) AppendTradeLog(ctx context.Context, item *models.TradeLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListTradeLogs(ctx context.Context, params repository.ListTradeLogsParams) ([]models.TradeLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TradeLog{}).
		Where("user_id = ?", params.UserID)
	if params.ChannelID != nil && strings.TrimSpace(*params.ChannelID) != "" {
		query = query.Where("channel_id = ?", strings.TrimSpace(*params.ChannelID))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	limit := params.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var items []models.TradeLog
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTradeLogsByStatusSince(ctx context.Context, since time.Time) ([]repository.StatusCount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.StatusCount
	err := s.db.WithContext(ctx).
		Model(&models.TradeLog{}).
		Select("status, count(*) as count").
		Where("created_at >= ?", since).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- System settings --------------------------------------------------------

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}
