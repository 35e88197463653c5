package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuyProfile is the trading configuration bound to one or more channels.
// Everything except DryRun is fixed at creation time.
type BuyProfile struct {
	ID       string `gorm:"type:varchar(36);primaryKey"`
	UserID   string `gorm:"type:varchar(36);not null;index"`
	WalletID string `gorm:"type:varchar(36);not null;index"`

	AmountNative          decimal.Decimal `gorm:"type:numeric(30,18);not null"`
	SlippageBps           int             `gorm:"not null"`
	MinSecondsBetweenBuys int             `gorm:"not null;default:900"`

	// Keyword filters are applied by the ingestion watcher, not the pipeline.
	Keywords  string `gorm:"type:text"`
	DenyWords string `gorm:"type:text"`

	Router        string  `gorm:"type:varchar(64);not null"`
	WrappedNative string  `gorm:"type:varchar(64);not null"`
	FeeBps        int     `gorm:"not null;default:100"`
	Treasury      *string `gorm:"type:varchar(64)"`

	DryRun bool `gorm:"not null;default:true"`

	Wallet Wallet `gorm:"foreignKey:WalletID"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (BuyProfile) TableName() string {
	return "buy_profiles"
}
