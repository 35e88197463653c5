package models

import "time"

// Wallet is a funding address registered by an operator. Immutable after
// creation except for the display label.
type Wallet struct {
	ID      string `gorm:"type:varchar(36);primaryKey"`
	UserID  string `gorm:"type:varchar(36);not null;index"`
	Address string `gorm:"type:varchar(64);not null"`
	ChainID int64  `gorm:"not null"`
	Label   string `gorm:"type:varchar(120)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Wallet) TableName() string {
	return "wallets"
}
