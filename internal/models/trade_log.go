package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TradeStatusDry     = "DRY"
	TradeStatusSuccess = "SUCCESS"
	TradeStatusFail    = "FAIL"
)

// TradeLog is one row of the append-only trade ledger. Rows are written once
// per attempt that reaches the planner/executor and never updated.
type TradeLog struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	UserID    string `gorm:"type:varchar(36);not null;index"`
	ChannelID string `gorm:"type:varchar(36);not null;index:idx_trade_logs_channel_time"`

	Token  string `gorm:"type:varchar(64);not null"`
	Status string `gorm:"type:varchar(10);not null;index"`
	Reason string `gorm:"type:text"`
	TxHash string `gorm:"type:varchar(80)"`

	// Plan snapshot (quoted out, minOut, fee, symbol) for audit display.
	Detail datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index:idx_trade_logs_channel_time"`
}

func (TradeLog) TableName() string {
	return "trade_logs"
}
