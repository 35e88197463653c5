package models

import "time"

const ChannelModeMTProto = "mtproto"

// Channel binds a normalized chat slug to one BuyProfile. At most one binding
// exists per (user, slug); re-creating updates the existing row.
type Channel struct {
	ID           string `gorm:"type:varchar(36);primaryKey"`
	UserID       string `gorm:"type:varchar(36);not null;uniqueIndex:idx_channels_user_slug"`
	Slug         string `gorm:"type:varchar(190);not null;uniqueIndex:idx_channels_user_slug"`
	Mode         string `gorm:"type:varchar(20);not null;default:'mtproto'"`
	BuyProfileID string `gorm:"type:varchar(36);not null;index"`
	Active       bool   `gorm:"not null;default:true"`

	BuyProfile BuyProfile `gorm:"foreignKey:BuyProfileID"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Channel) TableName() string {
	return "channels"
}
