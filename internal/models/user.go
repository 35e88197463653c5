package models

import "time"

type User struct {
	ID     string `gorm:"type:varchar(36);primaryKey"`
	APIKey string `gorm:"type:varchar(120);not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
