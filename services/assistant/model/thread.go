package model

import "time"

type Thread struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}
