package model

import "time"

// Assistant caches the remote identifier of an assistant by its logical name.
type Assistant struct {
	Name      string `gorm:"primaryKey"`
	ID        string `gorm:"not null"`
	Model     string
	UpdatedAt time.Time
}
