package model

import (
	"time"

	"github.com/kaytu-io/news-assistant/services/assistant/coordinator"
	"gorm.io/datatypes"
)

type Run struct {
	ID          string `gorm:"primaryKey"`
	ThreadID    string `gorm:"index"`
	AssistantID string
	Status      coordinator.Status `gorm:"index"`
	LastError   string
	// ToolCalls holds the calls pending when the run last required action.
	ToolCalls datatypes.JSON
	CreatedAt time.Time
	UpdatedAt time.Time
}
