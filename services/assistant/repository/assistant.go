package repository

import (
	"context"
	"errors"

	"github.com/kaytu-io/news-assistant/services/assistant/db"
	"github.com/kaytu-io/news-assistant/services/assistant/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Assistant interface {
	// Get returns nil when no assistant is cached under name.
	Get(ctx context.Context, name string) (*model.Assistant, error)
	Save(ctx context.Context, a model.Assistant) error
	Delete(ctx context.Context, name string) error
}

type AssistantSQL struct {
	db db.Database
}

func NewAssistant(db db.Database) Assistant {
	return AssistantSQL{
		db: db,
	}
}

func (s AssistantSQL) Get(ctx context.Context, name string) (*model.Assistant, error) {
	var a model.Assistant

	tx := s.db.DB.WithContext(ctx).Where("name = ?", name).First(&a)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}

	return &a, nil
}

func (s AssistantSQL) Save(ctx context.Context, a model.Assistant) error {
	tx := s.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"id", "model", "updated_at"}),
		}).
		Create(&a)

	return tx.Error
}

func (s AssistantSQL) Delete(ctx context.Context, name string) error {
	return s.db.DB.WithContext(ctx).Where("name = ?", name).Delete(&model.Assistant{}).Error
}
