package repository

import (
	"context"
	"errors"

	"github.com/kaytu-io/news-assistant/services/assistant/db"
	"github.com/kaytu-io/news-assistant/services/assistant/model"
	"gorm.io/gorm/clause"
)

var (
	ErrDuplicateThread = errors.New("didn't create thread due to id conflict")
)

type Thread interface {
	Exists(context.Context, string) (bool, error)
	Create(context.Context, model.Thread) error
}

type ThreadSQL struct {
	db db.Database
}

func NewThread(db db.Database) Thread {
	return ThreadSQL{
		db: db,
	}
}

func (s ThreadSQL) Exists(ctx context.Context, id string) (bool, error) {
	var count int64

	tx := s.db.DB.WithContext(ctx).Model(&model.Thread{}).Where("id = ?", id).Count(&count)
	if tx.Error != nil {
		return false, tx.Error
	}

	return count > 0, nil
}

func (s ThreadSQL) Create(ctx context.Context, c model.Thread) error {
	tx := s.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&c)

	if tx.Error != nil {
		return tx.Error
	} else if tx.RowsAffected != 1 {
		return ErrDuplicateThread
	}

	return nil
}
