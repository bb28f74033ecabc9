package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kaytu-io/news-assistant/services/assistant/coordinator"
	"github.com/kaytu-io/news-assistant/services/assistant/db"
	"github.com/kaytu-io/news-assistant/services/assistant/model"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

var (
	ErrDuplicateRun = errors.New("didn't create run due to id conflict")
	ErrRunNotFound  = errors.New("run not found")
)

var activeStatuses = []coordinator.Status{
	coordinator.StatusQueued,
	coordinator.StatusInProgress,
	coordinator.StatusRequiresAction,
	coordinator.StatusCancelling,
}

type Run interface {
	Get(context.Context, []string) ([]model.Run, error)
	Create(context.Context, model.Run) error
	ListByThread(ctx context.Context, threadID string) ([]model.Run, error)
	// ListStale returns active runs that have not been updated since before.
	ListStale(ctx context.Context, before time.Time) ([]model.Run, error)
	UpdateStatus(ctx context.Context, id string, threadID string, status coordinator.Status, lastError string) error

	coordinator.Recorder
}

type RunSQL struct {
	db db.Database
}

func NewRun(db db.Database) Run {
	return RunSQL{
		db: db,
	}
}

func (s RunSQL) Get(ctx context.Context, ids []string) ([]model.Run, error) {
	var runs []model.Run

	tx := s.db.DB.WithContext(ctx).Find(&runs, "id IN ?", ids)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return runs, nil
}

func (s RunSQL) ListByThread(ctx context.Context, threadID string) ([]model.Run, error) {
	var runs []model.Run

	tx := s.db.DB.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at desc").
		Find(&runs)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return runs, nil
}

func (s RunSQL) ListStale(ctx context.Context, before time.Time) ([]model.Run, error) {
	var runs []model.Run

	tx := s.db.DB.WithContext(ctx).
		Where("status IN ?", activeStatuses).
		Where("updated_at < ?", before).
		Find(&runs)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return runs, nil
}

func (s RunSQL) Create(ctx context.Context, c model.Run) error {
	tx := s.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&c)

	if tx.Error != nil {
		return tx.Error
	} else if tx.RowsAffected != 1 {
		return ErrDuplicateRun
	}

	return nil
}

func (s RunSQL) UpdateStatus(ctx context.Context, id string, threadID string, status coordinator.Status, lastError string) error {
	return s.update(ctx, id, threadID, map[string]any{
		"status":     status,
		"last_error": lastError,
	})
}

func (s RunSQL) update(ctx context.Context, id string, threadID string, fields map[string]any) error {
	fields["updated_at"] = time.Now()

	tx := s.db.DB.WithContext(ctx).
		Model(&model.Run{}).
		Where("id = ?", id).
		Where("thread_id = ?", threadID).
		Updates(fields)

	if tx.Error != nil {
		return tx.Error
	} else if tx.RowsAffected != 1 {
		return ErrRunNotFound
	}

	return nil
}

func (s RunSQL) RecordRun(ctx context.Context, run coordinator.Run) error {
	calls, err := toolCalls(run)
	if err != nil {
		return err
	}
	return s.Create(ctx, model.Run{
		ID:          run.ID,
		ThreadID:    run.ThreadID,
		AssistantID: run.AssistantID,
		Status:      run.Status,
		LastError:   run.LastError,
		ToolCalls:   calls,
	})
}

// UpdateRun records the latest status of run, creating its entry when the
// run was started elsewhere.
func (s RunSQL) UpdateRun(ctx context.Context, run coordinator.Run) error {
	calls, err := toolCalls(run)
	if err != nil {
		return err
	}
	err = s.update(ctx, run.ID, run.ThreadID, map[string]any{
		"status":     run.Status,
		"last_error": run.LastError,
		"tool_calls": calls,
	})
	if errors.Is(err, ErrRunNotFound) {
		return s.RecordRun(ctx, run)
	}
	return err
}

// DecodeToolCalls returns the pending calls stored on r.
func DecodeToolCalls(r model.Run) ([]coordinator.ToolCall, error) {
	if len(r.ToolCalls) == 0 {
		return nil, nil
	}
	var calls []coordinator.ToolCall
	if err := json.Unmarshal(r.ToolCalls, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

func toolCalls(run coordinator.Run) (datatypes.JSON, error) {
	if len(run.ToolCalls) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(run.ToolCalls)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
