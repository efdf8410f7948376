package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/domain/task"
	"github.com/unifiedsync/syncd/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskStore implements task.TaskStore using GORM.
type TaskStore struct {
	db     database.Database
	mapper TaskMapper
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db database.Database) TaskStore {
	return TaskStore{
		db:     db,
		mapper: TaskMapper{},
	}
}

// Get retrieves a task by ID.
func (s TaskStore) Get(ctx context.Context, id int64) (task.Task, error) {
	var model TaskModel
	result := s.db.Session(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return task.Task{}, fmt.Errorf("%w: task id %d", database.ErrNotFound, id)
		}
		return task.Task{}, fmt.Errorf("get task: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// FindPending retrieves pending tasks ordered by priority.
func (s TaskStore) FindPending(ctx context.Context, options ...store.Option) ([]task.Task, error) {
	var models []TaskModel
	db := s.db.Session(ctx).Order("priority DESC, created_at ASC, id ASC")
	db = database.ApplyOptions(db, options...)
	if err := db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find pending tasks: %w", err)
	}

	tasks := make([]task.Task, len(models))
	for i, model := range models {
		tasks[i] = s.mapper.ToDomain(model)
	}
	return tasks, nil
}

// Save creates a new task. A task already queued under the same dedup key
// keeps its row and takes the higher of the two priorities.
func (s TaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	model := s.mapper.ToModel(t)

	var saved TaskModel
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoNothing: true,
		}).Create(&model)
		if result.Error != nil {
			return result.Error
		}
		if err := tx.Where("dedup_key = ?", model.DedupKey).First(&saved).Error; err != nil {
			return err
		}
		if saved.Priority < model.Priority {
			saved.Priority = model.Priority
			return tx.Model(&saved).Update("priority", saved.Priority).Error
		}
		return nil
	})
	if err != nil {
		return task.Task{}, fmt.Errorf("save task: %w", err)
	}
	return s.mapper.ToDomain(saved), nil
}

// Delete removes a task.
func (s TaskStore) Delete(ctx context.Context, t task.Task) error {
	result := s.db.Session(ctx).Delete(&TaskModel{}, t.ID())
	if result.Error != nil {
		return fmt.Errorf("delete task: %w", result.Error)
	}
	return nil
}

// CountPending returns the number of pending tasks.
func (s TaskStore) CountPending(ctx context.Context, options ...store.Option) (int64, error) {
	var count int64
	db := database.ApplyConditions(s.db.Session(ctx).Model(&TaskModel{}), options...)
	if err := db.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count pending tasks: %w", err)
	}
	return count, nil
}

// Dequeue retrieves and removes the highest priority task.
func (s TaskStore) Dequeue(ctx context.Context) (task.Task, bool, error) {
	var model TaskModel

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		result := tx.Order("priority DESC, created_at ASC, id ASC").First(&model)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			return result.Error
		}
		return tx.Delete(&model).Error
	})
	if err != nil {
		return task.Task{}, false, fmt.Errorf("dequeue task: %w", err)
	}

	if model.ID == 0 {
		return task.Task{}, false, nil
	}
	return s.mapper.ToDomain(model), true, nil
}
