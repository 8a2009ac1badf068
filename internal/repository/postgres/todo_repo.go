package postgres

import (
	"context"

	"github.com/dom/todo-tracker/internal/domain"
	"github.com/dom/todo-tracker/internal/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type todoRepository struct {
	db *gorm.DB
}

func NewTodoRepository(db *gorm.DB) *todoRepository {
	return &todoRepository{db: db}
}

func (r *todoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

func (r *todoRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Todo, error) {
	var todo domain.Todo
	err := r.db.WithContext(ctx).First(&todo, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &todo, nil
}

func (r *todoRepository) Update(ctx context.Context, todo *domain.Todo) error {
	// A map is used so that false and NULL are written too.
	result := r.db.WithContext(ctx).
		Model(&domain.Todo{}).
		Where("id = ?", todo.ID).
		Updates(map[string]interface{}{
			"title":        todo.Title,
			"descriptions": todo.Descriptions,
			"is_done":      todo.IsDone,
			"updated_at":   todo.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *todoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Todo{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *todoRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, after *pagination.Key, limit int) ([]*domain.Todo, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if after != nil {
		query = query.Where("(created_at, id) < (?, ?)", after.CreatedAt, after.ID)
	}

	var todos []*domain.Todo
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&todos).Error
	if err != nil {
		return nil, err
	}
	return todos, nil
}
