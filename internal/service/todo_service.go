package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dom/todo-tracker/internal/config"
	"github.com/dom/todo-tracker/internal/domain"
	"github.com/dom/todo-tracker/internal/pagination"
	"github.com/dom/todo-tracker/internal/repository"
	"github.com/google/uuid"
)

// TodoService applies the ownership gate and input rules in front of the
// todo store. Every operation takes the caller's user id explicitly.
type TodoService struct {
	todoRepo        repository.TodoRepository
	defaultPageSize int
	maxPageSize     int
	now             func() time.Time
	logger          *slog.Logger
}

func NewTodoService(todoRepo repository.TodoRepository, cfg *config.Config, logger *slog.Logger) *TodoService {
	return &TodoService{
		todoRepo:        todoRepo,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
		now:             time.Now,
		logger:          logger.With("component", "todos"),
	}
}

type ListTodosInput struct {
	Cursor   string
	PageSize int
}

type TodoPage struct {
	Items      []*domain.Todo
	NextCursor string
	PageSize   int
}

type CreateTodoInput struct {
	Title        string  `json:"title" validate:"required,max=255"`
	Descriptions *string `json:"descriptions"`
	IsDone       *bool   `json:"is_done"`
}

// OptionalString distinguishes a field that was sent as null from one that
// was not sent at all.
type OptionalString struct {
	Set   bool
	Value *string
}

// SetString returns an OptionalString holding v.
func SetString(v string) OptionalString {
	return OptionalString{Set: true, Value: &v}
}

// SetNull returns an OptionalString that clears the field.
func SetNull() OptionalString {
	return OptionalString{Set: true}
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

// UpdateTodoInput carries only the fields to change; unset fields keep
// their stored values. A title that is set must be non-empty.
type UpdateTodoInput struct {
	Title        OptionalString
	Descriptions OptionalString
	IsDone       *bool
}

func (s *TodoService) List(ctx context.Context, ownerID uuid.UUID, input ListTodosInput) (*TodoPage, error) {
	size := pagination.ClampPageSize(input.PageSize, s.defaultPageSize, s.maxPageSize)

	after, ok := pagination.Decode(input.Cursor)
	if !ok && input.Cursor != "" {
		s.logger.Debug("ignoring malformed cursor", "user_id", ownerID)
	}

	rows, err := s.todoRepo.ListByOwner(ctx, ownerID, after, size+1)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	items, next := pagination.Paginate(rows, size, todoKey)
	if items == nil {
		items = []*domain.Todo{}
	}
	return &TodoPage{Items: items, NextCursor: next, PageSize: size}, nil
}

func (s *TodoService) Create(ctx context.Context, ownerID uuid.UUID, input CreateTodoInput) (*domain.Todo, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	now := s.timestamp()
	todo := &domain.Todo{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Title:        input.Title,
		Descriptions: normalizeDescriptions(input.Descriptions),
		IsDone:       input.IsDone != nil && *input.IsDone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.todoRepo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return todo, nil
}

func (s *TodoService) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Todo, error) {
	return s.owned(ctx, ownerID, id)
}

func (s *TodoService) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateTodoInput) (*domain.Todo, error) {
	verr := domain.NewValidationError()
	var title string
	if input.Title.Set {
		if input.Title.Value != nil {
			title = strings.TrimSpace(*input.Title.Value)
		}
		validateField(verr, "title", title, "required,max=255")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	todo, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if input.Title.Set {
		todo.Title = title
	}
	if input.Descriptions.Set {
		todo.Descriptions = normalizeDescriptions(input.Descriptions.Value)
	}
	if input.IsDone != nil {
		todo.IsDone = *input.IsDone
	}

	now := s.timestamp()
	if !now.After(todo.UpdatedAt) {
		now = todo.UpdatedAt.Add(time.Microsecond)
	}
	todo.UpdatedAt = now

	if err := s.todoRepo.Update(ctx, todo); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return todo, nil
}

func (s *TodoService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.todoRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

// owned loads a todo and applies the ownership gate. Missing and foreign
// todos produce the same error.
func (s *TodoService) owned(ctx context.Context, ownerID, id uuid.UUID) (*domain.Todo, error) {
	todo, err := s.todoRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load todo: %w", err)
	}
	if !todo.OwnedBy(ownerID) {
		return nil, domain.ErrNotFound
	}
	return todo, nil
}

// timestamp is truncated to microseconds, the precision PostgreSQL stores,
// so cursor keys built from returned rows match stored rows exactly.
func (s *TodoService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func todoKey(t *domain.Todo) pagination.Key {
	return pagination.KeyOf(t.CreatedAt, t.ID)
}

// normalizeDescriptions stores blank descriptions as NULL.
func normalizeDescriptions(d *string) *string {
	if d == nil || strings.TrimSpace(*d) == "" {
		return nil
	}
	v := *d
	return &v
}
