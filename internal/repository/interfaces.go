package repository

import (
	"context"
	"time"

	"github.com/dom/todo-tracker/internal/domain"
	"github.com/dom/todo-tracker/internal/pagination"
	"github.com/google/uuid"
)

// Implementations return domain.ErrNotFound for missing rows and
// domain.ErrEmailTaken for a duplicate user email.

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error)
	// DeleteByTokenHash succeeds when no session matches.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Todo, error)
	// Update persists title, descriptions, is_done and updated_at. The owner
	// is never written.
	Update(ctx context.Context, todo *domain.Todo) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByOwner returns up to limit todos of ownerID ordered by
	// (created_at DESC, id DESC), starting strictly after the given key.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, after *pagination.Key, limit int) ([]*domain.Todo, error)
}

type Repositories struct {
	User    UserRepository
	Session SessionRepository
	Todo    TodoRepository
}
