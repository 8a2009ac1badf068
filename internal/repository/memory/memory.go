// Package memory provides in-process repositories backed by maps. They are
// used for local runs without PostgreSQL and by service and handler tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dom/todo-tracker/internal/domain"
	"github.com/dom/todo-tracker/internal/pagination"
	"github.com/dom/todo-tracker/internal/repository"
	"github.com/google/uuid"
)

// Constraint errors mirror the unique index on user_sessions.token_hash and
// the foreign keys from sessions and todos to users.
var (
	errDuplicateTokenHash = errors.New("memory: duplicate session token hash")
	errUnknownUser        = errors.New("memory: referenced user does not exist")
)

func NewRepositories() *repository.Repositories {
	users := NewUserRepository()
	return &repository.Repositories{
		User:    users,
		Session: NewSessionRepository(users),
		Todo:    NewTodoRepository(users),
	}
}

type userRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]domain.User
	byEmail map[string]uuid.UUID
}

func NewUserRepository() *userRepository {
	return &userRepository{
		byID:    make(map[uuid.UUID]domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = domain.NormalizeEmail(user.Email)
	if _, ok := r.byEmail[user.Email]; ok {
		return domain.ErrEmailTaken
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	user := r.byID[id]
	return &user, nil
}

func (r *userRepository) exists(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byID[id]
	return ok
}

type sessionRepository struct {
	mu     sync.RWMutex
	users  *userRepository
	byHash map[string]domain.UserSession
}

func NewSessionRepository(users *userRepository) *sessionRepository {
	return &sessionRepository{users: users, byHash: make(map[string]domain.UserSession)}
}

func (r *sessionRepository) Create(_ context.Context, session *domain.UserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.users.exists(session.UserID) {
		return errUnknownUser
	}
	if _, ok := r.byHash[session.TokenHash]; ok {
		return errDuplicateTokenHash
	}
	r.byHash[session.TokenHash] = *session
	return nil
}

func (r *sessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*domain.UserSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byHash[tokenHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &session, nil
}

func (r *sessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byHash, tokenHash)
	return nil
}

func (r *sessionRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, session := range r.byHash {
		if !session.ExpiresAt.After(before) {
			delete(r.byHash, hash)
			n++
		}
	}
	return n, nil
}

type todoRepository struct {
	mu    sync.RWMutex
	users *userRepository
	todos map[uuid.UUID]domain.Todo
}

func NewTodoRepository(users *userRepository) *todoRepository {
	return &todoRepository{users: users, todos: make(map[uuid.UUID]domain.Todo)}
}

func (r *todoRepository) Create(_ context.Context, todo *domain.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.users.exists(todo.OwnerID) {
		return errUnknownUser
	}
	r.todos[todo.ID] = cloneTodo(*todo)
	return nil
}

func (r *todoRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	todo, ok := r.todos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneTodo(todo)
	return &out, nil
}

func (r *todoRepository) Update(_ context.Context, todo *domain.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.todos[todo.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Title = todo.Title
	stored.Descriptions = todo.Descriptions
	stored.IsDone = todo.IsDone
	stored.UpdatedAt = todo.UpdatedAt
	r.todos[todo.ID] = cloneTodo(stored)
	return nil
}

func (r *todoRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.todos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.todos, id)
	return nil
}

func (r *todoRepository) ListByOwner(_ context.Context, ownerID uuid.UUID, after *pagination.Key, limit int) ([]*domain.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owned []*domain.Todo
	for _, todo := range r.todos {
		if todo.OwnerID != ownerID {
			continue
		}
		if after != nil && pagination.Compare(todoKey(&todo), *after) >= 0 {
			continue
		}
		t := cloneTodo(todo)
		owned = append(owned, &t)
	}

	sort.Slice(owned, func(i, j int) bool {
		return pagination.Compare(todoKey(owned[i]), todoKey(owned[j])) > 0
	})

	if limit > 0 && len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

func todoKey(t *domain.Todo) pagination.Key {
	return pagination.KeyOf(t.CreatedAt, t.ID)
}

// cloneTodo detaches the descriptions pointer so callers cannot mutate
// stored state.
func cloneTodo(t domain.Todo) domain.Todo {
	if t.Descriptions != nil {
		d := *t.Descriptions
		t.Descriptions = &d
	}
	t.Owner = nil
	return t
}
