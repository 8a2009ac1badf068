package service

import (
	"log/slog"

	"github.com/dom/todo-tracker/internal/config"
	"github.com/dom/todo-tracker/internal/repository"
)

type Services struct {
	Auth   *AuthService
	Tokens *TokenService
	Todos  *TodoService
}

// NewServices wires the services over repos. sessionCache may be nil.
func NewServices(repos *repository.Repositories, cfg *config.Config, sessionCache SessionCache, logger *slog.Logger) *Services {
	tokens := NewTokenService(repos.Session, sessionCache, cfg, logger)
	return &Services{
		Auth:   NewAuthService(repos.User, tokens, logger),
		Tokens: tokens,
		Todos:  NewTodoService(repos.Todo, cfg, logger),
	}
}
