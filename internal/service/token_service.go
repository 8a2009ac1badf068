package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dom/todo-tracker/internal/config"
	"github.com/dom/todo-tracker/internal/domain"
	"github.com/dom/todo-tracker/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCache caches token hash to user id resolutions in front of the
// session store.
type SessionCache interface {
	Get(ctx context.Context, tokenHash string) (uuid.UUID, bool, error)
	Set(ctx context.Context, tokenHash string, userID uuid.UUID, ttl time.Duration) error
	Delete(ctx context.Context, tokenHash string) error
}

// TokenService issues, resolves and revokes bearer tokens. A token is a
// signed JWT whose hash is also recorded as a session row, so it can be
// revoked before it expires.
type TokenService struct {
	sessionRepo repository.SessionRepository
	cache       SessionCache
	secret      []byte
	ttl         time.Duration
	cacheTTL    time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewTokenService returns a TokenService. cache may be nil, in which case
// every resolution reads the session store.
func NewTokenService(sessionRepo repository.SessionRepository, cache SessionCache, cfg *config.Config, logger *slog.Logger) *TokenService {
	return &TokenService{
		sessionRepo: sessionRepo,
		cache:       cache,
		secret:      []byte(cfg.TokenSecret),
		ttl:         cfg.SessionTTL,
		cacheTTL:    cfg.SessionCacheTTL,
		now:         time.Now,
		logger:      logger.With("component", "tokens"),
	}
}

// HashToken is the key under which a raw token's session is stored.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *TokenService) Issue(ctx context.Context, user *domain.User) (string, error) {
	now := s.now()
	sessionID := uuid.New()
	expiresAt := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		ID:        sessionID.String(),
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	session := &domain.UserSession{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return raw, nil
}

// Resolve returns the id of the user a token was issued to. Unknown,
// expired, revoked or forged tokens yield domain.ErrUnauthenticated.
func (s *TokenService) Resolve(ctx context.Context, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, domain.ErrUnauthenticated
	}

	subject, err := s.parse(raw)
	if err != nil {
		s.logger.Debug("rejected token", "error", err)
		return uuid.Nil, domain.ErrUnauthenticated
	}

	hash := HashToken(raw)
	if s.cache != nil {
		userID, ok, err := s.cache.Get(ctx, hash)
		if err != nil {
			s.logger.Warn("session cache read failed", "error", err)
		} else if ok && userID == subject {
			return userID, nil
		}
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, hash)
	if errors.Is(err, domain.ErrNotFound) {
		return uuid.Nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load session: %w", err)
	}

	now := s.now()
	if session.Expired(now) || session.UserID != subject {
		return uuid.Nil, domain.ErrUnauthenticated
	}

	if s.cache != nil {
		ttl := min(session.ExpiresAt.Sub(now), s.cacheTTL)
		if err := s.cache.Set(ctx, hash, session.UserID, ttl); err != nil {
			s.logger.Warn("session cache write failed", "error", err)
		}
	}

	return session.UserID, nil
}

// Revoke deletes the session of raw. Revoking an unknown token is not an error.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	hash := HashToken(raw)
	if err := s.sessionRepo.DeleteByTokenHash(ctx, hash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, hash); err != nil {
			return fmt.Errorf("evict cached session: %w", err)
		}
	}
	return nil
}

func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, s.now())
}

// RunPurger deletes expired sessions every interval until ctx is done.
func (s *TokenService) RunPurger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.Error("purge expired sessions", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}

func (s *TokenService) parse(raw string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, err
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject: %w", err)
	}
	return subject, nil
}
