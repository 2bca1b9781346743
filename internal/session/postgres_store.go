package session

import (
	"context"
	"time"

	"banter/api/internal/store"
)

// RefreshStore is the slice of the Postgres store the fallback needs.
type RefreshStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// PostgresStore keeps refresh tokens in Postgres when Redis is not
// configured. Same interface as RedisStore, so the service cannot tell.
type PostgresStore struct {
	store RefreshStore
}

func NewPostgresStore(refreshStore RefreshStore) *PostgresStore {
	return &PostgresStore{store: refreshStore}
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	return s.store.SaveRefreshSession(ctx, tokenHash, user.ID, expiresAt)
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	return s.store.LookupRefreshSession(ctx, tokenHash)
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return s.store.RevokeRefreshSession(ctx, tokenHash)
}
