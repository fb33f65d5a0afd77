package oauth

import (
	"context"
	"time"

	"github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/kv"
)

// Session is a shop's stored access credential. It expires from the
// store after the session TTL; API calls needing Shopify access fail
// closed once it is gone.
type Session struct {
	Shop        string    `json:"shop"`
	AccessToken string    `json:"accessToken"`
	Scope       string    `json:"scope"`
	InstalledAt time.Time `json:"installedAt"`
}

// SessionStore is the slice of the key-value client sessions need.
type SessionStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// SessionRepository persists sessions under shop-scoped keys.
type SessionRepository struct {
	store SessionStore
	ttl   time.Duration
}

func NewSessionRepository(store SessionStore, ttl time.Duration) *SessionRepository {
	return &SessionRepository{store: store, ttl: ttl}
}

func (r *SessionRepository) Save(ctx context.Context, session *Session) error {
	if session == nil || session.Shop == "" || session.AccessToken == "" {
		return errors.New(errors.CodeInternal, "session missing shop or access token")
	}
	if err := r.store.SetJSON(ctx, kv.ShopSessionKey(session.Shop), session, r.ttl); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "persist session")
	}
	return nil
}

// Get returns (nil, nil) when the shop has no live session.
func (r *SessionRepository) Get(ctx context.Context, shop string) (*Session, error) {
	var session Session
	found, err := r.store.GetJSON(ctx, kv.ShopSessionKey(shop), &session)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "load session")
	}
	if !found {
		return nil, nil
	}
	return &session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, shop string) error {
	if err := r.store.Del(ctx, kv.ShopSessionKey(shop)); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "delete session")
	}
	return nil
}
