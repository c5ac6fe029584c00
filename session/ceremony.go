package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

// Store 保存 WebAuthn 仪式的中间数据（challenge 等），TTL 很短
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store { return &Store{rdb: rdb, ttl: ttl} }

// Ceremony kinds, each with its own key space.
const (
	Registration  = "reg"
	InviteSignup  = "reg:inv"
	Authorization = "auth"
)

func ceremonyKey(kind, id string) string { return fmt.Sprintf("vl:webauthn:%s:%s", kind, id) }

func (s *Store) Save(ctx context.Context, kind, id string, sd *webauthn.SessionData) error {
	return setJSON(ctx, s.rdb, ceremonyKey(kind, id), sd, s.ttl)
}

func (s *Store) Load(ctx context.Context, kind, id string) (*webauthn.SessionData, error) {
	var sd webauthn.SessionData
	if err := getJSON(ctx, s.rdb, ceremonyKey(kind, id), &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

// Take 读取后立即删除，challenge 只能用一次
func (s *Store) Take(ctx context.Context, kind, id string) (*webauthn.SessionData, error) {
	sd, err := s.Load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	_ = s.rdb.Del(ctx, ceremonyKey(kind, id)).Err()
	return sd, nil
}

func (s *Store) Delete(ctx context.Context, kind, id string) {
	_ = s.rdb.Del(ctx, ceremonyKey(kind, id)).Err()
}
