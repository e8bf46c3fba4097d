package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"Gin_postgres_redis_asset_loan/clock"
)

var ErrSessionNotFound = errors.New("session not found")

// AppSessionStore registers login sessions in redis. A token is only
// honoured while its sid is present, which makes logout and forced
// revocation effective before the token expires.
type AppSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
	clk clock.Clock
}

func NewAppSessionStore(rdb *redis.Client, ttl time.Duration, clk clock.Clock) *AppSessionStore {
	if clk == nil {
		clk = clock.Real()
	}
	return &AppSessionStore{rdb: rdb, ttl: ttl, clk: clk}
}

type AppSession struct {
	UserID    uint   `json:"uid"`
	IP        string `json:"ip,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func NewSessionID() string { return uuid.NewString() }

func key(id string) string { return fmt.Sprintf("loan:sess:%s", id) }
func userSetKey(uid uint) string {
	return "loan:user_sessions:" + strconv.FormatUint(uint64(uid), 10)
}

func (s *AppSessionStore) TTL() time.Duration { return s.ttl }

func (s *AppSessionStore) Create(ctx context.Context, id string, userID uint, ip string) error {
	now := s.clk.Now()
	b, err := json.Marshal(AppSession{
		UserID:    userID,
		IP:        ip,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(id), b, s.ttl)
	pipe.SAdd(ctx, userSetKey(userID), id)
	pipe.Expire(ctx, userSetKey(userID), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var as AppSession
	if err := json.Unmarshal(b, &as); err != nil {
		return nil, err
	}
	return &as, nil
}

func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	as, err := s.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(id))
	if as != nil {
		pipe.SRem(ctx, userSetKey(as.UserID), id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// RevokeAllForUser drops every session of userID. Used on password or
// role change, deactivation and deletion.
func (s *AppSessionStore) RevokeAllForUser(ctx context.Context, userID uint) error {
	ids, err := s.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, key(sid))
	}
	pipe.Del(ctx, userSetKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
