package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"silverbot-chat-api/pkg/models"

	"github.com/redis/go-redis/v9"
)

// SessionStore は訪問者ごとの cart と chat_state を保存します。有効期限は各実装が管理します。
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	Save(ctx context.Context, sessionID string, session *models.Session) error
}

func decodeSession(data []byte) (*models.Session, error) {
	session := models.NewSession()
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("session unmarshal error: %w", err)
	}
	if session.Cart == nil {
		session.Cart = []string{}
	}
	return session, nil
}

// RedisSessionStore はセッションを JSON として Redis に保存します（保存のたびに TTL を延長）。
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore は Redis を使うセッションストアを生成します。
func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient は redis:// URL を解析し、接続を確認します。
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Load は保存済みのセッションを返します。なければ新しいセッションを返します。
func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	data, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.NewSession(), nil
		}
		return nil, fmt.Errorf("session get error: %w", err)
	}
	return decodeSession(data)
}

// Save はセッションを書き込み、TTL を更新します。
func (s *RedisSessionStore) Save(ctx context.Context, sessionID string, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session marshal error: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session set error: %w", err)
	}
	return nil
}

// Close は Redis クライアントの接続を閉じます。
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// memorySweepInterval ごとに Save が期限切れのセッションをまとめて削除する
const memorySweepInterval = time.Minute

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionStore は Redis 未設定のときに使うプロセス内のセッションストアです。
type MemorySessionStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemorySessionStore はインメモリのストアを生成します。ttl <= 0 なら期限なし。
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load は保存済みセッションのコピー、なければ新しいセッションを返します。
func (s *MemorySessionStore) Load(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.Lock()
	entry, ok := s.entries[sessionID]
	if ok && s.ttl > 0 && s.now().After(entry.expiresAt) {
		delete(s.entries, sessionID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return models.NewSession(), nil
	}
	return decodeSession(entry.data)
}

// Save はセッションのコピーを保存します。
func (s *MemorySessionStore) Save(_ context.Context, sessionID string, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session marshal error: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	s.entries[sessionID] = memoryEntry{data: data, expiresAt: now.Add(s.ttl)}
	return nil
}

// sweep は期限切れのセッションを削除する（ロック取得済みで呼ぶ）
func (s *MemorySessionStore) sweep(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < memorySweepInterval {
		return
	}
	s.lastSweep = now
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// Len は保存中のセッション数を返します（未削除の期限切れを含む）。
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
