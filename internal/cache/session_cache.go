package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imsebeom/ai-survey/internal/model"
)

// SessionStore holds interview sessions for their TTL
type SessionStore interface {
	Save(ctx context.Context, session *model.InterviewSession) error
	// Get returns nil, nil when the session is missing or expired
	Get(ctx context.Context, id string) (*model.InterviewSession, error)
	Delete(ctx context.Context, id string) error
	// ClaimSubmission reports whether the caller won the right to submit the
	// session's response. Only one claim per session succeeds until released.
	ClaimSubmission(ctx context.Context, id string) (bool, error)
	ReleaseSubmission(ctx context.Context, id string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a Redis-backed session store. Every save refreshes the TTL.
func NewSessionCache(client *redis.Client, ttl time.Duration) SessionStore {
	return &sessionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *sessionCache) key(id string) string {
	return "interview:session:" + id
}

func (c *sessionCache) Save(ctx context.Context, session *model.InterviewSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(session.ID), data, c.ttl).Err()
}

func (c *sessionCache) Get(ctx context.Context, id string) (*model.InterviewSession, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.InterviewSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *sessionCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id), c.claimKey(id)).Err()
}

func (c *sessionCache) claimKey(id string) string {
	return "interview:submitted:" + id
}

func (c *sessionCache) ClaimSubmission(ctx context.Context, id string) (bool, error) {
	return c.client.SetNX(ctx, c.claimKey(id), 1, c.ttl).Result()
}

func (c *sessionCache) ReleaseSubmission(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.claimKey(id)).Err()
}

// MemorySessionStore keeps sessions in process memory. Sessions are serialized
// on save so callers never share state with the store.
type MemorySessionStore struct {
	mu     sync.RWMutex
	ttl    time.Duration
	data   map[string]sessionEntry
	claims map[string]time.Time
	now    func() time.Time
}

type sessionEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:    ttl,
		data:   make(map[string]sessionEntry),
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *MemorySessionStore) Save(ctx context.Context, session *model.InterviewSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.ID] = sessionEntry{
		payload:   data,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemorySessionStore) Get(ctx context.Context, id string) (*model.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[id]
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.data, id) // cleanup expired
		return nil, nil
	}

	var session model.InterviewSession
	if err := json.Unmarshal(e.payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	delete(s.claims, id)
	return nil
}

func (s *MemorySessionStore) ClaimSubmission(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiresAt, ok := s.claims[id]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.claims[id] = now.Add(s.ttl)
	return true, nil
}

func (s *MemorySessionStore) ReleaseSubmission(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, id)
	return nil
}
