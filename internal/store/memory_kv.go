package store

import (
	"context"
	"sync"
	"time"
)

// MemoryKV 内存 KV + TTL（Redis 未启用时使用）
type MemoryKV struct {
	mu    sync.Mutex
	data  map[string]memItem
	lists map[string]memList
	now   func() time.Time
}

type memItem struct {
	value   string
	expires time.Time // zero = no ttl
}

type memList struct {
	values  []string
	expires time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data:  make(map[string]memItem),
		lists: make(map[string]memList),
		now:   time.Now,
	}
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func (m *MemoryKV) expired(exp time.Time) bool {
	return !exp.IsZero() && m.now().After(exp)
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	if m.expired(item.expires) {
		delete(m.data, key)
		return "", ErrMiss
	}
	return item.value, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = memItem{value: value, expires: expiry(m.now(), ttl)}
	return nil
}

func (m *MemoryKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	delete(m.lists, key)
	return nil
}

func (m *MemoryKV) Push(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.lists[key]
	if m.expired(l.expires) {
		l = memList{}
	}
	l.values = append(l.values, value)
	if ttl > 0 {
		l.expires = expiry(m.now(), ttl)
	}
	m.lists[key] = l
	return nil
}

func (m *MemoryKV) PopAll(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lists[key]
	delete(m.lists, key)
	if !ok || m.expired(l.expires) {
		return []string{}, nil
	}
	return l.values, nil
}
