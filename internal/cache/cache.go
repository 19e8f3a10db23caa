// Package cache stores computed fee tables keyed by their request parameters.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const cleanupInterval = time.Minute

// Cache stores serialized values with a time to live.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key builds a cache key from a prefix and the parts identifying a value.
func Key(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, part := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, part)
	}
	return b.String()
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Cache. Expired entries are dropped on read and by a
// background sweep that runs until Close.
type Memory struct {
	logger *zap.Logger
	store  sync.Map
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewMemory starts a Memory cache.
func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Memory{
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get returns the value stored at key when it has not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := m.store.Load(key)
	if !ok {
		m.logger.Debug("cache miss", zap.String("op", "cache.Memory.Get"), zap.String("key", key))
		return nil, false, nil
	}

	e := val.(entry)
	if m.now().After(e.expiresAt) {
		m.store.Delete(key)
		m.logger.Debug("cache expired", zap.String("op", "cache.Memory.Get"), zap.String("key", key))
		return nil, false, nil
	}

	m.logger.Debug("cache hit", zap.String("op", "cache.Memory.Get"), zap.String("key", key))
	return append([]byte(nil), e.data...), true, nil
}

// Set stores a copy of value at key for ttl.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache ttl %s must be positive", ttl)
	}
	m.store.Store(key, entry{
		data:      append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	})
	m.logger.Debug("cache set", zap.String("op", "cache.Memory.Set"), zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// Close stops the background sweep. It is safe to call more than once.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	m.store.Range(func(key, val interface{}) bool {
		if now.After(val.(entry).expiresAt) {
			m.store.Delete(key)
		}
		return true
	})
}
