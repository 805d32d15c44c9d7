package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStoreConfig はプロセス内ストアの設定を保持する。
type MemoryStoreConfig struct {
	// MaxKeys は保持するキー数の上限。超過時はresetAtが最も早いバケットから削除する。0以下は無制限。
	MaxKeys int
	// SweepInterval は期限切れバケットを削除する間隔。0以下の場合はバックグラウンド削除を行わない。
	SweepInterval time.Duration
}

// bucket はキーごとの固定ウィンドウカウンタ。
type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore はプロセス内のmapでバケットを保持するStore実装。
// 同一キーへの読み取り・更新は単一のミューテックスで直列化される。
type MemoryStore struct {
	config MemoryStoreConfig
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore は新しいMemoryStoreを生成する。
// SweepIntervalが正の場合、バックグラウンドで期限切れバケットの削除を開始する。
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	s := &MemoryStore{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}

	if config.SweepInterval > 0 {
		go s.sweepLoop()
	}

	return s
}

// Stop はバックグラウンドの削除処理を停止する。複数回呼んでも安全。
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Hit はStoreインターフェースを実装する。
// 上限到達後はカウンタを進めず、max+1を返す。
func (s *MemoryStore) Hit(_ context.Context, key string, max int, window time.Duration) (int, time.Time, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.buckets[key]
	if !exists || !now.Before(b.resetAt) {
		if !exists {
			s.evictIfFull(now)
		}
		b = &bucket{count: 1, resetAt: now.Add(window)}
		s.buckets[key] = b
		return b.count, b.resetAt, nil
	}

	if b.count >= max {
		return max + 1, b.resetAt, nil
	}

	b.count++
	return b.count, b.resetAt, nil
}

// Len は現在保持しているバケット数を返す。テストおよびメトリクス用。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// evictIfFull はキー数が上限に達している場合に空きを作る。
// まず期限切れのバケットを削除し、それでも足りなければresetAtが最も早いものを削除する。
// 呼び出し元でロックを保持していること。
func (s *MemoryStore) evictIfFull(now time.Time) {
	if s.config.MaxKeys <= 0 || len(s.buckets) < s.config.MaxKeys {
		return
	}

	s.sweepLocked(now)

	for len(s.buckets) >= s.config.MaxKeys {
		var (
			oldestKey string
			oldestAt  time.Time
			found     bool
		)
		for key, b := range s.buckets {
			if !found || b.resetAt.Before(oldestAt) {
				oldestKey, oldestAt, found = key, b.resetAt, true
			}
		}
		if !found {
			return
		}
		delete(s.buckets, oldestKey)
	}
}

// sweepLoop はバックグラウンドで期限切れバケットを定期的に削除する。
func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep は期限切れバケットを削除する。
func (s *MemoryStore) sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for key, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, key)
		}
	}
}
