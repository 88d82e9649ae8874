package game

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultSessionTTL は最後の操作からセッションを保持する時間。
	DefaultSessionTTL = 30 * time.Minute
	// DefaultMaxSessions は同時に保持するセッション数の上限。
	DefaultMaxSessions = 10000
)

type entry struct {
	mu      sync.Mutex
	session *Session

	// lastAccess はStore.muで保護する。
	lastAccess time.Time
}

// Store はゲームセッションをメモリ上で保持する。
// マップはStore全体のロックで、各セッションの操作はセッションごとのロックで保護する。
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	max     int

	now     func() time.Time
	newRand func() *rand.Rand
	newID   func() string
}

// NewStore は新しいStoreを生成する。
// ttlが0以下の場合はDefaultSessionTTL、maxSessionsが0以下の場合はDefaultMaxSessionsを使う。
func NewStore(ttl time.Duration, maxSessions int) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		max:     maxSessions,
		now:     time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		newID: uuid.NewString,
	}
}

// Create はkindのゲームセッションを作成して保存する。
// 上限に達している場合は期限切れのセッションを削除し、それでも空きがなければ
// 最後の操作が最も古いセッションを追い出す。
func (s *Store) Create(kind Kind, d Difficulty) (View, error) {
	rules, err := Lookup(kind)
	if err != nil {
		return View{}, err
	}

	now := s.now()
	session, err := NewSession(s.newID(), rules, s.newRand(), d, now)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	if len(s.entries) >= s.max {
		s.makeRoomLocked(now)
	}
	s.entries[session.ID] = &entry{session: session, lastAccess: now}
	s.mu.Unlock()

	return session.View(now), nil
}

// makeRoomLocked は1件分の空きを作る。s.muを保持した状態で呼ぶこと。
func (s *Store) makeRoomLocked(now time.Time) {
	s.sweepLocked(now)
	for len(s.entries) >= s.max {
		var oldestID string
		var oldest time.Time
		for id, e := range s.entries {
			if oldestID == "" || e.lastAccess.Before(oldest) {
				oldestID, oldest = id, e.lastAccess
			}
		}
		delete(s.entries, oldestID)
	}
}

// Do はセッションのロックを取った状態でfnを実行し、実行後の表示内容を返す。
// 存在しないか期限切れのセッションにはErrSessionNotFoundを返す。
func (s *Store) Do(id string, fn func(sess *Session, now time.Time) error) (View, error) {
	now := s.now()

	s.mu.Lock()
	e, ok := s.entries[id]
	if ok && now.Sub(e.lastAccess) >= s.ttl {
		delete(s.entries, id)
		ok = false
	}
	if ok {
		e.lastAccess = now
	}
	s.mu.Unlock()
	if !ok {
		return View{}, ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if fn != nil {
		if err := fn(e.session, now); err != nil {
			return e.session.View(now), err
		}
	}
	return e.session.View(now), nil
}

// Get はセッションの表示内容を返す。
func (s *Store) Get(id string) (View, error) {
	return s.Do(id, nil)
}

// Delete はセッションを削除する。存在しない場合はErrSessionNotFoundを返す。
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.entries, id)
	return nil
}

// Sweep は期限切れのセッションを削除し、削除件数を返す。
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.lastAccess) >= s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len は保持しているセッション数を返す。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
