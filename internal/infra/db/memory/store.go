// Package memory is a process-local implementation of the repository ports.
// It backs development runs without a database and the use-case tests.
package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/repository"
)

// Store holds all committed state.
type Store struct {
	mu            sync.RWMutex
	content       map[string]*model.ContentItem
	jobs          map[string]*model.ModerationJob
	notifications []*model.Notification
	activity      []*model.ActivityEntry

	lockMu sync.Mutex
	locks  map[string]*itemLock
}

// itemLock is dropped from Store.locks once no transaction holds or waits on it.
type itemLock struct {
	ch   chan struct{}
	refs int
}

func NewStore() *Store {
	return &Store{
		content: make(map[string]*model.ContentItem),
		jobs:    make(map[string]*model.ModerationJob),
		locks:   make(map[string]*itemLock),
	}
}

// lockItem blocks until the per-item lock is taken or ctx ends.
func (s *Store) lockItem(ctx context.Context, id string) error {
	s.lockMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &itemLock{ch: make(chan struct{}, 1)}
		s.locks[id] = l
	}
	l.refs++
	s.lockMu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		s.dropRef(id, l)
		return ctx.Err()
	}
}

func (s *Store) unlockItem(id string) {
	s.lockMu.Lock()
	l, ok := s.locks[id]
	s.lockMu.Unlock()
	if !ok {
		return
	}
	<-l.ch
	s.dropRef(id, l)
}

func (s *Store) dropRef(id string, l *itemLock) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
}

// heldLocks is the number of item ids with a holder or waiter.
func (s *Store) heldLocks() int {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	return len(s.locks)
}

// memTx buffers writes until commit and holds item locks until it ends.
type memTx struct {
	store   *Store
	held    map[string]struct{}
	content map[string]*model.ContentItem
	ops     []func(s *Store)
}

func (t *memTx) lock(ctx context.Context, id string) error {
	if _, ok := t.held[id]; ok {
		return nil
	}
	if err := t.store.lockItem(ctx, id); err != nil {
		return err
	}
	t.held[id] = struct{}{}
	return nil
}

func (t *memTx) release() {
	for id := range t.held {
		t.store.unlockItem(id)
	}
	t.held = nil
}

func (t *memTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range t.content {
		s.content[id] = item
	}
	for _, op := range t.ops {
		op(s)
	}
}

func asTx(tx repository.Tx) (*memTx, error) {
	switch v := tx.(type) {
	case nil:
		return nil, nil
	case *memTx:
		return v, nil
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

// TxManager commits buffered writes only when fn returns nil.
type TxManager struct {
	store *Store
}

var _ repository.TransactionManager = (*TxManager)(nil)

func NewTxManager(s *Store) *TxManager { return &TxManager{store: s} }

func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	t := &memTx{
		store:   m.store,
		held:    make(map[string]struct{}),
		content: make(map[string]*model.ContentItem),
	}
	defer t.release()
	if err := fn(ctx, t); err != nil {
		return err
	}
	t.commit()
	return nil
}
