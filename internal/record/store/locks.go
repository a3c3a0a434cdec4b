package store

import (
	"context"
	"sync"
	"time"

	"tempora/pkg/platform/sentinel"
)

// SlotLocker serializes writers per slot identity. Locks are scoped to
// (tenant, owner, kind, slot key) and held only for the read-validate-append
// window, so there is no cross-slot blocking and no deadlock risk.
//
// A dispatch that cannot acquire the lock within its wait budget gets
// sentinel.ErrLockTimeout; callers retry with the same request id.
type SlotLocker struct {
	mu    sync.Mutex
	slots map[string]*slotLock
}

type slotLock struct {
	ch      chan struct{}
	waiters int
}

// NewSlotLocker returns an empty lock table.
func NewSlotLocker() *SlotLocker {
	return &SlotLocker{slots: make(map[string]*slotLock)}
}

// Acquire takes the lock for key, waiting up to wait. The returned release
// function must be called exactly once.
func (l *SlotLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	l.mu.Lock()
	lock, ok := l.slots[key]
	if !ok {
		lock = &slotLock{ch: make(chan struct{}, 1)}
		l.slots[key] = lock
	}
	lock.waiters++
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case lock.ch <- struct{}{}:
		return func() {
			<-lock.ch
			l.release(key, lock)
		}, nil
	case <-timer.C:
		l.release(key, lock)
		return nil, sentinel.ErrLockTimeout
	case <-ctx.Done():
		l.release(key, lock)
		return nil, ctx.Err()
	}
}

// release drops the waiter count and evicts idle entries so the table does
// not grow with every slot ever touched.
func (l *SlotLocker) release(key string, lock *slotLock) {
	l.mu.Lock()
	lock.waiters--
	if lock.waiters == 0 && len(lock.ch) == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

// LockKey builds the lock table key for a slot identity.
func LockKey(tenantID, ownerID, kind, slotKey string) string {
	return tenantID + "|" + ownerID + "|" + kind + "|" + slotKey
}
