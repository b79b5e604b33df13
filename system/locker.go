package system

import (
	"context"
	"sync"

	"emperror.dev/errors"
)

var ErrLockerLocked = errors.Sentinel("locker: cannot acquire lock, already locked")

// Locker is a single slot lock that, unlike a sync.Mutex, can be acquired
// with a context so that callers waiting on a slow holder can give up.
type Locker struct {
	mu sync.RWMutex
	ch chan bool
}

// NewLocker returns a new Locker instance.
func NewLocker() *Locker {
	return &Locker{
		ch: make(chan bool, 1),
	}
}

// IsLocked returns the current state of the locker channel. If there is
// currently a value in the channel, it is assumed to be locked.
func (l *Locker) IsLocked() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ch) == 1
}

// Acquire will acquire the lock if it is not currently locked. If it is
// already locked ErrLockerLocked is returned immediately.
func (l *Locker) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case l.ch <- true:
	default:
		return ErrLockerLocked
	}
	return nil
}

// TryAcquire blocks until the lock is acquired or the context provided is
// canceled, in which case ErrLockerLocked is returned.
func (l *Locker) TryAcquire(ctx context.Context) error {
	select {
	case l.ch <- true:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ErrLockerLocked)
	}
}

// Release will drain the locker channel so that we can properly re-acquire it
// at a later time. If the channel is not currently locked this function is a
// no-op and will immediately return.
func (l *Locker) Release() {
	l.mu.Lock()
	select {
	case <-l.ch:
	default:
	}
	l.mu.Unlock()
}
