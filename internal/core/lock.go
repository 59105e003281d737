package core

import (
	"context"
	"log/slog"
)

// TurnLock serializes conversation turns. It is a one-slot semaphore so
// that waiting can be bounded by a context.
type TurnLock struct {
	sem chan struct{}
}

func NewTurnLock() *TurnLock {
	return &TurnLock{sem: make(chan struct{}, 1)}
}

// LockWithContext waits for the lock until ctx ends. A free lock is taken
// even when ctx is already done.
func (l *TurnLock) LockWithContext(ctx context.Context) bool {
	if l.TryLock() {
		return true
	}
	select {
	case l.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (l *TurnLock) TryLock() bool {
	select {
	case l.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Busy reports whether a turn currently holds the lock.
func (l *TurnLock) Busy() bool {
	return len(l.sem) == 1
}

// Unlock releases the lock. Unlocking a free lock is a no-op.
func (l *TurnLock) Unlock() {
	select {
	case <-l.sem:
	default:
	}
}

// Do runs fn while holding the lock and reports whether it ran. It gives
// up when ctx ends before the lock is free.
func (l *TurnLock) Do(ctx context.Context, logger *slog.Logger, operation string, fn func()) bool {
	if logger == nil {
		logger = GetLogger()
	}

	if !l.LockWithContext(ctx) {
		logger.Warn("turn lock not acquired", "operation", operation, "error", ctx.Err())
		return false
	}
	logger.Debug("turn lock acquired", "operation", operation)
	defer func() {
		l.Unlock()
		logger.Debug("turn lock released", "operation", operation)
	}()

	fn()
	return true
}
