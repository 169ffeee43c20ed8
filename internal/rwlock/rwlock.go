// Package rwlock implements a reentrant read/write lock whose reentrancy is
// tracked per logical owner. The owner token travels in the context, so a
// call chain that re-enters the lock (directly or through nested goroutine
// handoffs sharing the context) is recognized and admitted without
// deadlocking.
//
// Permitted nestings: read-in-read, write-in-write and read-in-write.
// Write-in-read is a lock upgrade and is rejected with ErrWriteInRead.
package rwlock

import (
	"context"
	"errors"
	"sync"
)

// ErrWriteInRead is returned when a write lock is requested by an owner that
// only holds a read lock. Upgrading would deadlock against concurrent readers,
// so it is rejected outright.
var ErrWriteInRead = errors.New("rwlock: cannot acquire write lock while holding read lock")

// owner is the identity token for one logical call chain. All counter
// mutations happen under the lock's mutex.
type owner struct {
	read  int
	write int
}

type ctxKeyType struct{}

var ctxKey ctxKeyType

// Lock is a reentrant read/write lock. The zero value is not usable; call New.
type Lock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	writer  *owner
	readers map[*owner]struct{}
}

// New constructs an unlocked Lock.
func New() *Lock {
	l := &Lock{readers: map[*owner]struct{}{}}
	l.cond = sync.NewCond(&l.mu)

	return l
}

// ownerFrom returns the owner token attached to ctx, creating and attaching a
// fresh one when the chain enters the lock for the first time.
func ownerFrom(ctx context.Context) (context.Context, *owner) {
	if o, ok := ctx.Value(ctxKey).(*owner); ok {
		return ctx, o
	}

	o := &owner{}

	return context.WithValue(ctx, ctxKey, o), o
}

// WithReadLock runs fn while holding the read lock. The lock is released on
// every exit path, including panics inside fn. The context passed to fn
// carries the owner token and must be used for nested acquisitions.
func (l *Lock) WithReadLock(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, o := ownerFrom(ctx)

	if err := l.acquireRead(ctx, o); err != nil {
		return err
	}
	defer l.releaseRead(o)

	return fn(ctx)
}

// WithWriteLock runs fn while holding the exclusive write lock. The lock is
// released on every exit path, including panics inside fn.
func (l *Lock) WithWriteLock(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, o := ownerFrom(ctx)

	if err := l.acquireWrite(ctx, o); err != nil {
		return err
	}
	defer l.releaseWrite(o)

	return fn(ctx)
}

func (l *Lock) acquireRead(ctx context.Context, o *owner) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Reentrant: the owner already holds the lock in some mode.
	if o.write > 0 || o.read > 0 {
		o.read++
		return nil
	}

	stop := context.AfterFunc(ctx, func() { l.cond.Broadcast() })
	defer stop()

	for l.writer != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.cond.Wait()
	}

	o.read = 1
	l.readers[o] = struct{}{}

	return nil
}

func (l *Lock) releaseRead(o *owner) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o.read--
	if o.read == 0 && o.write == 0 {
		delete(l.readers, o)
		l.cond.Broadcast()
	}
}

func (l *Lock) acquireWrite(ctx context.Context, o *owner) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if o.write > 0 {
		o.write++
		return nil
	}

	if o.read > 0 {
		return ErrWriteInRead
	}

	stop := context.AfterFunc(ctx, func() { l.cond.Broadcast() })
	defer stop()

	for l.writer != nil || len(l.readers) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.cond.Wait()
	}

	l.writer = o
	o.write = 1

	return nil
}

func (l *Lock) releaseWrite(o *owner) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o.write--
	if o.write == 0 {
		l.writer = nil
		l.cond.Broadcast()
	}
}
