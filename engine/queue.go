package engine

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// SenderQueue serializes submissions per sender so concurrent transactions
// from one account reach the engine in sequence-number order. Locks are
// created lazily and dropped when no submission holds or awaits them;
// unrelated senders never contend.
type SenderQueue struct {
	mu    sync.Mutex
	locks map[common.Address]*senderLock
}

type senderLock struct {
	sem  chan struct{}
	refs int
}

func NewSenderQueue() *SenderQueue {
	return &SenderQueue{locks: make(map[common.Address]*senderLock)}
}

// Acquire blocks until the sender's slot is free or ctx is done. The
// returned release function is idempotent. A caller that abandons its
// request keeps the slot occupied until its gateway call resolves and
// release runs, so ordering survives client disconnects.
func (q *SenderQueue) Acquire(ctx context.Context, sender common.Address) (func(), error) {
	q.mu.Lock()
	l, ok := q.locks[sender]
	if !ok {
		l = &senderLock{sem: make(chan struct{}, 1)}
		q.locks[sender] = l
	}
	l.refs++
	q.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		q.put(sender, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-l.sem
			q.put(sender, l)
		})
	}
	return release, nil
}

func (q *SenderQueue) put(sender common.Address, l *senderLock) {
	q.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(q.locks, sender)
	}
	q.mu.Unlock()
}

// Len reports the number of senders currently holding or awaiting a slot.
func (q *SenderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.locks)
}
