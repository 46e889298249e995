package app

import "sync"

// Loop runs posted functions one at a time, in the order they were posted.
//
// The goroutine whose Post finds the loop idle runs the queue until it is
// empty. A Post made while the loop is busy, from another goroutine or from
// inside a running function, only queues its function and returns, so code
// running on the loop may post without deadlocking. Timer and watcher
// goroutines post here instead of touching UI state themselves.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Post queues fn and, when the loop is idle, runs the queue.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	l.drain()
}

func (l *Loop) drain() {
	done := false
	defer func() {
		if !done {
			// A panicking function must not leave the loop marked busy.
			l.mu.Lock()
			l.running = false
			l.mu.Unlock()
		}
	}()
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			l.mu.Unlock()
			done = true
			return
		}
		next := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		next()
	}
}
