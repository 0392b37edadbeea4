// Package debounce runs keyed deferred tasks where a newer task for the same
// key replaces the pending one.
package debounce

import (
	"sync"
	"time"
)

type task struct {
	timer *time.Timer
	fn    func()
}

// keyState serializes tasks for one key. refs counts tasks taken from pending
// (or waiters) that still need the lock; the state is dropped at zero.
type keyState struct {
	mu   sync.Mutex
	refs int
}

// Group holds pending tasks by key. Tasks for one key never run concurrently.
// The zero value is not usable; call New.
type Group struct {
	mu      sync.Mutex
	pending map[string]*task
	running map[string]*keyState
	stopped bool
	wg      sync.WaitGroup
}

// New returns an empty group.
func New() *Group {
	return &Group{
		pending: make(map[string]*task),
		running: make(map[string]*keyState),
	}
}

// Schedule runs fn after delay unless another Schedule or Cancel for key
// comes first. It reports false once the group is stopped.
func (g *Group) Schedule(key string, delay time.Duration, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return false
	}
	if old, ok := g.pending[key]; ok {
		old.timer.Stop()
	}
	t := &task{fn: fn}
	t.timer = time.AfterFunc(delay, func() { g.fire(key, t) })
	g.pending[key] = t
	return true
}

func (g *Group) fire(key string, t *task) {
	g.mu.Lock()
	if g.pending[key] != t {
		// Superseded, cancelled, or already taken by Flush.
		g.mu.Unlock()
		return
	}
	st := g.take(key, t)
	g.mu.Unlock()
	g.run(key, st, t.fn)
}

// take moves t out of pending and registers it as in flight. g.mu must be held.
func (g *Group) take(key string, t *task) *keyState {
	t.timer.Stop()
	delete(g.pending, key)
	g.wg.Add(1)
	return g.acquire(key)
}

// acquire returns the state for key with one more reference. g.mu must be held.
func (g *Group) acquire(key string) *keyState {
	st, ok := g.running[key]
	if !ok {
		st = &keyState{}
		g.running[key] = st
	}
	st.refs++
	return st
}

func (g *Group) release(key string, st *keyState) {
	g.mu.Lock()
	st.refs--
	if st.refs == 0 && g.running[key] == st {
		delete(g.running, key)
	}
	g.mu.Unlock()
}

func (g *Group) run(key string, st *keyState, fn func()) {
	defer g.wg.Done()
	defer g.release(key, st)
	st.mu.Lock()
	defer st.mu.Unlock()
	fn()
}

// Cancel drops the pending task for key and reports whether one existed.
func (g *Group) Cancel(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.pending[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(g.pending, key)
	return true
}

// Pending reports whether a task for key is waiting to run.
func (g *Group) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[key]
	return ok
}

// Len returns the number of waiting tasks.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// FlushKey runs the pending task for key now, if any, and waits for it. When
// a task for key is already in flight, including one taken by Flush that has
// not started yet, FlushKey waits for it to finish. It reports whether a
// pending task was run.
func (g *Group) FlushKey(key string) bool {
	g.mu.Lock()
	if t, ok := g.pending[key]; ok {
		st := g.take(key, t)
		g.mu.Unlock()
		g.run(key, st, t.fn)
		return true
	}
	st, busy := g.running[key]
	if busy {
		st.refs++
	}
	g.mu.Unlock()

	if busy {
		// Wait for the in-flight task.
		st.mu.Lock()
		st.mu.Unlock()
		g.release(key, st)
	}
	return false
}

// Flush runs every pending task now and waits until all tasks, including
// ones already in flight, have finished.
func (g *Group) Flush() {
	type claimed struct {
		key string
		st  *keyState
		fn  func()
	}

	g.mu.Lock()
	batch := make([]claimed, 0, len(g.pending))
	for key, t := range g.pending {
		batch = append(batch, claimed{key: key, st: g.take(key, t), fn: t.fn})
	}
	g.mu.Unlock()

	for _, c := range batch {
		go g.run(c.key, c.st, c.fn)
	}
	g.wg.Wait()
}

// Stop drops every pending task, waits for running ones, and refuses
// further tasks. Call Flush first to keep pending work.
func (g *Group) Stop() {
	g.mu.Lock()
	g.stopped = true
	for _, t := range g.pending {
		t.timer.Stop()
	}
	clear(g.pending)
	g.mu.Unlock()
	g.wg.Wait()
}
