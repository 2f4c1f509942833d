package cache

import (
	"runtime"
	"sync"
)

// tickServer drives a set of tickClients in lockstep so interleavings of
// cache operations can be tested deterministically. Every client must call
// wait() once per tick; the server advances the tick only when all of them
// have.
type tickServer[T any] struct {
	entries      map[string]tickEntry[T]
	entriesMutex sync.Mutex

	tickMutex       sync.Mutex
	currentTick     int
	maxTicks        int
	numClients      int
	waitingThisTick int
}

type tickEntry[T any] struct {
	data  T
	valid bool
}

type tickClient[T any] struct {
	server      *tickServer[T]
	desiredTick int
}

func (c *tickClient[T]) getOrClaim(key string) hitResult[T] {
	c.server.entriesMutex.Lock()
	defer c.server.entriesMutex.Unlock()

	entry, ok := c.server.entries[key]
	if !ok {
		c.server.entries[key] = tickEntry[T]{valid: false}
		return hitResult[T]{claimed: true}
	}

	return hitResult[T]{
		data:  entry.data,
		valid: entry.valid,
	}
}

func (c *tickClient[T]) set(key string, data T) {
	c.server.entriesMutex.Lock()
	defer c.server.entriesMutex.Unlock()

	c.server.entries[key] = tickEntry[T]{data: data, valid: true}
}

func (c *tickClient[T]) delete(key string) {
	c.server.entriesMutex.Lock()
	defer c.server.entriesMutex.Unlock()

	delete(c.server.entries, key)
}

func (c *tickClient[T]) wait() {
	if c.server.isDone() {
		panic("wait() called on a client that is already done")
	}

	c.server.tickMutex.Lock()
	c.server.waitingThisTick++
	c.server.tickMutex.Unlock()

	c.desiredTick++

	for c.server.currentTick < c.desiredTick {
		runtime.Gosched()
	}
}

func (c *tickClient[T]) waitUntilDone() {
	for !c.server.isDone() {
		c.wait()
	}
}

func (s *tickServer[T]) isDone() bool {
	return s.currentTick >= s.maxTicks
}

func (s *tickServer[T]) run() {
	for !s.isDone() {
		if s.waitingThisTick != s.numClients {
			runtime.Gosched()
			continue
		}

		s.tickMutex.Lock()
		s.waitingThisTick = 0
		s.currentTick++
		s.tickMutex.Unlock()
	}
}

func newTickCache[T any](numClients int, maxTicks int) (*tickServer[T], []*tickClient[T]) {
	server := &tickServer[T]{
		entries:    make(map[string]tickEntry[T]),
		maxTicks:   maxTicks,
		numClients: numClients,
	}

	clients := make([]*tickClient[T], numClients)
	for i := range numClients {
		clients[i] = &tickClient[T]{server: server}
	}

	return server, clients
}
