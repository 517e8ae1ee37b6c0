package models

import (
	"context"
	"sync"
)

// Watchable is the read side of a Cell
type Watchable[T any] interface {
	Get() T
	Subscribe(ctx context.Context) <-chan T
}

// Cell is a single-writer, multi-reader observable value. Subscribers always see the
// most recent value; intermediate values may be skipped when they fall behind.
type Cell[T any] struct {
	mutex sync.Mutex
	value T
	subs  map[int]chan T
	next  int
}

func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial, subs: map[int]chan T{}}
}

func (c *Cell[T]) Get() T {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.value
}

func (c *Cell[T]) Set(v T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.value = v
	c.notify()
}

// Update applies fn to the current value atomically and returns the new value
func (c *Cell[T]) Update(fn func(T) T) T {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.value = fn(c.value)
	c.notify()
	return c.value
}

// Subscribe delivers the current value and every later one until ctx is done,
// at which point the channel is closed.
func (c *Cell[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	c.mutex.Lock()
	id := c.next
	c.next++
	c.subs[id] = ch
	ch <- c.value
	c.mutex.Unlock()
	go func() {
		<-ctx.Done()
		c.mutex.Lock()
		delete(c.subs, id)
		close(ch)
		c.mutex.Unlock()
	}()
	return ch
}

// notify must be called with the mutex held; it is the only sender on subscriber channels.
func (c *Cell[T]) notify() {
	for _, ch := range c.subs {
		select {
		case ch <- c.value:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- c.value
		}
	}
}
