// Package live provides a replaying publish/subscribe value holder.
//
// A Subject keeps the latest value. Every subscriber first receives that value
// and then every later Publish, in publish order, each exactly once. Delivery
// to a subscriber is buffered without bound, so Publish never blocks on a slow
// reader and no value is dropped.
package live

import (
	"context"
	"sync"
)

type Subject[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[*subscriber[T]]struct{}
	closed bool
}

type subscriber[T any] struct {
	queue  []T
	notify chan struct{}
	done   bool
}

func New[T any](initial T) *Subject[T] {
	return &Subject[T]{
		value: initial,
		subs:  make(map[*subscriber[T]]struct{}),
	}
}

// Value returns the latest published value.
func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Publish stores v and queues it for every subscriber. Publishing to a closed
// subject only updates Value.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = v
	if s.closed {
		return
	}
	for sub := range s.subs {
		sub.queue = append(sub.queue, v)
		sub.wake()
	}
}

// Subscribe returns a channel that yields the current value and then every
// subsequent one. The channel is closed when ctx is done or the subject is
// closed; after Close, values already queued are still delivered.
func (s *Subject[T]) Subscribe(ctx context.Context) <-chan T {
	out := make(chan T)
	sub := &subscriber[T]{notify: make(chan struct{}, 1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(out)
		return out
	}
	sub.queue = append(sub.queue, s.value)
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go s.pump(ctx, sub, out)
	return out
}

// Close ends all subscriptions. It is safe to call more than once.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		sub.done = true
		sub.wake()
		delete(s.subs, sub)
	}
}

// Subscribers reports the number of active subscriptions.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Subject[T]) pump(ctx context.Context, sub *subscriber[T], out chan<- T) {
	defer close(out)

	for {
		s.mu.Lock()
		if len(sub.queue) == 0 {
			done := sub.done
			s.mu.Unlock()
			if done {
				return
			}
			select {
			case <-sub.notify:
				continue
			case <-ctx.Done():
				s.unsubscribe(sub)
				return
			}
		}
		v := sub.queue[0]
		var zero T
		sub.queue[0] = zero
		sub.queue = sub.queue[1:]
		s.mu.Unlock()

		select {
		case out <- v:
		case <-ctx.Done():
			s.unsubscribe(sub)
			return
		}
	}
}

func (s *Subject[T]) unsubscribe(sub *subscriber[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
	sub.queue = nil
}

func (sub *subscriber[T]) wake() {
	select {
	case sub.notify <- struct{}{}:
	default:
	}
}

// Map subscribes to src and yields fn applied to every value, preserving
// order. The returned channel closes together with the source subscription.
func Map[A, B any](ctx context.Context, src *Subject[A], fn func(A) B) <-chan B {
	in := src.Subscribe(ctx)
	out := make(chan B)
	go func() {
		defer close(out)
		for a := range in {
			select {
			case out <- fn(a):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
