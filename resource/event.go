// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package resource

import (
	"context"
	"fmt"

	"github.com/gviegas/glrt"
)

// EventKind is the kind of an Event.
type EventKind int

// Event kinds.
const (
	// The context was lost. Resources keep their CPU-side
	// state but their GPU objects are void.
	Lost EventKind = iota
	// The context was restored. Every resource is rebuilt.
	Restored
	// The context was destroyed. Bookkeeping is dropped.
	Destroyed
)

func (k EventKind) String() string {
	switch k {
	case Lost:
		return "lost"
	case Restored:
		return "restored"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a notification about the state of a Context.
type Event struct {
	Kind    EventKind
	Context *Context

	// Result, if not nil, receives the error returned by
	// Registry.Handle for this event.
	Result chan<- error
}

// Handle processes ev synchronously.
// For Restored events, the error is that of InvalidateAll.
func (r *Registry) Handle(ev Event) error {
	c := ev.Context
	r.check(c)
	switch ev.Kind {
	case Lost:
		c.lose()
		glrt.Logger().Info("context lost", "ctx", c.String(), "generation", c.gen)
		return nil
	case Restored:
		glrt.Logger().Info("context restored", "ctx", c.String())
		return r.InvalidateAll(c)
	case Destroyed:
		r.ClearAll(c)
		return nil
	}
	return fmt.Errorf("resource: invalid event kind %v", ev.Kind)
}

// Watch handles the events received on events until the
// channel is closed or ctx is done.
// It must be called from the rendering goroutine, so that
// rebuilds run where GPU calls are allowed.
// It returns nil when events is closed and ctx.Err()
// otherwise.
func (r *Registry) Watch(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			err := r.Handle(ev)
			if ev.Result == nil {
				continue
			}
			select {
			case ev.Result <- err:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
