package server

import (
	"context"
	"errors"
)

// Group starts and stops listeners together.
type Group struct {
	listeners []*Listener
}

// NewGroup creates a group of listeners.
func NewGroup(listeners ...*Listener) *Group {
	return &Group{listeners: listeners}
}

// Listeners returns the listeners of the group.
func (g *Group) Listeners() []*Listener {
	return g.listeners
}

// Start starts every listener. When one fails the ones already started
// are stopped again.
func (g *Group) Start(ctx context.Context) error {
	for i, l := range g.listeners {
		if err := l.Start(ctx); err != nil {
			for _, started := range g.listeners[:i] {
				_ = started.Stop(ctx)
			}
			return err
		}
	}
	return nil
}

// Stop stops the listeners in reverse start order and returns every
// failure.
func (g *Group) Stop(ctx context.Context) error {
	var errs []error
	for i := len(g.listeners) - 1; i >= 0; i-- {
		if err := g.listeners[i].Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
