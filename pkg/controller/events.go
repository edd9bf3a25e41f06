package controller

import (
	"context"

	"github.com/satmesh-network/satmesh/pkg/store"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// logEvent appends an event to the store and the bounded in-memory ring.
func (c *Controller) logEvent(ctx context.Context, text string) {
	ev := store.Event{Timestamp: c.now(), Text: text}

	c.eventsMu.Lock()
	c.events = append(c.events, ev)
	if len(c.events) > MaxEventsInMemory {
		c.events = c.events[len(c.events)-MaxEventsInMemory:]
	}
	c.eventsMu.Unlock()

	if err := c.st.AppendEvent(ctx, ev); err != nil {
		util.WithOperation("event").Warnf("persisting event: %v", err)
	}
	util.WithOperation("event").Info(text)
}

// RecentEvents returns the newest in-memory events, newest first.
func (c *Controller) RecentEvents(limit int) []store.Event {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	if limit <= 0 || limit > len(c.events) {
		limit = len(c.events)
	}
	out := make([]store.Event, 0, limit)
	for i := len(c.events) - 1; i >= len(c.events)-limit; i-- {
		out = append(out, c.events[i])
	}
	return out
}
