package events

import "slices"

// EventCollector buffers the events an aggregate raises until the caller
// drains them for publication. The zero value is ready to use.
type EventCollector struct {
	pending []DomainEvent
}

// Record buffers evts in the order given.
func (c *EventCollector) Record(evts ...DomainEvent) {
	c.pending = append(c.pending, evts...)
}

// Events returns a copy of the buffered events.
func (c *EventCollector) Events() []DomainEvent {
	return slices.Clone(c.pending)
}

// ClearEvents hands over the buffered events and empties the buffer.
func (c *EventCollector) ClearEvents() []DomainEvent {
	drained := c.pending
	c.pending = nil
	return drained
}
