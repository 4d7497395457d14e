package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// OutboxEntry is a domain event persisted alongside the aggregate that raised
// it, kept until the message bus has accepted it.
type OutboxEntry struct {
	CreatedAt     time.Time
	PublishedAt   *time.Time
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
}

// NewOutboxEntry captures event as JSON so it can be republished verbatim.
func NewOutboxEntry(event DomainEvent) (OutboxEntry, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("marshal outbox event %s: %w", event.EventType(), err)
	}
	return OutboxEntry{
		ID:            event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		EventType:     event.EventType(),
		Payload:       payload,
		CreatedAt:     event.OccurredAt().UTC(),
	}, nil
}

// NewOutboxEntries converts every event, stopping at the first failure.
func NewOutboxEntries(evts []DomainEvent) ([]OutboxEntry, error) {
	entries := make([]OutboxEntry, 0, len(evts))
	for _, evt := range evts {
		entry, err := NewOutboxEntry(evt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Published reports whether the bus has accepted the entry.
func (e OutboxEntry) Published() bool { return e.PublishedAt != nil }

// Event returns the stored event. It marshals back to the original payload,
// so a republished message is byte-for-byte the first one.
func (e OutboxEntry) Event() DomainEvent { return storedEvent{entry: e} }

type storedEvent struct {
	entry OutboxEntry
}

func (s storedEvent) EventID() string       { return s.entry.ID }
func (s storedEvent) EventType() string     { return s.entry.EventType }
func (s storedEvent) AggregateID() string   { return s.entry.AggregateID }
func (s storedEvent) AggregateType() string { return s.entry.AggregateType }
func (s storedEvent) OccurredAt() time.Time { return s.entry.CreatedAt }

func (s storedEvent) MarshalJSON() ([]byte, error) {
	return json.RawMessage(s.entry.Payload).MarshalJSON()
}
