package models

import "time"

type EventType string

const (
	EventHello     EventType = "hello"
	EventState     EventType = "state"
	EventKeepalive EventType = "keepalive"
)

// PushEvent is a message sent on a push channel.
type PushEvent struct {
	Type      EventType `json:"type"`
	Seq       uint64    `json:"seq,omitempty"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
