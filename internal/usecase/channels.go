package usecase

import (
	"sort"
	"time"

	"PumpRadar/internal/domain/models"
)

// Sink delivers events to one push connection. Send must not block; a full
// queue is reported as ErrSlowConsumer.
type Sink interface {
	Send(ev models.PushEvent) error
	Close() error
}

type ChannelState string

const (
	ChannelOpen    ChannelState = "open"
	ChannelClosing ChannelState = "closing"
	ChannelClosed  ChannelState = "closed"
)

type channel struct {
	id              string
	sink            Sink
	state           ChannelState
	connectedAt     time.Time
	lastHeartbeatAt time.Time
}

// ChannelInfo is a read-only view of a registered channel.
type ChannelInfo struct {
	ID              string       `json:"id"`
	State           ChannelState `json:"state"`
	ConnectedAt     time.Time    `json:"connectedAt"`
	LastHeartbeatAt time.Time    `json:"lastHeartbeatAt"`
}

// channelRegistry is owned by the snapshot actor goroutine.
type channelRegistry struct {
	chans map[string]*channel
}

func newChannelRegistry() *channelRegistry {
	return &channelRegistry{chans: make(map[string]*channel)}
}

func (r *channelRegistry) add(id string, sink Sink, now time.Time) *channel {
	c := &channel{id: id, sink: sink, state: ChannelOpen, connectedAt: now, lastHeartbeatAt: now}
	r.chans[id] = c
	return c
}

// remove closes the sink and releases the registry slot.
func (r *channelRegistry) remove(id string) bool {
	c, ok := r.chans[id]
	if !ok {
		return false
	}
	c.state = ChannelClosing
	_ = c.sink.Close()
	c.state = ChannelClosed
	delete(r.chans, id)
	return true
}

func (r *channelRegistry) ack(id string, now time.Time) bool {
	c, ok := r.chans[id]
	if !ok {
		return false
	}
	c.lastHeartbeatAt = now
	return true
}

// broadcast sends ev to every open channel, then removes the ones that failed.
func (r *channelRegistry) broadcast(ev models.PushEvent) (sent int, failed []string) {
	for _, id := range r.ids() {
		c := r.chans[id]
		if c.state != ChannelOpen {
			continue
		}
		if err := c.sink.Send(ev); err != nil {
			failed = append(failed, id)
			continue
		}
		sent++
	}
	for _, id := range failed {
		r.remove(id)
	}
	return sent, failed
}

// stale returns channels whose last acknowledgement is older than cutoff.
func (r *channelRegistry) stale(cutoff time.Time) []string {
	var out []string
	for _, id := range r.ids() {
		if r.chans[id].lastHeartbeatAt.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

func (r *channelRegistry) closeAll() {
	for _, id := range r.ids() {
		r.remove(id)
	}
}

func (r *channelRegistry) len() int { return len(r.chans) }

func (r *channelRegistry) info() []ChannelInfo {
	out := make([]ChannelInfo, 0, len(r.chans))
	for _, id := range r.ids() {
		c := r.chans[id]
		out = append(out, ChannelInfo{ID: c.id, State: c.state, ConnectedAt: c.connectedAt, LastHeartbeatAt: c.lastHeartbeatAt})
	}
	return out
}

func (r *channelRegistry) ids() []string {
	ids := make([]string, 0, len(r.chans))
	for id := range r.chans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
