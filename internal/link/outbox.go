package link

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Publication is the latest payload waiting for a TX channel. A newer
// Publish for the same channel replaces it.
type Publication struct {
	Channel       string    `json:"channel"`
	Payload       []byte    `json:"payload"`
	Attempts      int       `json:"attempts"`
	QueuedAt      time.Time `json:"queued_at"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitzero"`

	seq uint64
}

// Outbox holds unsent publications keyed by channel name.
type Outbox struct {
	mu    sync.Mutex
	seq   uint64
	items map[string]Publication
}

func NewOutbox() *Outbox {
	return &Outbox{items: make(map[string]Publication)}
}

// Put stores payload as the pending value for channel.
func (o *Outbox) Put(channel string, payload []byte, at time.Time) {
	key := strings.TrimSpace(channel)
	if key == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seq++
	o.items[key] = Publication{
		Channel:  key,
		Payload:  slices.Clone(payload),
		QueuedAt: at,
		seq:      o.seq,
	}
}

// MarkAttempt records a failed send. It reports false if the entry is gone.
func (o *Outbox) MarkAttempt(channel string, at time.Time) (Publication, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[channel]
	if !ok {
		return Publication{}, false
	}
	item.Attempts++
	item.LastAttemptAt = at
	o.items[channel] = item
	return item, true
}

// Ack removes channel's entry if it still holds the publication that was
// sent; a newer Put in between is kept.
func (o *Outbox) Ack(sent Publication) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cur, ok := o.items[sent.Channel]; ok && cur.seq == sent.seq {
		delete(o.items, sent.Channel)
	}
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// List returns pending publications ordered by channel name.
func (o *Outbox) List() []Publication {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Publication, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b Publication) int {
		return strings.Compare(a.Channel, b.Channel)
	})
	return out
}
