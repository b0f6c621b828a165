// File: actor/mailbox.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package actor

import (
	"github.com/eapache/queue"

	"github.com/momentics/actorws/api"
)

// mailbox is a FIFO message queue, unbounded until the configured limit.
// It is not internally synchronized; the owning proc's lock guards it.
type mailbox struct {
	q     *queue.Queue
	limit int
}

func newMailbox(limit int) *mailbox {
	return &mailbox{q: queue.New(), limit: limit}
}

func (m *mailbox) enqueue(msg Message) error {
	if m.limit > 0 && m.q.Length() >= m.limit {
		return &api.CapacityError{Kind: "mailbox", Limit: m.limit}
	}
	m.q.Add(msg)
	return nil
}

func (m *mailbox) dequeue() (Message, bool) {
	if m.q.Length() == 0 {
		return nil, false
	}
	return m.q.Remove(), true
}

func (m *mailbox) len() int { return m.q.Length() }

// drop discards all pending messages on teardown.
func (m *mailbox) drop() {
	for m.q.Length() > 0 {
		m.q.Remove()
	}
}
