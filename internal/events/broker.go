// Package events fans newly recorded submissions out to live subscribers.
package events

import (
	"encoding/json"
	"sync"

	"github.com/tejzpr/eloy-nominator/internal/db"
)

// Broker delivers JSON-encoded submissions to every subscriber. Slow
// subscribers miss messages rather than block the publisher.
type Broker struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewBroker returns an empty Broker.
func NewBroker() *Broker {
	return &Broker{
		clients: make(map[chan string]struct{}),
	}
}

func (b *Broker) Subscribe() chan string {
	ch := make(chan string, 16)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(ch chan string) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
	close(ch)
}

// PublishSubmission broadcasts s. It matches the WithRecordedHook signature.
func (b *Broker) PublishSubmission(s db.Submission) {
	msg, err := json.Marshal(s)
	if err != nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- string(msg):
		default:
		}
	}
}
