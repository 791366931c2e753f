package services

import (
	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
	"github.com/velikanov/hnjobs/internal/events"
)

// DiscoveryNotifier subscribes to first-sighting events and records them in
// the log. It is the single consumer side of the discovery topic; anything
// that wants to react to new postings (alerting, digests) hangs off the
// same bus.
type DiscoveryNotifier struct {
	bus EventBus.Bus
}

func NewDiscoveryNotifier(bus EventBus.Bus) (*DiscoveryNotifier, error) {
	n := &DiscoveryNotifier{bus: bus}
	if err := bus.Subscribe(events.PostingDiscoveredTopic, n.onPostingDiscovered); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *DiscoveryNotifier) Close() error {
	return n.bus.Unsubscribe(events.PostingDiscoveredTopic, n.onPostingDiscovered)
}

func (n *DiscoveryNotifier) onPostingDiscovered(event events.PostingDiscovered) {
	entry := log.WithField("hn_id", event.HnID)
	if event.Company != nil {
		entry = entry.WithField("company", *event.Company)
	}
	entry.Infof("new posting discovered: %s", event.Title)
}
