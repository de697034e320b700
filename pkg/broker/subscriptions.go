package broker

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// ConnectionID identifies a live connection. Ids are stable for the life of
// the connection and never reused while it is registered, so they are safe
// map keys independent of the connection object.
type ConnectionID uint64

// Subscriptions maps topic names to the set of subscribed connections.
// A topic with no subscribers is removed from the map. The structure is
// confined to the dispatcher goroutine and needs no locking.
type Subscriptions struct {
	topics map[string]mapset.Set[ConnectionID]
}

// NewSubscriptions creates an empty subscription map.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{
		topics: make(map[string]mapset.Set[ConnectionID]),
	}
}

// Add subscribes id to topic, creating the topic entry if needed. It reports
// whether the subscription is new; duplicate subscribes are idempotent.
func (s *Subscriptions) Add(topic string, id ConnectionID) bool {
	set, ok := s.topics[topic]
	if !ok {
		set = mapset.NewThreadUnsafeSet[ConnectionID]()
		s.topics[topic] = set
	}
	return set.Add(id)
}

// Remove unsubscribes id from topic, deleting the topic entry when its
// subscriber set empties. Removing a non-subscription is a no-op; Remove
// reports whether a subscription was actually removed.
func (s *Subscriptions) Remove(topic string, id ConnectionID) bool {
	set, ok := s.topics[topic]
	if !ok || !set.Contains(id) {
		return false
	}
	set.Remove(id)
	if set.Cardinality() == 0 {
		delete(s.topics, topic)
	}
	return true
}

// RemoveConnection drops id from every topic it subscribes to, evicting
// topics that empty out. It returns the number of subscriptions removed.
func (s *Subscriptions) RemoveConnection(id ConnectionID) int {
	removed := 0
	for topic, set := range s.topics {
		if set.Contains(id) {
			set.Remove(id)
			removed++
			if set.Cardinality() == 0 {
				delete(s.topics, topic)
			}
		}
	}
	return removed
}

// Subscribers returns a snapshot of the connections subscribed to topic.
func (s *Subscriptions) Subscribers(topic string) []ConnectionID {
	set, ok := s.topics[topic]
	if !ok {
		return nil
	}
	return set.ToSlice()
}

// Contains reports whether id subscribes to topic.
func (s *Subscriptions) Contains(topic string, id ConnectionID) bool {
	set, ok := s.topics[topic]
	return ok && set.Contains(id)
}

// TopicCount returns the number of topics with at least one subscriber.
func (s *Subscriptions) TopicCount() int {
	return len(s.topics)
}
