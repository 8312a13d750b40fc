package runtime

import (
	"estate-match/contract"
	"sync"
)

// Registry maps broadcast topics to the sinks listening on them.
// A subscriber id identifies one connection, which may follow several topics.
type Registry struct {
	mu     sync.RWMutex
	Topics map[string]map[string]contract.EventSink // topic -> subscriber -> sink
}

func NewRegistry() *Registry {
	return &Registry{Topics: make(map[string]map[string]contract.EventSink)}
}

// GetSinksForTopic returns the sinks currently subscribed to topic, nil if none.
func (r *Registry) GetSinksForTopic(topic string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscribers, ok := r.Topics[topic]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(subscribers))
	for _, sink := range subscribers {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Subscribe registers sink under topic. The topic is created on the fly.
// Subscribing twice with the same id replaces the previous sink.
func (r *Registry) Subscribe(subscriberID, topic string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Topics[topic]; !ok {
		r.Topics[topic] = make(map[string]contract.EventSink)
	}
	r.Topics[topic][subscriberID] = sink
}

// Unsubscribe removes the subscriber from topic and drops empty topics
// so the map does not grow with every conversation ever opened.
func (r *Registry) Unsubscribe(subscriberID, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subscribers, ok := r.Topics[topic]; ok {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(r.Topics, topic)
		}
	}
}
