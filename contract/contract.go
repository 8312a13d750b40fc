//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"estate-match/domain/event"
)

// EventSink is one subscriber connection of the broadcast gateway.
type EventSink interface {
	Consume(ctx context.Context, b event.Broadcast) error
}

// IRegistry tracks which sinks listen on which topic.
// A subscriber may hold several topics (its notifications and open conversations).
type IRegistry interface {
	GetSinksForTopic(topic string) []EventSink
	Subscribe(subscriberID, topic string, sink EventSink)
	Unsubscribe(subscriberID, topic string)
}

// IPublisher delivers broadcasts at most once, best effort.
type IPublisher interface {
	Publish(ctx context.Context, b event.Broadcast) error
}
