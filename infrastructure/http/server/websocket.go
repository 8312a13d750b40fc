package server

import (
	"estate-match/auth"
	"estate-match/domain/event"
	"estate-match/errors"
	"estate-match/sink"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// subscribe upgrades to a websocket fed with one topic. Users may listen to
// their own notifications and to conversations they take part in.
// The connection is unregistered as soon as the client goes away.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	topic := r.URL.Query().Get("topic")
	if err := s.authorizeTopic(userID, topic); err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	subscriberID := fmt.Sprintf("%s-%p", userID, conn)
	s.registry.Subscribe(subscriberID, topic, sink.NewWebsocketSink(conn))
	defer s.registry.Unsubscribe(subscriberID, topic)
	s.log.Debug("Subscriber connected", "user_id", userID, "topic", topic)

	// Inbound frames are ignored, reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.log.Debug("Subscriber disconnected", "user_id", userID, "topic", topic, "reason", err)
			return
		}
	}
}

func (s *Server) authorizeTopic(userID, topic string) error {
	switch {
	case topic == event.UserNotificationsTopic(userID):
		return nil
	case strings.HasPrefix(topic, event.ConversationTopic("")):
		_, err := s.conversation.Summary(strings.TrimPrefix(topic, event.ConversationTopic("")), userID)
		return err
	default:
		return errors.ErrForbidden
	}
}
