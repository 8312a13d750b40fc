package sink

import (
	"context"
	"encoding/json"
	"estate-match/domain/event"
	"sync"

	"github.com/gorilla/websocket"
)

// WebsocketSink writes broadcasts as JSON text frames on one client connection.
// A connection may be shared by several topics, so writes are serialized.
type WebsocketSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebsocketSink(conn *websocket.Conn) *WebsocketSink {
	return &WebsocketSink{conn: conn}
}

// Consume honours the context deadline as the frame write deadline.
func (s *WebsocketSink) Consume(ctx context.Context, b event.Broadcast) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err = ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err = s.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
