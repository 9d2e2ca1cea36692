package broadcast

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWS bridges one websocket connection onto the hub. It blocks
// until the client disconnects, so it is meant to be wrapped with
// websocket.New and registered as a Fiber route.
func (h *Hub) ServeWS(conn *websocket.Conn) {
	events, cancel := h.Subscribe()
	defer cancel()

	// Drain reads so close frames are processed; the server never
	// expects client messages on this channel.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
