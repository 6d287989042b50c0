package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"levelsense/internal/level"
)

const streamWriteDeadline = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 2048,
	// The daemon serves a LAN-local UI; there is nothing to protect by
	// origin since the API is unauthenticated anyway.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamHandler pushes every broadcast frame to the client as JSON. A
// client that cannot drain 100 Hz loses frames at the subscription
// buffer first and its connection at the write deadline second; the
// pipeline never waits for it.
func streamHandler(bc *level.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: stream upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		id, frames := bc.Subscribe(16)
		defer bc.Unsubscribe(id)

		// Reads are only for noticing the peer going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case snap, ok := <-frames:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteDeadline))
				if err := conn.WriteJSON(snap); err != nil {
					return
				}
			}
		}
	}
}
