package marketdata

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// ServeWS upgrades an already-authenticated admin request to a websocket
// and streams cache updates until the client disconnects. Client-facing
// pricing never uses this path; it stays poll/pull (spec.md Non-goals).
func (s *Service) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("marketdata: ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id := r.RemoteAddr
	s.AddSubscriber(id)
	defer s.RemoveSubscriber(id)

	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	for evt := range ch {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(evt); err != nil {
			return
		}
	}
}
