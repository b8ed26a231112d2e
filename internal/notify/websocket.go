package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jmvega/xlsx-loader/internal/domain"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API already sits behind CORS; the socket accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsListener adapts one websocket connection to the Listener interface.
type wsListener struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *wsListener) Send(event domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return l.conn.WriteJSON(event)
}

// WebsocketHandler upgrades incoming connections and keeps them subscribed to
// the hub until the peer goes away.
func WebsocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Debug("websocket upgrade failed", "error", err)
			return
		}

		listener := &wsListener{conn: conn}
		hub.Subscribe(listener)

		// Read loop exists only to observe the close; clients never send.
		go func() {
			defer func() {
				hub.Unsubscribe(listener)
				_ = conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
