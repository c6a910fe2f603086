package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
)

// writeWait bounds how long a single client may hold up a broadcast.
var writeWait = 5 * time.Second

type LogMessage struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// LogHub streams log messages to every connected websocket client.
type LogHub struct {
	lock     sync.Mutex
	conns    []*websocket.Conn
	upgrader websocket.Upgrader
}

func NewLogHub() *LogHub {
	return &LogHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1")
			},
		},
	}
}

// Wrap returns a log callback that broadcasts every message before passing it on to next.
func (h *LogHub) Wrap(next api.LogCallback) api.LogCallback {
	return func(level api.LogLevel, msg string, args ...interface{}) {
		h.Broadcast(LogMessage{
			Level:   level.String(),
			Message: fmt.Sprintf(msg, args...),
			Time:    time.Now(),
		})

		if next != nil {
			next(level, msg, args...)
		}
	}
}

func (h *LogHub) Broadcast(msg LogMessage) {
	h.lock.Lock()
	defer h.lock.Unlock()

	alive := h.conns[:0]
	for _, conn := range h.conns {
		err := conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err == nil {
			err = conn.WriteJSON(msg)
		}
		if err != nil {
			conn.Close()
			continue
		}
		alive = append(alive, conn)
	}
	h.conns = alive
}

func (h *LogHub) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		// Upgrade already wrote an error response.
		return
	}

	h.lock.Lock()
	h.conns = append(h.conns, conn)
	h.lock.Unlock()

	go h.watch(conn)
}

// watch drains the connection until the client goes away.
func (h *LogHub) watch(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	conn.Close()

	h.lock.Lock()
	defer h.lock.Unlock()
	for idx, c := range h.conns {
		if c == conn {
			h.conns = append(h.conns[:idx], h.conns[idx+1:]...)
			break
		}
	}
}

func (h *LogHub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.conns)
}
