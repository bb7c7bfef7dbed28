package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"transcribeAnything/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// subscriber is one open /ws connection. Only its writeLoop writes to conn.
type subscriber struct {
	conn *websocket.Conn
	send chan models.SubmissionEvent
}

// Events pushes submission outcomes to every open /ws connection.
type Events struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	upgrader websocket.Upgrader
}

func NewEvents(logger *slog.Logger) *Events {
	return &Events{
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (e *Events) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := e.add(conn)
	go e.writeLoop(s)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	e.drop(s)
}

func (e *Events) add(conn *websocket.Conn) *subscriber {
	s := &subscriber{conn: conn, send: make(chan models.SubmissionEvent, sendBuffer)}
	e.mu.Lock()
	e.subs[s] = struct{}{}
	e.mu.Unlock()
	return s
}

func (e *Events) writeLoop(s *subscriber) {
	for evt := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteJSON(evt); err != nil {
			// Unblocks the read loop in ServeWS, which drops s.
			_ = s.conn.Close()
			return
		}
	}
}

// Notify implements transcribe.Notifier. It never blocks on a client;
// one whose buffer is full is disconnected.
func (e *Events) Notify(evt models.SubmissionEvent) {
	var slow []*subscriber

	e.mu.Lock()
	for s := range e.subs {
		select {
		case s.send <- evt:
		default:
			slow = append(slow, s)
		}
	}
	e.mu.Unlock()

	for _, s := range slow {
		e.logger.Warn("dropping slow websocket client", "remote", s.conn.RemoteAddr().String())
		e.drop(s)
	}
}

// Subscribers reports how many connections are open.
func (e *Events) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (e *Events) drop(s *subscriber) {
	e.mu.Lock()
	_, ok := e.subs[s]
	if ok {
		delete(e.subs, s)
		close(s.send)
	}
	e.mu.Unlock()
	if ok {
		_ = s.conn.Close()
	}
}
