// Package server fans live-search events out to local websocket subscribers,
// so a dashboard can watch a polling query without re-running the CLI.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EventServer owns the listener and the subscriber hub.
type EventServer struct {
	hub *hub
	srv *http.Server
	log *slog.Logger
}

func NewEventServer(port int, logger *slog.Logger) *EventServer {
	h := newHub(logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	s := &EventServer{
		hub: h,
		srv: &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", port), Handler: mux},
		log: logger,
	}
	go h.run()
	return s
}

// Start begins accepting subscribers; it returns once the listener is bound.
func (s *EventServer) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("event server listen: %w", err)
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			if s.log != nil {
				s.log.Error("event server", slog.String("err", err.Error()))
			}
		}
	}()
	if s.log != nil {
		s.log.Info("event server listening", slog.String("addr", s.srv.Addr))
	}
	return nil
}

// Broadcast pushes one typed event to every subscriber.
func (s *EventServer) Broadcast(eventType string, data any) {
	b, err := json.Marshal(event{Type: eventType, Data: data})
	if err != nil {
		return
	}
	s.hub.broadcast <- b
}

// Close shuts the listener down and drops subscribers.
func (s *EventServer) Close() error {
	return s.srv.Close()
}

type hub struct {
	subscribers map[*subscriber]bool
	subscribe   chan *subscriber
	unsubscribe chan *subscriber
	broadcast   chan []byte
	log         *slog.Logger
}

type subscriber struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		subscribers: map[*subscriber]bool{},
		subscribe:   make(chan *subscriber),
		unsubscribe: make(chan *subscriber),
		broadcast:   make(chan []byte, 1024),
		log:         logger,
	}
}

func (h *hub) run() {
	for {
		select {
		case sub := <-h.subscribe:
			h.subscribers[sub] = true
		case sub := <-h.unsubscribe:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.send)
			}
		case msg := <-h.broadcast:
			for sub := range h.subscribers {
				select {
				case sub.send <- msg:
				default:
					close(sub.send)
					delete(h.subscribers, sub)
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   4096,
	WriteBufferSize:  4096,
	CheckOrigin:      func(r *http.Request) bool { return true }, // local-only listener
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.log != nil {
			h.log.Error("ws upgrade", slog.String("err", err.Error()))
		}
		return
	}
	sub := &subscriber{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.subscribe <- sub
	go sub.writePump()
	go sub.readPump()
}

func (s *subscriber) readPump() {
	defer func() {
		s.hub.unsubscribe <- s
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(4096)
	_ = s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(25 * time.Second)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}
