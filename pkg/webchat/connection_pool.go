package webchat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type poolClient struct {
	conn wsConn
	send chan []byte
}

// ConnectionPool manages the websocket connections watching the session. Each connection
// has its own writer goroutine and bounded buffer; a connection that falls behind or fails a
// write is dropped instead of stalling the others.
type ConnectionPool struct {
	mu           sync.Mutex
	clients      map[wsConn]*poolClient
	sendBuffer   int
	writeTimeout time.Duration
	log          zerolog.Logger
}

func NewConnectionPool(logger zerolog.Logger) *ConnectionPool {
	return &ConnectionPool{
		clients:      map[wsConn]*poolClient{},
		sendBuffer:   32,
		writeTimeout: 5 * time.Second,
		log:          logger.With().Str("component", "webchat").Logger(),
	}
}

func (cp *ConnectionPool) Add(conn wsConn) {
	if cp == nil || conn == nil {
		return
	}
	c := &poolClient{conn: conn, send: make(chan []byte, cp.sendBuffer)}
	cp.mu.Lock()
	cp.clients[conn] = c
	cp.mu.Unlock()
	go cp.writeLoop(c)
}

func (cp *ConnectionPool) Remove(conn wsConn) {
	if cp == nil || conn == nil {
		return
	}
	cp.mu.Lock()
	cp.dropLocked(conn)
	cp.mu.Unlock()
}

func (cp *ConnectionPool) Broadcast(data []byte) {
	if cp == nil || len(data) == 0 {
		return
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	for conn, c := range cp.clients {
		select {
		case c.send <- data:
		default:
			cp.log.Warn().Msg("ws send buffer full, dropping connection")
			cp.dropLocked(conn)
		}
	}
}

func (cp *ConnectionPool) SendToOne(conn wsConn, data []byte) {
	if cp == nil || conn == nil || len(data) == 0 {
		return
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	c, ok := cp.clients[conn]
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		cp.log.Warn().Msg("ws send buffer full, dropping connection")
		cp.dropLocked(conn)
	}
}

func (cp *ConnectionPool) Count() int {
	if cp == nil {
		return 0
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.clients)
}

func (cp *ConnectionPool) CloseAll() {
	if cp == nil {
		return
	}
	cp.mu.Lock()
	for conn := range cp.clients {
		cp.dropLocked(conn)
	}
	cp.mu.Unlock()
}

func (cp *ConnectionPool) writeLoop(c *poolClient) {
	for data := range c.send {
		if cp.writeTimeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(cp.writeTimeout))
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			cp.log.Warn().Err(err).Msg("ws write failed, dropping connection")
			cp.Remove(c.conn)
			return
		}
	}
}

// dropLocked forgets conn, stops its writer and closes it. Closing the connection also
// unblocks a writer stuck in WriteMessage.
func (cp *ConnectionPool) dropLocked(conn wsConn) {
	c, ok := cp.clients[conn]
	if !ok {
		return
	}
	delete(cp.clients, conn)
	close(c.send)
	_ = conn.Close()
}
