package tui

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hacobotdev/kart/internal/server"
)

// Conn wraps the websocket link to the server: outbound sends are
// serialized, inbound messages arrive on a channel the bubbletea
// program drains one command at a time.
type Conn struct {
	ws       *websocket.Conn
	mu       sync.Mutex
	incoming chan server.Message
	closed   chan struct{}
	once     sync.Once
}

// Dial connects to a kart server at host:port.
func Dial(addr string) (*Conn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	c := &Conn{
		ws:       ws,
		incoming: make(chan server.Message, 64),
		closed:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Send marshals and writes one protocol message.
func (c *Conn) Send(t server.MessageType, data any) error {
	msg, err := server.NewMessage(t, data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(msg)
}

// Close tears the link down; the read loop exits and the incoming
// channel drains.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

func (c *Conn) readLoop() {
	defer close(c.incoming)
	for {
		var msg server.Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case c.incoming <- msg:
		case <-c.closed:
			return
		}
	}
}
