// Package signaling is the client end of the registry's websocket channel.
// It decouples transport mechanics from the session loop: decoded messages
// arrive on a channel, outbound messages leave through a channel.
package signaling

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

type Client struct {
	conn     *websocket.Conn
	url      string
	header   http.Header
	incoming chan wire.Message
	outgoing chan wire.Message
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewClient(url string, header http.Header) *Client {
	return &Client{
		url:      url,
		header:   header,
		incoming: make(chan wire.Message, 32),
		outgoing: make(chan wire.Message, 32),
		done:     make(chan struct{}),
	}
}

func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, c.header)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()
	return nil
}

// Incoming delivers decoded registry events; the channel closes when the
// transport drops, which the session treats as the end of the meeting link.
func (c *Client) Incoming() <-chan wire.Message {
	return c.incoming
}

func (c *Client) Send(msg wire.Message) error {
	select {
	case c.outgoing <- msg:
		return nil
	default:
		return fmt.Errorf("signaling send buffer full")
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

func (c *Client) readPump() {
	defer func() {
		_ = c.conn.Close()
		close(c.incoming)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		var msg wire.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			log.Debug().Err(err).Str("module", "client.signaling").Msg("read pump exit")
			return
		}
		c.incoming <- msg
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("module", "client.signaling").Msg("write pump exit")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
