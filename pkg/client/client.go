package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/protocol"
)

// ErrUnexpectedFrame reports a non-Event frame from the server. The server
// only ever originates Event frames; anything else means the peer is not a
// Burrow broker.
var ErrUnexpectedFrame = errors.New("unexpected frame type from server")

// Client is a Burrow client connection. It is not safe for concurrent use;
// callers that publish and receive from different goroutines should use two
// clients.
type Client struct {
	conn   net.Conn
	logger zerolog.Logger

	// Receive buffer and decode cursor.
	buf      []byte
	buffered int
}

// Dial connects to a Burrow broker at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker at %s: %w", addr, err)
	}

	c := &Client{
		conn:   conn,
		logger: log.WithComponent("client"),
		buf:    make([]byte, protocol.MaxFrameSize),
	}
	c.logger.Debug().Str("addr", addr).Msg("Connected to broker")
	return c, nil
}

// Close closes the connection to the broker.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Subscribe registers this connection for the named topic. Subscribing
// twice is idempotent.
func (c *Client) Subscribe(topic string) error {
	return c.send(protocol.Subscribe, topic, nil)
}

// Unsubscribe removes this connection from the named topic. Removing a
// subscription that does not exist is a no-op on the broker.
func (c *Client) Unsubscribe(topic string) error {
	return c.send(protocol.Unsubscribe, topic, nil)
}

// Publish sends payload to every current subscriber of the named topic.
func (c *Client) Publish(topic string, payload []byte) error {
	if payload == nil {
		payload = []byte{}
	}
	return c.send(protocol.Publish, topic, payload)
}

func (c *Client) send(msgType protocol.MessageType, topic string, payload []byte) error {
	msg, err := protocol.NewMessage(msgType, topic, payload)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(msg.Encode()); err != nil {
		return fmt.Errorf("failed to send %s frame: %w", msgType, err)
	}
	return nil
}

// Receive blocks until the next Event frame arrives, the context is
// cancelled, or the connection fails.
func (c *Client) Receive(ctx context.Context) (protocol.Message, error) {
	// Clear any deadline a previously cancelled Receive left behind.
	_ = c.conn.SetReadDeadline(time.Time{})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			// Unblock the pending read.
			_ = c.conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	for {
		hdr, headerSize, payloadSize, err := protocol.Parse(c.buf[:c.buffered])
		if err == nil && c.buffered >= headerSize+payloadSize {
			if hdr.Type != protocol.Event {
				return protocol.Message{}, fmt.Errorf("%w: %s", ErrUnexpectedFrame, hdr.Type)
			}

			payload := make([]byte, payloadSize)
			copy(payload, c.buf[headerSize:headerSize+payloadSize])
			copy(c.buf, c.buf[headerSize+payloadSize:c.buffered])
			c.buffered -= headerSize + payloadSize

			msg, err := protocol.NewMessage(hdr.Type, hdr.EventName, payload)
			if err != nil {
				return protocol.Message{}, err
			}
			return msg, nil
		}
		if err != nil && !errors.Is(err, protocol.ErrIncomplete) {
			return protocol.Message{}, err
		}

		n, err := c.conn.Read(c.buf[c.buffered:])
		if n > 0 {
			c.buffered += n
		}
		if err != nil {
			if ctx.Err() != nil {
				_ = c.conn.SetReadDeadline(time.Time{})
				return protocol.Message{}, ctx.Err()
			}
			return protocol.Message{}, fmt.Errorf("failed to read from broker: %w", err)
		}
	}
}
