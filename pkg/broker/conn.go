package broker

import (
	"errors"
	"net"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/protocol"
)

// Fatal per-connection errors.
var (
	// ErrClientSentEvent reports a protocol violation: Event frames are
	// server-originated only.
	ErrClientSentEvent = errors.New("client sent an event frame")

	// ErrQueueOverflow reports a subscriber whose write queue exceeded the
	// configured depth.
	ErrQueueOverflow = errors.New("write queue overflow")
)

type actionKind int

const (
	actionSubscribe actionKind = iota
	actionUnsubscribe
	actionPublish
	actionDisconnect
)

// action is one decoded client operation, routed to the dispatcher.
type action struct {
	conn    *connection
	kind    actionKind
	topic   string
	payload []byte
	err     error
}

type readState int

const (
	awaitingHeader readState = iota
	awaitingPayload
)

// connection holds the per-socket state: the read buffer and decode state
// machine on the inbound side, the bounded FIFO of pending event ids on the
// outbound side.
type connection struct {
	id     ConnectionID
	sock   net.Conn
	queue  chan EventID
	logger zerolog.Logger

	// Read state machine, touched only by readLoop.
	buf      []byte
	buffered int
	state    readState
	header   protocol.Header
	expected int

	writeFailed atomic.Bool
}

func newConnection(id ConnectionID, sock net.Conn, queueDepth int) *connection {
	return &connection{
		id:    id,
		sock:  sock,
		queue: make(chan EventID, queueDepth),
		logger: log.WithConn(uint64(id), sock.RemoteAddr().String()).With().
			Str("trace_id", uuid.NewString()).
			Logger(),
		// Sized so a maximum frame always fits after compaction.
		buf:   make([]byte, protocol.MaxFrameSize),
		state: awaitingHeader,
	}
}

// readLoop reads from the socket and feeds decoded actions to the
// dispatcher. It exits by emitting a disconnect action: on read failure,
// peer close, or a fatal decode error.
func (c *connection) readLoop(actions chan<- action) {
	for {
		n, err := c.sock.Read(c.buf[c.buffered:])
		if n > 0 {
			c.buffered += n
			metrics.BytesRead.Add(float64(n))
			if fatal := c.decode(actions); fatal != nil {
				actions <- action{conn: c, kind: actionDisconnect, err: fatal}
				return
			}
		}
		if err != nil {
			actions <- action{conn: c, kind: actionDisconnect, err: err}
			return
		}
	}
}

// decode consumes as many complete frames as the buffer holds, emitting one
// action per frame. A single read delivering several frames produces several
// actions; a read delivering part of a frame leaves the state machine parked
// until more bytes arrive. The returned error, if any, is fatal for the
// connection.
func (c *connection) decode(actions chan<- action) error {
	for {
		switch c.state {
		case awaitingHeader:
			hdr, headerSize, payloadSize, err := protocol.Parse(c.buf[:c.buffered])
			if errors.Is(err, protocol.ErrIncomplete) {
				return nil
			}
			if err != nil {
				return err
			}
			if hdr.Type == protocol.Event {
				return ErrClientSentEvent
			}

			c.compact(headerSize)
			if !hdr.Type.ExpectsPayload() {
				kind := actionSubscribe
				if hdr.Type == protocol.Unsubscribe {
					kind = actionUnsubscribe
				}
				actions <- action{conn: c, kind: kind, topic: hdr.EventName}
				continue
			}
			c.state = awaitingPayload
			c.header = hdr
			c.expected = payloadSize

		case awaitingPayload:
			if c.buffered < c.expected {
				return nil
			}
			payload := make([]byte, c.expected)
			copy(payload, c.buf[:c.expected])
			c.compact(c.expected)
			c.state = awaitingHeader
			actions <- action{
				conn:    c,
				kind:    actionPublish,
				topic:   c.header.EventName,
				payload: payload,
			}
		}
	}
}

// compact shifts the unread tail to the front of the buffer so a full
// maximum-size frame always fits behind it.
func (c *connection) compact(n int) {
	copy(c.buf, c.buf[n:c.buffered])
	c.buffered -= n
}

// writeLoop drains the connection's queue of pending event ids, writing each
// encoded frame to the socket and releasing its recipient slot. After a
// write failure it stops writing but keeps releasing, so refcounts stay
// accurate until the dispatcher closes the queue.
func (c *connection) writeLoop(actions chan<- action, pending *PendingEvents) {
	for id := range c.queue {
		data, ok := pending.Get(id)
		if ok && !c.writeFailed.Load() {
			n, err := c.sock.Write(data)
			if n > 0 {
				metrics.BytesWritten.Add(float64(n))
			}
			if err != nil {
				c.writeFailed.Store(true)
				actions <- action{conn: c, kind: actionDisconnect, err: err}
			} else {
				metrics.EventsDelivered.Inc()
			}
		}
		pending.Release(id)
	}
}
