package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/protocol"
)

// errShutdown is the close reason for connections torn down by Stop.
var errShutdown = errors.New("broker shutting down")

// Options configures a Broker.
type Options struct {
	// ListenAddress is the TCP endpoint to bind, e.g. "127.0.0.1:9876".
	ListenAddress string

	// MaxQueueDepth bounds each connection's write queue. A subscriber that
	// falls this many events behind is disconnected. Defaults to 256.
	MaxQueueDepth int
}

// Broker routes subscribe, unsubscribe, and publish operations between
// client connections. A single dispatcher goroutine owns the subscription
// map and the connection registry and serialises every state change, so
// subscribers observe a topic's publications in the order the broker
// accepted them.
type Broker struct {
	listenAddr string
	queueDepth int

	listener   net.Listener
	conns      map[ConnectionID]*connection
	subs       *Subscriptions
	pending    *PendingEvents
	actions    chan action
	nextConnID ConnectionID
	connWG     sync.WaitGroup

	logger zerolog.Logger
}

// NewBroker creates a broker with the given options.
func NewBroker(opts Options) *Broker {
	if opts.MaxQueueDepth <= 0 {
		opts.MaxQueueDepth = 256
	}
	return &Broker{
		listenAddr: opts.ListenAddress,
		queueDepth: opts.MaxQueueDepth,
		conns:      make(map[ConnectionID]*connection),
		subs:       NewSubscriptions(),
		pending:    NewPendingEvents(),
		actions:    make(chan action, 256),
		logger:     log.WithComponent("broker"),
	}
}

// ListenAndServe binds the configured TCP endpoint and serves until ctx is
// cancelled. A bind failure is returned immediately.
func (b *Broker) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", b.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", b.listenAddr, err)
	}
	return b.Serve(ctx, listener)
}

// Serve runs the dispatcher loop on an already-bound listener until ctx is
// cancelled, then closes every connection and waits for their goroutines to
// drain.
func (b *Broker) Serve(ctx context.Context, listener net.Listener) error {
	b.listener = listener
	b.logger.Info().Str("addr", listener.Addr().String()).Msg("Listening")
	metrics.RegisterComponent("broker", true, "serving")

	accepted := make(chan net.Conn)
	acceptDone := make(chan struct{})
	go b.acceptLoop(accepted, acceptDone)

	for {
		select {
		case <-ctx.Done():
			return b.shutdown(accepted, acceptDone)
		case sock := <-accepted:
			b.register(sock)
		case a := <-b.actions:
			b.handle(a)
		}
	}
}

// acceptLoop accepts sockets until the listener closes. Transient accept
// errors are logged and retried.
func (b *Broker) acceptLoop(accepted chan<- net.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		sock, err := b.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			b.logger.Warn().Err(err).Msg("Accept failed")
			continue
		}
		accepted <- sock
	}
}

// register assigns a fresh connection id and starts the read and write
// goroutines for a newly accepted socket.
func (b *Broker) register(sock net.Conn) {
	b.nextConnID++
	c := newConnection(b.nextConnID, sock, b.queueDepth)
	b.conns[c.id] = c

	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
	c.logger.Info().Msg("Connection accepted")

	b.connWG.Add(2)
	go func() {
		defer b.connWG.Done()
		c.readLoop(b.actions)
	}()
	go func() {
		defer b.connWG.Done()
		c.writeLoop(b.actions, b.pending)
	}()
}

// handle applies one decoded client action. Actions may trail a connection
// that was already closed; those are dropped.
func (b *Broker) handle(a action) {
	if _, ok := b.conns[a.conn.id]; !ok {
		return
	}

	switch a.kind {
	case actionSubscribe:
		if b.subs.Add(a.topic, a.conn.id) {
			metrics.SubscriptionsActive.Inc()
		}
		a.conn.logger.Debug().Str("topic", a.topic).Msg("Subscribed")
	case actionUnsubscribe:
		if b.subs.Remove(a.topic, a.conn.id) {
			metrics.SubscriptionsActive.Dec()
		}
		a.conn.logger.Debug().Str("topic", a.topic).Msg("Unsubscribed")
	case actionPublish:
		b.publish(a.conn, a.topic, a.payload)
	case actionDisconnect:
		b.closeConn(a.conn, a.err)
	}

	metrics.TopicsActive.Set(float64(b.subs.TopicCount()))
}

// publish encodes one Event frame for the payload and enqueues its id on
// every current subscriber of the topic, including the publisher if it is
// subscribed. With no subscribers the payload is discarded.
func (b *Broker) publish(from *connection, topic string, payload []byte) {
	metrics.MessagesPublished.Inc()

	subscribers := b.subs.Subscribers(topic)
	if len(subscribers) == 0 {
		metrics.PublishesWithoutSubscribers.Inc()
		from.logger.Debug().Str("topic", topic).Msg("Publish with no subscribers")
		return
	}

	msg, err := protocol.NewMessage(protocol.Event, topic, payload)
	if err != nil {
		// Inbound decoding already bounded the topic and payload.
		from.logger.Error().Err(err).Str("topic", topic).Msg("Failed to build event frame")
		return
	}

	id := b.pending.Add(msg.Encode(), len(subscribers))
	metrics.FanoutRecipients.Observe(float64(len(subscribers)))
	from.logger.Debug().
		Str("topic", topic).
		Uint64("event_id", uint64(id)).
		Int("recipients", len(subscribers)).
		Msg("Event published")

	for _, subID := range subscribers {
		sub, ok := b.conns[subID]
		if !ok {
			// Registry and subscription map move together; a missing entry
			// is a recipient slot to give back.
			b.pending.Release(id)
			continue
		}
		select {
		case sub.queue <- id:
		default:
			b.pending.Release(id)
			b.closeConn(sub, ErrQueueOverflow)
		}
	}
}

// closeConn runs the close procedure for a connection: unregister, drop all
// of its subscriptions, close the socket, and close the write queue so the
// writer releases whatever is still queued. Closing an already-closed
// connection is a no-op.
func (b *Broker) closeConn(c *connection, reason error) {
	if _, ok := b.conns[c.id]; !ok {
		return
	}
	delete(b.conns, c.id)

	removed := b.subs.RemoveConnection(c.id)
	metrics.SubscriptionsActive.Sub(float64(removed))
	metrics.ConnectionsActive.Dec()
	metrics.ConnectionErrors.WithLabelValues(closeReason(reason)).Inc()

	c.sock.Close()
	close(c.queue)

	event := c.logger.Warn()
	if errors.Is(reason, io.EOF) || errors.Is(reason, errShutdown) {
		event = c.logger.Info()
	}
	event.Err(reason).Int("dropped_subscriptions", removed).Msg("Connection closed")
}

// closeReason maps a fatal connection error onto a metrics label.
func closeReason(err error) string {
	var decodeErr *protocol.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.Is(err, ErrClientSentEvent):
		return "protocol"
	case errors.Is(err, ErrQueueOverflow):
		return "overflow"
	case errors.Is(err, errShutdown):
		return "shutdown"
	default:
		return "io"
	}
}

// shutdown closes the listener and every connection, then keeps draining
// stray accepts and actions until all connection goroutines have exited.
func (b *Broker) shutdown(accepted <-chan net.Conn, acceptDone <-chan struct{}) error {
	b.logger.Info().Int("connections", len(b.conns)).Msg("Shutting down")
	metrics.UpdateComponent("broker", false, "shutting down")
	b.listener.Close()

	open := make([]*connection, 0, len(b.conns))
	for _, c := range b.conns {
		open = append(open, c)
	}
	for _, c := range open {
		b.closeConn(c, errShutdown)
	}

	finished := make(chan struct{})
	go func() {
		b.connWG.Wait()
		close(finished)
	}()

	for {
		select {
		case sock := <-accepted:
			sock.Close()
		case <-acceptDone:
			acceptDone = nil
		case a := <-b.actions:
			b.handle(a)
		case <-finished:
			b.logger.Info().Msg("Shutdown complete")
			return nil
		}
	}
}
