package broker

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/burrow/pkg/protocol"
)

// startBroker serves a broker on an ephemeral loopback port and returns its
// address. The broker is shut down when the test ends.
func startBroker(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewBroker(Options{}).Serve(ctx, listener)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("broker did not shut down")
		}
	})

	return listener.Addr().String()
}

func dialBroker(t *testing.T, addr string) net.Conn {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads one complete event frame from conn, tolerating arbitrary
// segmentation.
func readEvent(t *testing.T, conn net.Conn) protocol.Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	buf := make([]byte, protocol.MaxFrameSize)
	buffered := 0
	for {
		hdr, headerSize, payloadSize, err := protocol.Parse(buf[:buffered])
		if err == nil && buffered >= headerSize+payloadSize {
			msg, err := protocol.NewMessage(hdr.Type, hdr.EventName, buf[headerSize:headerSize+payloadSize])
			require.NoError(t, err)

			copy(buf, buf[headerSize+payloadSize:buffered])
			buffered -= headerSize + payloadSize
			return msg
		}
		if err != nil {
			require.ErrorIs(t, err, protocol.ErrIncomplete)
		}

		n, err := conn.Read(buf[buffered:])
		require.NoError(t, err)
		buffered += n
	}
}

func send(t *testing.T, conn net.Conn, msgType protocol.MessageType, topic string, payload []byte) {
	t.Helper()

	msg, err := protocol.NewMessage(msgType, topic, payload)
	require.NoError(t, err)
	_, err = conn.Write(msg.Encode())
	require.NoError(t, err)
}

// awaitSubscribed publishes a probe to the connection's own topic and waits
// for the echo. Frames from one connection are applied in order, so once the
// echo arrives the subscription is live.
func awaitSubscribed(t *testing.T, conn net.Conn, topic string) {
	t.Helper()

	send(t, conn, protocol.Publish, topic, []byte("probe"))
	msg := readEvent(t, conn)
	require.Equal(t, protocol.Event, msg.Header.Type)
	require.Equal(t, []byte("probe"), msg.Payload)
}

func TestSubscribePublishReceive(t *testing.T) {
	addr := startBroker(t)

	subscriber := dialBroker(t, addr)
	publisher := dialBroker(t, addr)

	send(t, subscriber, protocol.Subscribe, "foobar", nil)
	awaitSubscribed(t, subscriber, "foobar")

	send(t, publisher, protocol.Publish, "foobar", []byte("hi!"))

	msg := readEvent(t, subscriber)
	assert.Equal(t, protocol.Event, msg.Header.Type)
	assert.Equal(t, "foobar", msg.Header.EventName)
	assert.Equal(t, []byte("hi!"), msg.Payload)
}

func TestFanoutToMultipleSubscribers(t *testing.T) {
	addr := startBroker(t)

	subscribers := []net.Conn{dialBroker(t, addr), dialBroker(t, addr), dialBroker(t, addr)}
	publisher := dialBroker(t, addr)

	for _, conn := range subscribers {
		send(t, conn, protocol.Subscribe, "T", nil)
		awaitSubscribed(t, conn, "T")
	}

	send(t, publisher, protocol.Publish, "T", []byte("payload"))

	for i, conn := range subscribers {
		msg := readEvent(t, conn)
		assert.Equal(t, []byte("payload"), msg.Payload, "subscriber %d", i)
	}
}

func TestSplitWritesAcrossSocket(t *testing.T) {
	addr := startBroker(t)

	subscriber := dialBroker(t, addr)
	send(t, subscriber, protocol.Subscribe, "event", nil)
	awaitSubscribed(t, subscriber, "event")

	publisher := dialBroker(t, addr)
	frame := []byte{
		0x03, 0x05, 0x65, 0x76, 0x65, 0x6e, 0x74,
		0x00, 0x0e,
		0x61, 0x20, 0x70, 0x61, 0x79, 0x6c, 0x6f, 0x61, 0x64, 0x20, 0x68, 0x65, 0x72, 0x65,
	}

	// Deliver the frame in two writes with a pause so the broker sees two
	// separate reads.
	_, err := publisher.Write(frame[:7])
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = publisher.Write(frame[7:])
	require.NoError(t, err)

	msg := readEvent(t, subscriber)
	assert.Equal(t, "event", msg.Header.EventName)
	assert.Equal(t, []byte("a payload here"), msg.Payload)
}

func TestProtocolViolationClosesOnlyThatConnection(t *testing.T) {
	addr := startBroker(t)

	innocent := dialBroker(t, addr)
	send(t, innocent, protocol.Subscribe, "T", nil)
	awaitSubscribed(t, innocent, "T")

	// A client sending an Event frame is disconnected.
	violator := dialBroker(t, addr)
	msg, err := protocol.NewMessage(protocol.Event, "T", []byte("nope"))
	require.NoError(t, err)
	_, err = violator.Write(msg.Encode())
	require.NoError(t, err)

	require.NoError(t, violator.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = violator.Read(make([]byte, 1))
	assert.Error(t, err, "violating connection should be closed")

	// The innocent connection still receives events.
	send(t, innocent, protocol.Publish, "T", []byte("still here"))
	got := readEvent(t, innocent)
	assert.Equal(t, []byte("still here"), got.Payload)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	addr := startBroker(t)

	subscriber := dialBroker(t, addr)
	send(t, subscriber, protocol.Subscribe, "T", nil)
	awaitSubscribed(t, subscriber, "T")

	send(t, subscriber, protocol.Unsubscribe, "T", nil)
	// Re-subscribe to a second topic and probe it, proving the
	// unsubscribe was applied first.
	send(t, subscriber, protocol.Subscribe, "other", nil)
	awaitSubscribed(t, subscriber, "other")

	send(t, subscriber, protocol.Publish, "T", []byte("lost"))
	send(t, subscriber, protocol.Publish, "other", []byte("kept"))

	msg := readEvent(t, subscriber)
	assert.Equal(t, "other", msg.Header.EventName)
	assert.Equal(t, []byte("kept"), msg.Payload)
}

func TestBindFailure(t *testing.T) {
	// Occupy a port, then ask a second broker to bind it.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	b := NewBroker(Options{ListenAddress: listener.Addr().String()})
	err = b.ListenAndServe(context.Background())
	assert.Error(t, err)
}
