/*
Package broker implements the Burrow publish/subscribe dispatcher.

The broker is authoritative: it owns the subscription table, serialises
subscribe/unsubscribe/publish operations, and fans each publish out to every
current subscriber of the named topic exactly once.

# Architecture

	┌──────────────────────── BROKER ─────────────────────────┐
	│                                                          │
	│   accept loop ──────► dispatcher goroutine               │
	│                        - connection registry             │
	│                        - subscription map                │
	│                        - routes decoded actions          │
	│                             │                            │
	│        ┌────────────────────┼────────────────────┐       │
	│        ▼                    ▼                    ▼       │
	│   connection 1         connection 2         connection N │
	│   reader goroutine     reader goroutine     ...          │
	│   - read buffer        (restartable decode,              │
	│   - decode loop         buffer compaction)               │
	│   writer goroutine                                       │
	│   - bounded FIFO of event ids                            │
	│        │                                                 │
	│        ▼                                                 │
	│   pending event table                                    │
	│   - one encoded frame per publish                        │
	│   - refcounted by remaining recipients                   │
	└──────────────────────────────────────────────────────────┘

A publish is encoded once. The encoded frame goes into the pending event
table with a recipient count fixed at publish time, and its id is enqueued on
every subscriber's write queue. Each writer drains the frame to its socket
and releases one recipient slot; the last release frees the frame. A
subscriber that closes before draining releases its queued slots during the
close procedure, so counts stay exact.

All mutation of the subscription map and connection registry happens on the
dispatcher goroutine. Within one topic, subscribers observe publications in
the order the dispatcher accepted them; across topics no order is guaranteed.
A client that publishes to a topic it subscribes to receives its own
publication.

# Failure semantics

A malformed frame, an Event frame from a client, a socket error, or a write
queue overflow is fatal for that connection only. The close procedure removes
the connection's subscriptions (evicting topics that empty out), releases its
queued events, closes the socket, and frees its registry slot. The broker
itself never terminates on a client-caused error; accept errors are logged
and retried.

# Usage

	b := broker.NewBroker(broker.Options{
		ListenAddress: "127.0.0.1:9876",
		MaxQueueDepth: 256,
	})
	if err := b.ListenAndServe(ctx); err != nil {
		log.Logger.Fatal().Err(err).Msg("Broker failed")
	}
*/
package broker
