/*
Package protocol implements the Burrow binary wire protocol.

Protocol Overview:
==================

The protocol is a length-delimited binary framing with four message types.
Clients subscribe and unsubscribe to named topics and publish payloads; the
server fans each publish out to subscribers as Event frames. Event frames are
server-originated only.

Message Format:
===============

	offset  size   field
	0       1      message type (1..4)
	1       1      event name length (N)
	2       N      event name (UTF-8)
	2+N     2      payload length, big-endian (Publish/Event only)
	4+N     P      payload (Publish/Event only)

Message Types:
==============

	- 0x01: Subscribe - register for a topic (no payload)
	- 0x02: Unsubscribe - leave a topic (no payload)
	- 0x03: Publish - client-to-server payload for a topic
	- 0x04: Event - server-to-client fan-out of a published payload

There is no magic number, version byte, or checksum. The maximum frame size
is 65794 bytes (MaxFrameSize).

Decoding is split in two: Parse completes a frame header as soon as the fixed
prefix (through the payload length field, when present) has arrived, without
requiring the payload bytes. The caller buffers and extracts the payload
itself. This lets a connection switch from header phase to payload phase
without recopying header bytes, and makes Parse restartable: feed it any
prefix and it reports ErrIncomplete until the header is whole.

Construction goes through Builder (or the NewMessage shortcut), which
validates the multi-field invariants atomically: both type and name present,
name at most 255 bytes, payload present and at most 65535 bytes for
Publish/Event, payload absent for Subscribe/Unsubscribe.
*/
package protocol
