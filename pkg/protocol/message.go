package protocol

import (
	"fmt"
	"strings"
)

// MessageType identifies the kind of frame on the wire.
type MessageType byte

const (
	Subscribe   MessageType = 1
	Unsubscribe MessageType = 2
	Publish     MessageType = 3
	Event       MessageType = 4
)

// Wire format limits. The event name length is carried in one byte and the
// payload length in two, so these bounds are fixed by the frame layout.
const (
	MaxEventNameLen = 255
	MaxPayloadLen   = 65535

	// MaxFrameSize is the largest possible encoded frame: type byte, name
	// length byte, maximum name, payload length field, maximum payload.
	MaxFrameSize = 1 + 1 + MaxEventNameLen + 2 + MaxPayloadLen
)

// Valid reports whether t is one of the four defined message types.
func (t MessageType) Valid() bool {
	return t >= Subscribe && t <= Event
}

// ExpectsPayload reports whether frames of this type carry a payload.
func (t MessageType) ExpectsPayload() bool {
	return t == Publish || t == Event
}

func (t MessageType) String() string {
	switch t {
	case Subscribe:
		return "subscribe"
	case Unsubscribe:
		return "unsubscribe"
	case Publish:
		return "publish"
	case Event:
		return "event"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// Header is the fixed part of every frame: the type and the topic it names.
type Header struct {
	Type      MessageType
	EventName string
}

// Message is a complete frame. Payload is nil for Subscribe and Unsubscribe;
// for Publish and Event it may be empty but is always present.
type Message struct {
	Header  Header
	Payload []byte
}

// BuildErrorKind classifies a message construction failure.
type BuildErrorKind int

const (
	MissingField BuildErrorKind = iota
	TooLargeField
	InvalidField
)

// BuildError reports why a message could not be constructed.
type BuildError struct {
	Kind   BuildErrorKind
	Fields []string
}

func (e *BuildError) Error() string {
	switch e.Kind {
	case MissingField:
		return "missing field(s): " + strings.Join(e.Fields, ", ")
	case TooLargeField:
		return "field too large: " + strings.Join(e.Fields, ", ")
	case InvalidField:
		return "invalid field: " + strings.Join(e.Fields, ", ")
	default:
		return "message build error"
	}
}

// Builder assembles a Message field by field. Build validates the combination
// of fields atomically, so a Message never exists in an invalid state.
type Builder struct {
	messageType MessageType
	hasType     bool
	eventName   string
	hasName     bool
	payload     []byte
	hasPayload  bool
}

// NewBuilder creates an empty message builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// MessageType sets the frame type.
func (b *Builder) MessageType(t MessageType) *Builder {
	b.messageType = t
	b.hasType = true
	return b
}

// EventName sets the topic name.
func (b *Builder) EventName(name string) *Builder {
	b.eventName = name
	b.hasName = true
	return b
}

// Payload sets the payload. A nil slice still counts as a present,
// zero-length payload.
func (b *Builder) Payload(payload []byte) *Builder {
	b.payload = payload
	b.hasPayload = true
	return b
}

func (b *Builder) validate() error {
	var missing []string
	if !b.hasType {
		missing = append(missing, "message type")
	}
	if !b.hasName {
		missing = append(missing, "event name")
	}
	if len(missing) > 0 {
		return &BuildError{Kind: MissingField, Fields: missing}
	}

	if len(b.eventName) > MaxEventNameLen {
		return &BuildError{Kind: TooLargeField, Fields: []string{"event name"}}
	}

	if b.messageType.ExpectsPayload() {
		if !b.hasPayload {
			return &BuildError{Kind: MissingField, Fields: []string{"payload"}}
		}
		if len(b.payload) > MaxPayloadLen {
			return &BuildError{Kind: TooLargeField, Fields: []string{"payload"}}
		}
	} else if b.hasPayload {
		return &BuildError{Kind: InvalidField, Fields: []string{"payload"}}
	}

	return nil
}

// Build validates the accumulated fields and returns the message.
func (b *Builder) Build() (Message, error) {
	if err := b.validate(); err != nil {
		return Message{}, err
	}

	msg := Message{
		Header: Header{
			Type:      b.messageType,
			EventName: b.eventName,
		},
	}
	if b.messageType.ExpectsPayload() {
		msg.Payload = b.payload
		if msg.Payload == nil {
			msg.Payload = []byte{}
		}
	}
	return msg, nil
}

// NewMessage builds a message in one call. Payload must be nil for Subscribe
// and Unsubscribe; for Publish and Event a nil payload becomes an empty one.
func NewMessage(t MessageType, eventName string, payload []byte) (Message, error) {
	b := NewBuilder().MessageType(t).EventName(eventName)
	if payload != nil {
		b.Payload(payload)
	} else if t.ExpectsPayload() {
		// Zero-length payloads are legal for payload-bearing types.
		b.Payload([]byte{})
	}
	return b.Build()
}
