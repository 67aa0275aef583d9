package protocol

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"time"
)

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

// Endpoint identifies a producer by host and port. It is the identity key of a pooled
// connection and stays the same across reconnects.
type Endpoint struct {
	Host string
	Port int
}

// String returns the endpoint in host:port form
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Less orders endpoints by host, then port
func (e Endpoint) Less(other Endpoint) bool {
	if e.Host != other.Host {
		return e.Host < other.Host
	}
	return e.Port < other.Port
}

// ParseEndpoint parses a host:port string
func ParseEndpoint(hostport string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return Endpoint{}, err
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("missing host in %q", hostport)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid port in %q", hostport)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// --------------------------------------------------------------------------
// Acknowledgement Routing
// --------------------------------------------------------------------------

// Acker sends acknowledgement commands for a message id. Implementations only queue the
// command, the broker's reaction is observed through later frames.
type Acker interface {
	Fin(id MessageID) error
	Req(id MessageID, delay time.Duration) error
	Touch(id MessageID) error
}

// AckRouter resolves the acker that currently serves an endpoint
type AckRouter interface {
	Acker(endpoint Endpoint) (Acker, bool)
}

// Origin is the weak back reference from a message to the connection it arrived on.
// Only the endpoint is stored, the connection is looked up when needed.
type Origin struct {
	Endpoint Endpoint
	Router   AckRouter
}

// --------------------------------------------------------------------------
// Message Frame
// --------------------------------------------------------------------------

const (
	// MessageIDSize is the size of the opaque message id
	MessageIDSize = 16

	timestampSize     = 8
	attemptsSize      = 2
	messageHeaderSize = timestampSize + attemptsSize + MessageIDSize // 26
)

// MessageID is the opaque 16 byte id of a message
type MessageID [MessageIDSize]byte

// String returns the id bytes as string (ids are printable on the wire)
func (id MessageID) String() string {
	return string(id[:])
}

// Message is a message frame delivered to a subscribed consumer
type Message struct {
	// Timestamp is the broker side creation time in nanoseconds
	Timestamp int64
	// Attempts is the number of delivery attempts (including this one)
	Attempts uint16
	ID       MessageID
	Body     []byte

	data   []byte
	origin *Origin
}

// NewMessage creates a message frame without origin
func NewMessage(timestamp int64, attempts uint16, id MessageID, body []byte) *Message {
	data := make([]byte, messageHeaderSize+len(body))
	binary.BigEndian.PutUint64(data[:timestampSize], uint64(timestamp))
	binary.BigEndian.PutUint16(data[timestampSize:timestampSize+attemptsSize], attempts)
	copy(data[timestampSize+attemptsSize:messageHeaderSize], id[:])
	copy(data[messageHeaderSize:], body)
	return &Message{
		Timestamp: timestamp,
		Attempts:  attempts,
		ID:        id,
		Body:      data[messageHeaderSize:],
		data:      data,
	}
}

func decodeMessage(data []byte) (*Message, error) {
	if len(data) < messageHeaderSize {
		return nil, &DecodeError{
			FrameType: FrameTypeMessage,
			Reason:    fmt.Sprintf("message payload too short: %d < %d bytes", len(data), messageHeaderSize),
		}
	}
	msg := &Message{
		Timestamp: int64(binary.BigEndian.Uint64(data[:timestampSize])),
		Attempts:  binary.BigEndian.Uint16(data[timestampSize : timestampSize+attemptsSize]),
		Body:      data[messageHeaderSize:],
		data:      data,
	}
	copy(msg.ID[:], data[timestampSize+attemptsSize:messageHeaderSize])
	return msg, nil
}

func (m *Message) Type() FrameType { return FrameTypeMessage }
func (m *Message) Data() []byte    { return m.data }
func (m *Message) isFrame()        {}

func (m *Message) String() string {
	return fmt.Sprintf("Message - %d %d %s %s", m.Timestamp, m.Attempts, m.ID, m.Body)
}

// Time returns the timestamp as time.Time
func (m *Message) Time() time.Time {
	return time.Unix(0, m.Timestamp)
}

// Origin returns the origin of the message (nil if unknown)
func (m *Message) Origin() *Origin {
	return m.origin
}

// Fin finishes the message (acknowledges it and removes it from in-flight tracking)
func (m *Message) Fin() error {
	acker, err := m.acker()
	if err != nil {
		return err
	}
	return acker.Fin(m.ID)
}

// Req requeues the message, it is redelivered after delay
func (m *Message) Req(delay time.Duration) error {
	acker, err := m.acker()
	if err != nil {
		return err
	}
	return acker.Req(m.ID, delay)
}

// Touch resets the broker side processing timeout of the message
func (m *Message) Touch() error {
	acker, err := m.acker()
	if err != nil {
		return err
	}
	return acker.Touch(m.ID)
}

// acker resolves the acker of the origin connection
func (m *Message) acker() (Acker, error) {
	if m.origin == nil || m.origin.Router == nil {
		return nil, ErrNoOrigin
	}
	acker, ok := m.origin.Router.Acker(m.origin.Endpoint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOriginGone, m.origin.Endpoint)
	}
	return acker, nil
}
