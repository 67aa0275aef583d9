package serializer

import (
	"fmt"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
)

// IMessageSerializer is the interface for all output formats of received messages
type IMessageSerializer interface {
	// Serialize renders a message as one complete output record (including the record
	// terminator, if the format has one)
	Serialize(msg *protocol.Message) ([]byte, error)
	// GetName returns the name of the format (e.g. "json")
	GetName() string
}

// New creates the serializer for a format name (body, text, json, binary)
func New(name string) (IMessageSerializer, error) {
	switch name {
	case "body":
		return NewBodySerializer(), nil
	case "text":
		return NewTextSerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	case "binary":
		return NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid format %s", name)
	}
}
