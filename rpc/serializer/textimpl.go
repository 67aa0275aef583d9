package serializer

import "github.com/ValentinKolb/nsqc/rpc/protocol"

// NewBodySerializer creates a serializer that prints the message body followed by a newline
func NewBodySerializer() IMessageSerializer {
	return &bodySerializerImpl{}
}

// NewTextSerializer creates a serializer that prints the string form of the message frame
// (timestamp, attempts, id and body) followed by a newline
func NewTextSerializer() IMessageSerializer {
	return &textSerializerImpl{}
}

type bodySerializerImpl struct{}

type textSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IMessageSerializer)
// --------------------------------------------------------------------------

func (s bodySerializerImpl) Serialize(msg *protocol.Message) ([]byte, error) {
	out := make([]byte, 0, len(msg.Body)+1)
	out = append(out, msg.Body...)
	return append(out, '\n'), nil
}

func (s bodySerializerImpl) GetName() string {
	return "body"
}

func (s textSerializerImpl) Serialize(msg *protocol.Message) ([]byte, error) {
	return append([]byte(msg.String()), '\n'), nil
}

func (s textSerializerImpl) GetName() string {
	return "text"
}
