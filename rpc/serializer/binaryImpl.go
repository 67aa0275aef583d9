package serializer

import "github.com/ValentinKolb/nsqc/rpc/protocol"

// NewBinarySerializer creates a serializer that writes every message as size prefixed wire
// frame. The output can be read back with protocol.SplitFramed and protocol.Decode.
func NewBinarySerializer() IMessageSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IMessageSerializer using the wire frame format
type binarySerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IMessageSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg *protocol.Message) ([]byte, error) {
	return protocol.AppendFramed(nil, msg), nil
}

func (b binarySerializerImpl) GetName() string {
	return "binary"
}
