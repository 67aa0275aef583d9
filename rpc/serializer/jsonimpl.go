package serializer

import (
	"encoding/json"
	"github.com/ValentinKolb/nsqc/rpc/protocol"
	"time"
	"unicode/utf8"
)

// NewJSONSerializer creates a serializer that prints one JSON object per line
func NewJSONSerializer() IMessageSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IMessageSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// jsonMessage is the JSON document of one message. Bodies that are not valid UTF-8 are
// written base64 encoded to body_base64 instead of body.
type jsonMessage struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Attempts   uint16    `json:"attempts"`
	Producer   string    `json:"producer,omitempty"`
	Body       *string   `json:"body,omitempty"`
	BodyBase64 []byte    `json:"body_base64,omitempty"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IMessageSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg *protocol.Message) ([]byte, error) {
	doc := jsonMessage{
		ID:        msg.ID.String(),
		Timestamp: msg.Time().UTC(),
		Attempts:  msg.Attempts,
	}
	if origin := msg.Origin(); origin != nil {
		doc.Producer = origin.Endpoint.String()
	}
	if utf8.Valid(msg.Body) {
		body := string(msg.Body)
		doc.Body = &body
	} else {
		doc.BodyBase64 = msg.Body
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func (j jsonSerializerImpl) GetName() string {
	return "json"
}
