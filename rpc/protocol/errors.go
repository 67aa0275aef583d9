package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrDecode is wrapped by every frame decoding failure
	ErrDecode = errors.New("protocol: decode failed")
	// ErrUnknownErrorCode is returned when an error frame carries a code outside the taxonomy
	ErrUnknownErrorCode = errors.New("protocol: unknown error code")
	// ErrNoOrigin is returned when acknowledging a message that was decoded without origin
	ErrNoOrigin = errors.New("protocol: message has no origin")
	// ErrOriginGone is returned when the connection a message arrived on is no longer available
	ErrOriginGone = errors.New("protocol: origin connection is gone")
)

// DecodeError describes why a frame could not be decoded
type DecodeError struct {
	// FrameType is the tag of the frame or -1 if the tag could not be read
	FrameType FrameType
	Reason    string
}

func (e *DecodeError) Error() string {
	if e.FrameType < 0 {
		return fmt.Sprintf("%v: %s", ErrDecode, e.Reason)
	}
	return fmt.Sprintf("%v: %s (frame type %d)", ErrDecode, e.Reason, int32(e.FrameType))
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

// ErrorKind is the semantic failure kind of a broker error code
type ErrorKind uint8

const (
	ErrorKindInvalid     ErrorKind = iota + 1 // E_INVALID
	ErrorKindBadBody                          // E_BAD_BODY
	ErrorKindBadTopic                         // E_BAD_TOPIC
	ErrorKindBadChannel                       // E_BAD_CHANNEL
	ErrorKindBadMessage                       // E_BAD_MESSAGE
	ErrorKindPubFailed                        // E_PUB_FAILED
	ErrorKindMpubFailed                       // E_MPUB_FAILED
	ErrorKindFinFailed                        // E_FIN_FAILED
	ErrorKindReqFailed                        // E_REQ_FAILED
	ErrorKindTouchFailed                      // E_TOUCH_FAILED
)

// Sentinels, one per kind. A *BrokerError unwraps to the sentinel of its kind.
var (
	ErrInvalid     = errors.New("invalid request")
	ErrBadBody     = errors.New("bad body")
	ErrBadTopic    = errors.New("bad topic")
	ErrBadChannel  = errors.New("bad channel")
	ErrBadMessage  = errors.New("bad message")
	ErrPubFailed   = errors.New("publish failed")
	ErrMpubFailed  = errors.New("multi-publish failed")
	ErrFinFailed   = errors.New("finish failed")
	ErrReqFailed   = errors.New("requeue failed")
	ErrTouchFailed = errors.New("touch failed")
)

type kindInfo struct {
	code     string
	sentinel error
}

// errorKinds is the closed code table
var errorKinds = map[ErrorKind]kindInfo{
	ErrorKindInvalid:     {"E_INVALID", ErrInvalid},
	ErrorKindBadBody:     {"E_BAD_BODY", ErrBadBody},
	ErrorKindBadTopic:    {"E_BAD_TOPIC", ErrBadTopic},
	ErrorKindBadChannel:  {"E_BAD_CHANNEL", ErrBadChannel},
	ErrorKindBadMessage:  {"E_BAD_MESSAGE", ErrBadMessage},
	ErrorKindPubFailed:   {"E_PUB_FAILED", ErrPubFailed},
	ErrorKindMpubFailed:  {"E_MPUB_FAILED", ErrMpubFailed},
	ErrorKindFinFailed:   {"E_FIN_FAILED", ErrFinFailed},
	ErrorKindReqFailed:   {"E_REQ_FAILED", ErrReqFailed},
	ErrorKindTouchFailed: {"E_TOUCH_FAILED", ErrTouchFailed},
}

var kindsByCode = func() map[string]ErrorKind {
	m := make(map[string]ErrorKind, len(errorKinds))
	for kind, info := range errorKinds {
		m[info.code] = kind
	}
	return m
}()

// Code returns the symbolic wire code of the kind (e.g. "E_INVALID")
func (k ErrorKind) Code() string {
	if info, ok := errorKinds[k]; ok {
		return info.code
	}
	return "E_UNKNOWN"
}

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	if info, ok := errorKinds[k]; ok {
		return info.sentinel.Error()
	}
	return "unknown"
}

// LookupKind maps a symbolic code to its kind. Unknown codes are an error and never
// fall back to a generic kind.
func LookupKind(code string) (ErrorKind, error) {
	kind, ok := kindsByCode[code]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownErrorCode, code)
	}
	return kind, nil
}

// BrokerError is the typed failure materialized from an error frame
type BrokerError struct {
	Kind    ErrorKind
	Message string
}

func (e *BrokerError) Error() string {
	if e.Message == "" {
		return e.Kind.Code()
	}
	return e.Kind.Code() + ": " + e.Message
}

// Unwrap allows errors.Is(err, protocol.ErrBadTopic) and friends
func (e *BrokerError) Unwrap() error {
	if info, ok := errorKinds[e.Kind]; ok {
		return info.sentinel
	}
	return nil
}

// --------------------------------------------------------------------------
// Error Frame
// --------------------------------------------------------------------------

// Error is an error frame sent by the broker
type Error struct {
	data []byte
	code string
	text string
}

func newError(data []byte) *Error {
	code, text, _ := bytes.Cut(data, []byte(" "))
	return &Error{data: data, code: string(code), text: string(text)}
}

// NewError creates an error frame for the given code and text
func NewError(code, text string) *Error {
	data := code
	if text != "" {
		data += " " + text
	}
	return newError([]byte(data))
}

func (e *Error) Type() FrameType { return FrameTypeError }
func (e *Error) Data() []byte    { return e.data }
func (e *Error) String() string  { return "Error - " + string(e.data) }
func (e *Error) isFrame()        {}

// Code returns the leading code token of the payload
func (e *Error) Code() string { return e.code }

// Text returns the message text following the code
func (e *Error) Text() string { return e.text }

// BrokerError materializes the typed failure for this frame. It is never done
// automatically on decode. An unknown code yields ErrUnknownErrorCode.
func (e *Error) BrokerError() (*BrokerError, error) {
	kind, err := LookupKind(e.code)
	if err != nil {
		return nil, err
	}
	return &BrokerError{Kind: kind, Message: e.text}, nil
}
