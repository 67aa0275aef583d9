package protocol

import (
	"strconv"
	"time"
)

// MagicV2 is sent once after connecting to select the protocol version
var MagicV2 = []byte("  V2")

// The consumer command set. Each command is a single newline terminated line,
// publishing commands are not supported.

// AppendSub appends a SUB command for topic and channel
func AppendSub(dst []byte, topic, channel string) []byte {
	dst = append(dst, "SUB "...)
	dst = append(dst, topic...)
	dst = append(dst, ' ')
	dst = append(dst, channel...)
	return append(dst, '\n')
}

// AppendRdy appends a RDY command announcing how many messages may be in flight
func AppendRdy(dst []byte, count int) []byte {
	dst = append(dst, "RDY "...)
	dst = strconv.AppendInt(dst, int64(count), 10)
	return append(dst, '\n')
}

// AppendFin appends a FIN command
func AppendFin(dst []byte, id MessageID) []byte {
	dst = append(dst, "FIN "...)
	dst = append(dst, id[:]...)
	return append(dst, '\n')
}

// AppendReq appends a REQ command, the delay is sent in milliseconds
func AppendReq(dst []byte, id MessageID, delay time.Duration) []byte {
	dst = append(dst, "REQ "...)
	dst = append(dst, id[:]...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, delay.Milliseconds(), 10)
	return append(dst, '\n')
}

// AppendTouch appends a TOUCH command
func AppendTouch(dst []byte, id MessageID) []byte {
	dst = append(dst, "TOUCH "...)
	dst = append(dst, id[:]...)
	return append(dst, '\n')
}

// AppendNop appends a NOP command (the answer to a heartbeat)
func AppendNop(dst []byte) []byte {
	return append(dst, "NOP\n"...)
}

// AppendCls appends a CLS command which asks the broker to close the session cleanly
func AppendCls(dst []byte) []byte {
	return append(dst, "CLS\n"...)
}
