// Package wire implements the Rithmic R|Protocol wire format: a 4-byte
// big-endian length prefix around a protobuf body whose leading field is
// always a template_id (protobuf tag 154467), plus template-id dispatch into
// a tagged-union response envelope.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds the length prefix we are willing to read. A declared
// length beyond this is rejected as a Decode error without allocating.
const MaxFrameSize = 64 << 20 // 64 MiB

// TemplateIDField is the protobuf field number carrying template_id on every
// request, response, and unsolicited update record.
const TemplateIDField = 154467

// EncodeFrame prepends the 4-byte big-endian length prefix to body.
// body length must fit in a uint32; callers never construct bodies anywhere
// close to that bound, but this is enforced rather than assumed.
func EncodeFrame(body []byte) ([]byte, error) {
	if uint64(len(body)) > 0xFFFFFFFF {
		return nil, fmt.Errorf("wire: body length %d exceeds frame limit", len(body))
	}
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[:4], uint32(len(body)))
	copy(out[4:], body)
	return out, nil
}

// ReadFrame reads one length-prefixed body from r. It returns io.EOF only
// when zero bytes were read before EOF (a clean stream end); a partial frame
// is a Decode-classified error, not io.EOF, since it represents a protocol
// violation rather than a normal close.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("wire: %w: truncated length prefix", ErrDecode)
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("wire: %w: declared frame length %d exceeds buffer size", ErrDecode, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wire: %w: truncated body: %v", ErrDecode, err)
	}
	return body, nil
}
