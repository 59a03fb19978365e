package wire

import (
	"errors"
	"strconv"
)

// ErrDecode classifies a malformed frame or an unrecognized template id.
// Per spec, decode errors never abort the caller's loop and never carry I/O
// side effects; they are values, not panics.
var ErrDecode = errors.New("wire: decode error")

// UnknownTemplateError reports a template_id with no entry in the dispatch
// table. Decode returns it alongside a best-effort envelope (IsUpdate=false,
// correlation id taken from user_msg[0] when present, empty otherwise) so
// callers that only care about routing don't need to type-switch on error
// vs. envelope.
type UnknownTemplateError struct {
	TemplateID int64
}

func (e *UnknownTemplateError) Error() string {
	return "wire: unknown template_id: " + strconv.FormatInt(e.TemplateID, 10)
}

func (e *UnknownTemplateError) Unwrap() error { return ErrDecode }
