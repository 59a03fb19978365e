// Package errs holds the sentinel error taxonomy shared across this
// module's packages, matching spec.md §7's classification: Transport,
// Protocol, Timeout, and NotConfigured errors. Decode errors are defined in
// the wire package, closer to where they originate, and are expected to be
// wrapped alongside these where a caller needs to distinguish codec failures
// from everything else.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks a fatal I/O failure on a plant's socket: dial,
	// proxy handshake, TLS, WebSocket upgrade, or send/receive failure.
	// It is fatal to the affected worker only — other plants are unaffected.
	ErrTransport = errors.New("rithmic: transport error")

	// ErrProtocol marks a semantically invalid exchange: a non-zero
	// rp_code or a reject record. A has_more flag on a single-shot reply is
	// only logged by the registry and does not produce this error.
	ErrProtocol = errors.New("rithmic: protocol error")

	// ErrTimeout marks a bounded wait that elapsed without a reply —
	// discovery, login, or a single-shot/stream waiter's deadline.
	ErrTimeout = errors.New("rithmic: timeout")

	// ErrNotConfigured marks a caller-side precondition that was never
	// met locally: an unconnected plant, a missing trade route, or a
	// request built against a plant the caller never asked to connect.
	ErrNotConfigured = errors.New("rithmic: not configured")

	// ErrDisconnected is delivered to every outstanding waiter when a
	// plant worker shuts down, whether by request or by fatal error.
	ErrDisconnected = errors.New("rithmic: disconnected")
)

// ProtocolError carries the offending rp_code alongside ErrProtocol so
// callers can recover it with errors.As without string-parsing Error().
type ProtocolError struct {
	Code string
	Text string
}

func (e *ProtocolError) Error() string {
	if e.Text == "" {
		return "rithmic: protocol error: rp_code " + e.Code
	}
	return "rithmic: protocol error: rp_code " + e.Code + ": " + e.Text
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// rpCoded is satisfied by *wire.RpError without errs importing wire: the
// protocol package sits below errs in this module's dependency order, so
// the conversion is expressed structurally instead.
type rpCoded interface {
	error
	RpCode() (code, text string)
}

// FromRpError converts a response-level rp_code failure into a
// *ProtocolError callers can recover with errors.As, falling back to a
// plain ErrProtocol wrap for failures that don't carry a structured code.
func FromRpError(err error) error {
	if e, ok := err.(rpCoded); ok {
		code, text := e.RpCode()
		return &ProtocolError{Code: code, Text: text}
	}
	return fmt.Errorf("%w: %v", ErrProtocol, err)
}
