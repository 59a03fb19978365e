package rithmic

import "github.com/rithmic-go/rithmic-client/errs"

// Sentinel errors re-exported at the package root so callers do not need to
// import the internal errs package directly. See errs for the taxonomy
// rationale (spec.md §7).
var (
	ErrTransport     = errs.ErrTransport
	ErrProtocol      = errs.ErrProtocol
	ErrTimeout       = errs.ErrTimeout
	ErrNotConfigured = errs.ErrNotConfigured
	ErrDisconnected  = errs.ErrDisconnected
)

// ProtocolError carries the offending rp_code; recover it with errors.As.
type ProtocolError = errs.ProtocolError
