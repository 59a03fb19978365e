// Package discovery implements the one-shot bootstrap dialogue (spec.md
// §4.5) that resolves a logical system name to a gateway URL, plus the
// related list-systems operation. Both run over a transient connection that
// is closed before the call returns.
package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/rithmic-go/rithmic-client/errs"
	"github.com/rithmic-go/rithmic-client/transport"
	"github.com/rithmic-go/rithmic-client/wire"
)

// TestSystemName is the well-known identifier that bypasses discovery
// entirely in favor of a hard-coded test gateway (spec.md §4.5, scenario S1).
const TestSystemName = "Rithmic Test"

// TestGatewayURL is the hard-coded gateway returned for TestSystemName.
const TestGatewayURL = "wss://rituz00100.rithmic.com:443"

// overallDeadline bounds the entire discovery dialogue, retries included —
// SPEC_FULL.md §4.5 treats spec.md's 10s bound as the ceiling on the whole
// retry loop, not a per-attempt timeout.
const overallDeadline = 10 * time.Second

var correlationCounter atomic.Uint64

// nextCorrelationID mints a transient correlation id for a discovery-only
// connection, independent of any connection manager's own counter (a
// discovery session never shares a plant worker's registry).
func nextCorrelationID() string {
	return fmt.Sprintf("disco-%d", correlationCounter.Add(1))
}

// backoffLimiter paces retry attempts against the bootstrap endpoint so
// that concurrent Resolve/ListSystems calls from multiple goroutines cannot
// hammer it during an outage.
var backoffLimiter = rate.NewLimiter(rate.Every(250*time.Millisecond), 1)

// Resolve returns the gateway URL for systemName. If systemName is
// TestSystemName, it returns TestGatewayURL without any network I/O.
// Otherwise it dials bootstrapURL (with bounded retry/backoff), sends a
// system-gateway-info request, and awaits the matching response within the
// overall deadline.
func Resolve(ctx context.Context, bootstrapURL, systemName string) (string, error) {
	if systemName == TestSystemName {
		return TestGatewayURL, nil
	}

	ctx, cancel := context.WithTimeout(ctx, overallDeadline)
	defer cancel()

	conn, err := dialWithRetry(ctx, bootstrapURL)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	corrID := nextCorrelationID()
	req := wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateSystemGatewayInfoRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.SystemNameField, systemName)
	if err := sendRecord(conn, req); err != nil {
		return "", err
	}

	for {
		env, err := receiveEnvelope(ctx, conn)
		if err != nil {
			return "", err
		}
		if env.CorrelationID != corrID {
			continue
		}
		if env.Err != nil {
			return "", fmt.Errorf("%w: discovery: %v", errs.ErrProtocol, env.Err)
		}
		uris := env.Message.Strings(wire.GatewayURIField)
		if len(uris) == 0 {
			return "", fmt.Errorf("%w: discovery: empty gateway_uri", errs.ErrProtocol)
		}
		uri := uris[0]
		if strings.HasPrefix(uri, "ws://") || strings.HasPrefix(uri, "wss://") {
			return uri, nil
		}
		return "wss://" + uri, nil
	}
}

// ListSystems sends a system-info request over the same bootstrap
// connection pattern and accumulates system_name entries across responses
// until has_more is false or the overall deadline elapses. On timeout, any
// entries already received are returned; an empty result on timeout is a
// failure.
func ListSystems(ctx context.Context, bootstrapURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, overallDeadline)
	defer cancel()

	conn, err := dialWithRetry(ctx, bootstrapURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	corrID := nextCorrelationID()
	req := wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateSystemInfoRequest).
		PutString(wire.UserMsgField, corrID)
	if err := sendRecord(conn, req); err != nil {
		return nil, err
	}

	var names []string
	for {
		env, err := receiveEnvelope(ctx, conn)
		if err != nil {
			if len(names) > 0 {
				return names, nil
			}
			return nil, err
		}
		if env.CorrelationID != corrID {
			continue
		}
		if env.Err != nil {
			if len(names) > 0 {
				return names, nil
			}
			return nil, fmt.Errorf("%w: list-systems: %v", errs.ErrProtocol, env.Err)
		}
		names = append(names, env.Message.Strings(wire.SystemNameRepeatedField)...)
		if !env.HasMore {
			return names, nil
		}
	}
}

// dialWithRetry dials bootstrapURL with exponential backoff (base 250ms,
// factor 2, capped at 5s) paced through backoffLimiter, retrying until ctx
// is done.
func dialWithRetry(ctx context.Context, bootstrapURL string) (*transport.Conn, error) {
	backoff := 250 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		if err := backoffLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: discovery: %v", errs.ErrTimeout, ctx.Err())
		}
		conn, err := transport.Dial(ctx, bootstrapURL)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: discovery: bootstrap unreachable: %v", errs.ErrTimeout, err)
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func sendRecord(conn *transport.Conn, rec *wire.Record) error {
	framed, err := wire.EncodeFrame(rec.Marshal())
	if err != nil {
		return err
	}
	return conn.Send(framed)
}

// receiveEnvelope reads one frame, honoring ctx's deadline even though
// transport.Conn.Receive itself has no context parameter: it runs the
// blocking read on its own goroutine and races it against ctx.Done().
func receiveEnvelope(ctx context.Context, conn *transport.Conn) (*wire.Envelope, error) {
	type result struct {
		payload []byte
		err     error
	}
	resultCh := make(chan result, 1)
	go func() {
		payload, err := conn.Receive()
		resultCh <- result{payload, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: discovery: %v", errs.ErrTimeout, ctx.Err())
	case r := <-resultCh:
		if r.err != nil {
			return nil, fmt.Errorf("%w: discovery: %v", errs.ErrTransport, r.err)
		}
		if r.payload == nil {
			return nil, fmt.Errorf("%w: discovery: bootstrap connection closed", errs.ErrProtocol)
		}
		body, err := wire.ReadFrame(bytes.NewReader(r.payload))
		if err != nil {
			return nil, err
		}
		env, err := wire.Decode(body)
		if err != nil {
			var unknown *wire.UnknownTemplateError
			if errors.As(err, &unknown) {
				return env, nil
			}
			return nil, err
		}
		return env, nil
	}
}
