// Package plant implements the per-plant connection actor (spec.md §4.4): a
// single goroutine that owns one plant's WebSocket transport and correlation
// registry, pumping outbound commands, inbound frames, and a heartbeat timer
// in one select loop. The actor shape — mailbox channel, heartbeat ticker,
// shutdown joined by waiting on a done channel — is grounded on the teacher's SSE
// broker (sse/broker.go), generalized from HTTP event fan-out to a
// full-duplex trading session.
package plant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rithmic-go/rithmic-client/errs"
	"github.com/rithmic-go/rithmic-client/registry"
	"github.com/rithmic-go/rithmic-client/transport"
	"github.com/rithmic-go/rithmic-client/wire"
)

// State is the plant worker's lifecycle stage (spec.md §4.4).
type State int32

const (
	StateDialing State = iota
	StateAuthenticating
	StateRunning
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDialing:
		return "dialing"
	case StateAuthenticating:
		return "authenticating"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// LoginResult is delivered exactly once, on the channel returned by Spawn,
// when the worker either completes login or fails to.
type LoginResult struct {
	HeartbeatInterval time.Duration
	FcmID             string
	IbID              string
	Err               error
}

// Command is one outbound request handed to the worker's mailbox:
// {payload, correlation_id, waiter} per spec.md §4.4. Waiter is nil for
// fire-and-forget sends where the caller does not track a reply.
type Command struct {
	Body          *wire.Record
	CorrelationID string
	Waiter        *registry.Waiter
	Stream        bool
}

// Worker is a single plant's connection actor. Its exported methods are
// Submit, State, Shutdown and Done; everything else runs on the worker's
// own goroutines.
type Worker struct {
	Plant wire.Plant

	conn *transport.Conn
	reg  *registry.Registry
	log  *logrus.Entry

	mailbox       chan Command
	subscriptions chan<- *wire.Envelope
	inbound       chan *wire.Envelope
	readerErr     chan error

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}

	state atomic.Int32
}

// Spawn dials gatewayURL and launches the worker goroutine, which sends
// loginFrame. It returns once the dial completes (or fails), without waiting
// for the login reply; the caller awaits login completion on
// the returned channel (typically under its own bounded timeout, per
// spec.md §4.6 step 3's 30-second bound — this package does not impose one
// itself, since only the connection manager knows the right budget for the
// overall connect sequence).
func Spawn(
	ctx context.Context,
	p wire.Plant,
	gatewayURL string,
	loginFrame *wire.Record,
	loginCorrelationID string,
	subscriptions chan<- *wire.Envelope,
	log *logrus.Entry,
) (*Worker, <-chan LoginResult) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	// trace_id identifies this worker's lifetime across its log lines; it
	// never goes on the wire, unlike the outbound correlation ids.
	log = log.WithField("plant", p.String()).WithField("trace_id", uuid.NewString())

	loginResultCh := make(chan LoginResult, 1)

	w := &Worker{
		Plant:         p,
		reg:           registry.New(log),
		log:           log,
		mailbox:       make(chan Command, 256),
		subscriptions: subscriptions,
		inbound:       make(chan *wire.Envelope, 256),
		readerErr:     make(chan error, 1),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	w.state.Store(int32(StateDialing))

	conn, err := transport.Dial(ctx, gatewayURL)
	if err != nil {
		w.state.Store(int32(StateClosed))
		close(w.doneCh)
		loginResultCh <- LoginResult{Err: err}
		close(loginResultCh)
		return w, loginResultCh
	}
	w.conn = conn

	go w.run(loginFrame, loginCorrelationID, loginResultCh)
	return w, loginResultCh
}

// State returns the worker's current lifecycle stage.
func (w *Worker) State() State { return State(w.state.Load()) }

// Submit enqueues a command for the worker to send. It returns
// errs.ErrDisconnected if the worker has already shut down.
func (w *Worker) Submit(cmd Command) error {
	select {
	case <-w.doneCh:
		return fmt.Errorf("%w: plant %s worker stopped", errs.ErrDisconnected, w.Plant)
	default:
	}
	select {
	case w.mailbox <- cmd:
		return nil
	case <-w.doneCh:
		return fmt.Errorf("%w: plant %s worker stopped", errs.ErrDisconnected, w.Plant)
	}
}

// Shutdown requests a graceful stop and blocks until the worker has fully
// drained its registry and closed its transport.
func (w *Worker) Shutdown() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// Done reports a channel closed once the worker has fully stopped.
func (w *Worker) Done() <-chan struct{} { return w.doneCh }

func (w *Worker) run(loginFrame *wire.Record, loginCorrelationID string, loginResultCh chan LoginResult) {
	defer close(w.doneCh)
	defer w.conn.Close()

	go w.readLoop()

	w.state.Store(int32(StateAuthenticating))
	if err := w.writeFrame(loginFrame); err != nil {
		w.state.Store(int32(StateClosed))
		loginResultCh <- LoginResult{Err: err}
		close(loginResultCh)
		return
	}

	heartbeatInterval, err := w.authenticate(loginCorrelationID, loginResultCh)
	if err != nil {
		w.state.Store(int32(StateClosed))
		w.reg.Shutdown()
		return
	}

	w.state.Store(int32(StateRunning))
	w.runLoop(heartbeatInterval)

	w.state.Store(int32(StateClosing))
	w.reg.Shutdown()
	w.state.Store(int32(StateClosed))
}

// authenticate loops on inbound frames until the one matching
// loginCorrelationID arrives, decodes it as a login response, and reports
// the outcome on loginResultCh exactly once. Any other frame received
// during this window is logged and discarded, per spec.md §4.4 — no
// waiters exist yet to route them to.
func (w *Worker) authenticate(loginCorrelationID string, loginResultCh chan LoginResult) (time.Duration, error) {
	defer close(loginResultCh)
	for {
		select {
		case env, ok := <-w.inbound:
			if !ok {
				err := fmt.Errorf("%w: stream closed during login", errs.ErrTransport)
				loginResultCh <- LoginResult{Err: err}
				return 0, err
			}
			if env.CorrelationID != loginCorrelationID {
				w.log.WithField("template_id", env.TemplateID).Warn("plant: discarding frame received before login completed")
				continue
			}
			if env.Err != nil {
				loginResultCh <- LoginResult{Err: errs.FromRpError(env.Err)}
				return 0, env.Err
			}
			hb, _ := env.Message.Float64(wire.HeartbeatIntervalField)
			fcmID, _ := env.Message.String(wire.FcmIDField)
			ibID, _ := env.Message.String(wire.IbIDField)
			interval := time.Duration(hb*float64(time.Second)) - 2*time.Second
			if interval < time.Second {
				interval = time.Second
			}
			loginResultCh <- LoginResult{HeartbeatInterval: interval, FcmID: fcmID, IbID: ibID}
			return interval, nil
		case err := <-w.readerErr:
			loginResultCh <- LoginResult{Err: err}
			return 0, err
		case <-w.stopCh:
			err := fmt.Errorf("%w: shutdown requested before login completed", errs.ErrDisconnected)
			loginResultCh <- LoginResult{Err: err}
			return 0, err
		}
	}
}

// runLoop is the Running-state select loop: heartbeat timer, command
// mailbox, inbound frames, and shutdown, all serialized on this goroutine.
func (w *Worker) runLoop(heartbeatInterval time.Duration) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hb := wire.NewRecord().PutVarint(wire.TemplateIDField, wire.TemplateHeartbeatRequest)
			if err := w.writeFrame(hb); err != nil {
				w.log.WithError(err).Error("plant: heartbeat send failed, stopping worker")
				return
			}

		case cmd, ok := <-w.mailbox:
			if !ok {
				return
			}
			w.handleCommand(cmd)

		case env, ok := <-w.inbound:
			if !ok {
				return
			}
			w.handleInbound(env)
			if env.TemplateID == wire.TemplateForcedLogout {
				return
			}

		case err := <-w.readerErr:
			w.log.WithError(err).Error("plant: transport read failed, stopping worker")
			return

		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) handleCommand(cmd Command) {
	if cmd.Waiter != nil {
		if cmd.Stream {
			w.reg.RegisterStream(cmd.CorrelationID, *cmd.Waiter)
		} else {
			w.reg.RegisterSingle(cmd.CorrelationID, *cmd.Waiter)
		}
	}
	if err := w.writeFrame(cmd.Body); err != nil {
		if cmd.Waiter != nil {
			errEnv := &wire.Envelope{CorrelationID: cmd.CorrelationID, Err: err}
			select {
			case cmd.Waiter.Ch <- errEnv:
			case <-cmd.Waiter.Done:
			}
		}
		w.log.WithError(err).Error("plant: command send failed, stopping worker")
		w.stopOnce.Do(func() { close(w.stopCh) })
	}
}

func (w *Worker) handleInbound(env *wire.Envelope) {
	if env.TemplateID == wire.TemplateHeartbeatResponse {
		return
	}
	w.reg.Route(env, w.subscriptions)
}

func (w *Worker) writeFrame(rec *wire.Record) error {
	body := rec.Marshal()
	framed, err := wire.EncodeFrame(body)
	if err != nil {
		return err
	}
	return w.conn.Send(framed)
}

// readLoop runs on its own goroutine (transport.Conn.Receive blocks on I/O)
// decoding frames and handing them to the run-loop goroutine over inbound.
// It exits by closing inbound on a clean close, or by reporting on readerErr
// when a transport error occurs. Malformed frames are logged and skipped
// rather than treated as fatal, per spec.md §7; a frame with an unknown
// template_id is logged and still handed on as a best-effort envelope.
func (w *Worker) readLoop() {
	for {
		payload, err := w.conn.Receive()
		if err != nil {
			w.readerErr <- err
			return
		}
		if payload == nil {
			close(w.inbound)
			return
		}
		body, err := wire.ReadFrame(bytes.NewReader(payload))
		if err != nil {
			w.log.WithError(err).Warn("plant: dropping malformed frame")
			continue
		}
		env, err := wire.Decode(body)
		if err != nil {
			var unknown *wire.UnknownTemplateError
			if !errors.As(err, &unknown) {
				w.log.WithError(err).Warn("plant: dropping undecodable frame")
				continue
			}
			w.log.WithField("template_id", unknown.TemplateID).Warn("plant: unknown template_id")
		}
		select {
		case w.inbound <- env:
		case <-w.stopCh:
			return
		}
	}
}
