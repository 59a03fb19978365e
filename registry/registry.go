// Package registry implements the per-worker request/response correlation
// table described in spec.md §4.3: two maps from outbound correlation id to
// the waiter expecting the reply, one for single-shot requests and one for
// streamed (multi-fragment) ones. A Registry is owned by exactly one plant
// worker goroutine and is never touched concurrently, so it carries no
// locking of its own.
package registry

import (
	"github.com/sirupsen/logrus"

	"github.com/rithmic-go/rithmic-client/errs"
	"github.com/rithmic-go/rithmic-client/wire"
)

// Waiter is what a caller registers to receive a reply. Done is closed by
// the caller when it no longer wants further fragments (e.g. it abandoned a
// stream); once Done is closed, Route drops fragments for that waiter
// instead of blocking the worker on Ch. The entry itself stays registered
// until its final fragment (or an error) arrives, or the registry shuts
// down.
type Waiter struct {
	Ch   chan *wire.Envelope
	Done <-chan struct{}
}

// Registry holds the single-shot and stream waiter tables for one plant
// worker.
type Registry struct {
	single map[string]Waiter
	stream map[string]Waiter
	log    *logrus.Entry
}

// New returns an empty registry. log may be nil, in which case an entry on
// logrus's standard logger is used.
func New(log *logrus.Entry) *Registry {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{
		single: make(map[string]Waiter),
		stream: make(map[string]Waiter),
		log:    log,
	}
}

// RegisterSingle records a waiter expecting exactly one reply for id. A
// correlation id must be registered in exactly one of RegisterSingle or
// RegisterStream, never both.
func (r *Registry) RegisterSingle(id string, w Waiter) {
	r.single[id] = w
}

// RegisterStream records a waiter expecting zero or more fragments
// terminated by has_more=false or an error, for id.
func (r *Registry) RegisterStream(id string, w Waiter) {
	r.stream[id] = w
}

// Route dispatches one decoded envelope per the rules in spec.md §4.3:
//  1. empty correlation id or is_update: forward to subscriptions.
//  2. registered single waiter: deliver once, remove the entry; a
//     has_more=true on a single-shot reply is a protocol contract
//     violation, logged and otherwise ignored (the entry is already gone,
//     so later fragments for the same id fall through to subscriptions
//     like any other unrecognized correlation id).
//  3. registered stream waiter: deliver; remove and close the channel when
//     has_more is false or an error is present.
//  4. anything else (unsolicited, or a waiter already cancelled and
//     removed): forward to subscriptions.
func (r *Registry) Route(env *wire.Envelope, subscriptions chan<- *wire.Envelope) {
	if env.CorrelationID == "" || env.IsUpdate {
		subscriptions <- env
		return
	}

	if w, ok := r.single[env.CorrelationID]; ok {
		delete(r.single, env.CorrelationID)
		deliver(w, env)
		if env.HasMore {
			r.log.WithFields(logrus.Fields{
				"correlation_id": env.CorrelationID,
				"template_id":    env.TemplateID,
			}).Warn("registry: has_more set on single-shot reply, later fragments go to subscriptions")
		}
		return
	}

	if w, ok := r.stream[env.CorrelationID]; ok {
		deliver(w, env)
		if !env.HasMore || env.Err != nil {
			delete(r.stream, env.CorrelationID)
			close(w.Ch)
		}
		return
	}

	subscriptions <- env
}

// deliver sends env to w.Ch unless the caller has already signaled via Done
// that it abandoned the waiter, in which case the fragment is dropped.
func deliver(w Waiter, env *wire.Envelope) {
	select {
	case w.Ch <- env:
	case <-w.Done:
	}
}

// Shutdown closes every outstanding waiter with errs.ErrDisconnected, per
// spec.md §4.3's shutdown rule, and empties both tables.
func (r *Registry) Shutdown() {
	for id, w := range r.single {
		deliver(w, &wire.Envelope{CorrelationID: id, Err: errs.ErrDisconnected})
		close(w.Ch)
		delete(r.single, id)
	}
	for id, w := range r.stream {
		deliver(w, &wire.Envelope{CorrelationID: id, Err: errs.ErrDisconnected})
		close(w.Ch)
		delete(r.stream, id)
	}
}
