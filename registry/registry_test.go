package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rithmic-go/rithmic-client/errs"
	"github.com/rithmic-go/rithmic-client/wire"
)

func TestRouteEmptyCorrelationGoesToSubscriptions(t *testing.T) {
	r := New(nil)
	sub := make(chan *wire.Envelope, 1)

	env := &wire.Envelope{TemplateID: wire.TemplateLastTradeUpdate, IsUpdate: true}
	r.Route(env, sub)

	select {
	case got := <-sub:
		assert.Same(t, env, got)
	default:
		t.Fatal("expected envelope forwarded to subscriptions")
	}
}

func TestRouteSingleShotDeliversAndRemoves(t *testing.T) {
	r := New(nil)
	sub := make(chan *wire.Envelope, 1)
	done := make(chan struct{})
	ch := make(chan *wire.Envelope, 1)
	r.RegisterSingle("corr-1", Waiter{Ch: ch, Done: done})

	env := &wire.Envelope{CorrelationID: "corr-1"}
	r.Route(env, sub)

	select {
	case got := <-ch:
		assert.Same(t, env, got)
	default:
		t.Fatal("expected delivery to single-shot waiter")
	}

	// Second frame with same id: waiter already removed, falls through to
	// subscriptions rather than panicking or blocking.
	env2 := &wire.Envelope{CorrelationID: "corr-1"}
	r.Route(env2, sub)
	select {
	case got := <-sub:
		assert.Same(t, env2, got)
	default:
		t.Fatal("expected second frame forwarded to subscriptions")
	}
}

func TestRouteStreamDeliversUntilHasMoreFalse(t *testing.T) {
	r := New(nil)
	sub := make(chan *wire.Envelope, 1)
	done := make(chan struct{})
	ch := make(chan *wire.Envelope, 2)
	r.RegisterStream("corr-2", Waiter{Ch: ch, Done: done})

	r.Route(&wire.Envelope{CorrelationID: "corr-2", HasMore: true}, sub)
	r.Route(&wire.Envelope{CorrelationID: "corr-2", HasMore: false}, sub)

	first := <-ch
	assert.True(t, first.HasMore)
	second := <-ch
	assert.False(t, second.HasMore)

	_, stillOpen := <-ch
	assert.False(t, stillOpen, "channel should be closed after has_more=false")
}

func TestRouteStreamClosesOnError(t *testing.T) {
	r := New(nil)
	sub := make(chan *wire.Envelope, 1)
	done := make(chan struct{})
	ch := make(chan *wire.Envelope, 1)
	r.RegisterStream("corr-3", Waiter{Ch: ch, Done: done})

	r.Route(&wire.Envelope{CorrelationID: "corr-3", HasMore: true, Err: assertErr{}}, sub)

	<-ch
	_, stillOpen := <-ch
	assert.False(t, stillOpen)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestDeliverDropsWhenDoneClosed(t *testing.T) {
	ch := make(chan *wire.Envelope) // unbuffered, no reader
	done := make(chan struct{})
	close(done)

	// Must not block even though nothing reads from ch.
	deliver(Waiter{Ch: ch, Done: done}, &wire.Envelope{})
}

func TestShutdownClosesAllWaitersWithDisconnected(t *testing.T) {
	r := New(nil)
	singleDone := make(chan struct{})
	streamDone := make(chan struct{})
	singleCh := make(chan *wire.Envelope, 1)
	streamCh := make(chan *wire.Envelope, 1)
	r.RegisterSingle("s1", Waiter{Ch: singleCh, Done: singleDone})
	r.RegisterStream("s2", Waiter{Ch: streamCh, Done: streamDone})

	r.Shutdown()

	singleEnv := <-singleCh
	require.Error(t, singleEnv.Err)
	assert.ErrorIs(t, singleEnv.Err, errs.ErrDisconnected)

	streamEnv := <-streamCh
	require.Error(t, streamEnv.Err)
	assert.ErrorIs(t, streamEnv.Err, errs.ErrDisconnected)

	_, open := <-singleCh
	assert.False(t, open)
	_, open = <-streamCh
	assert.False(t, open)
}
