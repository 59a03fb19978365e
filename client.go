package rithmic

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rithmic-go/rithmic-client/errs"
	"github.com/rithmic-go/rithmic-client/plant"
	"github.com/rithmic-go/rithmic-client/registry"
	"github.com/rithmic-go/rithmic-client/wire"
)

// subscriptionBufferSize is the capacity of the multi-producer/single-
// consumer channel every plant worker's unsolicited messages land on.
// spec.md §5 calls for "bounded, large capacity — tens of thousands of
// slots" and a block-on-full backpressure policy; this satisfies both.
const subscriptionBufferSize = 1 << 16

const (
	loginTimeout       = 30 * time.Second
	syncRequestTimeout = 10 * time.Second
)

// requiredPlants is the order spec.md §4.6 step 3 specifies for connect.
var requiredPlants = []wire.Plant{wire.PlantTicker, wire.PlantHistory, wire.PlantOrder, wire.PlantPnL}

// Client is the connection manager façade (C6): it spawns one worker per
// required plant, sequences logins, fetches account identity, primes the
// trade-route cache, and exposes the typed operations in operations.go.
// The correlation-id counter is an atomic; the worker set and the
// account-identity record each sit behind their own lock; the trade-route
// cache is a concurrent map.
// No back-references exist from workers to the Client (spec.md §9).
type Client struct {
	cfg Config
	log *logrus.Entry

	corrCounter atomic.Uint64

	workersMu sync.RWMutex
	workers   map[wire.Plant]*plant.Worker

	identityMu sync.RWMutex
	identity   AccountIdentity

	tradeRoutes sync.Map // exchange string -> route name string

	subscriptions chan *wire.Envelope
}

// NewClient constructs a Client. Connect must be called before any other
// operation; a freshly constructed Client has no plant workers.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:           cfg,
		log:           newEntry(cfg.Logger, ""),
		workers:       make(map[wire.Plant]*plant.Worker, len(requiredPlants)),
		subscriptions: make(chan *wire.Envelope, subscriptionBufferSize),
	}
}

// nextCorrelationID mints the next outbound correlation id: a process-wide
// monotonically increasing decimal string (spec.md §3, SPEC_FULL.md §3).
func (c *Client) nextCorrelationID() string {
	return strconv.FormatUint(c.corrCounter.Add(1), 10)
}

func (c *Client) identitySnapshot() AccountIdentity {
	c.identityMu.RLock()
	defer c.identityMu.RUnlock()
	return c.identity
}

func (c *Client) worker(p wire.Plant) (*plant.Worker, error) {
	c.workersMu.RLock()
	defer c.workersMu.RUnlock()
	w, ok := c.workers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s plant not connected", errs.ErrNotConfigured, p)
	}
	return w, nil
}

// tradeRouteFor returns the cached route name for exchange, if any.
func (c *Client) tradeRouteFor(exchange string) (string, bool) {
	v, ok := c.tradeRoutes.Load(exchange)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// doSingleShot submits rec on plant p's worker expecting exactly one reply,
// and waits for it (or ctx's deadline, or a protocol error).
func (c *Client) doSingleShot(ctx context.Context, p wire.Plant, rec *wire.Record, corrID string) (*wire.Envelope, error) {
	w, err := c.worker(p)
	if err != nil {
		return nil, err
	}

	ch := make(chan *wire.Envelope, 1)
	done := make(chan struct{})
	waiter := registry.Waiter{Ch: ch, Done: done}

	if err := w.Submit(plant.Command{Body: rec, CorrelationID: corrID, Waiter: &waiter}); err != nil {
		return nil, err
	}

	select {
	case env := <-ch:
		if env.Err != nil {
			return env, errs.FromRpError(env.Err)
		}
		return env, nil
	case <-ctx.Done():
		close(done)
		return nil, fmt.Errorf("%w: request %s", errs.ErrTimeout, corrID)
	}
}

// doStream submits rec on plant p's worker expecting zero or more fragments
// terminated by has_more=false, an error, or the worker shutting down.
// Stream operations carry no timeout of their own (spec.md §4.6): the
// caller consumes until the channel closes.
func (c *Client) doStream(p wire.Plant, rec *wire.Record, corrID string) (<-chan *wire.Envelope, error) {
	w, err := c.worker(p)
	if err != nil {
		return nil, err
	}

	ch := make(chan *wire.Envelope, 64)
	done := make(chan struct{})
	waiter := registry.Waiter{Ch: ch, Done: done}

	if err := w.Submit(plant.Command{Body: rec, CorrelationID: corrID, Waiter: &waiter, Stream: true}); err != nil {
		return nil, err
	}
	return ch, nil
}

// fireAndForget submits rec without registering any waiter: the caller
// does not track a reply (spec.md §4.6 step 5's order-update subscribe).
func (c *Client) fireAndForget(p wire.Plant, rec *wire.Record, corrID string) error {
	w, err := c.worker(p)
	if err != nil {
		return err
	}
	return w.Submit(plant.Command{Body: rec, CorrelationID: corrID})
}

// Subscriptions returns the channel every plant worker's unsolicited
// messages and forced-logout notifications arrive on. It is the single
// path back from workers to the caller (spec.md §9's no-back-references
// design note).
func (c *Client) Subscriptions() <-chan *wire.Envelope { return c.subscriptions }

// Identity returns the account-identity record learned during Connect.
func (c *Client) Identity() AccountIdentity { return c.identitySnapshot() }

// TradeRoute returns the cached route for exchange, populated by Connect
// and RefreshTradeRoutes.
func (c *Client) TradeRoute(exchange string) (string, bool) { return c.tradeRouteFor(exchange) }

// TradeRoutes returns a snapshot of the entire trade-route cache.
func (c *Client) TradeRoutes() map[string]string {
	out := make(map[string]string)
	c.tradeRoutes.Range(func(k, v any) bool {
		out[k.(string)] = v.(string)
		return true
	})
	return out
}

// Close shuts every plant worker down gracefully, draining their
// registries. It does not close the Subscriptions channel (workers close
// it implicitly by ceasing to produce; this avoids a multi-producer
// double-close).
func (c *Client) Close() {
	c.workersMu.RLock()
	defer c.workersMu.RUnlock()
	for _, w := range c.workers {
		w.Shutdown()
	}
}
