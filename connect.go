package rithmic

import (
	"context"
	"fmt"

	"github.com/rithmic-go/rithmic-client/discovery"
	"github.com/rithmic-go/rithmic-client/errs"
	"github.com/rithmic-go/rithmic-client/plant"
	"github.com/rithmic-go/rithmic-client/requests"
	"github.com/rithmic-go/rithmic-client/wire"
)

// Connect executes the full connect sequence (spec.md §4.6): resolve the
// gateway URL, spawn and log every required plant in, learn the account
// identity, subscribe to order updates, and prime the trade-route cache.
// It returns the channel every unsolicited message lands on. On any
// failure before the trade-route step it tears down whatever plants it
// already spawned and returns an error — a connect attempt never leaves the
// Client half-connected. A failed trade-route refresh is only logged.
func (c *Client) Connect(ctx context.Context) (<-chan *wire.Envelope, error) {
	gatewayURL, err := c.resolveGatewayURL(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.spawnPlants(ctx, gatewayURL); err != nil {
		return nil, err
	}

	if err := c.fetchAccountList(ctx); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.subscribeOrderUpdates(); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.RefreshTradeRoutes(ctx); err != nil {
		// Cache priming failure is logged but not fatal (spec.md §4.6 step 6).
		c.log.WithError(err).Warn("rithmic: initial trade-route refresh failed")
	}

	return c.subscriptions, nil
}

func (c *Client) resolveGatewayURL(ctx context.Context) (string, error) {
	if c.cfg.Credentials.DirectGatewayURL != "" {
		return c.cfg.Credentials.DirectGatewayURL, nil
	}
	return discovery.Resolve(ctx, c.cfg.BootstrapURL, c.cfg.Credentials.SystemName)
}

// spawnPlants spawns and logs every plant in requiredPlants in order,
// aborting and unwinding already-spawned plants on the first failure
// (spec.md §8 scenario S5).
func (c *Client) spawnPlants(ctx context.Context, gatewayURL string) error {
	c.workersMu.Lock()
	defer c.workersMu.Unlock()

	creds := requests.Credentials{
		User:       c.cfg.Credentials.User,
		Password:   c.cfg.Credentials.Password,
		SystemName: c.cfg.Credentials.SystemName,
	}

	var identityRecorded bool

	for _, p := range requiredPlants {
		corrID := c.nextCorrelationID()
		loginFrame := requests.Login(creds, p, c.cfg.AppName, c.cfg.AppVersion, corrID)

		loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
		w, resultCh := plant.Spawn(loginCtx, p, gatewayURL, loginFrame, corrID, c.subscriptions, c.log)

		var result plant.LoginResult
		select {
		case result = <-resultCh:
		case <-loginCtx.Done():
			cancel()
			w.Shutdown()
			c.shutdownLocked()
			return fmt.Errorf("%w: %s plant login timed out", errs.ErrTimeout, p)
		}
		cancel()

		if result.Err != nil {
			c.shutdownLocked()
			return fmt.Errorf("%s plant login failed: %w", p, result.Err)
		}

		c.workers[p] = w

		if !identityRecorded {
			c.identityMu.Lock()
			// fcm_id/ib_id come from whichever plant logs in first; never
			// overwrite a previously recorded non-empty value (spec.md
			// §4.6 step 3).
			if result.FcmID != "" {
				c.identity.FcmID = result.FcmID
			}
			if result.IbID != "" {
				c.identity.IbID = result.IbID
			}
			c.identityMu.Unlock()
			identityRecorded = true
		}
	}
	return nil
}

// shutdownLocked stops every already-spawned worker. Callers must hold
// workersMu for writing.
func (c *Client) shutdownLocked() {
	for p, w := range c.workers {
		w.Shutdown()
		delete(c.workers, p)
	}
}

// fetchAccountList issues the single-shot account-list request over the
// Order plant and records account_id (spec.md §4.6 step 4).
func (c *Client) fetchAccountList(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, syncRequestTimeout)
	defer cancel()

	corrID := c.nextCorrelationID()
	rec := requests.AccountList(c.identitySnapshot(), corrID)

	env, err := c.doSingleShot(ctx, wire.PlantOrder, rec, corrID)
	if err != nil {
		return fmt.Errorf("account list request: %w", err)
	}

	accountID, _ := env.Message.String(wire.AccountIDField)

	c.identityMu.Lock()
	c.identity.AccountID = accountID
	c.identityMu.Unlock()
	return nil
}

// subscribeOrderUpdates issues the fire-and-forget order-update
// subscription over the Order plant (spec.md §4.6 step 5).
func (c *Client) subscribeOrderUpdates() error {
	corrID := c.nextCorrelationID()
	rec := requests.SubscribeOrderUpdates(c.identitySnapshot(), corrID)
	return c.fireAndForget(wire.PlantOrder, rec, corrID)
}

// RefreshTradeRoutes streams the trade-routes response over the Order
// plant and populates the trade-route cache with first-writer-wins
// semantics (spec.md §4.6 step 6). It is called once during Connect and
// may also be called at any later point (e.g. on a periodic schedule) to
// pick up routes added server-side during a long session.
func (c *Client) RefreshTradeRoutes(ctx context.Context) error {
	corrID := c.nextCorrelationID()
	rec := requests.TradeRoutes(c.identitySnapshot(), corrID)

	ch, err := c.doStream(wire.PlantOrder, rec, corrID)
	if err != nil {
		return fmt.Errorf("trade routes request: %w", err)
	}

	for {
		select {
		case env, ok := <-ch:
			if !ok {
				return nil
			}
			if env.Err != nil {
				return errs.FromRpError(env.Err)
			}
			exchange, hasExchange := env.Message.String(wire.ExchangeField)
			route, hasRoute := env.Message.String(wire.TradeRouteField)
			if hasExchange && hasRoute {
				c.tradeRoutes.LoadOrStore(exchange, route)
			}
			if !env.HasMore {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("%w: trade routes refresh", errs.ErrTimeout)
		}
	}
}
