package rithmic

import (
	"context"
	"fmt"

	"github.com/rithmic-go/rithmic-client/errs"
	"github.com/rithmic-go/rithmic-client/requests"
	"github.com/rithmic-go/rithmic-client/wire"
)

// SubscribeMarketData subscribes to BBO/trade/bar updates for symbol on
// exchange (spec.md §6); updates arrive on Subscriptions, not on a
// dedicated return channel.
func (c *Client) SubscribeMarketData(symbol, exchange string, fields requests.MarketDataFields) error {
	corrID := c.nextCorrelationID()
	rec := requests.SubscribeMarketData(symbol, exchange, fields, corrID)
	return c.fireAndForget(wire.PlantTicker, rec, corrID)
}

// UnsubscribeMarketData cancels a prior SubscribeMarketData.
func (c *Client) UnsubscribeMarketData(symbol, exchange string) error {
	corrID := c.nextCorrelationID()
	rec := requests.UnsubscribeMarketData(symbol, exchange, corrID)
	return c.fireAndForget(wire.PlantTicker, rec, corrID)
}

// ReplayTimeBars streams historical time bars over the History plant.
func (c *Client) ReplayTimeBars(p requests.TimeBarReplayParams) (<-chan *wire.Envelope, error) {
	corrID := c.nextCorrelationID()
	rec := requests.ReplayTimeBars(p, corrID)
	return c.doStream(wire.PlantHistory, rec, corrID)
}

// ReplayTickBars streams historical tick bars over the History plant.
func (c *Client) ReplayTickBars(p requests.TickBarReplayParams) (<-chan *wire.Envelope, error) {
	corrID := c.nextCorrelationID()
	rec := requests.ReplayTickBars(p, corrID)
	return c.doStream(wire.PlantHistory, rec, corrID)
}

// resolveTradeRoute is the shared preflight every order-bearing operation
// runs: an exchange with no cached trade route cannot carry an order
// (spec.md §4.6).
func (c *Client) resolveTradeRoute(exchange string) error {
	if _, ok := c.tradeRouteFor(exchange); !ok {
		return fmt.Errorf("%w: no trade route cached for exchange %q", errs.ErrNotConfigured, exchange)
	}
	return nil
}

// SubmitOrder places a new order over the Order plant, waiting for the
// server's acknowledgement.
func (c *Client) SubmitOrder(ctx context.Context, p requests.NewOrderParams) (*wire.Envelope, error) {
	if err := c.resolveTradeRoute(p.Exchange); err != nil {
		return nil, err
	}
	corrID := c.nextCorrelationID()
	rec := requests.NewOrder(p, c.identitySnapshot(), corrID)
	return c.doSingleShot(ctx, wire.PlantOrder, rec, corrID)
}

// SubmitBracketOrder places a new order with attached profit-target/
// stop-loss legs over the Order plant.
func (c *Client) SubmitBracketOrder(ctx context.Context, p requests.BracketOrderParams) (*wire.Envelope, error) {
	if err := c.resolveTradeRoute(p.Exchange); err != nil {
		return nil, err
	}
	corrID := c.nextCorrelationID()
	rec := requests.BracketOrder(p, c.identitySnapshot(), corrID)
	return c.doSingleShot(ctx, wire.PlantOrder, rec, corrID)
}

// ModifyOrder changes the price of a resting order identified by basketID.
func (c *Client) ModifyOrder(ctx context.Context, basketID string, newPrice float64) (*wire.Envelope, error) {
	corrID := c.nextCorrelationID()
	rec := requests.ModifyOrder(basketID, newPrice, c.identitySnapshot(), corrID)
	return c.doSingleShot(ctx, wire.PlantOrder, rec, corrID)
}

// CancelOrder cancels a resting order identified by basketID.
func (c *Client) CancelOrder(ctx context.Context, basketID string) (*wire.Envelope, error) {
	corrID := c.nextCorrelationID()
	rec := requests.CancelOrder(basketID, c.identitySnapshot(), corrID)
	return c.doSingleShot(ctx, wire.PlantOrder, rec, corrID)
}

// ShowOrders streams the current resting-order snapshot over the Order
// plant.
func (c *Client) ShowOrders() (<-chan *wire.Envelope, error) {
	corrID := c.nextCorrelationID()
	rec := requests.ShowOrders(c.identitySnapshot(), corrID)
	return c.doStream(wire.PlantOrder, rec, corrID)
}

// PnLSubscribe subscribes to unsolicited PnL updates over the PnL plant;
// updates arrive on Subscriptions.
func (c *Client) PnLSubscribe() error {
	corrID := c.nextCorrelationID()
	rec := requests.PnLSubscribe(c.identitySnapshot(), corrID)
	return c.fireAndForget(wire.PlantPnL, rec, corrID)
}

// PnLSnapshot fetches the current PnL snapshot over the PnL plant.
func (c *Client) PnLSnapshot(ctx context.Context) (*wire.Envelope, error) {
	corrID := c.nextCorrelationID()
	rec := requests.PnLSnapshot(c.identitySnapshot(), corrID)
	return c.doSingleShot(ctx, wire.PlantPnL, rec, corrID)
}
