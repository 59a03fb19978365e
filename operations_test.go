package rithmic

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rithmic-go/rithmic-client/requests"
	"github.com/rithmic-go/rithmic-client/wire"
)

// connectedTestClient drives a full Connect() against a fake fleet where
// the Order plant immediately satisfies account-list/order-updates/trade-
// routes and then falls through to extra, caller-supplied behavior.
func connectedTestClient(t *testing.T, onOrder func(t *testing.T, conn *websocket.Conn)) *Client {
	t.Helper()
	gwURL := newFakeFleet(t, func(t *testing.T, p wire.Plant, conn *websocket.Conn) {
		if p != wire.PlantOrder {
			return
		}

		acctReq := readEnvelope(t, conn)
		sendEnvelope(t, conn, wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateAccountListResponse).
			PutString(wire.UserMsgField, acctReq.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.AccountIDField, "ACC1"))

		readEnvelope(t, conn) // order-updates subscribe, fire-and-forget

		routesReq := readEnvelope(t, conn)
		sendEnvelope(t, conn, wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateTradeRoutesResponse).
			PutString(wire.UserMsgField, routesReq.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.RqHandlerRpCodeField, "1").
			PutString(wire.ExchangeField, "CME").
			PutString(wire.TradeRouteField, "globex"))

		if onOrder != nil {
			onOrder(t, conn)
		}
	})

	c := newTestClient(gwURL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestSubmitOrderRoundTrip(t *testing.T) {
	c := connectedTestClient(t, func(t *testing.T, conn *websocket.Conn) {
		req := readEnvelope(t, conn)
		require.Equal(t, int64(wire.TemplateNewOrderRequest), req.TemplateID)
		sendEnvelope(t, conn, wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateNewOrderResponse).
			PutString(wire.UserMsgField, req.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.BasketIDField, "B1"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	env, err := c.SubmitOrder(ctx, requests.NewOrderParams{
		Symbol:   "ESU6",
		Exchange: "CME",
		Side:     requests.Buy,
		Type:     requests.Limit,
		Quantity: 1,
		Price:    5000.25,
	})
	require.NoError(t, err)
	basketID, _ := env.Message.String(wire.BasketIDField)
	assert.Equal(t, "B1", basketID)
}

func TestShowOrdersStreamsUntilHasMoreFalse(t *testing.T) {
	c := connectedTestClient(t, func(t *testing.T, conn *websocket.Conn) {
		req := readEnvelope(t, conn)
		require.Equal(t, int64(wire.TemplateShowOrdersRequest), req.TemplateID)

		sendEnvelope(t, conn, wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateShowOrdersResponse).
			PutString(wire.UserMsgField, req.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.RqHandlerRpCodeField, "0").
			PutString(wire.BasketIDField, "B1"))
		sendEnvelope(t, conn, wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateShowOrdersResponse).
			PutString(wire.UserMsgField, req.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.RqHandlerRpCodeField, "1").
			PutString(wire.BasketIDField, "B2"))
	})

	ch, err := c.ShowOrders()
	require.NoError(t, err)

	var basketIDs []string
	for env := range ch {
		id, _ := env.Message.String(wire.BasketIDField)
		basketIDs = append(basketIDs, id)
	}
	assert.Equal(t, []string{"B1", "B2"}, basketIDs)
}
