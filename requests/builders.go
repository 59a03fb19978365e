package requests

import "github.com/rithmic-go/rithmic-client/wire"

// Credentials mirrors the login-relevant subset of a caller's configured
// credentials (spec.md §3); kept here rather than imported from the root
// package to avoid a package cycle (the root package imports requests).
type Credentials struct {
	User       string
	Password   string
	SystemName string
}

// Login builds the template-10 login request for one plant, per spec.md §6:
// template_version, user, password, app_name, app_version, system_name,
// infra_type.
func Login(creds Credentials, p wire.Plant, appName, appVersion, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateLoginRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.TemplateVersionField, "5.27").
		PutString(wire.UserField, creds.User).
		PutString(wire.PasswordField, creds.Password).
		PutString(wire.AppNameField, appName).
		PutString(wire.AppVersionField, appVersion).
		PutString(wire.SystemNameField, creds.SystemName).
		PutVarint(wire.InfraTypeField, p.InfraType())
}

// Heartbeat builds the template-18 heartbeat request. The plant worker
// builds this one itself on its ticker (see plant.Worker.runLoop); exposed
// here too so other callers (tests, the example CLI) can build an identical
// frame without reaching into the plant package.
func Heartbeat() *wire.Record {
	return wire.NewRecord().PutVarint(wire.TemplateIDField, wire.TemplateHeartbeatRequest)
}

// SubscribeMarketData builds the template-100 request.
func SubscribeMarketData(symbol, exchange string, fields MarketDataFields, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateMarketDataSubscribeRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.SymbolField, symbol).
		PutString(wire.ExchangeField, exchange).
		PutVarint(wire.FieldsBitmaskField, int64(fields))
}

// UnsubscribeMarketData builds the template-102 request.
func UnsubscribeMarketData(symbol, exchange string, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateMarketDataUnsubscribeRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.SymbolField, symbol).
		PutString(wire.ExchangeField, exchange)
}

// ReplayTimeBars builds the template-202 time-bar replay request.
func ReplayTimeBars(p TimeBarReplayParams, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateTimeBarReplayRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.SymbolField, p.Symbol).
		PutString(wire.ExchangeField, p.Exchange).
		PutVarint(wire.BarTypeField, int64(TimeBar)).
		PutVarint(wire.BarSubTypeField, p.BarTypePeriod).
		PutVarint(wire.StartIndexField, p.StartIndex).
		PutVarint(wire.FinishIndexField, p.FinishIndex).
		PutVarint(wire.DirectionField, int64(p.Direction)).
		PutVarint(wire.TimeOrderField, int64(p.TimeOrder))
}

// ReplayTickBars builds the template-206 tick-bar replay request.
func ReplayTickBars(p TickBarReplayParams, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateTickBarReplayRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.SymbolField, p.Symbol).
		PutString(wire.ExchangeField, p.Exchange).
		PutVarint(wire.BarTypeField, int64(TickBar)).
		PutVarint(wire.BarSubTypeField, p.BarSubType).
		PutVarint(wire.StartIndexField, p.StartIndex).
		PutVarint(wire.FinishIndexField, p.FinishIndex).
		PutVarint(wire.DirectionField, int64(p.Direction)).
		PutVarint(wire.TimeOrderField, int64(p.TimeOrder))
}

// manualOrAuto converts the caller's auto flag to the wire discriminator
// required on every order builder (spec.md §4.7).
func manualOrAuto(auto bool) int64 {
	if auto {
		return 1
	}
	return 0
}

// NewOrder builds the template-312 new-order request.
func NewOrder(p NewOrderParams, identity AccountIdentity, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateNewOrderRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.AccountIDField, identity.AccountID).
		PutString(wire.FcmIDField, identity.FcmID).
		PutString(wire.IbIDField, identity.IbID).
		PutString(wire.SymbolField, p.Symbol).
		PutString(wire.ExchangeField, p.Exchange).
		PutVarint(wire.SideField, int64(p.Side)).
		PutVarint(wire.OrderTypeField, int64(p.Type)).
		PutVarint(wire.QuantityField, p.Quantity).
		PutFloat64(wire.PriceField, p.Price).
		PutVarint(wire.ManualOrAutoField, manualOrAuto(p.Auto))
}

// BracketOrder builds the template-330 bracket-order request: a new order
// plus profit-target/stop-loss offsets, per spec.md §6.
func BracketOrder(p BracketOrderParams, identity AccountIdentity, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateBracketOrderRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.AccountIDField, identity.AccountID).
		PutString(wire.FcmIDField, identity.FcmID).
		PutString(wire.IbIDField, identity.IbID).
		PutString(wire.SymbolField, p.Symbol).
		PutString(wire.ExchangeField, p.Exchange).
		PutVarint(wire.SideField, int64(p.Side)).
		PutVarint(wire.OrderTypeField, int64(p.Type)).
		PutVarint(wire.QuantityField, p.Quantity).
		PutFloat64(wire.PriceField, p.Price).
		PutVarint(wire.ManualOrAutoField, manualOrAuto(p.Auto)).
		PutFloat64(wire.ProfitTargetField, p.ProfitTarget).
		PutFloat64(wire.StopLossField, p.StopLoss)
}

// ModifyOrder builds the template-314 modify-order request.
func ModifyOrder(basketID string, newPrice float64, identity AccountIdentity, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateModifyOrderRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.AccountIDField, identity.AccountID).
		PutString(wire.FcmIDField, identity.FcmID).
		PutString(wire.IbIDField, identity.IbID).
		PutString(wire.BasketIDField, basketID).
		PutFloat64(wire.PriceField, newPrice)
}

// CancelOrder builds the template-316 cancel-order request.
func CancelOrder(basketID string, identity AccountIdentity, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateCancelOrderRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.AccountIDField, identity.AccountID).
		PutString(wire.FcmIDField, identity.FcmID).
		PutString(wire.IbIDField, identity.IbID).
		PutString(wire.BasketIDField, basketID)
}

// ShowOrders builds the template-320 show-orders request.
func ShowOrders(identity AccountIdentity, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateShowOrdersRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.AccountIDField, identity.AccountID).
		PutString(wire.FcmIDField, identity.FcmID).
		PutString(wire.IbIDField, identity.IbID)
}

// SubscribeOrderUpdates builds the fire-and-forget order-update
// subscription issued once during connect (spec.md §4.6 step 5).
func SubscribeOrderUpdates(identity AccountIdentity, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateSubscribeOrderUpdates).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.AccountIDField, identity.AccountID).
		PutString(wire.FcmIDField, identity.FcmID).
		PutString(wire.IbIDField, identity.IbID)
}

// AccountList builds the template-302 account-list request issued once
// during connect (spec.md §4.6 step 4).
func AccountList(identity AccountIdentity, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateAccountListRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.FcmIDField, identity.FcmID).
		PutString(wire.IbIDField, identity.IbID)
}

// TradeRoutes builds the template-306 trade-routes reference request,
// issued once during connect (spec.md §4.6 step 6) and again by
// RefreshTradeRoutes.
func TradeRoutes(identity AccountIdentity, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateTradeRoutesRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.FcmIDField, identity.FcmID).
		PutString(wire.IbIDField, identity.IbID)
}

// PnLSubscribe builds the template-400 PnL subscribe request.
func PnLSubscribe(identity AccountIdentity, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplatePnLSubscribeRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.AccountIDField, identity.AccountID).
		PutString(wire.FcmIDField, identity.FcmID).
		PutString(wire.IbIDField, identity.IbID)
}

// PnLSnapshot builds the template-402 PnL snapshot request.
func PnLSnapshot(identity AccountIdentity, corrID string) *wire.Record {
	return wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplatePnLSnapshotRequest).
		PutString(wire.UserMsgField, corrID).
		PutString(wire.AccountIDField, identity.AccountID).
		PutString(wire.FcmIDField, identity.FcmID).
		PutString(wire.IbIDField, identity.IbID)
}
