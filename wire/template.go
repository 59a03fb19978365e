package wire

import "google.golang.org/protobuf/encoding/protowire"

// Field numbers shared by every request/response/update record. Only
// TemplateIDField (154467) is specified by the protocol; the rest are this
// client's own internal convention for the generic Record encoding used in
// place of per-template generated messages (see record.go).
const (
	UserMsgField         protowire.Number = 154467 + 1 // first field after template_id on every envelope
	RpCodeField          protowire.Number = 154467 + 2
	RqHandlerRpCodeField protowire.Number = 154467 + 3

	// Login request/response fields (spec.md §6).
	TemplateVersionField      protowire.Number = 10
	UserField                 protowire.Number = 11
	PasswordField             protowire.Number = 12
	AppNameField              protowire.Number = 13
	AppVersionField           protowire.Number = 14
	SystemNameField           protowire.Number = 15
	InfraTypeField            protowire.Number = 16
	HeartbeatIntervalField    protowire.Number = 18
	FcmIDField                protowire.Number = 19
	IbIDField                 protowire.Number = 20
	AccountIDField            protowire.Number = 21

	// Instrument fields reused across request builders.
	ExchangeField protowire.Number = 25
	SymbolField   protowire.Number = 26

	// Discovery (repository plant / bootstrap) fields.
	GatewayURIField         protowire.Number = 30
	SystemNameRepeatedField protowire.Number = 31

	// Market data / history / order / PnL request-builder fields.
	BasketIDField       protowire.Number = 40
	OrderStatusField    protowire.Number = 41
	SideField           protowire.Number = 42
	OrderTypeField      protowire.Number = 43
	PriceField          protowire.Number = 44
	QuantityField       protowire.Number = 45
	ManualOrAutoField   protowire.Number = 46
	BarTypeField        protowire.Number = 47
	BarSubTypeField     protowire.Number = 48
	StartIndexField     protowire.Number = 49
	FinishIndexField    protowire.Number = 50
	DirectionField      protowire.Number = 51
	TimeOrderField      protowire.Number = 52
	FieldsBitmaskField  protowire.Number = 53
	TradeRouteField     protowire.Number = 54
	TradePriceField     protowire.Number = 55
	TradeSizeField      protowire.Number = 56
	ProfitTargetField   protowire.Number = 58
	StopLossField       protowire.Number = 59
)

// Plant identifies one of the five R|Protocol logical services. Each plant
// is an independent TLS WebSocket session with its own login and template-id
// range (spec.md §3).
type Plant int

const (
	PlantTicker Plant = iota
	PlantHistory
	PlantOrder
	PlantPnL
	PlantRepository
)

func (p Plant) String() string {
	switch p {
	case PlantTicker:
		return "ticker"
	case PlantHistory:
		return "history"
	case PlantOrder:
		return "order"
	case PlantPnL:
		return "pnl"
	case PlantRepository:
		return "repository"
	default:
		return "unknown"
	}
}

// InfraType is the wire enum value the login request carries to identify
// which plant it is logging into.
func (p Plant) InfraType() int64 {
	switch p {
	case PlantTicker:
		return 1
	case PlantHistory:
		return 2
	case PlantOrder:
		return 3
	case PlantPnL:
		return 4
	case PlantRepository:
		return 5
	default:
		return 0
	}
}

// Template ids named by spec.md §3 and §6.
const (
	TemplateLoginRequest  = 10
	TemplateLoginResponse = 11

	TemplateHeartbeatRequest  = 18
	TemplateHeartbeatResponse = 19

	TemplateReject             = 75
	TemplateUserAccountUpdate  = 76
	TemplateForcedLogout       = 77

	TemplateMarketDataSubscribeRequest    = 100
	TemplateMarketDataSubscribeResponse   = 101
	TemplateMarketDataUnsubscribeRequest  = 102
	TemplateMarketDataUnsubscribeResponse = 103

	// Unsolicited ticker-plant updates, 150-163.
	TemplateLastTradeUpdate = 150
	TemplateBBOUpdate       = 151

	// History plant.
	TemplateTimeBarReplayRequest  = 202
	TemplateTimeBarReplayResponse = 203
	TemplateTickBarReplayRequest  = 206
	TemplateTickBarReplayResponse = 207
	TemplateHistoryUpdate         = 250 // 250-251 unsolicited

	// Order plant.
	TemplateNewOrderRequest       = 312
	TemplateNewOrderResponse      = 313
	TemplateModifyOrderRequest    = 314
	TemplateModifyOrderResponse   = 315
	TemplateCancelOrderRequest    = 316
	TemplateCancelOrderResponse   = 317
	TemplateShowOrdersRequest     = 320
	TemplateShowOrdersResponse    = 321
	TemplateShowOrderHistoryReq   = 322
	TemplateShowOrderHistoryResp  = 323
	TemplateOCOOrderRequest       = 328
	TemplateOCOOrderResponse      = 329
	TemplateBracketOrderRequest   = 330
	TemplateBracketOrderResponse  = 331
	TemplateCancelAllOrdersReq    = 346
	TemplateCancelAllOrdersResp   = 347
	TemplateOrderNotification     = 350 // 350-356 unsolicited
	TemplateAccountListRequest    = 302
	TemplateAccountListResponse   = 303
	TemplateTradeRoutesRequest    = 306
	TemplateTradeRoutesResponse   = 307
	TemplateSubscribeOrderUpdates = 308

	// PnL plant.
	TemplatePnLSubscribeRequest    = 400
	TemplatePnLSubscribeResponse   = 401
	TemplatePnLSnapshotRequest     = 402
	TemplatePnLSnapshotResponse    = 403
	TemplatePnLUpdate              = 450 // 450-451 unsolicited

	// Repository plant / discovery.
	TemplateSystemGatewayInfoRequest  = 500
	TemplateSystemGatewayInfoResponse = 501
	TemplateSystemInfoRequest         = 502
	TemplateSystemInfoResponse        = 503
	TemplateAcceptAgreementRequest    = 504
	// TemplateAcceptAgreementResponse: spec.md §9 flags id 505 as ambiguous in
	// the original source. DESIGN.md records the decision (follows
	// original_source/src/api/receiver_api.rs:1000-1023: 505 is built with
	// has_more/multi_response both false, i.e. single-shot, non-streaming).
	TemplateAcceptAgreementResponse = 505
)

// classifyUpdate reports whether a template id is an unsolicited update per
// spec.md §3/§4.1: 76/77, 150-163, 250-251, 350-356, 450-451.
func classifyUpdate(id int64) bool {
	switch {
	case id == TemplateUserAccountUpdate, id == TemplateForcedLogout:
		return true
	case id >= 150 && id <= 163:
		return true
	case id >= 250 && id <= 251:
		return true
	case id >= 350 && id <= 356:
		return true
	case id >= 450 && id <= 451:
		return true
	default:
		return false
	}
}

// classifyMultiResponse reports whether a response template id is expected
// to carry rq_handler_rp_code (i.e. may stream multiple fragments).
func classifyMultiResponse(id int64) bool {
	switch id {
	case TemplateTimeBarReplayResponse, TemplateTickBarReplayResponse,
		TemplateShowOrdersResponse, TemplateShowOrderHistoryResp,
		TemplateTradeRoutesResponse, TemplateSystemInfoResponse:
		return true
	default:
		return false
	}
}
