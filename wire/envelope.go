package wire

import (
	"fmt"
	"strings"
)

// Envelope is the decoded shape every inbound frame reduces to, regardless of
// which plant or template it came from: spec.md §3/§4.1's
// {correlation_id, message, is_update, has_more, error} tuple.
type Envelope struct {
	TemplateID int64
	// CorrelationID is user_msg[0] on request/response pairs. Unsolicited
	// updates carry no correlation id (empty string).
	CorrelationID string
	// Message is the full parsed record, left for the caller to project
	// into whatever concrete fields the template needs.
	Message *Record
	// IsUpdate is true for unsolicited server-pushed messages (account
	// updates, forced logout, market data ticks, order/PnL notifications).
	IsUpdate bool
	// HasMore is true when more fragments of a multi-response answer are
	// still to come (derived from rq_handler_rp_code per spec.md §4.1).
	HasMore bool
	// Err is non-nil when rp_code indicates failure. Per spec.md's
	// convention, rp_code == ["0"] (or absent) means success; any other
	// value is an error whose text is joined from the remaining elements.
	Err error
}

// RpError is returned via Envelope.Err when a response's rp_code reports
// failure. Callers can match on it with errors.As to recover the raw code.
type RpError struct {
	Code string
	Text string
}

func (e *RpError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("wire: rp_code %s", e.Code)
	}
	return fmt.Sprintf("wire: rp_code %s: %s", e.Code, e.Text)
}

// RpCode exposes the raw rp_code/text pair so errs.FromRpError can build a
// structured ProtocolError without this package depending on errs.
func (e *RpError) RpCode() (code, text string) { return e.Code, e.Text }

// Decode parses a single frame body (post length-prefix) into an Envelope.
// Decode never performs I/O and never panics: a malformed body yields a
// non-nil error wrapping ErrDecode, and an unrecognized template_id yields a
// best-effort Envelope alongside an UnknownTemplateError.
func Decode(body []byte) (*Envelope, error) {
	rec, err := ParseRecord(body)
	if err != nil {
		return nil, err
	}
	templateID, ok := rec.Int64(TemplateIDField)
	if !ok {
		return nil, fmt.Errorf("wire: %w: missing template_id", ErrDecode)
	}

	env := &Envelope{
		TemplateID: templateID,
		Message:    rec,
		IsUpdate:   classifyUpdate(templateID),
	}

	if userMsg := rec.Strings(UserMsgField); len(userMsg) > 0 {
		env.CorrelationID = userMsg[0]
	}

	rpCode := rec.Strings(RpCodeField)
	if len(rpCode) > 0 && rpCode[0] != "0" {
		text := "Unknown Error"
		if len(rpCode) >= 2 {
			text = strings.Join(rpCode[1:], " ")
		}
		env.Err = &RpError{Code: rpCode[0], Text: text}
	}

	if classifyMultiResponse(templateID) {
		if handlerCode := rec.Strings(RqHandlerRpCodeField); len(handlerCode) > 0 {
			env.HasMore = handlerCode[0] == "0"
		}
	}

	if templateID == TemplateReject {
		text, _ := rec.String(UserMsgField)
		env.Err = &RpError{Code: "reject", Text: text}
	}

	if _, known := templateNames[templateID]; !known {
		return env, &UnknownTemplateError{TemplateID: templateID}
	}
	return env, nil
}

// templateNames backs Decode's "known template" check. It is deliberately a
// superset list rather than a name-lookup API: nothing in this package needs
// human-readable template names, only membership.
var templateNames = map[int64]struct{}{
	TemplateLoginRequest: {}, TemplateLoginResponse: {},
	TemplateHeartbeatRequest: {}, TemplateHeartbeatResponse: {},
	TemplateReject: {}, TemplateUserAccountUpdate: {}, TemplateForcedLogout: {},
	TemplateMarketDataSubscribeRequest: {}, TemplateMarketDataSubscribeResponse: {},
	TemplateMarketDataUnsubscribeRequest: {}, TemplateMarketDataUnsubscribeResponse: {},
	TemplateLastTradeUpdate: {}, TemplateBBOUpdate: {},
	TemplateTimeBarReplayRequest: {}, TemplateTimeBarReplayResponse: {},
	TemplateTickBarReplayRequest: {}, TemplateTickBarReplayResponse: {},
	TemplateHistoryUpdate: {}, TemplateHistoryUpdate + 1: {},
	TemplateNewOrderRequest: {}, TemplateNewOrderResponse: {},
	TemplateModifyOrderRequest: {}, TemplateModifyOrderResponse: {},
	TemplateCancelOrderRequest: {}, TemplateCancelOrderResponse: {},
	TemplateShowOrdersRequest: {}, TemplateShowOrdersResponse: {},
	TemplateShowOrderHistoryReq: {}, TemplateShowOrderHistoryResp: {},
	TemplateOCOOrderRequest: {}, TemplateOCOOrderResponse: {},
	TemplateBracketOrderRequest: {}, TemplateBracketOrderResponse: {},
	TemplateCancelAllOrdersReq: {}, TemplateCancelAllOrdersResp: {},
	TemplateAccountListRequest: {}, TemplateAccountListResponse: {},
	TemplateTradeRoutesRequest: {}, TemplateTradeRoutesResponse: {},
	TemplateSubscribeOrderUpdates: {},
	TemplatePnLSubscribeRequest:   {}, TemplatePnLSubscribeResponse: {},
	TemplatePnLSnapshotRequest: {}, TemplatePnLSnapshotResponse: {},
	TemplateSystemGatewayInfoRequest: {}, TemplateSystemGatewayInfoResponse: {},
	TemplateSystemInfoRequest: {}, TemplateSystemInfoResponse: {},
	TemplateAcceptAgreementRequest: {}, TemplateAcceptAgreementResponse: {},
}

func init() {
	for id := 150; id <= 163; id++ {
		templateNames[int64(id)] = struct{}{}
	}
	for id := 350; id <= 356; id++ {
		templateNames[int64(id)] = struct{}{}
	}
	for id := 450; id <= 451; id++ {
		templateNames[int64(id)] = struct{}{}
	}
}
