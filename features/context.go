// Package features holds the cucumber/godog BDD suite exercising spec.md
// §8's end-to-end scenarios (S1-S6) against an in-process fake gateway,
// grounded on the teacher's own features/ package (shared test-suite
// struct + ScenarioInitializer + step-method-per-behavior style).
package features

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	rithmic "github.com/rithmic-go/rithmic-client"
	"github.com/rithmic-go/rithmic-client/requests"
	"github.com/rithmic-go/rithmic-client/wire"
)

// testSuite is the shared BDD fixture, reset before every scenario. It
// plays the role of the teacher's per-suite struct, holding whatever state
// that scenario's steps need plus a handle on every plant's live
// connection so later steps can push frames directly.
type testSuite struct {
	mu sync.Mutex

	srv *httptest.Server

	rejectPlant wire.Plant
	rejectMsg   string
	heartbeat   float64

	conns map[wire.Plant]*websocket.Conn
	reqCh map[wire.Plant]chan *wire.Envelope

	client  *rithmic.Client
	connErr error

	lastOrderEnv *wire.Envelope
	lastOpErr    error

	tickBarFragments []*wire.Envelope
}

func (s *testSuite) reset() {
	s.mu.Lock()
	srv, client := s.srv, s.client
	s.mu.Unlock()
	if srv != nil {
		srv.Close()
	}
	if client != nil {
		client.Close()
	}
	*s = testSuite{heartbeat: 30.0}
}

func sendEnvelope(conn *websocket.Conn, rec *wire.Record) error {
	framed, err := wire.EncodeFrame(rec.Marshal())
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, framed)
}

func readEnvelope(conn *websocket.Conn) (*wire.Envelope, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	body, err := wire.ReadFrame(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return wire.Decode(body)
}

func plantForInfraType(infraType int64) wire.Plant {
	for _, p := range []wire.Plant{wire.PlantTicker, wire.PlantHistory, wire.PlantOrder, wire.PlantPnL} {
		if p.InfraType() == infraType {
			return p
		}
	}
	return wire.PlantRepository
}

// registerConn records a plant's live connection and starts the goroutine
// that feeds every subsequent request frame it sends into a channel, so
// step functions can consume those requests without each owning its own
// read loop.
func (s *testSuite) registerConn(p wire.Plant, conn *websocket.Conn) chan *wire.Envelope {
	ch := make(chan *wire.Envelope, 16)
	s.mu.Lock()
	s.conns[p] = conn
	s.reqCh[p] = ch
	s.mu.Unlock()
	go func() {
		defer close(ch)
		for {
			env, err := readEnvelope(conn)
			if err != nil {
				return
			}
			ch <- env
		}
	}()
	return ch
}

func (s *testSuite) connFor(p wire.Plant) *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[p]
}

func (s *testSuite) reqChFor(p wire.Plant) chan *wire.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqCh[p]
}

// startGateway brings up the fake fleet: every plant's login is accepted
// unless rejectPlant/rejectMsg were set by a prior step, in which case that
// plant's login is refused instead.
func (s *testSuite) startGateway() {
	s.conns = make(map[wire.Plant]*websocket.Conn)
	s.reqCh = make(map[wire.Plant]chan *wire.Envelope)

	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		login, err := readEnvelope(conn)
		if err != nil {
			conn.Close()
			return
		}
		infraType, _ := login.Message.Int64(wire.InfraTypeField)
		p := plantForInfraType(infraType)

		s.mu.Lock()
		rejectPlant, rejectMsg, heartbeat := s.rejectPlant, s.rejectMsg, s.heartbeat
		s.mu.Unlock()

		if rejectMsg != "" && p == rejectPlant {
			sendEnvelope(conn, wire.NewRecord().
				PutVarint(wire.TemplateIDField, wire.TemplateLoginResponse).
				PutString(wire.UserMsgField, login.CorrelationID).
				PutString(wire.RpCodeField, "5").
				PutString(wire.RpCodeField, rejectMsg))
			conn.Close()
			return
		}

		sendEnvelope(conn, wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateLoginResponse).
			PutString(wire.UserMsgField, login.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutFloat64(wire.HeartbeatIntervalField, heartbeat).
			PutString(wire.FcmIDField, "FCM1").
			PutString(wire.IbIDField, "IB1"))

		reqCh := s.registerConn(p, conn)

		if p == wire.PlantOrder {
			s.runOrderConnectSequence(conn, reqCh)
		}
	}))
}

func (s *testSuite) runOrderConnectSequence(conn *websocket.Conn, reqCh chan *wire.Envelope) {
	acctReq, ok := <-reqCh
	if !ok {
		return
	}
	sendEnvelope(conn, wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateAccountListResponse).
		PutString(wire.UserMsgField, acctReq.CorrelationID).
		PutString(wire.RpCodeField, "0").
		PutString(wire.AccountIDField, "ACC1"))

	if _, ok := <-reqCh; !ok { // order-updates subscribe, fire-and-forget
		return
	}

	routesReq, ok := <-reqCh
	if !ok {
		return
	}
	sendEnvelope(conn, wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateTradeRoutesResponse).
		PutString(wire.UserMsgField, routesReq.CorrelationID).
		PutString(wire.RpCodeField, "0").
		PutString(wire.RqHandlerRpCodeField, "1").
		PutString(wire.ExchangeField, "CME").
		PutString(wire.TradeRouteField, "globex"))
}

func (s *testSuite) gatewayURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *testSuite) connect() {
	s.client = rithmic.NewClient(rithmic.Config{
		Credentials: rithmic.Credentials{
			User:             "u",
			Password:         "p",
			SystemName:       "Rithmic Test",
			DirectGatewayURL: s.gatewayURL(),
		},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, s.connErr = s.client.Connect(ctx)
}

// Step implementations. Each maps one Gherkin phrase from the .feature
// files to a method on testSuite, following the teacher's one-method-per-
// step convention.

func (s *testSuite) aFakeGatewayThatAcceptsEveryPlantLogin() error {
	s.startGateway()
	return nil
}

func (s *testSuite) theGatewayReportsAHeartbeatIntervalOfSeconds(seconds float64) error {
	s.heartbeat = seconds
	return nil
}

func (s *testSuite) aFakeGatewayThatRejectsThePlantLoginWith(plantName, msg string) error {
	p, err := plantByName(plantName)
	if err != nil {
		return err
	}
	s.rejectPlant, s.rejectMsg = p, msg
	s.startGateway()
	return nil
}

func plantByName(name string) (wire.Plant, error) {
	switch strings.ToLower(name) {
	case "ticker":
		return wire.PlantTicker, nil
	case "history":
		return wire.PlantHistory, nil
	case "order":
		return wire.PlantOrder, nil
	case "pnl":
		return wire.PlantPnL, nil
	}
	return 0, fmt.Errorf("unknown plant %q", name)
}

func (s *testSuite) iConnectWithValidCredentials() error {
	s.connect()
	return nil
}

func (s *testSuite) iHaveConnectedSuccessfully() error {
	s.connect()
	if s.connErr != nil {
		return fmt.Errorf("expected successful connect, got: %w", s.connErr)
	}
	return nil
}

func (s *testSuite) theConnectCallSucceedsWithinSeconds(int) error {
	return s.connErr
}

func (s *testSuite) theAccountIdentityIsKnown() error {
	if s.client.Identity().AccountID == "" {
		return fmt.Errorf("expected a non-empty account id")
	}
	return nil
}

func (s *testSuite) theConnectCallFailsWithAnErrorContaining(substr string) error {
	if s.connErr == nil {
		return fmt.Errorf("expected connect to fail, it succeeded")
	}
	if !strings.Contains(s.connErr.Error(), substr) {
		return fmt.Errorf("expected error to contain %q, got %q", substr, s.connErr.Error())
	}
	return nil
}

func (s *testSuite) noPlantWorkerRemainsConnected() error {
	if s.client.Identity().AccountID != "" {
		return fmt.Errorf("expected no account identity to have been recorded")
	}
	_, historyErr := s.client.ReplayTickBars(requests.TickBarReplayParams{Symbol: "ESZ5", Exchange: "CME"})
	_, orderErr := s.client.ShowOrders()
	for name, err := range map[string]error{
		"ticker":  s.client.SubscribeMarketData("ESZ5", "CME", requests.LastTrade),
		"history": historyErr,
		"order":   orderErr,
		"pnl":     s.client.PnLSubscribe(),
	} {
		if !errors.Is(err, rithmic.ErrNotConfigured) {
			return fmt.Errorf("expected the %s plant to have no worker, got: %v", name, err)
		}
	}
	return nil
}

func (s *testSuite) theExchangeHasACachedTradeRoute(exchange string) error {
	if _, ok := s.client.TradeRoute(exchange); !ok {
		return fmt.Errorf("expected a cached trade route for %s", exchange)
	}
	return nil
}

func (s *testSuite) theGatewaySendsAForcedLogoutOnThePlant(plantName string) error {
	p, err := plantByName(plantName)
	if err != nil {
		return err
	}
	conn := s.connFor(p)
	if conn == nil {
		return fmt.Errorf("no live connection for plant %s", plantName)
	}
	return sendEnvelope(conn, wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateForcedLogout).
		PutString(wire.RpCodeField, "0"))
}

func (s *testSuite) aForcedLogoutMessageIsDeliveredOnTheSubscriptionChannel() error {
	select {
	case env := <-s.client.Subscriptions():
		if env.TemplateID != wire.TemplateForcedLogout {
			return fmt.Errorf("expected forced logout, got template %d", env.TemplateID)
		}
		return nil
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timed out waiting for forced logout")
	}
}

func (s *testSuite) iSubscribeToMarketDataForOn(symbol, exchange string) error {
	return s.client.SubscribeMarketData(symbol, exchange, requests.LastTrade)
}

func (s *testSuite) theGatewayPushesALastTradeUpdateForAtPrice(symbol string, price float64) error {
	conn := s.connFor(wire.PlantTicker)
	if conn == nil {
		return fmt.Errorf("no live Ticker connection")
	}
	// Drain the subscribe request the prior step sent, so the client's
	// fire-and-forget send isn't left stranded mid-channel.
	<-s.reqChFor(wire.PlantTicker)
	return sendEnvelope(conn, wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateLastTradeUpdate).
		PutString(wire.SymbolField, symbol).
		PutFloat64(wire.TradePriceField, price))
}

func (s *testSuite) aLastTradeUpdateForIsDeliveredOnTheSubscriptionChannel(symbol string) error {
	select {
	case env := <-s.client.Subscriptions():
		if env.TemplateID != wire.TemplateLastTradeUpdate {
			return fmt.Errorf("expected a last-trade update, got template %d", env.TemplateID)
		}
		got, _ := env.Message.String(wire.SymbolField)
		if got != symbol {
			return fmt.Errorf("expected symbol %s, got %s", symbol, got)
		}
		return nil
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timed out waiting for last-trade update")
	}
}

func (s *testSuite) iSubmitABuyLimitOrderForOn(qty int, symbol, exchange string, price float64) error {
	reqCh := s.reqChFor(wire.PlantOrder)
	conn := s.connFor(wire.PlantOrder)
	go func() {
		req, ok := <-reqCh
		if !ok {
			return
		}
		sendEnvelope(conn, wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateNewOrderResponse).
			PutString(wire.UserMsgField, req.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.BasketIDField, "B1"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	env, err := s.client.SubmitOrder(ctx, requests.NewOrderParams{
		Symbol: symbol, Exchange: exchange, Side: requests.Buy, Type: requests.Limit,
		Quantity: int64(qty), Price: price, Auto: true,
	})
	s.lastOrderEnv, s.lastOpErr = env, err
	return nil
}

func (s *testSuite) theOrderSubmissionAcknowledgesABasketID() error {
	if s.lastOpErr != nil {
		return s.lastOpErr
	}
	id, _ := s.lastOrderEnv.Message.String(wire.BasketIDField)
	if id == "" {
		return fmt.Errorf("expected a non-empty basket id")
	}
	return nil
}

func (s *testSuite) iModifyTheOrderPriceTo(price float64) error {
	reqCh := s.reqChFor(wire.PlantOrder)
	conn := s.connFor(wire.PlantOrder)
	go func() {
		req, ok := <-reqCh
		if !ok {
			return
		}
		sendEnvelope(conn, wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateModifyOrderResponse).
			PutString(wire.UserMsgField, req.CorrelationID).
			PutString(wire.RpCodeField, "0"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, _ := s.lastOrderEnv.Message.String(wire.BasketIDField)
	_, s.lastOpErr = s.client.ModifyOrder(ctx, id, price)
	return nil
}

func (s *testSuite) theOrderModificationSucceeds() error { return s.lastOpErr }

func (s *testSuite) iCancelTheOrder() error {
	reqCh := s.reqChFor(wire.PlantOrder)
	conn := s.connFor(wire.PlantOrder)
	go func() {
		req, ok := <-reqCh
		if !ok {
			return
		}
		sendEnvelope(conn, wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateCancelOrderResponse).
			PutString(wire.UserMsgField, req.CorrelationID).
			PutString(wire.RpCodeField, "0"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, _ := s.lastOrderEnv.Message.String(wire.BasketIDField)
	_, s.lastOpErr = s.client.CancelOrder(ctx, id)
	return nil
}

func (s *testSuite) theOrderCancellationSucceeds() error { return s.lastOpErr }

func (s *testSuite) iReplayTickBarsForOnAndTheGatewaySendsFragments(symbol, exchange string, fragments int) error {
	reqCh := s.reqChFor(wire.PlantHistory)
	conn := s.connFor(wire.PlantHistory)

	ch, err := s.client.ReplayTickBars(requests.TickBarReplayParams{
		Symbol: symbol, Exchange: exchange,
	})
	if err != nil {
		return err
	}

	req, ok := <-reqCh
	if !ok {
		return fmt.Errorf("history plant connection closed before replay request arrived")
	}
	for i := 1; i <= fragments; i++ {
		rec := wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateTickBarReplayResponse).
			PutString(wire.UserMsgField, req.CorrelationID).
			PutString(wire.RpCodeField, "0")
		if i < fragments {
			rec = rec.PutString(wire.RqHandlerRpCodeField, "0")
		} else {
			rec = rec.PutString(wire.RqHandlerRpCodeField, "1")
		}
		if err := sendEnvelope(conn, rec); err != nil {
			return err
		}
	}

	var got []*wire.Envelope
	for env := range ch {
		got = append(got, env)
	}
	s.mu.Lock()
	s.tickBarFragments = got
	s.mu.Unlock()
	return nil
}

func (s *testSuite) exactlyTickBarFragmentsAreDelivered(want int) error {
	s.mu.Lock()
	got := len(s.tickBarFragments)
	s.mu.Unlock()
	if got != want {
		return fmt.Errorf("expected %d fragments, got %d", want, got)
	}
	return nil
}

func (s *testSuite) theTickBarStreamChannelIsClosed() error {
	// iReplayTickBarsForOnAndTheGatewaySendsFragments already ranged the
	// channel to completion; reaching this step at all proves it closed.
	return nil
}
