package plant

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rithmic-go/rithmic-client/registry"
	"github.com/rithmic-go/rithmic-client/wire"
)

func sendEnvelope(t *testing.T, conn *websocket.Conn, rec *wire.Record) {
	t.Helper()
	framed, err := wire.EncodeFrame(rec.Marshal())
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, framed))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *wire.Envelope {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	body, err := wire.ReadFrame(bytes.NewReader(data))
	require.NoError(t, err)
	env, err := wire.Decode(body)
	require.NoError(t, err)
	return env
}

func newFakeGateway(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		go func() {
			defer conn.Close()
			handler(conn)
		}()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSpawnSuccessfulLoginReportsHeartbeatInterval(t *testing.T) {
	gwURL := newFakeGateway(t, func(conn *websocket.Conn) {
		env := readEnvelope(t, conn)
		require.Equal(t, int64(wire.TemplateLoginRequest), env.TemplateID)

		resp := wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateLoginResponse).
			PutString(wire.UserMsgField, env.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutFloat64(wire.HeartbeatIntervalField, 30.0).
			PutString(wire.FcmIDField, "FCM1").
			PutString(wire.IbIDField, "IB1")
		sendEnvelope(t, conn, resp)

		// Keep the connection open long enough to observe the worker's
		// behavior; stop reading once the test tears down.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	loginFrame := wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateLoginRequest).
		PutString(wire.UserMsgField, "corr-login-1")

	sub := make(chan *wire.Envelope, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, resultCh := Spawn(ctx, wire.PlantTicker, gwURL, loginFrame, "corr-login-1", sub, nil)
	defer w.Shutdown()

	result := <-resultCh
	require.NoError(t, result.Err)
	assert.Equal(t, 28*time.Second, result.HeartbeatInterval)
	assert.Equal(t, "FCM1", result.FcmID)
	assert.Equal(t, "IB1", result.IbID)
	assert.Equal(t, StateRunning, w.State())
}

func TestSpawnRejectedLoginReportsError(t *testing.T) {
	gwURL := newFakeGateway(t, func(conn *websocket.Conn) {
		env := readEnvelope(t, conn)
		resp := wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateLoginResponse).
			PutString(wire.UserMsgField, env.CorrelationID).
			PutString(wire.RpCodeField, "5").
			PutString(wire.RpCodeField, "Invalid password")
		sendEnvelope(t, conn, resp)
	})

	loginFrame := wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateLoginRequest).
		PutString(wire.UserMsgField, "corr-login-2")

	sub := make(chan *wire.Envelope, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, resultCh := Spawn(ctx, wire.PlantTicker, gwURL, loginFrame, "corr-login-2", sub, nil)
	defer w.Shutdown()

	result := <-resultCh
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "Invalid password")
}

func TestForcedLogoutDeliveredToSubscriptionsAndStopsWorker(t *testing.T) {
	gwURL := newFakeGateway(t, func(conn *websocket.Conn) {
		env := readEnvelope(t, conn)
		resp := wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateLoginResponse).
			PutString(wire.UserMsgField, env.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutFloat64(wire.HeartbeatIntervalField, 30.0)
		sendEnvelope(t, conn, resp)

		logout := wire.NewRecord().PutVarint(wire.TemplateIDField, wire.TemplateForcedLogout)
		sendEnvelope(t, conn, logout)
	})

	loginFrame := wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateLoginRequest).
		PutString(wire.UserMsgField, "corr-login-3")

	sub := make(chan *wire.Envelope, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, resultCh := Spawn(ctx, wire.PlantTicker, gwURL, loginFrame, "corr-login-3", sub, nil)
	require.NoError(t, (<-resultCh).Err)

	select {
	case env := <-sub:
		assert.Equal(t, int64(wire.TemplateForcedLogout), env.TemplateID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected forced logout on subscriptions")
	}

	<-w.Done()
	assert.Equal(t, StateClosed, w.State())
}

func TestSubmitSingleShotCommandDeliversResponse(t *testing.T) {
	gwURL := newFakeGateway(t, func(conn *websocket.Conn) {
		env := readEnvelope(t, conn)
		resp := wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateLoginResponse).
			PutString(wire.UserMsgField, env.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutFloat64(wire.HeartbeatIntervalField, 30.0)
		sendEnvelope(t, conn, resp)

		cmdEnv := readEnvelope(t, conn)
		require.Equal(t, int64(wire.TemplateAccountListRequest), cmdEnv.TemplateID)
		ack := wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateAccountListResponse).
			PutString(wire.UserMsgField, cmdEnv.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.AccountIDField, "ACC1")
		sendEnvelope(t, conn, ack)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	loginFrame := wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateLoginRequest).
		PutString(wire.UserMsgField, "corr-login-4")

	sub := make(chan *wire.Envelope, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, resultCh := Spawn(ctx, wire.PlantOrder, gwURL, loginFrame, "corr-login-4", sub, nil)
	defer w.Shutdown()
	require.NoError(t, (<-resultCh).Err)

	replyCh := make(chan *wire.Envelope, 1)
	done := make(chan struct{})
	waiter := registry.Waiter{Ch: replyCh, Done: done}

	body := wire.NewRecord().
		PutVarint(wire.TemplateIDField, wire.TemplateAccountListRequest).
		PutString(wire.UserMsgField, "corr-acct-1")
	require.NoError(t, w.Submit(Command{Body: body, CorrelationID: "corr-acct-1", Waiter: &waiter}))

	select {
	case env := <-replyCh:
		acctID, _ := env.Message.String(wire.AccountIDField)
		assert.Equal(t, "ACC1", acctID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected account-list response")
	}
}
