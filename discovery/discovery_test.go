package discovery

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

	"github.com/rithmic-go/rithmic-client/wire"
)

func newFakeBootstrap(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readReq(t *testing.T, conn *websocket.Conn) *wire.Envelope {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	body, err := wire.ReadFrame(bytes.NewReader(data))
	require.NoError(t, err)
	env, err := wire.Decode(body)
	require.NoError(t, err)
	return env
}

func sendResp(t *testing.T, conn *websocket.Conn, rec *wire.Record) {
	t.Helper()
	framed, err := wire.EncodeFrame(rec.Marshal())
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, framed))
}

func TestResolveTestSystemBypassesNetwork(t *testing.T) {
	url, err := Resolve(context.Background(), "ws://127.0.0.1:1/unreachable", TestSystemName)
	require.NoError(t, err)
	assert.Equal(t, TestGatewayURL, url)
}

func TestResolveUsesGatewayURIFromResponse(t *testing.T) {
	gwURL := newFakeBootstrap(t, func(conn *websocket.Conn) {
		env := readReq(t, conn)
		resp := wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateSystemGatewayInfoResponse).
			PutString(wire.UserMsgField, env.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.GatewayURIField, "gateway.example.com:443")
		sendResp(t, conn, resp)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	url, err := Resolve(ctx, gwURL, "My Broker System")
	require.NoError(t, err)
	assert.Equal(t, "wss://gateway.example.com:443", url)
}

func TestResolvePreservesExplicitScheme(t *testing.T) {
	gwURL := newFakeBootstrap(t, func(conn *websocket.Conn) {
		env := readReq(t, conn)
		resp := wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateSystemGatewayInfoResponse).
			PutString(wire.UserMsgField, env.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.GatewayURIField, "ws://gateway.example.com:443")
		sendResp(t, conn, resp)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	url, err := Resolve(ctx, gwURL, "My Broker System")
	require.NoError(t, err)
	assert.Equal(t, "ws://gateway.example.com:443", url)
}

func TestListSystemsAccumulatesUntilHasMoreFalse(t *testing.T) {
	gwURL := newFakeBootstrap(t, func(conn *websocket.Conn) {
		env := readReq(t, conn)
		first := wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateSystemInfoResponse).
			PutString(wire.UserMsgField, env.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.RqHandlerRpCodeField, "0").
			PutString(wire.SystemNameRepeatedField, "Sys1")
		sendResp(t, conn, first)

		second := wire.NewRecord().
			PutVarint(wire.TemplateIDField, wire.TemplateSystemInfoResponse).
			PutString(wire.UserMsgField, env.CorrelationID).
			PutString(wire.RpCodeField, "0").
			PutString(wire.RqHandlerRpCodeField, "1").
			PutString(wire.SystemNameRepeatedField, "Sys2")
		sendResp(t, conn, second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	names, err := ListSystems(ctx, gwURL)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sys1", "Sys2"}, names)
}
