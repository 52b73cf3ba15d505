package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/domain/models"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/internal/services/aggregator"
	"github.com/iwtcode/hexapodService/internal/services/hexapod_service"
	"github.com/iwtcode/hexapodService/internal/services/hexapod_service/sim"
	"github.com/iwtcode/hexapodService/internal/services/telemetry"
	"github.com/iwtcode/hexapodService/internal/usecases"
	pub "github.com/iwtcode/hexapodService/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router    http.Handler
	transport *sim.Transport
	broker    *telemetry.Broker
	svc       interfaces.HexapodService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := logging.NewNop()
	cfg := &config.AppConfig{GinMode: "test", SubscriberBuffer: 16, Jog: config.JogConfig{DefaultStepIndex: 6}}

	agg, err := aggregator.New(config.DefaultChannels(), 3, logger)
	require.NoError(t, err)
	broker := telemetry.NewBroker(16, logger)
	transport := sim.New(sim.Options{})
	svc := hexapod_service.NewHexapodService(transport, agg, broker, hexapod_service.ServiceOptions{JogPolicy: hexapod_service.JogQueue, JogBacklog: 1}, logger)
	catalog, err := usecases.NewJogStepCatalog(cfg)
	require.NoError(t, err)
	devices := config.NewDevices([]pub.DeviceConnection{{Name: "Hex1", Address: "192.168.1.10", Port: 50000}})

	uc := usecases.NewUsecases(svc, devices, agg, broker, catalog, cfg, logger)
	t.Cleanup(func() {
		_ = svc.ShutdownAll()
		broker.Close()
	})
	return &testAPI{
		router:    ProvideRouter(NewHandler(uc, logger), cfg),
		transport: transport,
		broker:    broker,
		svc:       svc,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func errorCode(resp map[string]interface{}) float64 {
	e, _ := resp["error"].(map[string]interface{})
	code, _ := e["code"].(float64)
	return code
}

func TestConnectLifecycle(t *testing.T) {
	a := newTestAPI(t)

	w, resp := a.do(t, http.MethodPost, "/api/v1/devices/Hex1/connect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp["status"])
	session := resp["session"].(map[string]interface{})
	assert.Equal(t, "connected", session["state"])

	w, resp = a.do(t, http.MethodPost, "/api/v1/devices/hex1/connect", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, float64(http.StatusConflict), errorCode(resp))

	w, resp = a.do(t, http.MethodGet, "/api/v1/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["count"])

	w, _ = a.do(t, http.MethodGet, "/api/v1/devices/Hex1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(t, http.MethodDelete, "/api/v1/devices/Hex1/connect", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(t, http.MethodDelete, "/api/v1/devices/Hex1/connect", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(t, http.MethodGet, "/api/v1/devices/Hex1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = a.do(t, http.MethodPost, "/api/v1/devices/Hex7/connect", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConnectRefusedIsBadGateway(t *testing.T) {
	a := newTestAPI(t)
	a.transport.Device("192.168.1.10", 50000).RefuseConnect(assert.AnError)

	w, _ := a.do(t, http.MethodPost, "/api/v1/devices/Hex1/connect", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestJogAndMove(t *testing.T) {
	a := newTestAPI(t)
	w, _ := a.do(t, http.MethodPost, "/api/v1/devices/Hex1/jog", map[string]interface{}{"axis": "X", "direction": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := a.svc.OpenSession(context.Background(), pub.DeviceConnection{Name: "Hex1", Address: "192.168.1.10", Port: 50000})
	require.NoError(t, err)

	w, resp := a.do(t, http.MethodPost, "/api/v1/devices/Hex1/jog", map[string]interface{}{"axis": "x", "direction": 1, "step": 0.001})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	jog := resp["jog"].(map[string]interface{})
	assert.Equal(t, "X", jog["axis"])
	assert.Equal(t, 0.001, jog["step"])

	w, _ = a.do(t, http.MethodPost, "/api/v1/devices/Hex1/jog", map[string]interface{}{"axis": "X", "direction": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = a.do(t, http.MethodPost, "/api/v1/devices/Hex1/jog", map[string]interface{}{"axis": "Q", "direction": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = a.do(t, http.MethodPost, "/api/v1/devices/Hex1/move", map[string]interface{}{"vector": []float64{0, 0.5, 0, 0, 0, 0}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = a.do(t, http.MethodPost, "/api/v1/devices/Hex1/move", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = a.do(t, http.MethodGet, "/api/v1/devices/Hex1/position", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pos := resp["position"].([]interface{})
	require.Len(t, pos, 6)
	assert.InDelta(t, 0.001, pos[0].(float64), 1e-12)
	assert.InDelta(t, 0.5, pos[1].(float64), 1e-12)
}

func TestJogSteps(t *testing.T) {
	a := newTestAPI(t)

	w, resp := a.do(t, http.MethodGet, "/api/v1/jog/steps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	jog := resp["jog"].(map[string]interface{})
	assert.Equal(t, float64(6), jog["selected"])
	assert.Equal(t, 0.02, jog["step"])

	w, resp = a.do(t, http.MethodPut, "/api/v1/jog/steps", map[string]interface{}{"index": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0.0002, resp["jog"].(map[string]interface{})["step"])

	w, _ = a.do(t, http.MethodPut, "/api/v1/jog/steps", map[string]interface{}{"index": 99})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w, _ = a.do(t, http.MethodPut, "/api/v1/jog/steps", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChannels(t *testing.T) {
	a := newTestAPI(t)

	w, resp := a.do(t, http.MethodGet, "/api/v1/channels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(len(config.DefaultChannels())), resp["count"])

	w, resp = a.do(t, http.MethodPut, "/api/v1/channels/PICH5/target", map[string]interface{}{"target": 2.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	channel := resp["channel"].(map[string]interface{})
	assert.Equal(t, 2.5, channel["target"])
	assert.Equal(t, "n/a", channel["verdict"])

	w, _ = a.do(t, http.MethodGet, "/api/v1/channels/PICH5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(t, http.MethodGet, "/api/v1/channels/NOPE", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTelemetryWebSocket(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/telemetry/ws?device=Hex1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.broker.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	pos := pub.Vector6{1, 2, 3}
	a.broker.Publish(pub.Event{Type: pub.EventPosition, Device: "Hex2", State: pub.StateConnected, Position: &pos})
	a.broker.Publish(pub.Event{Type: pub.EventPosition, Device: "Hex1", Seq: 42, State: pub.StateConnected, Position: &pos})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg models.TelemetryMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "Hex1", msg.Device)
	assert.Equal(t, uint64(42), msg.Seq)
	assert.Equal(t, pub.EventPosition, msg.Type)
	require.NotNil(t, msg.Position)
	assert.Equal(t, pos, *msg.Position)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return a.broker.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
