package hub

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classware-tech/switchboard/devices"
	"github.com/classware-tech/switchboard/events"
)

func dialHub(t *testing.T) (*Hub, *devices.MemoryStore, *websocket.Conn) {
	t.Helper()
	store := devices.NewMemoryStore()
	router := mux.NewRouter()
	h := MustNewHub(&Builder{
		Store:       store,
		Router:      router,
		Broadcaster: events.NewFanout(),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/devices/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return h, store, ws
}

func readReply(t *testing.T, ws *websocket.Conn) map[string]interface{} {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var reply map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &reply))
	return reply
}

func TestWebsocketIdentifyRoundTrip(t *testing.T) {
	h, store, ws := dialHub(t)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, identifyMsg(testMAC, "abc")))

	reply := readReply(t, ws)
	assert.Equal(t, "identified", reply["type"])
	assert.Equal(t, "online", reply["mode"])

	record, err := store.FindByMAC(context.Background(), testMAC)
	require.NoError(t, err)
	assert.Equal(t, devices.StatusOnline, record.Status)
	assert.NotEmpty(t, record.IP)
	assert.True(t, h.IsOnline(record))
}

func TestWebsocketCommandDelivery(t *testing.T) {
	h, store, ws := dialHub(t)
	ctx := context.Background()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, identifyMsg(testMAC, "abc")))
	readReply(t, ws)

	// provision a switch after the handshake
	record, err := store.FindByMAC(ctx, testMAC)
	require.NoError(t, err)
	record.Switches = []devices.Switch{{ID: uuid.New(), Name: "lights", GPIO: 16}}
	require.NoError(t, store.Save(ctx, record))

	err = h.Dispatcher().DispatchSingle(ctx, SingleCommand{
		DeviceID: record.ID,
		SwitchID: record.Switches[0].ID,
		State:    true,
	})
	require.NoError(t, err)

	command := readReply(t, ws)
	assert.Equal(t, "switch_command", command["type"])
	assert.Equal(t, float64(16), command["gpio"])
	assert.Equal(t, true, command["state"])
}

func TestWebsocketDisconnectMarksOffline(t *testing.T) {
	_, store, ws := dialHub(t)
	ctx := context.Background()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, identifyMsg(testMAC, "abc")))
	readReply(t, ws)

	require.NoError(t, ws.Close())

	require.Eventually(t, func() bool {
		record, err := store.FindByMAC(ctx, testMAC)
		return err == nil && record.Status == devices.StatusOffline
	}, 5*time.Second, 20*time.Millisecond)
}
