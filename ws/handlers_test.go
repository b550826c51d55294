package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/hospiq/queue-backend/internal/models"
	"github.com/hospiq/queue-backend/internal/queue"
	"github.com/hospiq/queue-backend/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *queue.Engine, *Hub) {
	t.Helper()
	log := testLogger()
	hub := NewHub(log)
	engine := queue.NewEngine(store.NewMemStore(), hub, queue.SystemClock(), log)

	e := echo.New()
	e.GET("/ws", ServeWS(hub, engine, log))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, engine, hub
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt models.Event
	require.NoError(t, json.Unmarshal(payload, &evt))
	return evt
}

func register(t *testing.T, engine *queue.Engine, contact string) *models.RegisterResult {
	t.Helper()
	res, err := engine.Register(context.Background(), models.RegisterInput{
		Name:       "Patient " + contact,
		Age:        30,
		Gender:     "M",
		Contact:    contact,
		Department: "GEN",
		Symptoms:   "cough",
	})
	require.NoError(t, err)
	return res
}

func TestServeWSSnapshotThenEvents(t *testing.T) {
	srv, engine, _ := newTestServer(t)

	before := register(t, engine, "555-0001")

	conn := dial(t, srv)

	// First frame is always the snapshot, covering exactly the entries
	// committed before subscription.
	snapshot := readEvent(t, conn)
	require.Equal(t, models.EventSnapshot, snapshot.Type)
	require.Len(t, snapshot.Items, 1)
	require.Equal(t, before.EntryID, snapshot.Items[0].ID)

	// Registrations after subscription arrive as events, in commit order.
	r1 := register(t, engine, "555-0002")
	r2 := register(t, engine, "555-0003")

	evt := readEvent(t, conn)
	require.Equal(t, models.EventNewRegistration, evt.Type)
	require.Equal(t, r1.Token, evt.Item.Token)

	evt = readEvent(t, conn)
	require.Equal(t, models.EventNewRegistration, evt.Type)
	require.Equal(t, r2.Token, evt.Item.Token)

	// Status updates flow over the same stream.
	_, err := engine.Advance(context.Background(), before.EntryID, models.StatusInProgress)
	require.NoError(t, err)

	evt = readEvent(t, conn)
	require.Equal(t, models.EventStatusUpdate, evt.Type)
	require.Equal(t, before.EntryID, evt.Item.ID)
	require.Equal(t, models.StatusInProgress, evt.Item.Status)
	require.NotNil(t, evt.Item.CalledAt)
}

func TestServeWSMultipleObserversSeeSameOrder(t *testing.T) {
	srv, engine, _ := newTestServer(t)

	connA := dial(t, srv)
	connB := dial(t, srv)
	require.Equal(t, models.EventSnapshot, readEvent(t, connA).Type)
	require.Equal(t, models.EventSnapshot, readEvent(t, connB).Type)

	r1 := register(t, engine, "555-0001")
	r2 := register(t, engine, "555-0002")

	for _, conn := range []*websocket.Conn{connA, connB} {
		evt := readEvent(t, conn)
		require.Equal(t, r1.Token, evt.Item.Token)
		evt = readEvent(t, conn)
		require.Equal(t, r2.Token, evt.Item.Token)
	}
}

func TestServeWSDisconnectRemovesObserver(t *testing.T) {
	srv, engine, hub := newTestServer(t)

	conn := dial(t, srv)
	readEvent(t, conn) // snapshot
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	// A write after the disconnect must not fail the writer.
	register(t, engine, "555-0001")
}
