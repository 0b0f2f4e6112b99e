package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/scene"
	"github.com/zeusync/planar/internal/core/storage"
	"github.com/zeusync/planar/internal/core/storage/interfaces"
	"github.com/zeusync/planar/internal/core/systems/physics"
)

func testScene(t *testing.T) *scene.Scene {
	t.Helper()
	a := scene.NewBody(models.BodyA, "a.glb", scene.Placement{})
	b := scene.NewBody(models.BodyB, "b.glb", scene.Placement{Position: physics.V2(3, 0)})
	require.NoError(t, a.SetHalfExtents(physics.V2(1, 1)))
	require.NoError(t, b.SetHalfExtents(physics.V2(1, 1)))
	sc, err := scene.New(a, b, nil)
	require.NoError(t, err)
	return sc
}

func startServer(t *testing.T, sc *scene.Scene) *Server {
	t.Helper()
	return startServerWithTexts(t, sc, nil)
}

func startServerWithTexts(t *testing.T, sc *scene.Scene, texts interfaces.TextBoxStore) *Server {
	t.Helper()
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.TickInterval = 5 * time.Millisecond

	srv, err := NewServer(cfg, sc, texts, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return srv
}

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	greeting := readUntil(t, conn, func(m Message) bool { return m.Type == MessageState })
	require.Len(t, greeting.Bodies, 2)
	return conn
}

// readUntil returns the first message accepted by match.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Message) bool) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func isCommit(kind string) func(Message) bool {
	return func(m Message) bool { return m.Type == MessageCommit && m.Commit.Kind == kind }
}

func TestNewServerValidatesConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.TickInterval = 0
	_, err := NewServer(cfg, testScene(t), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestServerLifecycle(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	srv, err := NewServer(cfg, testScene(t), nil, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, srv.Stop(context.Background()), ErrServerNotRunning)
	require.NoError(t, srv.Start(context.Background()))
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerAlreadyRunning)
	require.NoError(t, srv.Stop(context.Background()))
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerClosed)
}

func TestWebSocketDragStopsAtContact(t *testing.T) {
	srv := startServer(t, testScene(t))
	conn := dial(t, srv)
	watcher := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionSelect, Body: models.BodyA}))
	state := readUntil(t, conn, func(m Message) bool { return m.Type == MessageState })
	assert.True(t, state.Bodies[0].Selected)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionDragStart}))
	state = readUntil(t, conn, func(m Message) bool { return m.Type == MessageState })
	assert.Equal(t, "dragging", state.Bodies[0].Drag)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionDrag, X: 2.5}))
	commit := readUntil(t, conn, isCommit("drag"))
	assert.Equal(t, models.BodyA, commit.Commit.Body)
	assert.InDelta(t, 1.0, commit.Commit.Position.X, 1e-4)
	assert.Equal(t, "bisected", commit.Commit.Outcome)

	// other clients see the same commit
	seen := readUntil(t, watcher, isCommit("drag"))
	assert.Equal(t, commit.Commit.Position, seen.Commit.Position)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionDragEnd}))
	readUntil(t, conn, isCommit("release"))
	state = readUntil(t, conn, func(m Message) bool { return m.Type == MessageState })
	assert.Equal(t, "committed", state.Bodies[0].Drag)
	assert.False(t, state.Overlapping)
}

func TestWebSocketRotation(t *testing.T) {
	srv := startServer(t, testScene(t))
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionRotate, Body: models.BodyB, Yaw: -90}))
	commit := readUntil(t, conn, isCommit("rotation"))
	assert.InDelta(t, 270, commit.Commit.Yaw, 1e-9)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionNudge, Body: models.BodyB, Delta: 15}))
	state := readUntil(t, conn, func(m Message) bool { return m.Type == MessageState })
	assert.InDelta(t, 285, state.Bodies[1].Yaw, 1e-9)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionSnap, Body: models.BodyB, Yaw: 480}))
	state = readUntil(t, conn, func(m Message) bool { return m.Type == MessageState })
	assert.InDelta(t, 120, state.Bodies[1].Yaw, 1e-9)
}

func TestWebSocketErrors(t *testing.T) {
	srv := startServer(t, testScene(t))
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionNudge, Delta: 15}))
	msg := readUntil(t, conn, func(m Message) bool { return m.Type == MessageError })
	assert.Contains(t, msg.Error, ErrNoBodySelected.Error())

	require.NoError(t, conn.WriteJSON(Command{Action: "explode", Body: models.BodyA}))
	msg = readUntil(t, conn, func(m Message) bool { return m.Type == MessageError })
	assert.Contains(t, msg.Error, "explode")

	require.NoError(t, conn.WriteJSON(Command{Action: ActionDrag, Body: models.BodyA, X: 1}))
	msg = readUntil(t, conn, func(m Message) bool { return m.Type == MessageError })
	assert.Contains(t, msg.Error, scene.ErrNotDragging.Error())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readUntil(t, conn, func(m Message) bool { return m.Type == MessageError })
	assert.Contains(t, msg.Error, ErrInvalidMessage.Error())
}

func TestDisconnectReleasesDrag(t *testing.T) {
	sc := testScene(t)
	srv := startServer(t, sc)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionDragStart, Body: models.BodyA}))
	readUntil(t, conn, func(m Message) bool { return m.Type == MessageState })
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		msg, ok := fetchState(srv)
		return ok && msg.Bodies[0].Drag == "committed"
	}, 2*time.Second, 20*time.Millisecond)
}

func fetchState(srv *Server) (Message, bool) {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	var msg Message
	if rec.Code != http.StatusOK || json.NewDecoder(rec.Body).Decode(&msg) != nil || len(msg.Bodies) != 2 {
		return Message{}, false
	}
	return msg, true
}

func TestStateEndpoint(t *testing.T) {
	sc := testScene(t)
	store := storage.NewMemoryStore()
	p := storage.NewPersister(store, storage.WithDebounce(time.Millisecond))
	_, err := sc.PersistCommits(p)
	require.NoError(t, err)
	srv := startServer(t, sc)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(Command{Action: ActionSnap, Body: models.BodyA, Yaw: 90}))
	readUntil(t, conn, isCommit("rotation"))

	msg, ok := fetchState(srv)
	require.True(t, ok)
	assert.InDelta(t, 90, msg.Bodies[0].Yaw, 1e-9)

	require.NoError(t, p.Close(context.Background()))
	stored, ok, err := store.Get(context.Background(), models.BodyA)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 90, stored.YawDegrees(), 1e-9)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/state", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStateReportsEventStats(t *testing.T) {
	srv := startServer(t, testScene(t))
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionSnap, Body: models.BodyA, Yaw: 45}))
	readUntil(t, conn, isCommit("rotation"))

	msg, ok := fetchState(srv)
	require.True(t, ok)
	require.NotNil(t, msg.Events)
	assert.GreaterOrEqual(t, msg.Events.Published, uint64(1))
	assert.GreaterOrEqual(t, msg.Events.Subscribers, uint64(1))
	assert.Zero(t, msg.Events.Errors)
}

type failingStore struct {
	*storage.MemoryStore
	err error
}

func (s *failingStore) Set(context.Context, models.BodyID, models.Pose) error { return s.err }

func TestPersistFailureIsBroadcast(t *testing.T) {
	sc := testScene(t)
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), err: errors.New("backend down")}
	p := storage.NewPersister(store, storage.WithEvents(sc.Events()), storage.WithWriteTimeout(time.Second))
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	_, err := sc.PersistCommits(p)
	require.NoError(t, err)

	srv := startServer(t, sc)
	conn := dial(t, srv)
	watcher := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionSnap, Body: models.BodyB, Yaw: 90}))
	for _, c := range []*websocket.Conn{conn, watcher} {
		notice := readUntil(t, c, func(m Message) bool { return m.Type == MessageNotice })
		assert.Contains(t, notice.Notice, "backend down")
		assert.Contains(t, notice.Notice, string(models.BodyB))
	}

	// the in-memory pose is kept
	msg, ok := fetchState(srv)
	require.True(t, ok)
	assert.InDelta(t, 90, msg.Bodies[1].Yaw, 1e-9)
}

func TestTextBoxCommands(t *testing.T) {
	store := storage.NewMemoryStore()
	srv := startServerWithTexts(t, testScene(t), store)
	conn := dial(t, srv)
	watcher := dial(t, srv)

	text := "hello"
	require.NoError(t, conn.WriteJSON(Command{Action: ActionTextCreate, X: 2, Z: -1, Yaw: 30, Patch: &models.TextBoxPatch{Text: &text}}))
	created := readUntil(t, watcher, func(m Message) bool { return m.Type == MessageText })
	require.Len(t, created.TextBoxes, 1)
	own := readUntil(t, conn, func(m Message) bool { return m.Type == MessageText })
	assert.Equal(t, created.TextBoxes, own.TextBoxes)
	box := created.TextBoxes[0]
	assert.NotEmpty(t, box.ID)
	assert.Equal(t, "hello", box.Text)
	assert.Equal(t, [3]float64{2, models.DefaultTextBoxHeight, -1}, box.Position)
	assert.Equal(t, 30.0, box.RotationDeg)

	width := 0.01
	require.NoError(t, conn.WriteJSON(Command{Action: ActionTextUpdate, TextID: box.ID, Patch: &models.TextBoxPatch{BoxWidth: &width}}))
	updated := readUntil(t, conn, func(m Message) bool { return m.Type == MessageText })
	require.Len(t, updated.TextBoxes, 1)
	assert.Equal(t, models.MinTextBoxWidth, updated.TextBoxes[0].BoxWidth)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionTextList}))
	listed := readUntil(t, conn, func(m Message) bool { return m.Type == MessageText })
	assert.Equal(t, updated.TextBoxes, listed.TextBoxes)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionTextDelete, TextID: box.ID}))
	deleted := readUntil(t, conn, func(m Message) bool { return m.Type == MessageText })
	assert.Empty(t, deleted.TextBoxes)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionTextDelete, TextID: box.ID}))
	msg := readUntil(t, conn, func(m Message) bool { return m.Type == MessageError })
	assert.Contains(t, msg.Error, storage.ErrTextBoxNotFound.Error())

	require.NoError(t, conn.WriteJSON(Command{Action: ActionTextUpdate, TextID: box.ID}))
	msg = readUntil(t, conn, func(m Message) bool { return m.Type == MessageError })
	assert.Contains(t, msg.Error, ErrInvalidMessage.Error())
}

func TestTextBoxCommandsWithoutStore(t *testing.T) {
	srv := startServer(t, testScene(t))
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionTextList}))
	msg := readUntil(t, conn, func(m Message) bool { return m.Type == MessageError })
	assert.Contains(t, msg.Error, ErrTextBoxesDisabled.Error())
}
