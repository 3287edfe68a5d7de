package brackets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastToRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	room := TournamentRoom(7)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(NewClient(hub, conn, room))
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount(room) == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastToRoom(room, MessageMatchUpdated, map[string]int{"match_number": 3})
	hub.BroadcastToRoom(TournamentRoom(8), MessageMatchUpdated, map[string]int{"match_number": 4})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
		RoomID  string         `json:"room_id"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageMatchUpdated, msg.Type)
	assert.Equal(t, "tournament_7", msg.RoomID)
	assert.Equal(t, 3, msg.Payload["match_number"])

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount(room) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRooms(t *testing.T) {
	assert.Equal(t, "tournament_12", TournamentRoom(12))
	assert.Equal(t, "user_5", UserRoom(5))
}
