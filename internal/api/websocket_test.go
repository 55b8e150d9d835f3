package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinwijaya/blackjack-be/internal/game"
)

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocketStreamsSnapshots(t *testing.T) {
	ts := newTestServer(t, shoe(
		c("10", game.Spades), c("6", game.Hearts), c("9", game.Diamonds), c("8", game.Clubs),
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.handlers.hub.Run(ctx)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	view := ts.newSession(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?sessionId=" + view.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	welcome := readMessage(t, conn)
	assert.Equal(t, MessageWelcome, welcome.Type)
	assert.Equal(t, view.ID, welcome.SessionID)

	require.Eventually(t, func() bool { return ts.handlers.hub.Connected(view.ID) == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/session/"+view.ID+"/bet", "application/json", strings.NewReader(`{"amount":100}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// four cards dealt, then the player's turn
	for i := 0; i < 5; i++ {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageSnapshot, msg.Type)
	}

	// dealer stands on 17 and the summary follows the reveal
	resp, err = http.Post(srv.URL+"/api/session/"+view.ID+"/stand", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reveals := 0
	for {
		msg := readMessage(t, conn)
		if msg.Type == MessageSettled {
			break
		}
		assert.Equal(t, MessageSnapshot, msg.Type)
		reveals++
	}
	assert.Positive(t, reveals)
}

func TestWebSocketUnknownSession(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/ws?sessionId=missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
