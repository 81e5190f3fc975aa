package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func readResult(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestLiveDetectHandler(t *testing.T) {
	e := newEnv(t)
	userID, token := e.register(t, "kim@example.com")
	srv := httptest.NewServer(middleware.OptionalAuth(e.tokens, LiveDetectHandler(e.detection, 1<<20, logger.Discard())))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/detect?save=true&token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()

	// binary frame
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, pngBytes(t)))
	m := readResult(t, conn)
	assert.JSONEq(t, `1`, string(m["frame"]))
	var dets []dto.Detection
	require.NoError(t, json.Unmarshal(m["detections"], &dets))
	assert.Len(t, dets, 2)
	assert.NotContains(t, m, "error")

	// text frame with a data URI
	frame, _ := json.Marshal(dto.LiveFrame{Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
	m = readResult(t, conn)
	assert.JSONEq(t, `2`, string(m["frame"]))

	// bad frame answers with an error and keeps the session open
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"image":"@@@"}`)))
	m = readResult(t, conn)
	assert.JSONEq(t, `3`, string(m["frame"]))
	assert.JSONEq(t, `"Failed to decode image"`, string(m["error"]))
	assert.NotContains(t, m, "detections")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	m = readResult(t, conn)
	assert.JSONEq(t, `"Invalid JSON frame"`, string(m["error"]))

	n, err := e.store.DetectionLogs().CountByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := e.store.DetectionLogs().ListByUser(context.Background(), userID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "live", entries[0].Source)
}

func TestLiveDetectHandler_NotSavedByDefault(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(LiveDetectHandler(e.detection, 1<<20, logger.Discard()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/detect"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, pngBytes(t)))
	readResult(t, conn)

	n, err := e.store.DetectionLogs().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLiveDetectHandler_FrameTooLarge(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(LiveDetectHandler(e.detection, 16, logger.Discard()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/detect"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, pngBytes(t)))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig), "got %v", err)
}
