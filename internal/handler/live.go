package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/middleware"
	"github.com/kuldeep456789/VisionIQ/internal/model"
	"github.com/kuldeep456789/VisionIQ/internal/service"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// liveConn serializes writes; gorilla allows one concurrent writer.
type liveConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *liveConn) send(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return c.WriteMessage(messageType, data)
}

// LiveDetectHandler runs detection on every frame received over a WebSocket.
// Frames are binary images or text {"image": base64}; each is answered with
// a LiveResult. Frames are saved only with ?save=true.
func LiveDetectHandler(svc *service.DetectionService, maxFrameSize int64, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		save, _ := strconv.ParseBool(r.URL.Query().Get("save"))
		userID := middleware.UserIDPtr(r.Context())

		ws, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		conn := &liveConn{Conn: ws}
		defer conn.Close()

		if maxFrameSize > 0 {
			conn.SetReadLimit(maxFrameSize)
		}
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})

		done := make(chan struct{})
		defer close(done)
		go keepAlive(conn, done)

		logger.Info("Live detection session started")
		var frame int64
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Live session closed: %v", err)
				}
				break
			}
			frame++
			_ = conn.SetReadDeadline(time.Now().Add(livePongWait))

			result := dto.LiveResult{Frame: frame}
			detections, err := detectFrame(r, svc, messageType, data, userID, save)
			if err != nil {
				result.Error = messageFor(err)
			} else {
				result.Detections = detections
			}

			payload, err := json.Marshal(result)
			if err != nil {
				logger.Error("Failed to encode live result: %v", err)
				break
			}
			if err := conn.send(websocket.TextMessage, payload); err != nil {
				logger.Warning("Failed to send live result: %v", err)
				break
			}
		}
		logger.Info("Live detection session ended after %d frames", frame)
	}
}

func detectFrame(r *http.Request, svc *service.DetectionService, messageType int, data []byte, userID *int64, save bool) ([]dto.Detection, error) {
	var (
		img         []byte
		contentType string
		err         error
	)
	switch messageType {
	case websocket.BinaryMessage:
		img = data
		contentType, err = service.SniffImage(data)
	case websocket.TextMessage:
		var msg dto.LiveFrame
		if jsonErr := json.Unmarshal(data, &msg); jsonErr != nil {
			return nil, errors.New("Invalid JSON frame")
		}
		img, contentType, err = service.DecodeImage(msg.Image)
	default:
		return nil, common.ErrDecodeImage
	}
	if err != nil {
		return nil, err
	}

	return svc.Detect(r.Context(), service.DetectInput{
		Image:       img,
		ContentType: contentType,
		Source:      model.SourceLive,
		UserID:      userID,
		Save:        &save,
	})
}

func keepAlive(conn *liveConn, done <-chan struct{}) {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.send(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
