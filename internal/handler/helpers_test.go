package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/auth"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/middleware"
	"github.com/kuldeep456789/VisionIQ/internal/repository/sqlite"
	"github.com/kuldeep456789/VisionIQ/internal/service"
	"github.com/kuldeep456789/VisionIQ/internal/service/ai"
	"github.com/kuldeep456789/VisionIQ/internal/service/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubDetector struct {
	result *ai.Result
	err    error
}

func (d *stubDetector) Detect(context.Context, []byte) (*ai.Result, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

func (d *stubDetector) Name() string { return "stub" }
func (d *stubDetector) Close() error { return nil }

func twoObjects() *ai.Result {
	return &ai.Result{Width: 100, Height: 100, Objects: []ai.Object{
		{Label: "car", Confidence: 0.5, X1: 0, Y1: 0, X2: 50, Y2: 50},
		{Label: "person", Confidence: 0.9, X1: 50, Y1: 50, X2: 100, Y2: 100},
	}}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func pngBase64(t *testing.T) string {
	return base64.StdEncoding.EncodeToString(pngBytes(t))
}

type env struct {
	store     *sqlite.Store
	archive   *storage.DiskArchive
	tokens    *auth.TokenManager
	detector  *stubDetector
	detection *service.DetectionService
	auth      *service.AuthService
	history   *service.HistoryService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	archive, err := storage.NewDiskArchive(t.TempDir(), 0, logger.Discard())
	require.NoError(t, err)

	e := &env{
		store:    store,
		archive:  archive,
		tokens:   auth.NewTokenManager("test-secret", time.Hour),
		detector: &stubDetector{result: twoObjects()},
	}
	e.detection = service.NewDetectionService(e.detector, store.DetectionLogs(), archive, nil,
		service.DetectionOptions{PersistByDefault: true}, logger.Discard())
	e.auth = service.NewAuthService(store.Users(), e.tokens, auth.NewHasher(bcrypt.MinCost), logger.Discard())
	e.history = service.NewHistoryService(store.DetectionLogs(), archive, logger.Discard())
	return e
}

// register creates a user and returns its id and token.
func (e *env) register(t *testing.T, email string) (int64, string) {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), dto.RegisterRequest{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return resp.User.ID, resp.Token
}

func (e *env) authed(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(e.tokens, h)
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
