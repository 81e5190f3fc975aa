package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteDetector delegates inference to an external HTTP service.
//
//	POST {base}/predict  {"image": "<base64>"}
//	  -> {"width":W,"height":H,"detections":[{"label","confidence","box":{"x1","y1","x2","y2"}}]}
//	GET  {base}/health   -> 200 when ready
type RemoteDetector struct {
	baseURL string
	client  *http.Client
}

var _ HealthChecker = (*RemoteDetector)(nil)

func NewRemoteDetector(baseURL string, timeout time.Duration) *RemoteDetector {
	return &RemoteDetector{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Image string `json:"image"`
}

type predictResponse struct {
	Width      int `json:"width"`
	Height     int `json:"height"`
	Detections []struct {
		Label      string  `json:"label"`
		ClassID    int     `json:"class_id"`
		Confidence float32 `json:"confidence"`
		Box        struct {
			X1 float32 `json:"x1"`
			Y1 float32 `json:"y1"`
			X2 float32 `json:"x2"`
			Y2 float32 `json:"y2"`
		} `json:"box"`
	} `json:"detections"`
}

func (d *RemoteDetector) Name() string { return "remote" }

func (d *RemoteDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// Detect sends the image to the inference service.
func (d *RemoteDetector) Detect(ctx context.Context, img []byte) (*Result, error) {
	body, err := json.Marshal(predictRequest{Image: base64.StdEncoding.EncodeToString(img)})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, errorMessage(resp.Body))
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	res := &Result{Width: pr.Width, Height: pr.Height, Objects: make([]Object, 0, len(pr.Detections))}
	if res.Width <= 0 || res.Height <= 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
		if err != nil {
			return nil, fmt.Errorf("inference response has no image size: %w", err)
		}
		res.Width, res.Height = cfg.Width, cfg.Height
	}
	for _, det := range pr.Detections {
		label := det.Label
		if label == "" {
			label = fmt.Sprintf("class_%d", det.ClassID)
		}
		res.Objects = append(res.Objects, Object{
			ClassID:    det.ClassID,
			Label:      label,
			Confidence: det.Confidence,
			X1:         det.Box.X1,
			Y1:         det.Box.Y1,
			X2:         det.Box.X2,
			Y2:         det.Box.Y2,
		})
	}
	return res, nil
}

// CheckHealth reports whether the inference service is reachable.
func (d *RemoteDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// errorMessage extracts {"error"} or {"detail"} from a failed response,
// falling back to the raw body.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Detail != "" {
			return body.Detail
		}
	}
	return strings.TrimSpace(string(raw))
}
