package opencv

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/kuldeep456789/VisionIQ/internal/service/ai"
	"gocv.io/x/gocv"
)

var boxColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}

// Annotate draws objects onto img and returns it re-encoded as JPEG.
func (d *Detector) Annotate(ctx context.Context, img []byte, objects []ai.Object) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	for _, o := range objects {
		rect := image.Rect(int(o.X1), int(o.Y1), int(o.X2), int(o.Y2))
		if err := gocv.Rectangle(&mat, rect, boxColor, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.2f)", o.Label, o.Confidence)
		pt := image.Pt(rect.Min.X, max(rect.Min.Y-5, 10))
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, boxColor, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
