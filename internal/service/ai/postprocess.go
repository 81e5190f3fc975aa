package ai

import (
	"math"
	"sort"

	"github.com/kuldeep456789/VisionIQ/internal/dto"
)

// ParseYOLOv8 decodes a YOLOv8 output tensor of shape [1, 4+numClasses, numBoxes]
// (row-major). Each column holds cx, cy, w, h in network-input pixels followed
// by per-class scores. sx and sy scale input pixels back to the source image.
// Candidates below threshold are dropped; NMS is left to the caller.
func ParseYOLOv8(data []float32, numClasses, numBoxes int, sx, sy, threshold float32, labels *Labels) []Object {
	if numClasses <= 0 || numBoxes <= 0 || len(data) < (4+numClasses)*numBoxes {
		return nil
	}

	at := func(row, col int) float32 { return data[row*numBoxes+col] }

	var objects []Object
	for i := 0; i < numBoxes; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := at(4+c, i); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}

		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)
		if !finite32(cx, cy, w, h) {
			continue
		}
		objects = append(objects, Object{
			ClassID:    best,
			Label:      labels.Name(best),
			Confidence: bestScore,
			X1:         (cx - w/2) * sx,
			Y1:         (cy - h/2) * sy,
			X2:         (cx + w/2) * sx,
			Y2:         (cy + h/2) * sy,
		})
	}
	return objects
}

// ParseSSD decodes an SSD DetectionOutput tensor: rows of
// [batch, category, confidence, x1, y1, x2, y2] with coordinates in [0,1].
func ParseSSD(data []float32, width, height int, threshold float32, labels *Labels) []Object {
	const stride = 7

	var objects []Object
	for i := 0; i+stride <= len(data); i += stride {
		conf := data[i+2]
		if !finite32(data[i+1:i+stride]...) || conf < threshold {
			continue
		}
		category := int(data[i+1])
		objects = append(objects, Object{
			ClassID:    category,
			Label:      labels.CategoryName(category),
			Confidence: conf,
			X1:         data[i+3] * float32(width),
			Y1:         data[i+4] * float32(height),
			X2:         data[i+5] * float32(width),
			Y2:         data[i+6] * float32(height),
		})
	}
	return objects
}

// Normalize converts a pixel xyxy box to a [0,1] xywh box. Coordinates are
// clamped so that x+width and y+height never exceed 1.
func Normalize(o Object, width, height int) dto.Box {
	if width <= 0 || height <= 0 {
		return dto.Box{}
	}
	x1 := clamp01(float64(o.X1) / float64(width))
	y1 := clamp01(float64(o.Y1) / float64(height))
	x2 := clamp01(float64(o.X2) / float64(width))
	y2 := clamp01(float64(o.Y2) / float64(height))
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return dto.Box{X: x1, Y: y1, Width: span(x1, x2), Height: span(y1, y2)}
}

// span returns hi-lo shrunk until lo+span <= 1 holds in floating point.
func span(lo, hi float64) float64 {
	s := hi - lo
	for s > 0 && lo+s > 1 {
		s = math.Nextafter(s, 0)
	}
	return s
}

// ToDetections maps a Result to the response form: objects below threshold
// are dropped, boxes normalized, highest confidence first.
func ToDetections(r *Result, threshold float32) []dto.Detection {
	out := make([]dto.Detection, 0, len(r.Objects))
	for _, o := range r.Objects {
		if !finite32(o.Confidence, o.X1, o.Y1, o.X2, o.Y2) || o.Confidence < threshold {
			continue
		}
		out = append(out, dto.Detection{
			Label:      o.Label,
			Confidence: clamp01(float64(o.Confidence)),
			Box:        Normalize(o, r.Width, r.Height),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func finite32(vs ...float32) bool {
	for _, v := range vs {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
