package dto

import "encoding/json"

// Box is a bounding box normalized to [0,1] of the image size.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one detected object as returned to clients.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// DetectRequest is the body of POST /detect and POST /detect/annotate.
// Image is raw base64 or a data: URI. Save overrides the server default.
type DetectRequest struct {
	Image  string `json:"image"`
	Source string `json:"source,omitempty"`
	Save   *bool  `json:"save,omitempty"`
}

// LiveFrame is a text frame sent to /ws/detect.
type LiveFrame struct {
	Image string `json:"image"`
}

// LiveResult answers one /ws/detect frame. It carries either detections
// or an error, never both.
type LiveResult struct {
	Frame      int64       `json:"frame"`
	Detections []Detection `json:"detections"`
	Error      string      `json:"error,omitempty"`
}

func (r LiveResult) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Frame int64  `json:"frame"`
			Error string `json:"error"`
		}{r.Frame, r.Error})
	}
	type plain LiveResult
	p := plain(r)
	if p.Detections == nil {
		p.Detections = []Detection{}
	}
	return json.Marshal(p)
}
