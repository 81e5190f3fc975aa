// Package opencv runs YOLOv8 (ONNX) or SSD (TensorFlow) models through the
// OpenCV DNN module.
package opencv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/service/ai"
	"gocv.io/x/gocv"
)

const (
	FormatYOLO = "yolo"
	FormatSSD  = "ssd"

	ssdInputSize = 300
)

// Options configures the detector.
type Options struct {
	ModelPath           string
	ConfigPath          string // SSD graph description (.pbtxt)
	Format              string
	InputSize           int
	ConfidenceThreshold float32
	NMSThreshold        float32
	Workers             int
	Labels              *ai.Labels
}

// Detector holds a pool of networks. A gocv.Net must not be used from more
// than one goroutine at a time, so each Detect call borrows one.
type Detector struct {
	opts   Options
	pool   chan *gocv.Net
	nets   []*gocv.Net
	logger *logger.Logger
}

var (
	_ ai.Detector  = (*Detector)(nil)
	_ ai.Annotator = (*Detector)(nil)
)

// New loads opts.Workers copies of the model.
func New(opts Options, log *logger.Logger) (*Detector, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.InputSize <= 0 {
		opts.InputSize = 640
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = ai.DefaultConfidenceThreshold
	}
	if opts.NMSThreshold <= 0 {
		opts.NMSThreshold = ai.DefaultNMSThreshold
	}
	if opts.Labels == nil {
		opts.Labels = ai.DefaultLabels()
	}
	if opts.Format != FormatYOLO && opts.Format != FormatSSD {
		return nil, fmt.Errorf("unknown model format %q", opts.Format)
	}

	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", opts.ModelPath)
	}
	if opts.Format == FormatSSD {
		if _, err := os.Stat(opts.ConfigPath); err != nil {
			return nil, fmt.Errorf("config file not found: %s", opts.ConfigPath)
		}
	}

	d := &Detector{
		opts:   opts,
		pool:   make(chan *gocv.Net, opts.Workers),
		logger: log,
	}
	for i := 0; i < opts.Workers; i++ {
		net, err := d.loadNet()
		if err != nil {
			d.Close()
			return nil, err
		}
		d.nets = append(d.nets, net)
		d.pool <- net
	}

	log.Info("Detection network initialized: %s (%s, %d workers)", opts.ModelPath, opts.Format, opts.Workers)
	return d, nil
}

// loadNet reads the model and sets backend/target preferences.
func (d *Detector) loadNet() (*gocv.Net, error) {
	config := ""
	if d.opts.Format == FormatSSD {
		config = d.opts.ConfigPath
	}

	net := gocv.ReadNet(d.opts.ModelPath, config)
	if net.Empty() {
		return nil, errors.New("failed to load network")
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, errors.New("failed to set preferable backend or target")
	}
	return &net, nil
}

func (d *Detector) Name() string { return "opencv/" + d.opts.Format }

// Close releases every network. It must not be called while Detect runs.
func (d *Detector) Close() error {
	for _, n := range d.nets {
		n.Close()
	}
	d.nets = nil
	return nil
}

func (d *Detector) acquire(ctx context.Context) (*gocv.Net, error) {
	select {
	case net := <-d.pool:
		return net, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Detector) release(net *gocv.Net) {
	d.pool <- net
}

// Detect decodes img and runs the network on it.
func (d *Detector) Detect(ctx context.Context, img []byte) (*ai.Result, error) {
	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecodeImage, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: decoded image is empty", common.ErrDecodeImage)
	}

	net, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer d.release(net)

	res := &ai.Result{Width: mat.Cols(), Height: mat.Rows()}
	switch d.opts.Format {
	case FormatSSD:
		res.Objects, err = d.runSSD(net, mat)
	default:
		res.Objects, err = d.runYOLO(net, mat)
	}
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Detected %d objects in %dx%d image", len(res.Objects), res.Width, res.Height)
	return res, nil
}

func (d *Detector) runYOLO(net *gocv.Net, mat gocv.Mat) ([]ai.Object, error) {
	size := d.opts.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	net.SetInput(blob, "")
	output := net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected yolo output shape %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	rows, cols := dims[1], dims[2]
	// Some exports emit [1, boxes, 4+classes]; bring them into [1, 4+classes, boxes].
	if rows > cols {
		data = transpose(data, rows, cols)
		rows, cols = cols, rows
	}

	sx := float32(mat.Cols()) / float32(size)
	sy := float32(mat.Rows()) / float32(size)
	candidates := ai.ParseYOLOv8(data, rows-4, cols, sx, sy, d.opts.ConfidenceThreshold, d.opts.Labels)
	return d.suppress(candidates), nil
}

func (d *Detector) runSSD(net *gocv.Net, mat gocv.Mat) ([]ai.Object, error) {
	// Create blob with parameters that fit ssd coco net input
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(ssdInputSize, ssdInputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	net.SetInput(blob, "")
	output := net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}
	candidates := ai.ParseSSD(data, mat.Cols(), mat.Rows(), d.opts.ConfidenceThreshold, d.opts.Labels)
	return d.suppress(candidates), nil
}

// suppress runs per-class non-maximum suppression.
func (d *Detector) suppress(objects []ai.Object) []ai.Object {
	byClass := make(map[int][]ai.Object)
	for _, o := range objects {
		byClass[o.ClassID] = append(byClass[o.ClassID], o)
	}

	kept := make([]ai.Object, 0, len(objects))
	for _, group := range byClass {
		boxes := make([]image.Rectangle, len(group))
		scores := make([]float32, len(group))
		for i, o := range group {
			boxes[i] = image.Rect(int(o.X1), int(o.Y1), int(o.X2), int(o.Y2))
			scores[i] = o.Confidence
		}
		for _, idx := range gocv.NMSBoxes(boxes, scores, d.opts.ConfidenceThreshold, d.opts.NMSThreshold) {
			kept = append(kept, group[idx])
		}
	}
	return kept
}

func transpose(data []float32, rows, cols int) []float32 {
	out := make([]float32, len(data))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[c*rows+r] = data[r*cols+c]
		}
	}
	return out
}
