package ai

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

var cocoNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// cocoCategoryIDs are the 91-id COCO category numbers (with gaps) used by
// TensorFlow SSD graphs, in the order of cocoNames.
var cocoCategoryIDs = []int{
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25,
	27, 28, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 46, 47, 48, 49, 50, 51,
	52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 63, 64, 65, 67, 70, 72, 73, 74, 75, 76, 77,
	78, 79, 80, 81, 82, 84, 85, 86, 87, 88, 89, 90,
}

var categoryIndex = func() map[int]int {
	m := make(map[int]int, len(cocoCategoryIDs))
	for i, id := range cocoCategoryIDs {
		m[id] = i
	}
	return m
}()

// Labels maps model class ids to names.
type Labels struct {
	names []string
}

// DefaultLabels returns the 80 COCO class names.
func DefaultLabels() *Labels {
	return &Labels{names: cocoNames}
}

// LoadLabels reads one class name per line. Blank lines are skipped.
func LoadLabels(path string) (*Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return &Labels{names: names}, nil
}

// Len is the number of known classes.
func (l *Labels) Len() int {
	return len(l.names)
}

// Name returns the name of a zero-based class index.
func (l *Labels) Name(classID int) string {
	if classID >= 0 && classID < len(l.names) {
		return l.names[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}

// CategoryName returns the name of a 91-id COCO category as emitted by SSD graphs.
func (l *Labels) CategoryName(categoryID int) string {
	if idx, ok := categoryIndex[categoryID]; ok && idx < len(l.names) {
		return l.names[idx]
	}
	return fmt.Sprintf("class_%d", categoryID)
}
