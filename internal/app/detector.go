package app

import (
	"github.com/kuldeep456789/VisionIQ/internal/config"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/service/ai"
	"github.com/kuldeep456789/VisionIQ/internal/service/ai/opencv"
)

func newDetector(cfg *config.Config, log *logger.Logger) (ai.Detector, error) {
	if cfg.Detector == config.DetectorRemote {
		return ai.NewRemoteDetector(cfg.InferenceURL, cfg.InferenceTimeout), nil
	}

	labels := ai.DefaultLabels()
	if cfg.LabelsPath != "" {
		var err error
		if labels, err = ai.LoadLabels(cfg.LabelsPath); err != nil {
			return nil, err
		}
	}
	det, err := opencv.New(opencv.Options{
		ModelPath:           cfg.ModelPath,
		ConfigPath:          cfg.ModelConfigPath,
		Format:              cfg.ModelFormat,
		InputSize:           cfg.InputSize,
		ConfidenceThreshold: float32(cfg.ConfidenceThreshold),
		NMSThreshold:        float32(cfg.NMSThreshold),
		Workers:             cfg.DetectorWorkers,
		Labels:              labels,
	}, log)
	if err != nil {
		return nil, err
	}
	return det, nil
}
