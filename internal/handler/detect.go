package handler

import (
	"net/http"

	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/middleware"
	"github.com/kuldeep456789/VisionIQ/internal/service"
)

// DetectHandler runs detection on a base64 image and answers with the bare
// array of detections.
func DetectHandler(svc *service.DetectionService, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		var req dto.DetectRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}

		detections, err := svc.DetectEncoded(r.Context(), req, middleware.UserIDPtr(r.Context()))
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, detections)
	})
}

// AnnotateHandler answers with the image as JPEG with detections drawn on it.
func AnnotateHandler(svc *service.DetectionService, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		var req dto.DetectRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}

		img, err := svc.Annotate(r.Context(), req)
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-store")
		_, err = w.Write(img)
		return err
	})
}
