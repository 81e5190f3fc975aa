package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/repository"
	"github.com/kuldeep456789/VisionIQ/internal/service"
)

const healthTimeout = 3 * time.Second

// HealthHandler reports the detector and storage backends. store may be nil.
func HealthHandler(svc *service.DetectionService, store repository.Store, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := dto.HealthResponse{Status: "ok", Detector: svc.DetectorName(), Storage: "none"}
		status := http.StatusOK

		if err := svc.CheckDetector(ctx); err != nil {
			logger.Warning("Detector health check failed: %v", err)
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		if store != nil {
			resp.Storage = store.Name()
			if err := store.Ping(ctx); err != nil {
				logger.Warning("Storage health check failed: %v", err)
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		return writeJSON(w, status, resp)
	})
}
