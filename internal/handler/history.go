package handler

import (
	"net/http"
	"strconv"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/middleware"
	"github.com/kuldeep456789/VisionIQ/internal/service"
)

// HistoryHandler lists the caller's saved detections (?page=&limit=).
func HistoryHandler(svc *service.HistoryService, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		userID, ok := middleware.UserID(r.Context())
		if !ok {
			return common.ErrUnauthorized
		}
		page, err := queryInt(r, "page", 1)
		if err != nil {
			return err
		}
		limit, err := queryInt(r, "limit", service.DefaultHistoryLimit)
		if err != nil {
			return err
		}

		result, err := svc.List(r.Context(), userID, page, limit)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, result)
	})
}

func HistoryStatsHandler(svc *service.HistoryService, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		userID, ok := middleware.UserID(r.Context())
		if !ok {
			return common.ErrUnauthorized
		}
		stats, err := svc.Stats(r.Context(), userID)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, stats)
	})
}

// HistoryImageHandler serves the archived image of an entry, or redirects to
// a presigned URL when the archive supports it.
func HistoryImageHandler(svc *service.HistoryService, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		userID, ok := middleware.UserID(r.Context())
		if !ok {
			return common.ErrUnauthorized
		}
		id, err := pathID(r)
		if err != nil {
			return err
		}

		img, err := svc.Image(r.Context(), userID, id)
		if err != nil {
			return err
		}
		if img.RedirectURL != "" {
			http.Redirect(w, r, img.RedirectURL, http.StatusTemporaryRedirect)
			return nil
		}

		w.Header().Set("Content-Type", img.ContentType)
		w.Header().Set("Cache-Control", "private, max-age=3600")
		w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
		_, err = w.Write(img.Data)
		return err
	})
}

func DeleteHistoryHandler(svc *service.HistoryService, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		userID, ok := middleware.UserID(r.Context())
		if !ok {
			return common.ErrUnauthorized
		}
		id, err := pathID(r)
		if err != nil {
			return err
		}
		if err := svc.Delete(r.Context(), userID, id); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func ClearHistoryHandler(svc *service.HistoryService, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		userID, ok := middleware.UserID(r.Context())
		if !ok {
			return common.ErrUnauthorized
		}
		if err := svc.DeleteAll(r.Context(), userID); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewStatusError(http.StatusBadRequest, "Invalid id")
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, NewStatusError(http.StatusBadRequest, "Invalid "+key)
	}
	return n, nil
}
